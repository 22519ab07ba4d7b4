package annotate

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"

	"github.com/ivlev/frame2report/internal/events"
	"github.com/ivlev/frame2report/internal/fault"
	"github.com/ivlev/frame2report/internal/renderer"
	"github.com/ivlev/frame2report/internal/source"
	"github.com/ivlev/frame2report/internal/system"
)

const (
	DefaultDescription = "Marked with pointer"
	DefaultSeparator   = "; "
	DefaultPrefix      = "annotated"
)

// Playback is the part of the player a session touches when it ends.
type Playback interface {
	Play() error
	Pause() error
}

// Options configures an Editor. Zero values fall back to defaults.
type Options struct {
	Dir                string // Where annotated images are written
	Prefix             string
	DisplayWidth       int
	DisplayHeight      int
	Separator          string
	DefaultDescription string
	MinFreeBytes       uint64
	Style              Style
	Face               font.Face
	Logger             logrus.FieldLogger
}

// Editor runs one annotation session at a time over a captured frame.
type Editor struct {
	opts     Options
	player   Playback
	state    State
	sess     *session
	watchers []func(from, to State)
}

type session struct {
	basePath    string
	timestamp   float64
	sourceVideo string
	wasPlaying  bool

	base    *image.RGBA // Scaled capture, never drawn on
	working *image.RGBA // Accumulates committed marks
	display *image.RGBA // Pooled buffer: working plus live arrow

	start, end image.Point
	labels     []string
}

func NewEditor(opts Options, player Playback) *Editor {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Separator == "" {
		opts.Separator = DefaultSeparator
	}
	if opts.DefaultDescription == "" {
		opts.DefaultDescription = DefaultDescription
	}
	if opts.Style == (Style{}) {
		opts.Style = DefaultStyle()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Face == nil {
		face, err := renderer.LoadFace("", 24)
		if err != nil {
			opts.Logger.WithError(err).Warn("default label font unavailable")
		}
		opts.Face = face
	}
	return &Editor{opts: opts, player: player, state: Idle}
}

// OnStateChange registers fn to run after every transition.
func (e *Editor) OnStateChange(fn func(from, to State)) {
	e.watchers = append(e.watchers, fn)
}

func (e *Editor) State() State {
	return e.state
}

// Labels returns the labels committed so far in this session.
func (e *Editor) Labels() []string {
	if e.sess == nil {
		return nil
	}
	return append([]string(nil), e.sess.labels...)
}

// Size is the display size all session points are measured in.
func (e *Editor) Size() image.Point {
	if e.sess == nil {
		return image.Point{}
	}
	return e.sess.base.Bounds().Size()
}

// Begin opens a session over the still at basePath. The image is fitted into
// the display area; points passed later are in that scaled space.
func (e *Editor) Begin(basePath string, timestamp float64, sourceVideo string, wasPlaying bool) error {
	if e.state.Open() {
		return fmt.Errorf("%w: an annotation session is already open", fault.ErrPrecondition)
	}

	img, err := source.LoadFrame(basePath)
	if err != nil {
		return err
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if e.opts.DisplayWidth > 0 && e.opts.DisplayHeight > 0 {
		w, h = renderer.FitSize(w, h, e.opts.DisplayWidth, e.opts.DisplayHeight)
	}
	base := renderer.Scale(img, w, h)

	e.sess = &session{
		basePath:    basePath,
		timestamp:   timestamp,
		sourceVideo: sourceVideo,
		wasPlaying:  wasPlaying,
		base:        base,
		working:     renderer.Clone(base),
		display:     system.GetImage(base.Rect),
	}
	e.opts.Logger.WithFields(logrus.Fields{
		"frame":     basePath,
		"timestamp": timestamp,
		"size":      fmt.Sprintf("%dx%d", w, h),
	}).Debug("annotation session opened")

	e.transition(Editing)
	return nil
}

// Press starts an arrow at p.
func (e *Editor) Press(p image.Point) error {
	if err := e.require(Editing, "press"); err != nil {
		return err
	}
	p = e.clamp(p)
	e.sess.start, e.sess.end = p, p
	e.transition(Dragging)
	return nil
}

// Drag moves the live arrow's end. The working image is not touched.
func (e *Editor) Drag(p image.Point) error {
	if err := e.require(Dragging, "drag"); err != nil {
		return err
	}
	e.sess.end = e.clamp(p)
	return nil
}

// Release fixes the arrow end at p and waits for a label.
func (e *Editor) Release(p image.Point) error {
	if err := e.require(Dragging, "release"); err != nil {
		return err
	}
	e.sess.end = e.clamp(p)
	e.transition(Labeling)
	return nil
}

// LabelAnchor is where the label input belongs while in Labeling.
func (e *Editor) LabelAnchor() (image.Point, bool) {
	if e.state != Labeling {
		return image.Point{}, false
	}
	return e.sess.end, true
}

// CommitLabel burns the pending arrow into the working image, plus a boxed
// label at its end when text is non-empty.
func (e *Editor) CommitLabel(text string) error {
	if err := e.require(Labeling, "commit label"); err != nil {
		return err
	}
	s, st := e.sess, e.opts.Style

	renderer.DrawArrow(s.working, s.start, s.end, st.ArrowColor, st.ArrowWidth)

	text = strings.TrimSpace(text)
	if text != "" {
		s.labels = append(s.labels, text)
		renderer.DrawLabel(s.working, e.opts.Face, s.end, text, st.LabelBackground, st.LabelText, st.LabelPadding)
	}

	e.transition(Editing)
	return nil
}

// CancelLabel drops the pending arrow without drawing anything.
func (e *Editor) CancelLabel() error {
	if err := e.require(Labeling, "cancel label"); err != nil {
		return err
	}
	e.transition(Editing)
	return nil
}

// Reset discards every committed mark and label.
func (e *Editor) Reset() error {
	if err := e.require(Editing, "reset"); err != nil {
		return err
	}
	renderer.CopyInto(e.sess.working, e.sess.base)
	e.sess.labels = nil
	return nil
}

// Preview composes what the user should see: committed marks plus the live
// arrow during a gesture. The buffer is reused and only valid until the next
// call or the end of the session.
func (e *Editor) Preview() image.Image {
	s := e.sess
	if s == nil {
		return nil
	}
	renderer.CopyInto(s.display, s.working)
	if e.state == Dragging || e.state == Labeling {
		renderer.DrawArrow(s.display, s.start, s.end, e.opts.Style.ArrowColor, e.opts.Style.ArrowWidth)
	}
	return s.display
}

// Save writes the working image to a fresh file and returns the finding for
// it. On a write failure the whole session is discarded.
func (e *Editor) Save() (events.Record, error) {
	if err := e.require(Editing, "save"); err != nil {
		return events.Record{}, err
	}
	s := e.sess

	path := system.NewImagePath(e.opts.Dir, e.opts.Prefix)
	if err := e.writeWorking(path); err != nil {
		e.opts.Logger.WithFields(logrus.Fields{"image": path, "error": err}).Error("annotation could not be saved")
		e.finish(Cancelled)
		return events.Record{}, err
	}

	description := e.opts.DefaultDescription
	if len(s.labels) > 0 {
		description = strings.Join(s.labels, e.opts.Separator)
	}

	rec := events.Record{
		Kind:        events.KindScreenshot,
		Timestamp:   s.timestamp,
		Description: description,
		ImagePath:   path,
		SourceVideo: s.sourceVideo,
	}
	e.finish(Saved)
	return rec, nil
}

// Close abandons the session without producing a finding.
func (e *Editor) Close() error {
	if !e.state.Open() {
		return fmt.Errorf("%w: no annotation session to close", fault.ErrPrecondition)
	}
	e.finish(Cancelled)
	return nil
}

func (e *Editor) writeWorking(path string) error {
	if err := system.EnsureFreeSpace(e.opts.Dir, e.opts.MinFreeBytes); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", fault.ErrFileIO, err)
	}
	if err := png.Encode(f, e.sess.working); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("%w: encode %s: %v", fault.ErrFileIO, path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: %v", fault.ErrFileIO, err)
	}
	return nil
}

// finish tears the session down: the base capture goes away, playback resumes
// only if it was running when the session began.
func (e *Editor) finish(to State) {
	s := e.sess
	log := e.opts.Logger.WithField("frame", s.basePath)

	if err := os.Remove(s.basePath); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("could not delete captured frame")
	}
	system.PutImage(s.display)
	e.sess = nil

	if e.player != nil {
		var err error
		if s.wasPlaying {
			err = e.player.Play()
		} else {
			err = e.player.Pause()
		}
		if err != nil {
			log.WithError(err).Warn("could not restore playback")
		}
	}

	e.transition(to)
}

func (e *Editor) require(want State, op string) error {
	if e.state != want {
		return fmt.Errorf("%w: cannot %s while %s", fault.ErrPrecondition, op, e.state)
	}
	return nil
}

func (e *Editor) clamp(p image.Point) image.Point {
	b := e.sess.base.Bounds()
	if p.X < b.Min.X {
		p.X = b.Min.X
	}
	if p.Y < b.Min.Y {
		p.Y = b.Min.Y
	}
	if p.X >= b.Max.X {
		p.X = b.Max.X - 1
	}
	if p.Y >= b.Max.Y {
		p.Y = b.Max.Y - 1
	}
	return p
}

func (e *Editor) transition(to State) {
	from := e.state
	e.state = to
	for _, fn := range e.watchers {
		fn(from, to)
	}
}
