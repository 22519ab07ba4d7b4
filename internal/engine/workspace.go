package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/frame2report/internal/analyzer"
	"github.com/ivlev/frame2report/internal/annotate"
	"github.com/ivlev/frame2report/internal/config"
	"github.com/ivlev/frame2report/internal/events"
	"github.com/ivlev/frame2report/internal/fault"
	"github.com/ivlev/frame2report/internal/renderer"
	"github.com/ivlev/frame2report/internal/report"
	"github.com/ivlev/frame2report/internal/system"
	"github.com/ivlev/frame2report/internal/timecode"
	"github.com/ivlev/frame2report/internal/video"
)

// SliderMax is the resolution of the position slider.
const SliderMax = 1000

const capturePrefix = "screenshot"

// Workspace holds the whole application state: the loaded video, the log of
// findings, the annotation editor and the exporter. It is driven from a
// single event loop and is not safe for concurrent use.
type Workspace struct {
	Config   *config.Config
	Player   video.Player
	Capturer video.Capturer

	log      *events.Log
	editor   *annotate.Editor
	exporter *report.Exporter
	finder   *analyzer.ContrastFinder
	logger   logrus.FieldLogger

	dragging bool
	status   Status
}

// Status is what the front end shows between commands.
type Status struct {
	Video    string
	Position float64
	Length   float64
	Playing  bool
	Slider   int
	Clock    string
	Editor   annotate.State
	Findings int
}

func NewWorkspace(cfg *config.Config, player video.Player, capturer video.Capturer, writer report.Writer, logger logrus.FieldLogger) (*Workspace, error) {
	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", fault.ErrFileIO, err)
	}

	style, err := styleFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	face, err := renderer.LoadFace(cfg.LabelFont, cfg.LabelFontSize)
	if err != nil {
		logger.WithError(err).Warn("label font unavailable, using fallback")
	}

	log := events.NewLog(logger, cfg.UnknownVideo)
	exporter := report.NewExporter(log, writer, logger)
	exporter.MinFreeBytes = cfg.MinFreeBytes

	w := &Workspace{
		Config:   cfg,
		Player:   player,
		Capturer: capturer,
		log:      log,
		exporter: exporter,
		finder:   analyzer.NewContrastFinder(),
		logger:   logger,
	}
	w.editor = annotate.NewEditor(annotate.Options{
		Dir:                cfg.WorkDir,
		DisplayWidth:       cfg.DisplayWidth,
		DisplayHeight:      cfg.DisplayHeight,
		Separator:          cfg.LabelSeparator,
		DefaultDescription: cfg.DefaultDescription,
		MinFreeBytes:       cfg.MinFreeBytes,
		Style:              style,
		Face:               face,
		Logger:             logger,
	}, player)
	return w, nil
}

func styleFromConfig(cfg *config.Config) (annotate.Style, error) {
	style := annotate.DefaultStyle()
	style.ArrowWidth = cfg.ArrowWidth
	style.LabelPadding = cfg.LabelPadding

	var err error
	if style.ArrowColor, err = renderer.ParseHexColor(cfg.ArrowColor); err != nil {
		return style, fmt.Errorf("arrow color: %v", err)
	}
	if style.LabelBackground, err = renderer.ParseHexColor(cfg.LabelBackground); err != nil {
		return style, fmt.Errorf("label background: %v", err)
	}
	if style.LabelText, err = renderer.ParseHexColor(cfg.LabelForeground); err != nil {
		return style, fmt.Errorf("label foreground: %v", err)
	}
	return style, nil
}

func (w *Workspace) Log() *events.Log {
	return w.log
}

func (w *Workspace) Editor() *annotate.Editor {
	return w.editor
}

// OpenVideo loads path, or the newest video in the configured video
// directory when path is empty.
func (w *Workspace) OpenVideo(path string) (string, error) {
	if err := w.idle("open a video"); err != nil {
		return "", err
	}
	if path == "" {
		latest, err := system.FindLatestVideo(w.Config.VideoDir)
		if err != nil {
			return "", fmt.Errorf("%w: %v", fault.ErrMissingInput, err)
		}
		path = latest
	}
	if err := w.Player.Load(path); err != nil {
		return "", err
	}
	w.logger.WithFields(logrus.Fields{
		"video":  path,
		"length": w.Player.Length(),
	}).Info("video opened")
	w.Refresh()
	return path, nil
}

func (w *Workspace) Play() error {
	if err := w.idle("play"); err != nil {
		return err
	}
	return w.Player.Play()
}

func (w *Workspace) Pause() error {
	return w.Player.Pause()
}

func (w *Workspace) TogglePlay() error {
	if w.Player.IsPlaying() {
		return w.Pause()
	}
	return w.Play()
}

// SkipForward moves one step ahead. Reaching the end stops playback.
func (w *Workspace) SkipForward() error {
	if err := w.loadedAndIdle("skip"); err != nil {
		return err
	}
	length := w.Player.Length()
	pos := w.Player.Position() + w.Config.SkipStep.Seconds()
	if pos >= length {
		pos = length
	}
	if err := w.Player.SetPosition(pos); err != nil {
		return err
	}
	if pos >= length {
		w.Player.Pause()
	}
	w.Refresh()
	return nil
}

// SkipBackward moves one step back and resumes playback.
func (w *Workspace) SkipBackward() error {
	if err := w.loadedAndIdle("skip"); err != nil {
		return err
	}
	pos := w.Player.Position() - w.Config.SkipStep.Seconds()
	if pos < 0 {
		pos = 0
	}
	if err := w.Player.SetPosition(pos); err != nil {
		return err
	}
	if err := w.Player.Play(); err != nil {
		return err
	}
	w.Refresh()
	return nil
}

// Seek jumps to an absolute position in seconds.
func (w *Workspace) Seek(seconds float64) error {
	if err := w.loadedAndIdle("seek"); err != nil {
		return err
	}
	if err := w.Player.SetPosition(seconds); err != nil {
		return err
	}
	w.Refresh()
	return nil
}

// SliderPress suspends position write-back until SliderRelease.
func (w *Workspace) SliderPress() {
	w.dragging = true
}

// SliderRelease ends a drag and seeks to value on the 0..SliderMax scale.
func (w *Workspace) SliderRelease(value int) error {
	w.dragging = false
	if value < 0 {
		value = 0
	}
	if value > SliderMax {
		value = SliderMax
	}
	if !w.Player.Loaded() || w.Player.Length() <= 0 {
		return nil
	}
	return w.Seek(float64(value) * w.Player.Length() / SliderMax)
}

// AddTextEvent captures the current frame and logs it with text as the
// description. Returns the display number of the new finding.
func (w *Workspace) AddTextEvent(ctx context.Context, text string) (int, error) {
	if err := w.loadedAndIdle("add a note"); err != nil {
		return 0, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("%w: enter the finding text", fault.ErrMissingInput)
	}

	pos := w.Player.Position()
	path, err := w.capture(ctx, pos)
	if err != nil {
		return 0, err
	}

	n, err := w.log.Append(events.Record{
		Kind:        events.KindScreenshot,
		Timestamp:   pos,
		Description: text,
		ImagePath:   path,
		SourceVideo: w.Player.Source(),
	})
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return n, nil
}

// BeginPointerEvent pauses playback, captures the current frame and opens an
// annotation session over it.
func (w *Workspace) BeginPointerEvent(ctx context.Context) error {
	if err := w.loadedAndIdle("annotate"); err != nil {
		return err
	}

	wasPlaying := w.Player.IsPlaying()
	w.Player.Pause()
	pos := w.Player.Position()

	resume := func() {
		if wasPlaying {
			w.Player.Play()
		}
	}

	path, err := w.capture(ctx, pos)
	if err != nil {
		resume()
		return err
	}
	if err := w.editor.Begin(path, pos, w.Player.Source(), wasPlaying); err != nil {
		os.Remove(path)
		resume()
		return err
	}
	if w.finder.Blank(w.editor.Preview()) {
		w.logger.WithFields(logrus.Fields{
			"video":    w.Player.Source(),
			"position": pos,
		}).Warn("captured frame looks blank")
	}
	return nil
}

// Targets lists up to limit high-contrast regions of the open annotation in
// canvas coordinates, largest first. An empty result means the frame is
// blank.
func (w *Workspace) Targets(limit int) ([]analyzer.Region, error) {
	img := w.editor.Preview()
	if img == nil || !w.editor.State().Open() {
		return nil, fmt.Errorf("%w: no annotation open", fault.ErrPrecondition)
	}
	if w.finder.Blank(img) {
		return nil, nil
	}
	return w.finder.Find(img, limit), nil
}

// FinishPointerEvent saves the open annotation and logs it.
func (w *Workspace) FinishPointerEvent() (int, error) {
	rec, err := w.editor.Save()
	if err != nil {
		return 0, err
	}
	n, err := w.log.Append(rec)
	if err != nil {
		os.Remove(rec.ImagePath)
		return 0, err
	}
	return n, nil
}

// CloseAnnotation abandons the open annotation.
func (w *Workspace) CloseAnnotation() error {
	return w.editor.Close()
}

// DeleteEvents removes findings by their 1-based display numbers.
func (w *Workspace) DeleteEvents(numbers ...int) error {
	if len(numbers) == 0 {
		return fmt.Errorf("%w: select a finding to delete", fault.ErrPrecondition)
	}
	indices := make([]int, len(numbers))
	for i, n := range numbers {
		indices[i] = n - 1
	}
	return w.log.Delete(indices...)
}

// CreateReport exports the log to dest with the configured template.
func (w *Workspace) CreateReport(dest string) (report.Result, error) {
	return w.exporter.Export(w.Config.TemplatePath, dest)
}

// Refresh samples the player. While a slider drag is in progress the last
// status is kept.
func (w *Workspace) Refresh() Status {
	if w.dragging {
		return w.status
	}

	s := Status{
		Video:    w.Player.Source(),
		Position: w.Player.Position(),
		Length:   w.Player.Length(),
		Playing:  w.Player.IsPlaying(),
		Editor:   w.editor.State(),
		Findings: w.log.Len(),
	}
	if s.Length > 0 {
		s.Slider = int(s.Position * SliderMax / s.Length)
	}
	s.Clock = timecode.Clock(s.Position, s.Length)
	w.status = s
	return s
}

// Status returns the last refreshed status.
func (w *Workspace) Status() Status {
	return w.status
}

// RunRefresher emits a tick every RefreshInterval until ctx is done. The
// receiver calls Refresh from its own loop.
func (w *Workspace) RunRefresher(ctx context.Context, ticks chan<- time.Time) error {
	t := time.NewTicker(w.Config.RefreshInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			select {
			case ticks <- now:
			default:
			}
		}
	}
}

// Close discards any open annotation and pauses playback.
func (w *Workspace) Close() {
	if w.editor.State().Open() {
		w.editor.Close()
	}
	w.Player.Pause()
}

func (w *Workspace) capture(ctx context.Context, pos float64) (string, error) {
	if err := system.EnsureFreeSpace(w.Config.WorkDir, w.Config.MinFreeBytes); err != nil {
		return "", err
	}
	path := system.NewImagePath(w.Config.WorkDir, capturePrefix)
	if err := w.Capturer.Capture(ctx, w.Player.Source(), pos, path); err != nil {
		w.logger.WithFields(logrus.Fields{
			"video":    w.Player.Source(),
			"position": pos,
			"error":    err,
		}).Error("frame capture failed")
		return "", err
	}
	return path, nil
}

func (w *Workspace) idle(op string) error {
	if w.editor.State().Open() {
		return fmt.Errorf("%w: cannot %s while an annotation is open", fault.ErrPrecondition, op)
	}
	return nil
}

func (w *Workspace) loadedAndIdle(op string) error {
	if !w.Player.Loaded() {
		return fmt.Errorf("%w: open a video first", fault.ErrPrecondition)
	}
	return w.idle(op)
}
