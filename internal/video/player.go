package video

import (
	"fmt"
	"time"

	"github.com/ivlev/frame2report/internal/fault"
	"github.com/ivlev/frame2report/internal/system"
)

// Player is the playback control surface the workspace drives. Positions are
// in seconds.
type Player interface {
	Load(path string) error
	Loaded() bool
	Source() string
	Play() error
	Pause() error
	IsPlaying() bool
	Position() float64
	SetPosition(seconds float64) error
	Length() float64
}

// ClockPlayer models playback against the wall clock: while playing, the
// position advances in real time and stops at the end of the video. The
// length comes from ffprobe. Not safe for concurrent use; it is driven from
// the single event loop.
type ClockPlayer struct {
	FFprobe string

	probe func(ffprobe, path string) (float64, error)
	now   func() time.Time

	path    string
	length  float64
	playing bool
	base    float64   // Position when playback last started or was set
	since   time.Time // Wall time matching base while playing
}

func NewClockPlayer(ffprobe string) *ClockPlayer {
	return &ClockPlayer{
		FFprobe: ffprobe,
		probe:   system.GetMediaDuration,
		now:     time.Now,
	}
}

func (p *ClockPlayer) Load(path string) error {
	if path == "" {
		return fmt.Errorf("%w: no video selected", fault.ErrMissingInput)
	}
	length, err := p.probe(p.FFprobe, path)
	if err != nil {
		return fmt.Errorf("%w: %v", fault.ErrFileIO, err)
	}
	p.path = path
	p.length = length
	p.playing = false
	p.base = 0
	return nil
}

func (p *ClockPlayer) Loaded() bool {
	return p.path != ""
}

func (p *ClockPlayer) Source() string {
	return p.path
}

func (p *ClockPlayer) Play() error {
	if !p.Loaded() {
		return fmt.Errorf("%w: open a video first", fault.ErrPrecondition)
	}
	if p.playing {
		return nil
	}
	if p.base >= p.length {
		p.base = 0
	}
	p.playing = true
	p.since = p.now()
	return nil
}

func (p *ClockPlayer) Pause() error {
	if !p.Loaded() {
		return nil
	}
	p.base = p.Position()
	p.playing = false
	return nil
}

func (p *ClockPlayer) IsPlaying() bool {
	if p.playing && p.Position() >= p.length {
		p.base = p.length
		p.playing = false
	}
	return p.playing
}

func (p *ClockPlayer) Position() float64 {
	if !p.playing {
		return p.base
	}
	pos := p.base + p.now().Sub(p.since).Seconds()
	if pos > p.length {
		pos = p.length
	}
	return pos
}

func (p *ClockPlayer) SetPosition(seconds float64) error {
	if !p.Loaded() {
		return fmt.Errorf("%w: open a video first", fault.ErrPrecondition)
	}
	if seconds < 0 {
		seconds = 0
	}
	if seconds > p.length {
		seconds = p.length
	}
	p.base = seconds
	p.since = p.now()
	return nil
}

func (p *ClockPlayer) Length() float64 {
	return p.length
}
