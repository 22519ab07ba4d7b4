package events

import (
	"fmt"

	"github.com/ivlev/frame2report/internal/timecode"
)

// Kind tags what backs a finding. Only screenshot-backed findings exist today.
type Kind string

const KindScreenshot Kind = "screenshot"

// Record is one reportable finding tied to a playback position.
type Record struct {
	Kind        Kind
	Timestamp   float64 // Playback position in seconds
	Description string
	ImagePath   string // Exclusively owned by this record
	SourceVideo string // Empty when the video is unknown
}

// DisplayLine renders the list entry for the record at 1-based position n.
func (r Record) DisplayLine(n int) string {
	return fmt.Sprintf("Finding %d - Time: %s - %s", n, timecode.Format(r.Timestamp), r.Description)
}
