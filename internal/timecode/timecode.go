package timecode

import "fmt"

// Format renders a playback position as MM:SS, or HH:MM:SS from one hour on.
// Fractions are truncated; negative input is outside the contract.
func Format(seconds float64) string {
	total := int64(seconds)
	hrs := total / 3600
	mins := (total % 3600) / 60
	secs := total % 60
	if total >= 3600 {
		return fmt.Sprintf("%02d:%02d:%02d", hrs, mins, secs)
	}
	return fmt.Sprintf("%02d:%02d", mins, secs)
}

// Clock renders the "position / length" status line.
func Clock(position, length float64) string {
	return fmt.Sprintf("%s / %s", Format(position), Format(length))
}
