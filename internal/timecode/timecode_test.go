package timecode

import (
	"fmt"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{60, "01:00"},
		{59.99, "00:59"},
		{3599, "59:59"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{36000 + 62.4, "10:01:02"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Format(tt.seconds); got != tt.want {
				t.Errorf("Format(%v) = %s, want %s", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for s := 0; s < 2*3600; s += 37 {
		got := Format(float64(s))

		var h, m, sec int
		if s >= 3600 {
			if _, err := fmt.Sscanf(got, "%d:%d:%d", &h, &m, &sec); err != nil {
				t.Fatalf("Format(%d) = %q: %v", s, got, err)
			}
		} else {
			if _, err := fmt.Sscanf(got, "%d:%d", &m, &sec); err != nil {
				t.Fatalf("Format(%d) = %q: %v", s, got, err)
			}
		}

		if h*3600+m*60+sec != s {
			t.Errorf("Format(%d) = %q does not round-trip", s, got)
		}
		if m > 59 || sec > 59 {
			t.Errorf("Format(%d) = %q has out-of-range fields", s, got)
		}
	}
}

func TestClock(t *testing.T) {
	if got := Clock(65, 3700); got != "01:05 / 01:01:40" {
		t.Errorf("Clock = %s", got)
	}
}
