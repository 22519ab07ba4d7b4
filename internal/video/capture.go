package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ivlev/frame2report/internal/fault"
)

// Capturer extracts the frame at position into a still image file at dest.
type Capturer interface {
	Capture(ctx context.Context, videoPath string, position float64, dest string) error
}

// FFmpegCapturer grabs a single frame with the system ffmpeg.
type FFmpegCapturer struct {
	FFmpeg string
}

func (c *FFmpegCapturer) Capture(ctx context.Context, videoPath string, position float64, dest string) error {
	bin := c.FFmpeg
	if bin == "" {
		bin = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, bin, c.buildArgs(videoPath, position, dest)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("%w: ffmpeg snapshot error: %v, output: %s", fault.ErrCapture, err, strings.TrimSpace(string(out)))
	}

	fi, err := os.Stat(dest)
	if err != nil || fi.Size() == 0 {
		os.Remove(dest)
		return fmt.Errorf("%w: no frame written to %s", fault.ErrCapture, dest)
	}
	return nil
}

func (c *FFmpegCapturer) buildArgs(videoPath string, position float64, dest string) []string {
	if position < 0 {
		position = 0
	}
	return []string{
		"-y",
		"-v", "error",
		"-ss", fmt.Sprintf("%.3f", position),
		"-i", videoPath,
		"-frames:v", "1",
		dest,
	}
}
