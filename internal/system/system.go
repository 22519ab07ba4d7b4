package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/ivlev/frame2report/internal/fault"
)

var videoExtensions = []string{".mp4", ".avi", ".mkv", ".mov", ".webm"}

// FindLatestVideo returns the most recently modified video file in dir.
func FindLatestVideo(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExtension(f.Name(), videoExtensions) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no video files found in %s", dir)
	}

	return latestFile, nil
}

// IsVideo reports whether path has a known video extension.
func IsVideo(path string) bool {
	return hasExtension(path, videoExtensions)
}

func hasExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// GetMediaDuration asks ffprobe for the container duration in seconds.
func GetMediaDuration(ffprobe, path string) (float64, error) {
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	cmd := exec.Command(ffprobe, "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe error: %v, output: %s", err, strings.TrimSpace(string(out)))
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}

	return duration, nil
}

// EnsureFreeSpace fails with fault.ErrFileIO when the volume holding dir has
// less than need bytes available. need == 0 disables the check.
func EnsureFreeSpace(dir string, need uint64) error {
	if need == 0 {
		return nil
	}
	if dir == "" {
		dir = "."
	}
	usage, err := disk.Usage(dir)
	if err != nil {
		return fmt.Errorf("%w: disk usage for %s: %v", fault.ErrFileIO, dir, err)
	}
	if usage.Free < need {
		return fmt.Errorf("%w: only %d bytes free in %s, need %d", fault.ErrFileIO, usage.Free, dir, need)
	}
	return nil
}

// NewImagePath builds a collision-free PNG path in dir. The name carries a
// nanosecond timestamp plus a random suffix.
func NewImagePath(dir, prefix string) string {
	name := fmt.Sprintf("%s_%d_%s.png", prefix, time.Now().UnixNano(), uuid.NewString()[:8])
	return filepath.Join(dir, name)
}
