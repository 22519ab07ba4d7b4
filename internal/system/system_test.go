package system

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFindLatestVideo(t *testing.T) {
	dir := t.TempDir()

	files := []string{"old.mp4", "newest.MKV", "notes.txt", "middle.avi"}
	for i, name := range files {
		path := filepath.Join(dir, name)
		os.WriteFile(path, []byte("x"), 0644)
		modTime := time.Now().Add(-time.Duration(len(files)-i) * time.Hour)
		if name == "newest.MKV" {
			modTime = time.Now()
		}
		os.Chtimes(path, modTime, modTime)
	}

	latest, err := FindLatestVideo(dir)
	if err != nil {
		t.Fatalf("FindLatestVideo failed: %v", err)
	}
	if filepath.Base(latest) != "newest.MKV" {
		t.Errorf("Expected newest.MKV, got %s", latest)
	}
}

func TestFindLatestVideoEmpty(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644)

	if _, err := FindLatestVideo(dir); err == nil {
		t.Error("Expected error for a directory without videos")
	}
}

func TestNewImagePathUnique(t *testing.T) {
	dir := t.TempDir()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		p := NewImagePath(dir, "capture")
		if seen[p] {
			t.Fatalf("Duplicate path %s", p)
		}
		seen[p] = true
		if !strings.HasPrefix(filepath.Base(p), "capture_") || filepath.Ext(p) != ".png" {
			t.Errorf("Unexpected name %s", p)
		}
		if filepath.Dir(p) != dir {
			t.Errorf("Expected dir %s, got %s", dir, filepath.Dir(p))
		}
	}
}

func TestEnsureFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureFreeSpace(dir, 0); err != nil {
		t.Errorf("Disabled check failed: %v", err)
	}
	if err := EnsureFreeSpace(dir, 1); err != nil {
		t.Errorf("One byte should be available: %v", err)
	}
	if err := EnsureFreeSpace(dir, ^uint64(0)); err == nil {
		t.Error("Expected failure for an impossible requirement")
	}
}

func TestFramePool(t *testing.T) {
	rect := image.Rect(0, 0, 16, 9)
	img := GetImage(rect)
	if img.Bounds() != rect {
		t.Fatalf("Expected %v, got %v", rect, img.Bounds())
	}
	PutImage(img)
	PutImage(nil)

	again := GetImage(rect)
	if again.Bounds() != rect {
		t.Errorf("Expected %v, got %v", rect, again.Bounds())
	}

	// Same size at another origin shares the pool.
	shifted := image.Rect(5, 5, 21, 14)
	PutImage(again)
	img = GetImage(shifted)
	if img.Bounds() != shifted {
		t.Errorf("Expected %v, got %v", shifted, img.Bounds())
	}
	img.Set(20, 13, image.White)
	if img.RGBAAt(20, 13).R != 255 {
		t.Error("Shifted buffer should be addressable over its whole rect")
	}
}
