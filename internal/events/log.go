package events

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/frame2report/internal/fault"
)

// DefaultUnknownVideo is the group name for records without a source video.
const DefaultUnknownVideo = "Unknown Video"

// Group is one video's findings in insertion order.
type Group struct {
	Name    string
	Records []Record
}

// Log is the ordered collection of findings. Insertion order is display order
// and report order within a video group. Records are never edited in place.
type Log struct {
	records      []Record
	unknownVideo string
	logger       logrus.FieldLogger
	remove       func(string) error
}

// NewLog creates an empty log. An empty unknownVideo falls back to DefaultUnknownVideo.
func NewLog(logger logrus.FieldLogger, unknownVideo string) *Log {
	if unknownVideo == "" {
		unknownVideo = DefaultUnknownVideo
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Log{
		unknownVideo: unknownVideo,
		logger:       logger,
		remove:       os.Remove,
	}
}

// Append adds r to the end of the log and returns its 1-based display number.
func (l *Log) Append(r Record) (int, error) {
	if r.Timestamp < 0 {
		return 0, fmt.Errorf("%w: negative timestamp %.3f", fault.ErrPrecondition, r.Timestamp)
	}
	if r.Description == "" {
		return 0, fmt.Errorf("%w: finding description is empty", fault.ErrMissingInput)
	}
	if r.ImagePath != "" {
		if _, err := os.Stat(r.ImagePath); err != nil {
			return 0, fmt.Errorf("%w: finding image %s: %v", fault.ErrFileIO, r.ImagePath, err)
		}
		for _, existing := range l.records {
			if existing.ImagePath == r.ImagePath {
				return 0, fmt.Errorf("%w: image %s already belongs to another finding", fault.ErrPrecondition, r.ImagePath)
			}
		}
	}
	if r.Kind == "" {
		r.Kind = KindScreenshot
	}

	l.records = append(l.records, r)
	return len(l.records), nil
}

// Delete removes the records at the given 0-based positions. The selection is
// validated as a whole before anything is removed; positions are then processed
// from highest to lowest. Backing files are removed best-effort.
func (l *Log) Delete(indices ...int) error {
	if len(indices) == 0 {
		return fmt.Errorf("%w: no finding selected", fault.ErrPrecondition)
	}

	unique := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(l.records) {
			return fmt.Errorf("%w: no finding at position %d (have %d)", fault.ErrPrecondition, i+1, len(l.records))
		}
		unique[i] = struct{}{}
	}

	order := make([]int, 0, len(unique))
	for i := range unique {
		order = append(order, i)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(order)))

	for _, i := range order {
		removed := l.records[i]
		l.records = append(l.records[:i], l.records[i+1:]...)
		l.purge(removed.ImagePath)
	}
	return nil
}

// GroupByVideo groups records by the base name of their source video, groups
// ordered by first appearance. It is recomputed on every call.
func (l *Log) GroupByVideo() []Group {
	var groups []Group
	index := make(map[string]int)

	for _, r := range l.records {
		name := l.unknownVideo
		if r.SourceVideo != "" {
			name = filepath.Base(r.SourceVideo)
		}
		gi, ok := index[name]
		if !ok {
			gi = len(groups)
			index[name] = gi
			groups = append(groups, Group{Name: name})
		}
		groups[gi].Records = append(groups[gi].Records, r)
	}
	return groups
}

// ClearAndPurge removes every backing image and empties the log. Only call it
// after a confirmed successful export.
func (l *Log) ClearAndPurge() {
	for _, r := range l.records {
		l.purge(r.ImagePath)
	}
	l.records = nil
}

// Records returns a copy of the log in display order.
func (l *Log) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Log) Len() int {
	return len(l.records)
}

// Lines is the display projection of the log.
func (l *Log) Lines() []string {
	lines := make([]string, len(l.records))
	for i, r := range l.records {
		lines[i] = r.DisplayLine(i + 1)
	}
	return lines
}

func (l *Log) purge(path string) {
	if path == "" {
		return
	}
	if err := l.remove(path); err != nil {
		entry := l.logger.WithFields(logrus.Fields{"image": path, "error": err})
		if errors.Is(err, fs.ErrNotExist) {
			entry.Warn("finding image already gone")
			return
		}
		entry.Warn("could not delete finding image")
	}
}
