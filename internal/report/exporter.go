package report

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/frame2report/internal/events"
	"github.com/ivlev/frame2report/internal/fault"
	"github.com/ivlev/frame2report/internal/system"
)

// Exporter turns the whole event log into one document. Export is all or
// nothing for the log and its files: they are only purged after the writer
// succeeded. Individual unreadable images only cost a placeholder.
type Exporter struct {
	Log          *events.Log
	Writer       Writer
	MinFreeBytes uint64
	Logger       logrus.FieldLogger
}

// Result describes a finished export.
type Result struct {
	Path         string
	Groups       int
	Findings     int
	Embedded     []string
	Placeholders int
}

func NewExporter(log *events.Log, w Writer, logger logrus.FieldLogger) *Exporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Exporter{Log: log, Writer: w, Logger: logger}
}

func (x *Exporter) Export(templatePath, dest string) (Result, error) {
	if x.Log.Len() == 0 {
		return Result{}, fmt.Errorf("%w: no findings to report", fault.ErrPrecondition)
	}
	if dest == "" {
		return Result{}, fmt.Errorf("%w: no report destination chosen", fault.ErrMissingInput)
	}

	tmpl, err := LoadTemplate(templatePath)
	if err != nil {
		return Result{}, err
	}

	groups := x.Log.GroupByVideo()
	lay := BuildBlocks(groups, tmpl)

	if err := system.EnsureFreeSpace(filepath.Dir(dest), x.MinFreeBytes); err != nil {
		return Result{}, err
	}
	if err := x.Writer.Write(lay.Blocks, tmpl, dest); err != nil {
		if !errors.Is(err, fault.ErrTemplate) && !errors.Is(err, fault.ErrFileIO) {
			err = fmt.Errorf("%w: %v", fault.ErrFileIO, err)
		}
		return Result{}, err
	}

	res := Result{
		Path:         dest,
		Groups:       len(groups),
		Findings:     x.Log.Len(),
		Embedded:     lay.Embedded,
		Placeholders: lay.Placeholders,
	}
	x.Log.ClearAndPurge()

	x.Logger.WithFields(logrus.Fields{
		"report":       dest,
		"videos":       res.Groups,
		"findings":     res.Findings,
		"placeholders": res.Placeholders,
	}).Info("report exported")
	return res, nil
}
