// Package fault holds the error kinds shared by the log, the annotation editor
// and the exporter. Call sites wrap them with fmt.Errorf("%w: ...") so callers
// can branch with errors.Is.
package fault

import "errors"

var (
	// ErrCapture: frame capture produced no usable file.
	ErrCapture = errors.New("capture failure")
	// ErrMissingInput: required text, video or destination is absent.
	ErrMissingInput = errors.New("missing input")
	// ErrFileIO: an image or document could not be written or read.
	ErrFileIO = errors.New("file i/o failure")
	// ErrTemplate: the report template is missing or unreadable.
	ErrTemplate = errors.New("template failure")
	// ErrPrecondition: operation invoked in a state that does not allow it.
	ErrPrecondition = errors.New("precondition failure")
)
