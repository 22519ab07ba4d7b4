package source

import (
	"fmt"
	"image"

	"github.com/ivlev/frame2report/internal/fault"
)

// Source is anything that can hand out pages or frames as images.
type Source interface {
	PageCount() int
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// LoadFrame decodes a single captured still.
func LoadFrame(path string) (image.Image, error) {
	src, err := NewImageSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if src.PageCount() == 0 {
		return nil, fmt.Errorf("%w: no image at %s", fault.ErrMissingInput, path)
	}
	return src.RenderPage(0, 0)
}

// RenderFirstPage opens a document, renders page 0 and closes it again.
func RenderFirstPage(src Source, dpi int) (image.Image, error) {
	defer src.Close()
	if src.PageCount() == 0 {
		return nil, fmt.Errorf("%w: document has no pages", fault.ErrMissingInput)
	}
	return src.RenderPage(0, dpi)
}
