package source

import (
	"fmt"
	"image"
	"os"

	"github.com/gen2brain/go-fitz"

	"github.com/ivlev/frame2report/internal/fault"
)

// FitzPDFSource rasterizes PDF pages with MuPDF. The report uses it to turn a
// letterhead PDF into the cover image.
type FitzPDFSource struct {
	path string
	doc  *fitz.Document
}

// NewFitzPDFSource opens the document at path. A missing or empty file is
// fault.ErrMissingInput; anything MuPDF cannot parse is fault.ErrFileIO.
func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fault.ErrMissingInput, err)
	}
	if fi.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", fault.ErrMissingInput, path)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", fault.ErrFileIO, path, err)
	}
	return &FitzPDFSource{path: path, doc: doc}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

// GetPageDimensions returns the page size in points.
func (f *FitzPDFSource) GetPageDimensions(index int) (float64, float64, error) {
	if err := f.check(index); err != nil {
		return 0, 0, err
	}
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s page %d: %v", fault.ErrFileIO, f.path, index, err)
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

func (f *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	if err := f.check(index); err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = 72
	}
	img, err := f.doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("%w: render %s page %d: %v", fault.ErrFileIO, f.path, index, err)
	}
	return img, nil
}

// Text extracts the plain text of a page.
func (f *FitzPDFSource) Text(index int) (string, error) {
	if err := f.check(index); err != nil {
		return "", err
	}
	text, err := f.doc.Text(index)
	if err != nil {
		return "", fmt.Errorf("%w: text of %s page %d: %v", fault.ErrFileIO, f.path, index, err)
	}
	return text, nil
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}

func (f *FitzPDFSource) check(index int) error {
	if index < 0 || index >= f.doc.NumPage() {
		return fmt.Errorf("%w: %s has no page %d", fault.ErrPrecondition, f.path, index)
	}
	return nil
}
