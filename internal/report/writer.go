package report

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ivlev/frame2report/internal/fault"
	"github.com/ivlev/frame2report/internal/source"
)

// Writer turns blocks into a document at dest. A failed Write leaves nothing
// at dest.
type Writer interface {
	Write(blocks []Block, tmpl *Template, dest string) error
}

// PDFWriter lays blocks out on PDF pages.
type PDFWriter struct{}

const (
	margin   = 20.0
	qrSizeMM = 30.0
	qrPixels = 256
)

var headingSizes = map[int]float64{0: 20, 1: 16, 2: 13}

// Report fonts are embedded Go fonts so any UTF-8 text survives; the PDF core
// fonts only cover cp1252.
var fontFaces = map[string]struct{ regular, bold []byte }{
	"sans": {goregular.TTF, gobold.TTF},
	"mono": {gomono.TTF, gomonobold.TTF},
}

func registerFont(pdf *fpdf.Fpdf, family string) error {
	face, ok := fontFaces[family]
	if !ok {
		return fmt.Errorf("%w: unknown font family %q", fault.ErrTemplate, family)
	}
	pdf.AddUTF8FontFromBytes(family, "", face.regular)
	pdf.AddUTF8FontFromBytes(family, "B", face.bold)
	if pdf.Err() {
		return fmt.Errorf("%w: font %s: %v", fault.ErrTemplate, family, pdf.Error())
	}
	return nil
}

func (w *PDFWriter) Write(blocks []Block, tmpl *Template, dest string) error {
	pdf := fpdf.New("P", "mm", tmpl.PageSize, "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	if err := registerFont(pdf, tmpl.FontFamily); err != nil {
		return err
	}

	pdf.AddPage()
	if tmpl.Cover != "" {
		if err := w.addCover(pdf, tmpl); err != nil {
			return err
		}
		pdf.AddPage()
	}

	pageW, _ := pdf.GetPageSize()
	maxWidth := pageW - 2*margin

	for i, b := range blocks {
		switch b.Kind {
		case Heading:
			size, ok := headingSizes[b.Level]
			if !ok {
				size = 12
			}
			pdf.SetFont(tmpl.FontFamily, "B", size)
			pdf.Ln(2)
			pdf.MultiCell(0, size*0.5, b.Text, "", "L", false)
			pdf.Ln(1)
		case Paragraph:
			pdf.SetFont(tmpl.FontFamily, "", 11)
			pdf.MultiCell(0, 5.5, b.Text, "", "L", false)
		case Picture:
			width := b.WidthMM
			if width > maxWidth {
				width = maxWidth
			}
			pdf.ImageOptions(b.Path, -1, 0, width, 0, true, fpdf.ImageOptions{ReadDpi: false}, 0, "")
			pdf.Ln(2)
		case Code:
			code, err := qrcode.Encode(b.Text, qrcode.Medium, qrPixels)
			if err != nil {
				return fmt.Errorf("%w: qr code: %v", fault.ErrFileIO, err)
			}
			name := fmt.Sprintf("qr-%d", i)
			pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(code))
			pdf.ImageOptions(name, -1, 0, qrSizeMM, qrSizeMM, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		}
		if pdf.Err() {
			return fmt.Errorf("%w: layout: %v", fault.ErrFileIO, pdf.Error())
		}
	}

	return w.output(pdf, dest)
}

// addCover rasterizes the first page of the template's cover PDF onto the
// current page.
func (w *PDFWriter) addCover(pdf *fpdf.Fpdf, tmpl *Template) error {
	src, err := source.NewFitzPDFSource(tmpl.Cover)
	if err != nil {
		return fmt.Errorf("%w: cover %s: %v", fault.ErrTemplate, tmpl.Cover, err)
	}
	img, err := source.RenderFirstPage(src, tmpl.CoverDPI)
	if err != nil {
		return fmt.Errorf("%w: cover %s: %v", fault.ErrTemplate, tmpl.Cover, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("%w: cover %s: %v", fault.ErrTemplate, tmpl.Cover, err)
	}

	pageW, pageH := pdf.GetPageSize()
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	info := pdf.RegisterImageOptionsReader("cover", opts, &buf)
	if pdf.Err() {
		return fmt.Errorf("%w: cover: %v", fault.ErrTemplate, pdf.Error())
	}

	// Fit the whole page inside the margins.
	width := pageW - 2*margin
	height := width * info.Height() / info.Width()
	if height > pageH-2*margin {
		height = pageH - 2*margin
		width = height * info.Width() / info.Height()
	}
	pdf.ImageOptions("cover", (pageW-width)/2, margin, width, height, false, opts, 0, "")
	return nil
}

func (w *PDFWriter) output(pdf *fpdf.Fpdf, dest string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".report-*.pdf")
	if err != nil {
		return fmt.Errorf("%w: %v", fault.ErrFileIO, err)
	}

	if err := pdf.Output(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: render pdf: %v", fault.ErrFileIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", fault.ErrFileIO, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", fault.ErrFileIO, err)
	}
	return nil
}
