package report

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/frame2report/internal/events"
	"github.com/ivlev/frame2report/internal/fault"
	"github.com/ivlev/frame2report/internal/source"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func writeImage(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	img.Set(3, 3, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// fillLog appends one finding per video name, each with its own image.
func fillLog(t *testing.T, dir string, videos ...string) *events.Log {
	t.Helper()
	log := events.NewLog(quietLogger(), "")
	for i, v := range videos {
		path := filepath.Join(dir, "shot"+string(rune('a'+i))+".png")
		writeImage(t, path)
		if _, err := log.Append(events.Record{
			Timestamp:   float64(60 * (i + 1)),
			Description: "finding " + string(rune('a'+i)),
			ImagePath:   path,
			SourceVideo: v,
		}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return log
}

func writeTemplate(t *testing.T, dir string, tmpl *Template) string {
	t.Helper()
	path := filepath.Join(dir, "template.yaml")
	if err := WriteTemplate(tmpl, path); err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	return path
}

type recordingWriter struct {
	blocks []Block
	err    error
}

func (w *recordingWriter) Write(blocks []Block, tmpl *Template, dest string) error {
	if w.err != nil {
		return w.err
	}
	w.blocks = blocks
	return os.WriteFile(dest, []byte("doc"), 0644)
}

func kinds(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		switch b.Kind {
		case Heading:
			sb.WriteString("H" + string(rune('0'+b.Level)) + " ")
		case Paragraph:
			sb.WriteString("P ")
		case Picture:
			sb.WriteString("I ")
		case Code:
			sb.WriteString("Q ")
		}
	}
	return strings.TrimSpace(sb.String())
}

func TestBuildBlocksOrder(t *testing.T) {
	dir := t.TempDir()
	log := fillLog(t, dir, "/v/A.mp4", "/v/B.mp4", "/v/A.mp4")

	tmpl := DefaultTemplate()
	tmpl.Title = ""
	lay := BuildBlocks(log.GroupByVideo(), tmpl)
	blocks := lay.Blocks

	want := "H1 H2 P P I H2 P P I H1 H2 P P I"
	if got := kinds(blocks); got != want {
		t.Errorf("Expected layout %q, got %q", want, got)
	}
	if blocks[0].Text != "Video: A.mp4" || blocks[9].Text != "Video: B.mp4" {
		t.Errorf("Unexpected group headings %q %q", blocks[0].Text, blocks[9].Text)
	}
	if blocks[5].Text != "Finding 2" || blocks[6].Text != "Time: 03:00" {
		t.Errorf("Second A finding should be numbered 2 at 03:00, got %q %q", blocks[5].Text, blocks[6].Text)
	}
	if blocks[7].Text != "Description: finding c" {
		t.Errorf("Unexpected description %q", blocks[7].Text)
	}
	if len(lay.Embedded) != 3 || lay.Placeholders != 0 {
		t.Errorf("Expected 3 embedded images and no placeholders, got %+v", lay)
	}
}

func TestBuildBlocksPlaceholderAndQR(t *testing.T) {
	dir := t.TempDir()
	log := fillLog(t, dir, "A.mp4", "A.mp4")
	records := log.Records()
	os.Remove(records[0].ImagePath)
	os.WriteFile(records[1].ImagePath, []byte("garbage"), 0644)

	tmpl := DefaultTemplate()
	tmpl.QRCodes = true
	lay := BuildBlocks(log.GroupByVideo(), tmpl)
	blocks := lay.Blocks

	want := "H0 H1 H2 P P P Q H2 P P P Q"
	if got := kinds(blocks); got != want {
		t.Errorf("Expected layout %q, got %q", want, got)
	}
	if !strings.HasPrefix(blocks[5].Text, "[Image could not be added:") {
		t.Errorf("Expected placeholder, got %q", blocks[5].Text)
	}
	if blocks[6].Text != "A.mp4 @ 01:00" {
		t.Errorf("Unexpected QR payload %q", blocks[6].Text)
	}
	if len(lay.Embedded) != 0 || lay.Placeholders != 2 {
		t.Errorf("Expected two placeholders and nothing embedded, got %+v", lay)
	}
}

func TestExportSuccess(t *testing.T) {
	dir := t.TempDir()
	log := fillLog(t, dir, "/v/same.mp4", "/v/same.mp4")
	images := []string{log.Records()[0].ImagePath, log.Records()[1].ImagePath}

	w := &recordingWriter{}
	x := NewExporter(log, w, quietLogger())
	dest := filepath.Join(dir, "report.pdf")

	res, err := x.Export(writeTemplate(t, dir, DefaultTemplate()), dest)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	level1 := 0
	for _, b := range w.blocks {
		if b.Kind == Heading && b.Level == 1 {
			level1++
		}
	}
	if level1 != 1 {
		t.Errorf("Expected one group heading, got %d", level1)
	}
	if got := kinds(w.blocks); got != "H0 H1 H2 P P I H2 P P I" {
		t.Errorf("Unexpected layout %q", got)
	}

	if res.Findings != 2 || res.Groups != 1 || len(res.Embedded) != 2 || res.Placeholders != 0 {
		t.Errorf("Unexpected result %+v", res)
	}
	if log.Len() != 0 {
		t.Errorf("Log should be cleared, len=%d", log.Len())
	}
	for _, p := range images {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should be removed after export", p)
		}
	}
}

func TestExportFailuresLeaveStateAlone(t *testing.T) {
	tests := []struct {
		name     string
		template func(dir string) string
		dest     func(dir string) string
		writer   Writer
		want     error
	}{
		{
			name:     "missing template",
			template: func(dir string) string { return filepath.Join(dir, "nope.yaml") },
			dest:     func(dir string) string { return filepath.Join(dir, "out.pdf") },
			writer:   &recordingWriter{},
			want:     fault.ErrTemplate,
		},
		{
			name: "corrupt template",
			template: func(dir string) string {
				p := filepath.Join(dir, "bad.yaml")
				os.WriteFile(p, []byte("title: [unclosed"), 0644)
				return p
			},
			dest:   func(dir string) string { return filepath.Join(dir, "out.pdf") },
			writer: &recordingWriter{},
			want:   fault.ErrTemplate,
		},
		{
			name: "invalid template",
			template: func(dir string) string {
				p := filepath.Join(dir, "bad.yaml")
				os.WriteFile(p, []byte("image_width_mm: -3\n"), 0644)
				return p
			},
			dest:   func(dir string) string { return filepath.Join(dir, "out.pdf") },
			writer: &recordingWriter{},
			want:   fault.ErrTemplate,
		},
		{
			name:     "no destination",
			template: func(dir string) string { return writeTemplate(t, dir, DefaultTemplate()) },
			dest:     func(string) string { return "" },
			writer:   &recordingWriter{},
			want:     fault.ErrMissingInput,
		},
		{
			name:     "writer failure",
			template: func(dir string) string { return writeTemplate(t, dir, DefaultTemplate()) },
			dest:     func(dir string) string { return filepath.Join(dir, "out.pdf") },
			writer:   &recordingWriter{err: errors.New("disk on fire")},
			want:     fault.ErrFileIO,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			log := fillLog(t, dir, "a.mp4", "b.mp4")
			before := log.Records()

			dest := tt.dest(dir)
			_, err := NewExporter(log, tt.writer, quietLogger()).Export(tt.template(dir), dest)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}

			if log.Len() != len(before) {
				t.Errorf("Log length changed: %d -> %d", len(before), log.Len())
			}
			for i, r := range log.Records() {
				if r != before[i] {
					t.Errorf("Record %d changed", i)
				}
				if _, err := os.Stat(r.ImagePath); err != nil {
					t.Errorf("Image %s was touched: %v", r.ImagePath, err)
				}
			}
			if dest != "" {
				if _, err := os.Stat(dest); !os.IsNotExist(err) {
					t.Errorf("No report should be written")
				}
			}
		})
	}
}

func TestExportEmptyLog(t *testing.T) {
	x := NewExporter(events.NewLog(quietLogger(), ""), &recordingWriter{}, quietLogger())
	if _, err := x.Export("template.yaml", "out.pdf"); !errors.Is(err, fault.ErrPrecondition) {
		t.Errorf("Expected precondition failure, got %v", err)
	}
}

func TestExportWithPlaceholderStillSucceeds(t *testing.T) {
	dir := t.TempDir()
	log := fillLog(t, dir, "a.mp4", "a.mp4")
	os.Remove(log.Records()[0].ImagePath)

	x := NewExporter(log, &recordingWriter{}, quietLogger())
	res, err := x.Export(writeTemplate(t, dir, DefaultTemplate()), filepath.Join(dir, "out.pdf"))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Placeholders != 1 || len(res.Embedded) != 1 {
		t.Errorf("Unexpected result %+v", res)
	}
	if log.Len() != 0 {
		t.Errorf("Log should be cleared")
	}
}

func TestLoadTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.yaml")
	os.WriteFile(path, []byte("title: Tutanak\nvideo_heading: \"Video: %s\"\nimage_width_mm: 100\n"), 0644)

	tmpl, err := LoadTemplate(path)
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}
	if tmpl.Title != "Tutanak" || tmpl.ImageWidthMM != 100 {
		t.Errorf("Overrides not applied: %+v", tmpl)
	}
	if tmpl.FindingHeading != "Finding %d" {
		t.Errorf("Defaults should fill unset fields, got %q", tmpl.FindingHeading)
	}

	os.WriteFile(path, []byte("cover: letterhead.pdf\n"), 0644)
	if _, err := LoadTemplate(path); !errors.Is(err, fault.ErrTemplate) {
		t.Errorf("Missing cover: expected template failure, got %v", err)
	}

	os.WriteFile(path, []byte("font_family: Helvetica\n"), 0644)
	if _, err := LoadTemplate(path); !errors.Is(err, fault.ErrTemplate) {
		t.Errorf("Core font: expected template failure, got %v", err)
	}

	if _, err := LoadTemplate(""); !errors.Is(err, fault.ErrTemplate) {
		t.Errorf("Empty path: expected template failure, got %v", err)
	}
}

func TestPDFWriter(t *testing.T) {
	dir := t.TempDir()
	log := fillLog(t, dir, "A.mp4", "B.mp4")
	os.Remove(log.Records()[1].ImagePath)

	tmpl := DefaultTemplate()
	tmpl.QRCodes = true
	blocks := BuildBlocks(log.GroupByVideo(), tmpl).Blocks

	dest := filepath.Join(dir, "report.pdf")
	if err := (&PDFWriter{}).Write(blocks, tmpl, dest); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Read report: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("Output is not a PDF")
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".report-") {
			t.Errorf("Temporary file %s left behind", e.Name())
		}
	}
	t.Logf("Report size: %d bytes", len(data))
}

func TestPDFWriterFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	os.WriteFile(bad, []byte("garbage"), 0644)

	blocks := []Block{{Kind: Picture, Path: bad, WidthMM: 50}}
	dest := filepath.Join(dir, "report.pdf")

	err := (&PDFWriter{}).Write(blocks, DefaultTemplate(), dest)
	if !errors.Is(err, fault.ErrFileIO) {
		t.Fatalf("Expected file i/o failure, got %v", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("Failed write must not create the report")
	}
}

func TestPDFWriterCover(t *testing.T) {
	dir := t.TempDir()

	cover := fpdf.New("P", "mm", "A4", "")
	cover.AddPage()
	cover.SetFont("Helvetica", "B", 24)
	cover.Cell(0, 20, "Letterhead")
	coverPath := filepath.Join(dir, "letterhead.pdf")
	if err := cover.OutputFileAndClose(coverPath); err != nil {
		t.Fatalf("cover: %v", err)
	}

	tmpl := DefaultTemplate()
	tmpl.Cover = "letterhead.pdf"
	tmplPath := writeTemplate(t, dir, tmpl)

	loaded, err := LoadTemplate(tmplPath)
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}
	if loaded.Cover != coverPath {
		t.Errorf("Cover should resolve next to the template, got %s", loaded.Cover)
	}

	dest := filepath.Join(dir, "report.pdf")
	blocks := []Block{{Kind: Heading, Level: 1, Text: "Video: x.mp4"}}
	if err := (&PDFWriter{}).Write(blocks, loaded, dest); err != nil {
		t.Fatalf("Write with cover: %v", err)
	}
	if fi, err := os.Stat(dest); err != nil || fi.Size() == 0 {
		t.Errorf("Report with cover not written: %v", err)
	}
}

func TestExportCountsOnlyMissingImages(t *testing.T) {
	dir := t.TempDir()
	log := fillLog(t, dir, "a.mp4")
	if _, err := log.Append(events.Record{Timestamp: 5, Description: "no frame", SourceVideo: "a.mp4"}); err != nil {
		t.Fatal(err)
	}

	x := NewExporter(log, &recordingWriter{}, quietLogger())
	res, err := x.Export(writeTemplate(t, dir, DefaultTemplate()), filepath.Join(dir, "out.pdf"))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Findings != 2 || len(res.Embedded) != 1 || res.Placeholders != 0 {
		t.Errorf("A finding without an image is not a placeholder, got %+v", res)
	}
}

func TestPDFWriterKeepsUnicodeText(t *testing.T) {
	texts := []string{"Video: Bilinmeyen Video", "Description: sızıntı", "Ağrı İşaretçi ile tespit"}

	for _, family := range []string{"sans", "mono"} {
		t.Run(family, func(t *testing.T) {
			dir := t.TempDir()
			tmpl := DefaultTemplate()
			tmpl.FontFamily = family
			blocks := []Block{
				{Kind: Heading, Level: 1, Text: texts[0]},
				{Kind: Paragraph, Text: texts[1]},
				{Kind: Heading, Level: 2, Text: texts[2]},
			}

			dest := filepath.Join(dir, "report.pdf")
			if err := (&PDFWriter{}).Write(blocks, tmpl, dest); err != nil {
				t.Fatalf("Write: %v", err)
			}

			src, err := source.NewFitzPDFSource(dest)
			if err != nil {
				t.Fatalf("open report: %v", err)
			}
			defer src.Close()
			got, err := src.Text(0)
			if err != nil {
				t.Fatalf("Text: %v", err)
			}
			for _, want := range texts {
				if !strings.Contains(got, want) {
					t.Errorf("Expected %q in report text, got %q", want, got)
				}
			}
		})
	}
}

func TestPDFWriterUnknownFont(t *testing.T) {
	tmpl := DefaultTemplate()
	tmpl.FontFamily = "Helvetica"
	dest := filepath.Join(t.TempDir(), "report.pdf")

	err := (&PDFWriter{}).Write([]Block{{Kind: Paragraph, Text: "x"}}, tmpl, dest)
	if !errors.Is(err, fault.ErrTemplate) {
		t.Errorf("Expected template failure, got %v", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("No report should be written")
	}
}
