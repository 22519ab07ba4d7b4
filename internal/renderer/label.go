package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// LoadFace opens the TrueType font at path at the given point size. When the
// file is unusable it falls back to Go Regular and reports why; basicfont is
// the last resort.
func LoadFace(path string, size float64) (font.Face, error) {
	data := goregular.TTF
	var loadErr error
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("label font %s: %w", path, err)
		} else if _, err := opentype.Parse(b); err != nil {
			loadErr = fmt.Errorf("label font %s: %w", path, err)
		} else {
			data = b
		}
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return basicfont.Face7x13, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13, err
	}
	return face, loadErr
}

// LabelSize is the rendered text box plus padding on both axes.
func LabelSize(face font.Face, text string, padding int) image.Point {
	b, _ := font.BoundString(face, text)
	return image.Point{
		X: (b.Max.X - b.Min.X).Ceil() + padding,
		Y: (b.Max.Y - b.Min.Y).Ceil() + padding,
	}
}

// DrawLabel paints an opaque box of LabelSize with its top-left corner at
// "at", then draws text on it. Returns the box.
func DrawLabel(dst draw.Image, face font.Face, at image.Point, text string, bg, fg color.Color, padding int) image.Rectangle {
	size := LabelSize(face, text, padding)
	box := image.Rectangle{Min: at, Max: at.Add(size)}
	draw.Draw(dst, box, image.NewUniform(bg), image.Point{}, draw.Src)

	b, _ := font.BoundString(face, text)
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(at.X+padding/2) - b.Min.X,
			Y: fixed.I(at.Y+padding/2) - b.Min.Y,
		},
	}
	d.DrawString(text)
	return box
}

// ParseHexColor accepts #rgb, #rrggbb and #rrggbbaa.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
