package renderer

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// FitSize scales w x h into maxW x maxH keeping the aspect ratio. Width is
// fitted first; if the resulting height overflows, height is fitted instead.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return w, h
	}
	aspect := float64(h) / float64(w)

	newW := maxW
	newH := int(float64(newW) * aspect)
	if newH > maxH {
		newH = maxH
		newW = int(float64(newH) / aspect)
	}

	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return newW, newH
}

// Scale resamples src to w x h with Catmull-Rom. The result starts at (0,0).
func Scale(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// Clone returns a deep copy of img.
func Clone(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Rect)
	copy(out.Pix, img.Pix)
	return out
}

// CopyInto overwrites dst with src. Both must share bounds.
func CopyInto(dst, src *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
}
