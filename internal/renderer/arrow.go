package renderer

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// DrawArrow strokes a line from -> to with the given width and puts a filled
// head on the "to" end.
func DrawArrow(dst draw.Image, from, to image.Point, c color.Color, width float64) {
	if width <= 0 {
		width = 1
	}
	b := dst.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())

	fx, fy := float32(from.X-b.Min.X), float32(from.Y-b.Min.Y)
	tx, ty := float32(to.X-b.Min.X), float32(to.Y-b.Min.Y)
	hw := float32(width / 2)

	dx, dy := tx-fx, ty-fy
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length < 0.5 {
		// Press and release on the same pixel: mark it with a dot.
		r.MoveTo(tx-hw, ty-hw)
		r.LineTo(tx+hw, ty-hw)
		r.LineTo(tx+hw, ty+hw)
		r.LineTo(tx-hw, ty+hw)
		r.ClosePath()
		r.Draw(dst, b, image.NewUniform(c), image.Point{})
		return
	}

	ux, uy := dx/length, dy/length
	nx, ny := -uy, ux

	headLen := float32(math.Max(width*4, 10))
	if headLen > length {
		headLen = length
	}
	headHalf := headLen / 2
	sx, sy := tx-ux*headLen, ty-uy*headLen

	if length > headLen {
		r.MoveTo(fx+nx*hw, fy+ny*hw)
		r.LineTo(sx+nx*hw, sy+ny*hw)
		r.LineTo(sx-nx*hw, sy-ny*hw)
		r.LineTo(fx-nx*hw, fy-ny*hw)
		r.ClosePath()
	}

	r.MoveTo(tx, ty)
	r.LineTo(sx+nx*headHalf, sy+ny*headHalf)
	r.LineTo(sx-nx*headHalf, sy-ny*headHalf)
	r.ClosePath()

	r.Draw(dst, b, image.NewUniform(c), image.Point{})
}
