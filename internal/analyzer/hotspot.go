// Package analyzer points out where an annotation arrow could go: it finds
// high-contrast regions of a captured frame and flags frames with no visible
// content at all.
package analyzer

import (
	"image"
	"image/draw"
	"math"
	"sort"
)

// Region is a connected patch of strong edges, in the frame's coordinates.
type Region struct {
	Rect     image.Rectangle
	Strength float64 // Share of edge pixels inside Rect, 0..1
}

// Center is where an arrow pointing at the region should end.
func (r Region) Center() image.Point {
	return image.Pt((r.Rect.Min.X+r.Rect.Max.X)/2, (r.Rect.Min.Y+r.Rect.Max.Y)/2)
}

// ContrastFinder locates regions with the Sobel operator followed by a
// dilation that merges nearby edges.
type ContrastFinder struct {
	MinArea       int     // Smallest reported region, px²
	EdgeThreshold float64 // Gradient magnitude that counts as an edge
	Grow          int     // Dilation radius
	BlankRatio    float64 // Below this share of edge pixels a frame is blank
}

func NewContrastFinder() *ContrastFinder {
	return &ContrastFinder{
		MinArea:       400,
		EdgeThreshold: 30,
		Grow:          3,
		BlankRatio:    0.001,
	}
}

// Find returns up to limit regions, largest first. limit <= 0 means all.
func (f *ContrastFinder) Find(img image.Image, limit int) []Region {
	edges, _ := f.edges(img)
	grown := grow(edges, f.Grow)

	var regions []Region
	for _, rect := range components(grown) {
		if rect.Dx()*rect.Dy() < f.MinArea {
			continue
		}
		regions = append(regions, Region{Rect: rect, Strength: density(edges, rect)})
	}

	sort.SliceStable(regions, func(i, j int) bool {
		a, b := regions[i].Rect, regions[j].Rect
		return a.Dx()*a.Dy() > b.Dx()*b.Dy()
	})
	if limit > 0 && len(regions) > limit {
		regions = regions[:limit]
	}
	return regions
}

// Blank reports whether img has practically no edges, as with a black frame
// grabbed before the first keyframe.
func (f *ContrastFinder) Blank(img image.Image) bool {
	_, ratio := f.edges(img)
	return ratio < f.BlankRatio
}

// edges marks edge pixels and returns the share of them.
func (f *ContrastFinder) edges(img image.Image) (*image.Gray, float64) {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Rect, img, b.Min, draw.Src)

	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := image.NewGray(gray.Rect)
	if w < 3 || h < 3 {
		return out, 0
	}

	at := func(x, y int) float64 { return float64(gray.Pix[y*gray.Stride+x]) }
	count := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			if math.Hypot(gx, gy) > f.EdgeThreshold {
				out.Pix[y*out.Stride+x] = 255
				count++
			}
		}
	}

	// Regions are reported in the caller's coordinates.
	out.Rect = out.Rect.Add(b.Min)
	return out, float64(count) / float64(w*h)
}

func grow(img *image.Gray, r int) *image.Gray {
	if r <= 0 {
		return img
	}
	b := img.Rect
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.GrayAt(x, y).Y == 0 {
				continue
			}
			box := image.Rect(x-r, y-r, x+r+1, y+r+1).Intersect(b)
			for yy := box.Min.Y; yy < box.Max.Y; yy++ {
				row := out.PixOffset(box.Min.X, yy)
				for i := 0; i < box.Dx(); i++ {
					out.Pix[row+i] = 255
				}
			}
		}
	}
	return out
}

// components returns the bounding box of every 4-connected set of marked
// pixels.
func components(img *image.Gray) []image.Rectangle {
	b := img.Rect
	seen := make([]bool, b.Dx()*b.Dy())
	idx := func(p image.Point) int { return (p.Y-b.Min.Y)*b.Dx() + p.X - b.Min.X }

	var rects []image.Rectangle
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			start := image.Pt(x, y)
			if seen[idx(start)] || img.GrayAt(x, y).Y == 0 {
				continue
			}

			rect := image.Rectangle{Min: start, Max: start.Add(image.Pt(1, 1))}
			stack := []image.Point{start}
			seen[idx(start)] = true
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				rect = rect.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})

				for _, d := range [...]image.Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					n := p.Add(d)
					if !n.In(b) || seen[idx(n)] || img.GrayAt(n.X, n.Y).Y == 0 {
						continue
					}
					seen[idx(n)] = true
					stack = append(stack, n)
				}
			}
			rects = append(rects, rect)
		}
	}
	return rects
}

func density(edges *image.Gray, rect image.Rectangle) float64 {
	n := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if edges.GrayAt(x, y).Y != 0 {
				n++
			}
		}
	}
	return float64(n) / float64(rect.Dx()*rect.Dy())
}
