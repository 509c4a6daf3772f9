package slidewin

import (
	"image"
	"math"
)

// Rect is a rectangular image region expressed as a top-left corner plus a
// width and height, in pixel coordinates of the image it was measured on.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// NewRect constructs a rectangle from its top-left corner and size.
func NewRect(x, y, width, height int) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Area returns the rectangle surface in pixels.
func (r Rect) Area() int {
	return r.Width * r.Height
}

// Intersect returns the region shared by two rectangles.
// The zero Rect is returned when they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.X+r.Width, o.X+o.Width)
	y1 := min(r.Y+r.Height, o.Y+o.Height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// In reports whether the rectangle is a usable region of img: positive size,
// non-negative corner and strictly inside the bounds. A rectangle touching
// the last row or column does not qualify.
func (r Rect) In(img image.Image) bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	b := img.Bounds()
	return r.X >= 0 && r.Y >= 0 &&
		r.X+r.Width < b.Dx() && r.Y+r.Height < b.Dy()
}

// Scaled maps the rectangle back toward original image coordinates by
// multiplying every field with the pyramid scale factor s.
func (r Rect) Scaled(s float64) Rect {
	if s == 0 || s == 1 {
		return r
	}
	return Rect{
		X:      int(math.Round(float64(r.X) * s)),
		Y:      int(math.Round(float64(r.Y) * s)),
		Width:  int(math.Round(float64(r.Width) * s)),
		Height: int(math.Round(float64(r.Height) * s)),
	}
}

// ToImageRect converts the rectangle to the image package representation.
func (r Rect) ToImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// overlapsAny reports whether cand covers more than frac of the own area of
// any rectangle in rects. With frac 0 any intersection at all counts.
func overlapsAny(rects []Rect, cand Rect, frac float64) bool {
	for _, r := range rects {
		if float64(cand.Intersect(r).Area()) > frac*float64(r.Area()) {
			return true
		}
	}
	return false
}
