// Package geometry provides the rectangle and point math shared by the
// detection normalizer, the mask generator and the effect providers.
//
// # Coordinate System
//
// All coordinates are in source-image pixel space:
//   - Origin (0, 0) at the top-left corner
//   - X increases rightward, Y increases downward
//   - A Rect covers [X, X+Width) x [Y, Y+Height)
//
// Angles are expressed in degrees. A positive angle is counter-clockwise as
// seen on screen, which is why AngleBetween inverts the Y axis before calling
// atan2 and AffineRotate rotates with the same orientation.
package geometry

import (
	"image"
	"math"
)

// Point is a 2D position in pixel space. Float components keep rotated and
// averaged positions exact until they are snapped back to a Rect.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle with a non-negative size.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromCorners converts floating detector coordinates into a Rect.
//
// The origin is floored and the extent is rounded up so the returned Rect
// always covers the whole detected region.
func FromCorners(x1, y1, x2, y2 float64) Rect {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	x := math.Floor(x1)
	y := math.Floor(y1)
	return Rect{
		X:      int(x),
		Y:      int(y),
		Width:  int(math.Ceil(x2 - x)),
		Height: int(math.Ceil(y2 - y)),
	}
}

// FromImageRect converts a standard library rectangle.
func FromImageRect(r image.Rectangle) Rect {
	r = r.Canon()
	return Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Area returns Width*Height.
func (r Rect) Area() int { return r.Width * r.Height }

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Image converts to a standard library rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.Right(), r.Bottom())
}

// Ratio returns Width/Height, or 0 for a degenerate rectangle.
func (r Rect) Ratio() float64 {
	if r.Height == 0 {
		return 0
	}
	return float64(r.Width) / float64(r.Height)
}

// Center returns the midpoint of the rectangle.
func Center(r Rect) Point {
	return Point{
		X: float64(r.X) + float64(r.Width)/2,
		Y: float64(r.Y) + float64(r.Height)/2,
	}
}

// Clip restricts r to bounds. A rectangle entirely outside bounds clips to
// an empty Rect positioned at the nearest bounds corner.
func Clip(r Rect, bounds image.Rectangle) Rect {
	x1 := clampInt(r.X, bounds.Min.X, bounds.Max.X)
	y1 := clampInt(r.Y, bounds.Min.Y, bounds.Max.Y)
	x2 := clampInt(r.Right(), bounds.Min.X, bounds.Max.X)
	y2 := clampInt(r.Bottom(), bounds.Min.Y, bounds.Max.Y)
	if x2 < x1 {
		x2 = x1
	}
	if y2 < y1 {
		y2 = y1
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Pad grows r by amount on every side and clips the result to clampTo.
func Pad(r Rect, amount int, clampTo image.Rectangle) Rect {
	padded := Rect{
		X:      r.X - amount,
		Y:      r.Y - amount,
		Width:  r.Width + 2*amount,
		Height: r.Height + 2*amount,
	}
	return Clip(padded, clampTo)
}

// ScaleBy grows r by dx on the left and right and by dy on the top and
// bottom, keeping it centered. Negative amounts shrink it; the size never
// drops below zero.
func ScaleBy(r Rect, dx, dy float64) Rect {
	w := int(math.Round(float64(r.Width) + 2*dx))
	h := int(math.Round(float64(r.Height) + 2*dy))
	return Rect{
		X:      int(math.Round(float64(r.X) - dx)),
		Y:      int(math.Round(float64(r.Y) - dy)),
		Width:  max(w, 0),
		Height: max(h, 0),
	}
}

// Intersects reports whether a and b share at least one pixel.
func Intersects(a, b Rect) bool {
	if a.Empty() || b.Empty() {
		return false
	}
	return a.X < b.Right() && b.X < a.Right() && a.Y < b.Bottom() && b.Y < a.Bottom()
}

// Contains reports whether inner lies entirely inside outer.
func Contains(outer, inner Rect) bool {
	return inner.X >= outer.X && inner.Y >= outer.Y &&
		inner.Right() <= outer.Right() && inner.Bottom() <= outer.Bottom()
}

// Union returns the smallest rectangle containing both a and b.
func Union(a, b Rect) Rect {
	if a.Empty() {
		return b
	}
	if b.Empty() {
		return a
	}
	x1 := min(a.X, b.X)
	y1 := min(a.Y, b.Y)
	x2 := max(a.Right(), b.Right())
	y2 := max(a.Bottom(), b.Bottom())
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// AngleBetween returns the signed angle in degrees of the vector p1->p2.
// The Y axis is inverted so a point up and to the right of p1 gives a
// positive angle.
func AngleBetween(p1, p2 Point) float64 {
	return math.Atan2(-(p2.Y-p1.Y), p2.X-p1.X) * 180 / math.Pi
}

// Distance returns the Euclidean distance between two points.
func Distance(p1, p2 Point) float64 {
	return math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
}

// Midpoint returns the point halfway between p1 and p2.
func Midpoint(p1, p2 Point) Point {
	return Point{X: (p1.X + p2.X) / 2, Y: (p1.Y + p2.Y) / 2}
}

// AffineRotate rotates p about center by degrees, counter-clockwise on
// screen for positive angles.
func AffineRotate(p, center Point, degrees float64) Point {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	dx := p.X - center.X
	dy := p.Y - center.Y
	return Point{
		X: center.X + dx*cos + dy*sin,
		Y: center.Y - dx*sin + dy*cos,
	}
}

// Corners returns the four corners of r rotated by degrees about its own
// center, clockwise starting at the top-left.
func Corners(r Rect, degrees float64) [4]Point {
	c := Center(r)
	pts := [4]Point{
		{X: float64(r.X), Y: float64(r.Y)},
		{X: float64(r.Right()), Y: float64(r.Y)},
		{X: float64(r.Right()), Y: float64(r.Bottom())},
		{X: float64(r.X), Y: float64(r.Bottom())},
	}
	if degrees == 0 {
		return pts
	}
	for i := range pts {
		pts[i] = AffineRotate(pts[i], c, degrees)
	}
	return pts
}

// RotatedBounds returns the axis-aligned bounding box of r after rotating it
// by degrees about its own center.
func RotatedBounds(r Rect, degrees float64) Rect {
	if degrees == 0 {
		return r
	}
	pts := Corners(r, degrees)
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return FromCorners(snap(minX), snap(minY), snap(maxX), snap(maxY))
}

// snap removes floating point noise left by sin/cos so that exact quarter
// turns do not grow a box by a pixel.
func snap(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// Padding returns the blend padding used around masked effects for an image
// of the given size:
//
//	floor(max(10, min(width, height) / (40 / paddingScale)))
//
// A non-positive paddingScale is treated as 1.
func Padding(width, height int, paddingScale float64) int {
	if paddingScale <= 0 {
		paddingScale = 1
	}
	p := float64(min(width, height)) / (40 / paddingScale)
	return int(math.Floor(math.Max(10, p)))
}

// ClosestTo returns the value in values nearest to target. Ties keep the
// earlier value.
func ClosestTo(target float64, values ...float64) float64 {
	if len(values) == 0 {
		return target
	}
	best := values[0]
	for _, v := range values[1:] {
		if math.Abs(v-target) < math.Abs(best-target) {
			best = v
		}
	}
	return best
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
