// Package mask builds the soft-edged alpha masks that blend blurred or
// pixelated patches back into the surrounding image.
//
// # Mask Shape
//
// A mask covers a detection box grown by a padding on every side. The alpha
// follows an elliptical gradient with three stops:
//
//	0%   of the radius: fully opaque
//	66%  of the radius: fully opaque
//	100% of the radius: fully transparent
//
// Near-square regions (aspect ratio within [0.8, 1.2]) use a single ellipse.
// Elongated regions union five ellipses (top and bottom halves, left and
// right halves, and one full-size ellipse) so the opaque core stretches along
// the long axis instead of collapsing to a narrow oval.
//
// # Rotation
//
// Masks are generated upright and then rotated counter-clockwise about their
// own center. A rotated mask is larger than the upright one; Place keeps the
// mask centered on the detection box so the growth is split evenly between
// both sides.
//
// All functions are pure: the same inputs always produce the same mask.
package mask

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-censor/internal/geometry"
)

const (
	// opaqueStop is the fraction of the radius that stays fully opaque.
	opaqueStop = 0.66

	// squareMin and squareMax bound the aspect ratios treated as near-square.
	squareMin = 0.8
	squareMax = 1.2
)

// ellipse is one radial gradient, in mask pixel space.
type ellipse struct {
	cx, cy, rx, ry float64
}

// alphaAt returns the gradient alpha in [0, 1] at (x, y).
func (e ellipse) alphaAt(x, y float64) float64 {
	if e.rx <= 0 || e.ry <= 0 {
		return 0
	}
	dx := (x - e.cx) / e.rx
	dy := (y - e.cy) / e.ry
	t := math.Sqrt(dx*dx + dy*dy)
	switch {
	case t <= opaqueStop:
		return 1
	case t >= 1:
		return 0
	default:
		return (1 - t) / (1 - opaqueStop)
	}
}

// NearSquare reports whether a width x height region uses the single
// ellipse gradient.
func NearSquare(width, height int) bool {
	if height <= 0 {
		return false
	}
	ratio := float64(width) / float64(height)
	return ratio >= squareMin && ratio <= squareMax
}

// gradients returns the ellipses making up an upright mask of the given size.
func gradients(width, height int) []ellipse {
	w := float64(width)
	h := float64(height)
	full := ellipse{cx: w / 2, cy: h / 2, rx: w / 2, ry: h / 2}
	if NearSquare(width, height) {
		return []ellipse{full}
	}
	return []ellipse{
		{cx: w / 2, cy: h / 4, rx: w / 2, ry: h / 4},
		{cx: w / 2, cy: 3 * h / 4, rx: w / 2, ry: h / 4},
		{cx: w / 4, cy: h / 2, rx: w / 4, ry: h / 2},
		{cx: 3 * w / 4, cy: h / 2, rx: w / 4, ry: h / 2},
		full,
	}
}

// Upright renders an unrotated mask of the given size. Overlapping gradients
// combine by taking the strongest alpha.
func Upright(width, height int) *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, max(width, 0), max(height, 0)))
	if width <= 0 || height <= 0 {
		return m
	}
	shapes := gradients(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := float64(x) + 0.5
			py := float64(y) + 0.5
			a := 0.0
			for _, e := range shapes {
				a = math.Max(a, e.alphaAt(px, py))
			}
			m.Pix[y*m.Stride+x] = uint8(math.Round(a * 255))
		}
	}
	return m
}

// Build returns the mask for rect grown by padding on every side and rotated
// by angle degrees about its center.
//
// The upright mask is exactly (rect.Width + 2*padding) x
// (rect.Height + 2*padding). A non-zero angle returns the rotated mask's
// bounding box, which is larger.
func Build(rect geometry.Rect, angle float64, padding int) *image.Alpha {
	m := Upright(rect.Width+2*padding, rect.Height+2*padding)
	if angle == 0 || m.Bounds().Empty() {
		return m
	}
	return rotate(m, angle)
}

// rotate turns an alpha mask counter-clockwise about its center, filling the
// exposed corners with transparency.
func rotate(m *image.Alpha, angle float64) *image.Alpha {
	rotated := imaging.Rotate(m, angle, color.Transparent)
	b := rotated.Bounds()
	out := image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := rotated.Pix[y*rotated.Stride : y*rotated.Stride+b.Dx()*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4+3]
		}
	}
	return out
}

// Region is a mask positioned on an image.
type Region struct {
	// Mask is the alpha mask, with bounds starting at (0, 0).
	Mask *image.Alpha

	// Bounds is where the mask lands in image coordinates. It may extend
	// past the image edges.
	Bounds image.Rectangle
}

// Place builds the mask for rect and centers it on rect's center. For an
// unrotated mask this puts the top-left corner at
// (rect.X - padding, rect.Y - padding); rotation growth is split evenly.
func Place(rect geometry.Rect, angle float64, padding int) Region {
	m := Build(rect, angle, padding)
	mw := m.Bounds().Dx()
	mh := m.Bounds().Dy()
	dx := (mw - (rect.Width + 2*padding)) / 2
	dy := (mh - (rect.Height + 2*padding)) / 2
	origin := image.Pt(rect.X-padding-dx, rect.Y-padding-dy)
	return Region{
		Mask:   m,
		Bounds: image.Rectangle{Min: origin, Max: origin.Add(image.Pt(mw, mh))},
	}
}

// Crop returns the part of the region inside imageBounds.
func (r Region) Crop(imageBounds image.Rectangle) image.Rectangle {
	return r.Bounds.Intersect(imageBounds)
}

// Cut masks a processed patch. The patch must cover crop, a sub-rectangle of
// r.Bounds in image coordinates, with its own bounds starting at any origin.
// The result is a crop-sized image, transparent where the mask is
// transparent.
func (r Region) Cut(patch image.Image, crop image.Rectangle) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	maskOffset := crop.Min.Sub(r.Bounds.Min)
	draw.DrawMask(out, out.Bounds(), patch, patch.Bounds().Min, r.Mask, maskOffset, draw.Src)
	return out
}
