package effects

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-censor/internal/geometry"
)

// Kind selects how a Mutation is drawn.
type Kind string

const (
	// KindOverlay draws Image with its top-left corner at At.
	KindOverlay Kind = "overlay"

	// KindFill fills Rect with Color, rotated by Angle about its center.
	KindFill Kind = "fill"

	// KindGroup applies Steps in order.
	KindGroup Kind = "group"
)

// Mutation is a deferred drawing command produced by one provider for one
// detection. Mutations hold everything they need, so they can be logged,
// inspected in tests and applied later in layer order.
type Mutation struct {
	Kind Kind `json:"kind"`

	// Layer orders mutations; lower layers are drawn first.
	Layer int `json:"layer"`

	// Provider and Label record where the mutation came from.
	Provider string `json:"provider,omitempty"`
	Label    string `json:"label,omitempty"`

	// Image and At are used by KindOverlay.
	Image image.Image `json:"-"`
	At    image.Point `json:"at"`

	// Opacity is used by KindOverlay, in [0, 1].
	Opacity float64 `json:"opacity,omitempty"`

	// Rect, Angle and Color are used by KindFill.
	Rect  geometry.Rect `json:"rect"`
	Angle float64       `json:"angle,omitempty"`
	Color color.NRGBA   `json:"color"`

	// Steps are used by KindGroup.
	Steps []*Mutation `json:"steps,omitempty"`

	// Params records the computed effect parameters, such as a blur radius.
	Params map[string]float64 `json:"params,omitempty"`
}

// Overlay returns a mutation drawing img at the given position.
func Overlay(img image.Image, at image.Point, opacity float64) *Mutation {
	return &Mutation{Kind: KindOverlay, Image: img, At: at, Opacity: opacity}
}

// Fill returns a mutation filling a rotated rectangle.
func Fill(rect geometry.Rect, angle float64, c color.NRGBA) *Mutation {
	return &Mutation{Kind: KindFill, Rect: rect, Angle: angle, Color: c}
}

// Group returns a mutation applying steps in order. Nil steps are dropped.
func Group(steps ...*Mutation) *Mutation {
	g := &Mutation{Kind: KindGroup}
	for _, s := range steps {
		if s != nil {
			g.Steps = append(g.Steps, s)
		}
	}
	return g
}

// Apply draws the mutation onto canvas in place. canvas must have bounds
// starting at (0, 0).
func (m *Mutation) Apply(canvas *image.NRGBA) {
	if m == nil {
		return
	}
	switch m.Kind {
	case KindOverlay:
		if m.Image == nil || m.Opacity <= 0 {
			return
		}
		drawOver(canvas, m.Image, m.At, m.Opacity)
	case KindFill:
		if m.Rect.Empty() {
			return
		}
		shape, at := fillShape(m.Rect, m.Angle, m.Color)
		drawOver(canvas, shape, at, 1)
	case KindGroup:
		for _, s := range m.Steps {
			s.Apply(canvas)
		}
	}
}

// drawOver composites src onto dst with its top-left corner at at. Pixels
// outside dst are clipped.
func drawOver(dst *image.NRGBA, src image.Image, at image.Point, opacity float64) {
	b := src.Bounds()
	r := image.Rectangle{Min: at, Max: at.Add(b.Size())}
	var mask image.Image
	if opacity < 1 {
		mask = image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
	}
	draw.DrawMask(dst, r, src, b.Min, mask, image.Point{}, draw.Over)
}

// fillShape renders a solid rectangle rotated about its center and returns
// it with the position that keeps its center on rect's center.
func fillShape(rect geometry.Rect, angle float64, c color.NRGBA) (*image.NRGBA, image.Point) {
	shape := imaging.New(rect.Width, rect.Height, c)
	if angle != 0 {
		shape = imaging.Rotate(shape, angle, color.Transparent)
	}
	return shape, centeredAt(geometry.Center(rect), shape.Bounds().Size())
}

// centeredAt returns the top-left corner that centers an image of size on
// center.
func centeredAt(center geometry.Point, size image.Point) image.Point {
	return image.Pt(
		int(math.Floor(center.X-float64(size.X)/2)),
		int(math.Floor(center.Y-float64(size.Y)/2)),
	)
}
