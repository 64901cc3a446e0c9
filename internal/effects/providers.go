package effects

import (
	"context"
	"image"
	"image/color"
	"strings"
)

// Provider names.
const (
	NameBlur     = "blur"
	NamePixelate = "pixelate"
	NameBars     = "bars"
	NameSticker  = "sticker"
	NameCaption  = "caption"
)

// Default layers. Bars sit above soft effects and captions sit between.
const (
	LayerSoft    = 0
	LayerCaption = 6
	LayerBars    = 10
)

// BlurProvider applies a soft-masked Gaussian blur.
type BlurProvider struct{}

// Name implements Provider.
func (BlurProvider) Name() string { return NameBlur }

// Supports implements Provider.
func (BlurProvider) Supports(style string) bool { return style == NameBlur }

// Layer implements Provider.
func (BlurProvider) Layer() int { return LayerSoft }

// Censor implements Provider.
//
// The blur radius scales with the padded crop: see BlurRadius.
func (BlurProvider) Censor(_ context.Context, req Request) (*Mutation, error) {
	strength := req.Options.Strength(req.Detection.Label)
	var radius float64
	m := maskedEffect(req, func(crop *image.NRGBA, bounds image.Rectangle) image.Image {
		radius = BlurRadius(req.Spec.Level, bounds, strength)
		return gaussian(radius)(crop, bounds)
	})
	if m != nil {
		m.Params["radius"] = radius
	}
	return m, nil
}

// PixelateProvider replaces the region with large square blocks.
type PixelateProvider struct{}

// Name implements Provider.
func (PixelateProvider) Name() string { return NamePixelate }

// Supports implements Provider.
func (PixelateProvider) Supports(style string) bool { return strings.Contains(style, "pixel") }

// Layer implements Provider.
func (PixelateProvider) Layer() int { return LayerSoft }

// Censor implements Provider.
//
// The block size depends on the whole image, not the box, so every region
// in one image is pixelated at the same scale: see PixelSize.
func (PixelateProvider) Censor(_ context.Context, req Request) (*Mutation, error) {
	block := PixelSize(req.Image.Bounds(), req.Spec.Level, req.Options.Strength(req.Detection.Label))
	m := maskedEffect(req, func(crop *image.NRGBA, _ image.Rectangle) image.Image {
		return pixelate(crop, block)
	})
	if m != nil {
		m.Params["block"] = float64(block)
	}
	return m, nil
}

// BarsProvider fills the box with a solid, possibly rotated, bar. Bars are
// never masked or padded.
type BarsProvider struct{}

// Name implements Provider.
func (BarsProvider) Name() string { return NameBars }

// Supports implements Provider.
func (BarsProvider) Supports(style string) bool {
	return strings.Contains(style, "bars") || style == "bb" || strings.Contains(style, "blackb")
}

// Layer implements Provider.
func (BarsProvider) Layer() int { return LayerBars }

// Censor implements Provider.
//
// The fill colour defaults to black and can be set with the "color"
// parameter. The level only feeds the recorded inset factor
// (-(10-level)*2)/100, which is not applied to the drawn bar.
func (BarsProvider) Censor(_ context.Context, req Request) (*Mutation, error) {
	if req.Detection.Box.Empty() {
		return nil, nil
	}
	c, _ := paramColor(req.Spec, ParamColor, color.NRGBA{A: 255})
	m := Fill(req.Detection.Box, req.Detection.Angle(), c)
	m.Params = map[string]float64{"inset": BarInset(req.Spec.Level)}
	return m, nil
}

// BarInset is the reserved geometric inset factor for a bar at level.
func BarInset(level int) float64 {
	return float64(-(10-level)*2) / 100
}
