package censor

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-censor/internal/detection"
	"github.com/ironsheep/image-censor/internal/effects"
)

// AddMutationFunc files a mutation directly at layer, bypassing provider
// lookup.
type AddMutationFunc func(layer int, m *effects.Mutation)

// Middleware hooks into a censoring run.
//
// Middleware is best effort: an error from either hook is recorded and
// logged, and the run continues as if the middleware had done nothing.
type Middleware interface {
	Name() string

	// OnBeforeCensoring runs after the detection transformers. It may return
	// extra (usually virtual) detections and may file mutations with add.
	OnBeforeCensoring(ctx context.Context, img image.Image, parser Parser, add AddMutationFunc) ([]detection.Detection, error)

	// OnAfterCensoring sees the composited image. A nil image with a nil
	// error leaves it unchanged.
	OnAfterCensoring(ctx context.Context, img *image.NRGBA) (*image.NRGBA, error)
}

// Stage names the middleware hook a MiddlewareResult belongs to.
type Stage string

const (
	StageBefore Stage = "before"
	StageAfter  Stage = "after"
)

// MiddlewareResult records the outcome of one middleware hook call.
type MiddlewareResult struct {
	Name  string `json:"name"`
	Stage Stage  `json:"stage"`

	// Added is the number of detections returned by OnBeforeCensoring.
	Added int `json:"added,omitempty"`

	Err error `json:"-"`
}

// OK reports whether the hook succeeded.
func (r MiddlewareResult) OK() bool { return r.Err == nil }

// runBefore calls OnBeforeCensoring, turning a panic into an error.
func runBefore(ctx context.Context, mw Middleware, img image.Image, parser Parser, add AddMutationFunc) (ds []detection.Detection, err error) {
	defer func() {
		if r := recover(); r != nil {
			ds, err = nil, fmt.Errorf("middleware panic: %v", r)
		}
	}()
	return mw.OnBeforeCensoring(ctx, img, parser, add)
}

// runAfter calls OnAfterCensoring, turning a panic into an error.
func runAfter(ctx context.Context, mw Middleware, img *image.NRGBA) (out *image.NRGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("middleware panic: %v", r)
		}
	}()
	return mw.OnAfterCensoring(ctx, img)
}

// TextRegionMiddleware adds virtual detections for text-like regions found
// by the edge-density heuristic in package detection. It only runs when the
// parser censors its label.
type TextRegionMiddleware struct {
	// Label is given to the detections, detection.TextLabel when empty.
	Label string

	// MinConfidence drops weaker regions, 0.5 when zero.
	MinConfidence float64
}

// Name implements Middleware.
func (m TextRegionMiddleware) Name() string { return "text-regions" }

func (m TextRegionMiddleware) label() string {
	if m.Label == "" {
		return detection.TextLabel
	}
	return m.Label
}

// OnBeforeCensoring implements Middleware.
func (m TextRegionMiddleware) OnBeforeCensoring(ctx context.Context, img image.Image, parser Parser, _ AddMutationFunc) ([]detection.Detection, error) {
	if !Censors(parser, m.label()) {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	minConfidence := m.MinConfidence
	if minConfidence <= 0 {
		minConfidence = 0.5
	}
	return detection.DetectTextRegions(img, minConfidence, m.label()), nil
}

// OnAfterCensoring implements Middleware.
func (TextRegionMiddleware) OnAfterCensoring(context.Context, *image.NRGBA) (*image.NRGBA, error) {
	return nil, nil
}

// WatermarkMiddleware stamps a small solid square in the bottom-right corner
// of every censored image, marking it as processed.
type WatermarkMiddleware struct {
	// Size is the square's side in pixels, 8 when zero.
	Size  int
	Color color.NRGBA
}

// Name implements Middleware.
func (WatermarkMiddleware) Name() string { return "watermark" }

// OnBeforeCensoring implements Middleware.
func (WatermarkMiddleware) OnBeforeCensoring(context.Context, image.Image, Parser, AddMutationFunc) ([]detection.Detection, error) {
	return nil, nil
}

// OnAfterCensoring implements Middleware.
func (w WatermarkMiddleware) OnAfterCensoring(_ context.Context, img *image.NRGBA) (*image.NRGBA, error) {
	size := w.Size
	if size <= 0 {
		size = 8
	}
	b := img.Bounds()
	if b.Dx() < size*2 || b.Dy() < size*2 {
		return nil, fmt.Errorf("image %dx%d too small for a %dpx watermark", b.Dx(), b.Dy(), size)
	}
	c := w.Color
	if c.A == 0 {
		c = color.NRGBA{R: 255, G: 0, B: 255, A: 255}
	}
	at := image.Pt(b.Max.X-size-size/2, b.Max.Y-size-size/2)
	return imaging.Overlay(img, imaging.New(size, size, c), at, 1), nil
}
