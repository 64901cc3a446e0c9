package effects

import (
	"context"
	"errors"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font/opentype"

	"github.com/ironsheep/image-censor/internal/assets"
	"github.com/ironsheep/image-censor/internal/geometry"
	codec "github.com/ironsheep/image-censor/internal/imaging"
)

// minFontSize keeps captions on tiny boxes legible to the rasterizer.
const minFontSize = 6

// CaptionProvider covers the region with a background effect and writes a
// random upper-cased caption across it.
//
// Parameters:
//   - color: text colour, white by default
//   - outline: outline colour; black by default, or the contrasting colour
//     of "color" when only that is set
//   - background: blur (default), pixelate or bars
type CaptionProvider struct {
	Store assets.Store
	Log   logrus.FieldLogger

	// Font overrides the default Go Bold font.
	Font *opentype.Font
}

// NewCaptionProvider returns a caption provider reading from store. A nil
// store behaves as assets.EmptyStore.
func NewCaptionProvider(store assets.Store, log logrus.FieldLogger) *CaptionProvider {
	if store == nil {
		store = assets.EmptyStore{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CaptionProvider{Store: store, Log: log}
}

// Name implements Provider.
func (*CaptionProvider) Name() string { return NameCaption }

// Supports implements Provider.
func (*CaptionProvider) Supports(style string) bool { return strings.HasPrefix(style, NameCaption) }

// Layer implements Provider.
func (*CaptionProvider) Layer() int { return LayerCaption }

// Censor implements Provider.
func (p *CaptionProvider) Censor(ctx context.Context, req Request) (*Mutation, error) {
	strength := req.Options.Strength(req.Detection.Label)
	bg := background(req, float64(max(req.Spec.Level, 10))*2.5*strength)

	text := p.caption(ctx, req)
	if bg == nil && text == nil {
		return nil, nil
	}
	return Group(bg, text), nil
}

// CaptionFontSize returns the font size for a box width and level. Level 10
// gives a quarter of the width.
func CaptionFontSize(boxWidth, level int) float64 {
	size := float64(boxWidth) / 4 * (float64(level-10)*0.75 + 10) / 10
	return max(size, minFontSize)
}

// captionColors resolves the text and outline colours from the spec.
func captionColors(spec Spec) (text, outline color.NRGBA) {
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.NRGBA{A: 255}

	text, textSet := paramColor(spec, ParamColor, white)
	outline, outlineSet := paramColor(spec, ParamOutline, black)
	if textSet && !outlineSet {
		outline = codec.Contrasting(text)
	}
	return text, outline
}

// caption returns the text overlay, or nil when no caption could be drawn.
func (p *CaptionProvider) caption(ctx context.Context, req Request) *Mutation {
	box := req.Detection.Box
	if box.Empty() || p.Store == nil {
		return nil
	}
	log := p.logger().WithFields(logrus.Fields{
		"label":      req.Detection.Label,
		"categories": req.Spec.Categories(),
	})

	text, err := p.Store.RandomCaption(ctx, req.Spec.Categories())
	if err != nil {
		if errors.Is(err, assets.ErrNotFound) {
			log.Debug("No caption available, using background only")
		} else {
			log.WithError(err).Warn("Caption lookup failed, using background only")
		}
		return nil
	}
	text = strings.ToUpper(strings.TrimSpace(text))
	if text == "" {
		return nil
	}

	fg, outline := captionColors(req.Spec)
	size := CaptionFontSize(box.Width, req.Spec.Level)
	img, err := RenderText(p.Font, text, TextStyle{
		Size:         size,
		Color:        fg,
		Outline:      outline,
		OutlineWidth: max(1, box.Width/80),
		WrapWidth:    box.Width,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to render caption")
		return nil
	}

	if angle := req.Detection.Angle(); angle != 0 {
		img = imaging.Rotate(img, angle, color.Transparent)
	}

	m := Overlay(img, centeredAt(geometry.Center(box), img.Bounds().Size()), 1)
	m.Params = map[string]float64{"font_size": size}
	return m
}

func (p *CaptionProvider) logger() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}
