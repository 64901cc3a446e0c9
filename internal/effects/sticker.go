package effects

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-censor/internal/assets"
	"github.com/ironsheep/image-censor/internal/geometry"
	codec "github.com/ironsheep/image-censor/internal/imaging"
)

// StickerProvider covers the region with a background effect and places a
// random sticker, scaled to fit the box, on top of it.
//
// A missing or unusable sticker is not an error: the background alone is
// returned.
type StickerProvider struct {
	Store assets.Store
	Log   logrus.FieldLogger
}

// NewStickerProvider returns a sticker provider reading from store. A nil
// store behaves as assets.EmptyStore.
func NewStickerProvider(store assets.Store, log logrus.FieldLogger) *StickerProvider {
	if store == nil {
		store = assets.EmptyStore{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StickerProvider{Store: store, Log: log}
}

// Name implements Provider.
func (*StickerProvider) Name() string { return NameSticker }

// Supports implements Provider.
func (*StickerProvider) Supports(style string) bool { return strings.HasPrefix(style, NameSticker) }

// Layer implements Provider.
func (*StickerProvider) Layer() int { return LayerSoft }

// Censor implements Provider.
func (p *StickerProvider) Censor(ctx context.Context, req Request) (*Mutation, error) {
	strength := req.Options.Strength(req.Detection.Label)
	bg := background(req, float64(max(req.Spec.Level, 10))*2*strength)

	sticker := p.sticker(ctx, req)
	if bg == nil && sticker == nil {
		return nil, nil
	}
	return Group(bg, sticker), nil
}

// sticker returns the sticker overlay, or nil when none could be placed.
func (p *StickerProvider) sticker(ctx context.Context, req Request) *Mutation {
	box := req.Detection.Box
	if box.Empty() || p.Store == nil {
		return nil
	}
	log := p.logger().WithFields(logrus.Fields{
		"label":      req.Detection.Label,
		"categories": req.Spec.Categories(),
	})

	ratio := box.Ratio()
	data, err := p.Store.RandomImage(ctx, assets.KindStickers, ratio, req.Spec.Categories())
	if err != nil {
		if errors.Is(err, assets.ErrNotFound) {
			log.Debug("No sticker available, using background only")
		} else {
			log.WithError(err).Warn("Sticker lookup failed, using background only")
		}
		return nil
	}

	src, err := codec.Decode(data)
	if err != nil {
		log.WithError(err).Warn("Failed to decode sticker")
		return nil
	}
	b := src.Image.Bounds()
	if b.Empty() || !assets.RatioMatches(float64(b.Dx())/float64(b.Dy()), ratio) {
		log.WithField("size", b.Size().String()).Debug("Sticker ratio does not match box")
		return nil
	}

	img := fitWithin(src.Image, box.Width, box.Height)
	if angle := req.Detection.Angle(); angle != 0 {
		img = imaging.Rotate(img, angle, color.Transparent)
	}

	opacity := math.Min(float64(req.Spec.Level)/10, 1)
	m := Overlay(img, centeredAt(geometry.Center(box), img.Bounds().Size()), opacity)
	m.Params = map[string]float64{"opacity": opacity}
	return m
}

func (p *StickerProvider) logger() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}

// fitWithin scales img, up or down, to the largest size that fits inside
// width x height while keeping its aspect ratio.
func fitWithin(img image.Image, width, height int) *image.NRGBA {
	b := img.Bounds()
	scale := math.Min(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))
	return imaging.Resize(img, w, h, imaging.Lanczos)
}
