package effects

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"

	codec "github.com/ironsheep/image-censor/internal/imaging"
	"github.com/ironsheep/image-censor/internal/mask"
)

// processFunc transforms a cropped region. bounds is the crop rectangle in
// image coordinates; the crop itself has bounds starting at (0, 0).
type processFunc func(crop *image.NRGBA, bounds image.Rectangle) image.Image

// maskedEffect crops the padded mask region around the detection, processes
// it and returns the soft-masked result as an overlay. It returns nil when
// the region does not touch the image.
func maskedEffect(req Request, process processFunc) *Mutation {
	d := req.Detection
	padding := req.Options.Padding(req.Image.Bounds())
	region := mask.Place(d.Box, d.Angle(), padding)

	crop := region.Crop(req.Image.Bounds())
	if crop.Empty() {
		return nil
	}

	processed := process(imaging.Crop(req.Image, crop), crop)
	m := Overlay(region.Cut(processed, crop), crop.Min, 1)
	m.Params = map[string]float64{"padding": float64(padding)}
	return m
}

// BlurRadius returns the Gaussian blur radius for a crop:
//
//	max(level, 1) * max(2.5, min(cropWidth, cropHeight) / 100) * strength
func BlurRadius(level int, crop image.Rectangle, strength float64) float64 {
	base := math.Max(2.5, float64(min(crop.Dx(), crop.Dy()))/100)
	return float64(max(level, 1)) * base * strength
}

// PixelSize returns the pixelation block size for an image:
//
//	max(5, round((maxImageDimension / 3) / max(21 - level, 5) * 0.75 * strength))
func PixelSize(imageBounds image.Rectangle, level int, strength float64) int {
	dim := float64(max(imageBounds.Dx(), imageBounds.Dy())) / 3
	inverted := math.Max(float64(21-level), 5)
	return max(5, int(math.Round(dim/inverted*0.75*strength)))
}

// gaussian blurs img with the given radius.
func gaussian(radius float64) processFunc {
	return func(crop *image.NRGBA, _ image.Rectangle) image.Image {
		if radius <= 0 {
			return crop
		}
		return blur.Gaussian(crop, radius)
	}
}

// pixelate shrinks img to one averaged sample per block and scales it back
// up, so every block x block cell from the top-left corner is uniform.
func pixelate(img image.Image, block int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if block <= 1 || w == 0 || h == 0 {
		return imaging.Clone(img)
	}
	cols := (w + block - 1) / block
	rows := (h + block - 1) / block

	small := imaging.Resize(img, cols, rows, imaging.Box)
	large := imaging.Resize(small, cols*block, rows*block, imaging.NearestNeighbor)
	return imaging.Crop(large, image.Rect(0, 0, w, h))
}

// background returns the effect drawn under a sticker or caption. The
// "background" parameter selects blur (default), pixelate or bars.
func background(req Request, blurRadius float64) *Mutation {
	switch bg := req.Spec.Param(ParamBackground); {
	case bg == "bars" || bg == "bb" || bg == "blackbars":
		return Fill(req.Detection.Box, req.Detection.Angle(), color.NRGBA{A: 255})
	case bg == "pixel" || bg == "pixelate":
		block := PixelSize(req.Image.Bounds(), req.Spec.Level, req.Options.Strength(req.Detection.Label))
		return maskedEffect(req, func(crop *image.NRGBA, _ image.Rectangle) image.Image {
			return pixelate(crop, block)
		})
	default:
		return maskedEffect(req, gaussian(blurRadius))
	}
}

// paramColor parses a colour parameter, falling back to def when it is unset
// or invalid.
func paramColor(spec Spec, key string, def color.NRGBA) (color.NRGBA, bool) {
	raw := spec.Param(key)
	if raw == "" {
		return def, false
	}
	c, err := codec.ParseColor(raw)
	if err != nil {
		return def, false
	}
	return c, true
}
