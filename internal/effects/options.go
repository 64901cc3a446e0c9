package effects

import (
	"image"

	"github.com/ironsheep/image-censor/internal/geometry"
)

// GlobalOptions are the run-wide settings shared by every provider.
type GlobalOptions struct {
	// AllowMerging enables the intersecting-detection merger.
	AllowMerging bool `json:"allow_merging"`

	// PaddingScale scales the blend padding around masked effects.
	PaddingScale float64 `json:"padding_scale" validate:"gt=0"`

	// RelativeScale grows or shrinks every detection box before censoring.
	RelativeScale float64 `json:"relative_scale" validate:"gt=0"`

	// ClassStrength multiplies blur radius and pixel size per label.
	ClassStrength map[string]float64 `json:"class_strength,omitempty" validate:"dive,gt=0"`

	// LayerShift moves mutations up or down, keyed by style token or by
	// provider name.
	LayerShift map[string]int `json:"layer_shift,omitempty"`
}

// DefaultGlobalOptions returns merging on, padding scale 0.5 and no
// rescaling.
func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		AllowMerging:  true,
		PaddingScale:  0.5,
		RelativeScale: 1,
	}
}

// Strength returns the strength factor for label, 1 when unset.
func (o GlobalOptions) Strength(label string) float64 {
	if s, ok := o.ClassStrength[label]; ok && s > 0 {
		return s
	}
	return 1
}

// Shift returns the layer shift for a key, 0 when unset.
func (o GlobalOptions) Shift(key string) int {
	return o.LayerShift[key]
}

// ShiftFor returns the shift for style, falling back to the provider name.
func (o GlobalOptions) ShiftFor(style, provider string) int {
	if s, ok := o.LayerShift[style]; ok {
		return s
	}
	return o.LayerShift[provider]
}

// Padding returns the mask padding for an image with the given bounds.
func (o GlobalOptions) Padding(bounds image.Rectangle) int {
	return geometry.Padding(bounds.Dx(), bounds.Dy(), o.PaddingScale)
}
