package detection

import (
	"image"
	"sort"

	"github.com/ironsheep/image-censor/internal/geometry"
)

// Detection is a labeled region of interest with a confidence score.
type Detection struct {
	// Box is the detected region in source-image pixels.
	Box geometry.Rect `json:"box"`

	// Confidence is the classifier score in [0, 1].
	Confidence float64 `json:"confidence"`

	// Label is the class name reported by the classifier.
	Label string `json:"label"`

	// SourceAngle is the orientation in degrees the effect should be rotated
	// to. It is only set on detections derived from a transform, such as a
	// merged union or a region synthesized from reference points.
	SourceAngle *float64 `json:"source_angle,omitempty"`

	// Virtual marks detections that exist only to carry derived geometry.
	Virtual bool `json:"virtual,omitempty"`
}

// New builds a Detection from floating corner coordinates.
func New(x1, y1, x2, y2, confidence float64, label string) Detection {
	return Detection{
		Box:        geometry.FromCorners(x1, y1, x2, y2),
		Confidence: confidence,
		Label:      label,
	}
}

// Angle returns SourceAngle, or 0 when unset.
func (d Detection) Angle() float64 {
	if d.SourceAngle == nil {
		return 0
	}
	return *d.SourceAngle
}

// HasAngle reports whether the detection carries an orientation.
func (d Detection) HasAngle() bool {
	return d.SourceAngle != nil
}

// WithAngle returns a copy of d with SourceAngle set to degrees.
func (d Detection) WithAngle(degrees float64) Detection {
	d.SourceAngle = &degrees
	return d
}

// Equal compares two detections by value, including the angle.
func (d Detection) Equal(o Detection) bool {
	if d.Box != o.Box || d.Confidence != o.Confidence || d.Label != o.Label || d.Virtual != o.Virtual {
		return false
	}
	if d.HasAngle() != o.HasAngle() {
		return false
	}
	return d.Angle() == o.Angle()
}

// Transformer rewrites a set of detections. Implementations must not modify
// the input slice.
type Transformer interface {
	TransformResults(detections []Detection) []Detection
}

// Options controls which transformers Normalize applies.
type Options struct {
	// AllowMerging enables the IntersectingMerger.
	AllowMerging bool

	// RelativeScale grows (>1) or shrinks (<1) every box about its own
	// geometry. Values <= 0 or exactly 1 disable scaling.
	RelativeScale float64
}

// Transformers returns the transformer chain for opts, in application order.
func Transformers(opts Options) []Transformer {
	chain := make([]Transformer, 0, 2)
	if opts.AllowMerging {
		chain = append(chain, IntersectingMerger{})
	}
	if opts.RelativeScale > 0 && opts.RelativeScale != 1 {
		chain = append(chain, ScaleTransformer{Scale: opts.RelativeScale})
	}
	return chain
}

// Apply runs detections through each transformer in order.
func Apply(detections []Detection, transformers ...Transformer) []Detection {
	out := Clone(detections)
	for _, t := range transformers {
		out = t.TransformResults(out)
	}
	return out
}

// Normalize merges and rescales detections according to opts.
func Normalize(detections []Detection, opts Options) []Detection {
	return Apply(detections, Transformers(opts)...)
}

// Clone returns a shallow copy of the slice.
func Clone(detections []Detection) []Detection {
	out := make([]Detection, len(detections))
	copy(out, detections)
	return out
}

// SortByArea orders detections by ascending box area. The sort is stable so
// detections of equal area keep their relative order.
func SortByArea(detections []Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Box.Area() < detections[j].Box.Area()
	})
}

// ClipToBounds clips every box to bounds and drops detections left with no
// area.
func ClipToBounds(detections []Detection, bounds image.Rectangle) []Detection {
	out := make([]Detection, 0, len(detections))
	for _, d := range detections {
		d.Box = geometry.Clip(d.Box, bounds)
		if d.Box.Empty() {
			continue
		}
		out = append(out, d)
	}
	return out
}
