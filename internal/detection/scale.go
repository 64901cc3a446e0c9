package detection

import "github.com/ironsheep/image-censor/internal/geometry"

// ScaleTransformer grows or shrinks every box by a relative factor, split
// evenly between opposite edges. A Scale of 1.2 makes each box 20% wider and
// 20% taller.
type ScaleTransformer struct {
	Scale float64
}

// TransformResults implements Transformer.
func (s ScaleTransformer) TransformResults(detections []Detection) []Detection {
	out := Clone(detections)
	if s.Scale <= 0 || s.Scale == 1 {
		return out
	}
	for i := range out {
		box := out[i].Box
		out[i].Box = geometry.ScaleBy(box, s.amount(box.Width), s.amount(box.Height))
	}
	return out
}

func (s ScaleTransformer) amount(size int) float64 {
	return (float64(size)*s.Scale - float64(size)) / 2
}
