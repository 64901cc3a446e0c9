package detection

// DefaultMinimumScore is the confidence a detection needs when no per-class
// score is configured.
const DefaultMinimumScore = 0.55

// MatchOptions sets the minimum confidence a raw detection needs to be kept.
type MatchOptions struct {
	// MinimumScore applies to every label without a ClassScores entry.
	MinimumScore float64 `json:"minimum_score" validate:"gte=0,lte=1"`

	// ClassScores overrides MinimumScore per label.
	ClassScores map[string]float64 `json:"class_scores,omitempty" validate:"dive,gte=0,lte=1"`
}

// DefaultMatchOptions returns options keeping detections scored 0.55 or more.
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{MinimumScore: DefaultMinimumScore}
}

// Threshold returns the minimum score for label.
func (o MatchOptions) Threshold(label string) float64 {
	if score, ok := o.ClassScores[label]; ok {
		return score
	}
	return o.MinimumScore
}

// Filter returns the detections meeting their label's threshold, in input
// order.
func (o MatchOptions) Filter(detections []Detection) []Detection {
	out := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if d.Confidence >= o.Threshold(d.Label) {
			out = append(out, d)
		}
	}
	return out
}
