package ocr

import (
	"context"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-censor/internal/censor"
	"github.com/ironsheep/image-censor/internal/detection"
)

// Middleware adds a virtual detection for every recognized word.
type Middleware struct {
	Recognizer Recognizer

	// Label is given to the detections, detection.TextLabel when empty.
	Label string

	// MinConfidence drops weaker words.
	MinConfidence float64

	Log logrus.FieldLogger
}

// NewMiddleware returns an OCR middleware using r.
func NewMiddleware(r Recognizer, label string, minConfidence float64, log logrus.FieldLogger) *Middleware {
	if label == "" {
		label = detection.TextLabel
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Middleware{Recognizer: r, Label: label, MinConfidence: minConfidence, Log: log}
}

// Name implements censor.Middleware.
func (m *Middleware) Name() string { return "ocr" }

// OnBeforeCensoring implements censor.Middleware. OCR is skipped unless the
// parser censors the middleware's label.
func (m *Middleware) OnBeforeCensoring(ctx context.Context, img image.Image, parser censor.Parser, _ censor.AddMutationFunc) ([]detection.Detection, error) {
	label := m.Label
	if label == "" {
		label = detection.TextLabel
	}
	if m.Recognizer == nil || !censor.Censors(parser, label) {
		return nil, nil
	}

	words, err := m.Recognizer.Recognize(ctx, img)
	if err != nil {
		return nil, err
	}
	found := ToDetections(words, label, m.MinConfidence)
	if m.Log != nil {
		m.Log.WithFields(logrus.Fields{
			"words":      len(words),
			"detections": len(found),
		}).Debug("OCR complete")
	}
	return found, nil
}

// OnAfterCensoring implements censor.Middleware.
func (*Middleware) OnAfterCensoring(context.Context, *image.NRGBA) (*image.NRGBA, error) {
	return nil, nil
}
