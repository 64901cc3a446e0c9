package ocr

import (
	"context"
	"errors"
	"image"
	"strings"

	"github.com/ironsheep/image-censor/internal/detection"
	"github.com/ironsheep/image-censor/internal/geometry"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// ErrUnavailable is returned when the binary was built without Tesseract.
var ErrUnavailable = errors.New("tesseract OCR is not available in this build")

// Word is one recognized word with its location and OCR confidence.
type Word struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Box is the word's bounding box in image coordinates.
	Box geometry.Rect `json:"box"`
}

// Recognizer finds words in an image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]Word, error)
}

// Info describes the OCR backend.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
	Backend   string `json:"backend"`
}

// ToDetections converts words into virtual detections labelled label.
// Words that are blank, empty-boxed or below minConfidence are dropped.
func ToDetections(words []Word, label string, minConfidence float64) []detection.Detection {
	out := make([]detection.Detection, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" || w.Box.Empty() || w.Confidence < minConfidence {
			continue
		}
		out = append(out, detection.Detection{
			Box:        w.Box,
			Confidence: w.Confidence,
			Label:      label,
			Virtual:    true,
		})
	}
	return out
}

// offset moves words found in a crop back to full image coordinates.
func offset(words []Word, by image.Point) []Word {
	for i := range words {
		words[i].Box.X += by.X
		words[i].Box.Y += by.Y
	}
	return words
}
