// Package classifier produces the raw detections the censoring pipeline
// works on.
//
// Sources:
//   - FileSource: detections stored as JSON next to the image
//   - OllamaClassifier: a local vision model asked for labelled boxes
//
// Filtered wraps any Classifier with per-class minimum scores.
package classifier

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/ironsheep/image-censor/internal/detection"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Classifier finds labelled regions in an image.
type Classifier interface {
	Detect(ctx context.Context, img image.Image) ([]detection.Detection, error)
}

// RawDetection is the JSON form of a detection: corner coordinates
// [x1, y1, x2, y2], with an optional angle in degrees.
type RawDetection struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"`
	Angle      *float64   `json:"angle,omitempty"`
}

// ToDetection converts r. Labels are upper-cased.
func (r RawDetection) ToDetection() detection.Detection {
	d := detection.New(r.Box[0], r.Box[1], r.Box[2], r.Box[3], r.Confidence, strings.ToUpper(strings.TrimSpace(r.Label)))
	if r.Angle != nil {
		d = d.WithAngle(*r.Angle)
	}
	return d
}

// ParseDetections decodes a JSON array of RawDetection.
func ParseDetections(data []byte) ([]detection.Detection, error) {
	var raw []RawDetection
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse detections: %w", err)
	}
	out := make([]detection.Detection, 0, len(raw))
	for i, r := range raw {
		if strings.TrimSpace(r.Label) == "" {
			return nil, fmt.Errorf("detection %d has no label", i)
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			return nil, fmt.Errorf("detection %d: confidence %.3f outside [0, 1]", i, r.Confidence)
		}
		out = append(out, r.ToDetection())
	}
	return out, nil
}

// FileSource returns the detections stored in a JSON file. The image is
// ignored.
type FileSource struct {
	Path string
}

// Detect implements Classifier.
func (f FileSource) Detect(ctx context.Context, _ image.Image) ([]detection.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read detections: %w", err)
	}
	return ParseDetections(data)
}

// Static always returns the same detections.
type Static []detection.Detection

// Detect implements Classifier.
func (s Static) Detect(context.Context, image.Image) ([]detection.Detection, error) {
	return detection.Clone(s), nil
}

// Filtered drops detections below their label's minimum score.
type Filtered struct {
	Classifier Classifier
	Match      detection.MatchOptions
}

// Detect implements Classifier.
func (f Filtered) Detect(ctx context.Context, img image.Image) ([]detection.Detection, error) {
	ds, err := f.Classifier.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	return f.Match.Filter(ds), nil
}
