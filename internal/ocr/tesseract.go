//go:build cgo

package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/image-censor/internal/geometry"
	codec "github.com/ironsheep/image-censor/internal/imaging"
)

// Tesseract recognizes words with the native Tesseract library.
//
// Each call creates its own gosseract client, so one Tesseract can serve
// concurrent requests.
type Tesseract struct {
	// Language is a Tesseract language code, DefaultLanguage when empty.
	Language string

	// TessdataPrefix overrides the directory holding *.traineddata files.
	TessdataPrefix string

	// Level is the page iterator level boxes are reported at. The zero
	// value is gosseract.RIL_BLOCK; NewTesseract picks words.
	Level gosseract.PageIteratorLevel
}

// NewTesseract returns a word-level recognizer.
func NewTesseract(language, tessdataPrefix string) *Tesseract {
	if language == "" {
		language = DefaultLanguage
	}
	return &Tesseract{
		Language:       language,
		TessdataPrefix: tessdataPrefix,
		Level:          gosseract.RIL_WORD,
	}
}

// Recognize implements Recognizer.
//
// Tesseract reads encoded images, so img is encoded as PNG first. Returned
// boxes are in img's coordinate space even when its bounds do not start at
// (0, 0).
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) ([]Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := codec.Encode(img, codec.FormatPNG, codec.EncodeOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	language := t.Language
	if language == "" {
		language = DefaultLanguage
	}
	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(t.Level)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		words = append(words, Word{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Box:        geometry.FromImageRect(box.Box),
		})
	}
	return offset(words, img.Bounds().Min), nil
}

// Version returns the linked Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}

// GetInfo reports whether OCR is usable.
func GetInfo() Info {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(DefaultLanguage); err != nil {
		return Info{Available: false, Error: err.Error(), Backend: "gosseract"}
	}
	return Info{Available: true, Version: client.Version(), Backend: "gosseract"}
}
