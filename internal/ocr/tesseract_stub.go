//go:build !cgo

package ocr

import (
	"context"
	"image"
)

// Tesseract is unavailable without CGO; Recognize always fails.
type Tesseract struct {
	Language       string
	TessdataPrefix string
}

// NewTesseract returns a recognizer that reports ErrUnavailable.
func NewTesseract(language, tessdataPrefix string) *Tesseract {
	if language == "" {
		language = DefaultLanguage
	}
	return &Tesseract{Language: language, TessdataPrefix: tessdataPrefix}
}

// Recognize implements Recognizer.
func (*Tesseract) Recognize(context.Context, image.Image) ([]Word, error) {
	return nil, ErrUnavailable
}

// Version returns an empty string without Tesseract.
func Version() string { return "" }

// GetInfo reports that OCR is unavailable.
func GetInfo() Info {
	return Info{Available: false, Error: ErrUnavailable.Error(), Backend: "none"}
}
