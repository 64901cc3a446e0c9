package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/ironsheep/image-censor/internal/censor"
	"github.com/ironsheep/image-censor/internal/detection"
	"github.com/ironsheep/image-censor/internal/effects"
	"github.com/ironsheep/image-censor/internal/geometry"
)

// recordingProvider draws black bars and counts its calls.
type recordingProvider struct{ calls int }

func (p *recordingProvider) Name() string               { return "bars" }
func (p *recordingProvider) Supports(style string) bool { return style == "bars" }
func (p *recordingProvider) Layer() int                 { return 10 }

func (p *recordingProvider) Censor(_ context.Context, req effects.Request) (*effects.Mutation, error) {
	p.calls++
	return effects.Fill(req.Detection.Box, 0, color.NRGBA{A: 255}), nil
}

type fakeRecognizer struct {
	words []Word
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(context.Context, image.Image) ([]Word, error) {
	f.calls++
	return f.words, f.err
}

func sampleWords() []Word {
	return []Word{
		{Text: "HELLO", Confidence: 0.9, Box: geometry.Rect{X: 10, Y: 10, Width: 50, Height: 12}},
		{Text: "WORLD", Confidence: 0.4, Box: geometry.Rect{X: 70, Y: 10, Width: 50, Height: 12}},
		{Text: "  ", Confidence: 0.99, Box: geometry.Rect{X: 0, Y: 0, Width: 5, Height: 5}},
		{Text: "EMPTY", Confidence: 0.99, Box: geometry.Rect{X: 0, Y: 0}},
	}
}

func TestToDetections(t *testing.T) {
	tests := []struct {
		name          string
		minConfidence float64
		want          int
	}{
		{"all valid words", 0, 2},
		{"threshold drops weak words", 0.5, 1},
		{"threshold above everything", 0.95, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDetections(sampleWords(), "TEXT", tt.minConfidence)
			if len(got) != tt.want {
				t.Fatalf("got %d detections, want %d", len(got), tt.want)
			}
			for _, d := range got {
				if d.Label != "TEXT" || !d.Virtual {
					t.Errorf("unexpected detection %+v", d)
				}
			}
		})
	}
}

func TestOffset(t *testing.T) {
	words := offset(sampleWords()[:1], image.Pt(5, 7))
	if words[0].Box.X != 15 || words[0].Box.Y != 17 {
		t.Errorf("offset box: got %v", words[0].Box)
	}
}

func TestMiddleware_OnlyWhenLabelCensored(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	rec := &fakeRecognizer{words: sampleWords()}
	mw := NewMiddleware(rec, "", 0.5, log)
	img := image.NewNRGBA(image.Rect(0, 0, 200, 50))

	tests := []struct {
		name   string
		parser censor.Parser
		want   int
		calls  int
	}{
		{"nil parser", nil, 0, 0},
		{"text not configured", censor.NewStaticParser(map[string]string{"FACE": "blur"}, nil, ""), 0, 0},
		{"text censored", censor.NewStaticParser(map[string]string{"TEXT": "bars"}, nil, ""), 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec.calls = 0
			got, err := mw.OnBeforeCensoring(context.Background(), img, tt.parser, nil)
			if err != nil {
				t.Fatalf("OnBeforeCensoring: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("detections: got %d, want %d", len(got), tt.want)
			}
			if rec.calls != tt.calls {
				t.Errorf("recognizer calls: got %d, want %d", rec.calls, tt.calls)
			}
		})
	}
}

func TestMiddleware_RecognizerError(t *testing.T) {
	rec := &fakeRecognizer{err: ErrUnavailable}
	mw := NewMiddleware(rec, "TEXT", 0, nil)
	parser := censor.NewStaticParser(map[string]string{"TEXT": "bars"}, nil, "")

	_, err := mw.OnBeforeCensoring(context.Background(), image.NewNRGBA(image.Rect(0, 0, 10, 10)), parser, nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}

func TestMiddleware_InPipeline(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	provider := &recordingProvider{}
	c := censor.New(effects.Catalog{provider}, effects.DefaultGlobalOptions(), log)
	c.Use(NewMiddleware(&fakeRecognizer{words: sampleWords()}, "", 0.5, log))

	parser := censor.NewStaticParser(map[string]string{"TEXT": "bars"}, nil, "")
	comp, err := c.Composite(context.Background(), censor.ImageResult{
		Image: image.NewNRGBA(image.Rect(0, 0, 200, 50)),
	}, parser)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}

	if len(comp.Detections) != 1 || comp.Detections[0].Label != detection.TextLabel {
		t.Fatalf("expected one TEXT detection, got %+v", comp.Detections)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls: got %d, want 1", provider.calls)
	}
}

func TestMiddleware_ErrorDoesNotAbortPipeline(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	c := censor.New(nil, effects.DefaultGlobalOptions(), log)
	c.Use(NewMiddleware(&fakeRecognizer{err: errors.New("tesseract crashed")}, "", 0, log))

	parser := censor.NewStaticParser(map[string]string{"TEXT": "bars"}, nil, "")
	comp, err := c.Composite(context.Background(), censor.ImageResult{
		Image: image.NewNRGBA(image.Rect(0, 0, 20, 20)),
	}, parser)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	if comp.Middleware[0].OK() {
		t.Error("expected the OCR failure to be recorded")
	}
}
