package classifier

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ollama/ollama/api"

	"github.com/ironsheep/image-censor/internal/detection"
	"github.com/ironsheep/image-censor/internal/geometry"
)

func TestParseDetections(t *testing.T) {
	data := []byte(`[
		{"label": "face", "confidence": 0.9, "box": [10.2, 20.7, 50, 60]},
		{"label": "EYES", "confidence": 0.6, "box": [15, 25, 45, 35], "angle": -12.5}
	]`)

	ds, err := ParseDetections(data)
	if err != nil {
		t.Fatalf("ParseDetections: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("got %d detections, want 2", len(ds))
	}

	if ds[0].Label != "FACE" {
		t.Errorf("label not upper-cased: %q", ds[0].Label)
	}
	if want := (geometry.Rect{X: 10, Y: 20, Width: 40, Height: 40}); ds[0].Box != want {
		t.Errorf("box: got %v, want %v", ds[0].Box, want)
	}
	if ds[0].HasAngle() {
		t.Error("first detection should have no angle")
	}
	if !ds[1].HasAngle() || ds[1].Angle() != -12.5 {
		t.Errorf("angle: got %v", ds[1].Angle())
	}
}

func TestParseDetections_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `nope`},
		{"object instead of array", `{"label": "FACE"}`},
		{"missing label", `[{"confidence": 0.5, "box": [0, 0, 1, 1]}]`},
		{"confidence too high", `[{"label": "FACE", "confidence": 1.5, "box": [0, 0, 1, 1]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDetections([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detections.json")
	if err := os.WriteFile(path, []byte(`[{"label": "FACE", "confidence": 0.8, "box": [0, 0, 10, 10]}]`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ds, err := FileSource{Path: path}.Detect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(ds) != 1 || ds[0].Label != "FACE" {
		t.Errorf("unexpected detections: %+v", ds)
	}

	if _, err := (FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}).Detect(context.Background(), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFiltered(t *testing.T) {
	source := Static{
		detection.New(0, 0, 10, 10, 0.9, "FACE"),
		detection.New(0, 0, 10, 10, 0.5, "FACE"),
		detection.New(0, 0, 10, 10, 0.3, "TEXT"),
	}
	f := Filtered{
		Classifier: source,
		Match: detection.MatchOptions{
			MinimumScore: 0.55,
			ClassScores:  map[string]float64{"TEXT": 0.2},
		},
	}

	ds, err := f.Detect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("got %d detections, want 2", len(ds))
	}
	if ds[0].Confidence != 0.9 || ds[1].Label != "TEXT" {
		t.Errorf("unexpected detections: %+v", ds)
	}
}

// fakeChat answers every chat request with a fixed message.
type fakeChat struct {
	answer string
	err    error
	last   *api.ChatRequest
}

func (f *fakeChat) Chat(_ context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error {
	f.last = req
	if f.err != nil {
		return f.err
	}
	return fn(api.ChatResponse{Message: api.Message{Role: "assistant", Content: f.answer}})
}

func TestOllamaClassifier_Detect(t *testing.T) {
	chat := &fakeChat{answer: "```json\n" + `{
		"detections": [
			{"label": "face", "confidence": 0.92, "box": [0.1, 0.2, 0.5, 0.6]},
			{"label": "text", "confidence": 1.3, "box": [20, 30, 60, 40]},
			{"label": "", "confidence": 0.9, "box": [0, 0, 1, 1]},
		]
	}` + "\n```"}
	o := &OllamaClassifier{Client: chat, Model: "llava", Labels: []string{"FACE", "TEXT"}}

	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	ds, err := o.Detect(context.Background(), img)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("got %d detections, want 2: %+v", len(ds), ds)
	}

	if want := (geometry.Rect{X: 20, Y: 20, Width: 80, Height: 40}); ds[0].Box != want {
		t.Errorf("normalized box: got %v, want %v", ds[0].Box, want)
	}
	if want := (geometry.Rect{X: 20, Y: 30, Width: 40, Height: 10}); ds[1].Box != want {
		t.Errorf("pixel box: got %v, want %v", ds[1].Box, want)
	}
	if ds[1].Confidence != 1 {
		t.Errorf("confidence not clamped: %v", ds[1].Confidence)
	}

	if chat.last == nil || chat.last.Model != "llava" || len(chat.last.Messages) != 1 {
		t.Fatalf("unexpected request: %+v", chat.last)
	}
	msg := chat.last.Messages[0]
	if len(msg.Images) != 1 || len(msg.Images[0]) == 0 {
		t.Error("image not attached")
	}
	if !strings.Contains(msg.Content, "FACE, TEXT") {
		t.Errorf("prompt does not list labels: %q", msg.Content)
	}
	if chat.last.Stream == nil || *chat.last.Stream {
		t.Error("streaming should be disabled")
	}
}

func TestOllamaClassifier_Errors(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))

	tests := []struct {
		name string
		chat *fakeChat
	}{
		{"chat error", &fakeChat{err: errors.New("connection refused")}},
		{"empty answer", &fakeChat{answer: ""}},
		{"not json", &fakeChat{answer: "I see a cat."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &OllamaClassifier{Client: tt.chat, Model: "llava"}
			if _, err := o.Detect(context.Background(), img); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewOllamaClassifier(t *testing.T) {
	o, err := NewOllamaClassifier("http://localhost:11434/api/chat", "llava")
	if err != nil {
		t.Fatalf("NewOllamaClassifier: %v", err)
	}
	if o.Model != "llava" || o.Client == nil {
		t.Errorf("unexpected classifier: %+v", o)
	}

	if _, err := NewOllamaClassifier("localhost", "llava"); err == nil {
		t.Error("expected error for URL without scheme")
	}
}

func TestSanitizeModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"trailing comma", `{"a": [1, 2,]}`, `{"a": [1, 2]}`},
		{"prose around", `Here you go: {"a": 1} hope that helps`, `{"a": 1}`},
		{"comments", "{\"a\": 1 /* one */}", `{"a": 1 }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeModelJSON(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
