package classifier

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/ironsheep/image-censor/internal/detection"
	codec "github.com/ironsheep/image-censor/internal/imaging"
)

// DefaultTimeout bounds a model call when the context has no deadline.
const DefaultTimeout = 300 * time.Second

// DefaultLabels are the classes the vision model is asked to find.
var DefaultLabels = []string{"FACE", "EYES", "TEXT", "LICENSE_PLATE"}

// ChatClient is the part of the Ollama API client the classifier uses.
type ChatClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// OllamaClassifier asks a vision model served by Ollama for labelled boxes.
//
// The model is prompted to answer with
//
//	{"detections": [{"label": "FACE", "confidence": 0.9, "box": [x1, y1, x2, y2]}]}
//
// where box coordinates are fractions of the image size. Boxes whose values
// are all at most 1 are scaled to pixels; anything else is taken as pixels.
type OllamaClassifier struct {
	Client ChatClient
	Model  string
	Labels []string
}

// NewOllamaClassifier connects to the Ollama server at rawURL. Any path in
// the URL is ignored.
func NewOllamaClassifier(rawURL, model string) (*OllamaClassifier, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: scheme and host are required", rawURL)
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &OllamaClassifier{
		Client: api.NewClient(base, http.DefaultClient),
		Model:  model,
		Labels: DefaultLabels,
	}, nil
}

// Prompt returns the instruction sent with the image.
func (o *OllamaClassifier) Prompt() string {
	labels := o.Labels
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	return "Find every region in this image that shows one of these classes: " +
		strings.Join(labels, ", ") + ". " +
		`Answer with JSON only, in the form {"detections": [{"label": "FACE", "confidence": 0.9, "box": [x1, y1, x2, y2]}]}. ` +
		"Box coordinates are fractions of the image width and height between 0 and 1. " +
		`Return {"detections": []} when nothing is found.`
}

// Detect implements Classifier.
func (o *OllamaClassifier) Detect(ctx context.Context, img image.Image) ([]detection.Detection, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	data, err := codec.Encode(img, codec.FormatPNG, codec.EncodeOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to encode image for classifier: %w", err)
	}

	stream := false
	req := &api.ChatRequest{
		Model: o.Model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: o.Prompt(),
				Images:  []api.ImageData{api.ImageData(data)},
			},
		},
		Stream:  &stream,
		Options: map[string]any{"temperature": 0},
	}

	var content strings.Builder
	err = o.Client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %w", err)
	}
	if content.Len() == 0 {
		return nil, fmt.Errorf("empty response from ollama")
	}

	return parseModelDetections(content.String(), img.Bounds())
}

type modelAnswer struct {
	Detections []RawDetection `json:"detections"`
}

// parseModelDetections decodes the model's answer and converts boxes to
// pixels within bounds.
func parseModelDetections(raw string, bounds image.Rectangle) ([]detection.Detection, error) {
	var answer modelAnswer
	if err := json.Unmarshal([]byte(sanitizeModelJSON(raw)), &answer); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	out := make([]detection.Detection, 0, len(answer.Detections))
	for _, r := range answer.Detections {
		if strings.TrimSpace(r.Label) == "" {
			continue
		}
		if normalized(r.Box) {
			r.Box = [4]float64{r.Box[0] * w, r.Box[1] * h, r.Box[2] * w, r.Box[3] * h}
		}
		r.Box[0] += float64(bounds.Min.X)
		r.Box[2] += float64(bounds.Min.X)
		r.Box[1] += float64(bounds.Min.Y)
		r.Box[3] += float64(bounds.Min.Y)
		r.Confidence = min(max(r.Confidence, 0), 1)

		d := r.ToDetection()
		if d.Box.Empty() {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func normalized(box [4]float64) bool {
	for _, v := range box {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON removes code fences, comments and trailing commas and
// keeps the outermost object.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
