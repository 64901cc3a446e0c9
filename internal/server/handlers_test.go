package server

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/image-censor/internal/censor"
	"github.com/ironsheep/image-censor/internal/classifier"
	"github.com/ironsheep/image-censor/internal/detection"
	"github.com/ironsheep/image-censor/internal/geometry"
	"github.com/ironsheep/image-censor/internal/imaging"
)

// createTestImageFile creates a solid test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "input.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	paramsJSON, err := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// toolContent returns the content blocks of a successful tool call.
func toolContent(t *testing.T, resp *MCPResponse) []map[string]interface{} {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) == 0 {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	return content
}

func decodeText(t *testing.T, resp *MCPResponse, v interface{}) []map[string]interface{} {
	t.Helper()
	content := toolContent(t, resp)
	text, ok := content[0]["text"].(string)
	if !ok {
		t.Fatalf("first block should be text: %v", content[0])
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to decode tool result: %v\n%s", err, text)
	}
	return content
}

func rawDetection(label string, conf float64, x1, y1, x2, y2 float64) map[string]interface{} {
	return map[string]interface{}{
		"label":      label,
		"confidence": conf,
		"box":        []float64{x1, y1, x2, y2},
	}
}

func TestImageLoad(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, 100, 80, color.NRGBA{255, 0, 0, 255})

	var info imaging.ImageInfo
	decodeText(t, callTool(t, s, "image_load", map[string]interface{}{"path": path}), &info)

	if info.Width != 100 || info.Height != 80 || info.Format != imaging.FormatPNG {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestImageLoad_Errors(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing path", map[string]interface{}{}},
		{"nonexistent file", map[string]interface{}{"path": filepath.Join(t.TempDir(), "nope.png")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "image_load", tt.args)
			if resp.Error == nil || resp.Error.Code != codeToolFailed {
				t.Errorf("expected tool failure, got %+v", resp)
			}
		})
	}
}

func TestUnknownTool(t *testing.T) {
	resp := callTool(t, newTestServer(), "image_sharpen", nil)
	if resp.Error == nil || resp.Error.Code != codeToolFailed {
		t.Errorf("expected tool failure, got %+v", resp)
	}
}

func TestImageCensor_Bars(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, 100, 80, color.NRGBA{255, 255, 255, 255})

	var res CensorResult
	content := decodeText(t, callTool(t, s, "image_censor", map[string]interface{}{
		"path":       path,
		"detections": []interface{}{rawDetection("face", 0.9, 20, 20, 60, 60)},
		"styles":     map[string]string{"FACE": "bars"},
	}), &res)

	if res.RequestID == "" || res.Width != 100 || res.Height != 80 {
		t.Errorf("unexpected result header: %+v", res)
	}
	if len(res.Mutations) != 1 || res.Mutations[0].Provider != "bars" || res.Mutations[0].Layer != 10 {
		t.Fatalf("unexpected mutations: %+v", res.Mutations)
	}
	if len(res.Detections) != 1 || res.Detections[0].Label != "FACE" {
		t.Errorf("unexpected detections: %+v", res.Detections)
	}

	if len(content) != 2 || content[1]["type"] != "image" || content[1]["mimeType"] != "image/png" {
		t.Fatalf("expected an image block, got %v", content)
	}
	src, err := imaging.Decode(content[1]["data"].([]byte))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}

	r, g, b, _ := src.Image.At(40, 40).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("inside bar should be black, got %d,%d,%d", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = src.Image.At(5, 5).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("outside bar should stay white, got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestImageCensor_OutputPath(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, 64, 64, color.NRGBA{0, 128, 255, 255})
	outPath := filepath.Join(t.TempDir(), "censored.jpg")

	var res CensorResult
	content := decodeText(t, callTool(t, s, "image_censor", map[string]interface{}{
		"path":        path,
		"detections":  []interface{}{rawDetection("FACE", 0.8, 10, 10, 40, 40)},
		"output_path": outPath,
	}), &res)

	if res.OutputPath != outPath || res.MimeType != "image/jpeg" {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(content) != 1 {
		t.Errorf("no inline image expected when writing to a file, got %d blocks", len(content))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if src, err := imaging.Decode(data); err != nil || src.Format != imaging.FormatJPEG {
		t.Errorf("output should be a JPEG: %v", err)
	}
}

func TestImageCensor_InlineImageNoneStyle(t *testing.T) {
	s := newTestServer()

	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	data, err := imaging.Encode(img, imaging.FormatPNG, imaging.EncodeOptions{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var res CensorResult
	decodeText(t, callTool(t, s, "image_censor", map[string]interface{}{
		"image":      imaging.DataURL("image/png", data),
		"detections": []interface{}{rawDetection("FACE", 0.9, 0, 0, 16, 16)},
		"styles":     map[string]string{"FACE": censor.NoneStyle},
	}), &res)

	if res.Skipped != 1 || len(res.Mutations) != 0 {
		t.Errorf("none style should skip: %+v", res)
	}
}

func TestImageCensor_Errors(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, 16, 16, color.White)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"no image", map[string]interface{}{}},
		{"bad inline image", map[string]interface{}{"image": "data:image/png;base64,!!"}},
		{"bad confidence", map[string]interface{}{
			"path":       path,
			"detections": []interface{}{rawDetection("FACE", 2, 0, 0, 4, 4)},
		}},
		{"bad format", map[string]interface{}{"path": path, "format": "tiff"}},
		{"detect without classifier", map[string]interface{}{"path": path, "detect": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "image_censor", tt.args)
			if resp.Error == nil || resp.Error.Code != codeToolFailed {
				t.Errorf("expected tool failure, got %+v", resp)
			}
		})
	}
}

func TestImageDetect(t *testing.T) {
	s := New(Options{
		Log: quietLogger(),
		Classifier: classifier.Static{
			detection.New(1, 2, 11, 12, 0.7, "FACE"),
		},
	})
	path := createTestImageFile(t, 20, 20, color.White)

	var res struct {
		Count      int                   `json:"count"`
		Detections []detection.Detection `json:"detections"`
	}
	decodeText(t, callTool(t, s, "image_detect", map[string]interface{}{"path": path}), &res)

	if res.Count != 1 || res.Detections[0].Box != (geometry.Rect{X: 1, Y: 2, Width: 10, Height: 10}) {
		t.Errorf("unexpected detections: %+v", res)
	}
}

func TestImageCensor_Detect(t *testing.T) {
	s := New(Options{
		Log:        quietLogger(),
		Classifier: classifier.Static{detection.New(0, 0, 8, 8, 0.9, "FACE")},
	})
	path := createTestImageFile(t, 20, 20, color.White)

	var res CensorResult
	decodeText(t, callTool(t, s, "image_censor", map[string]interface{}{
		"path":   path,
		"detect": true,
		"styles": map[string]string{"FACE": "bars"},
	}), &res)

	if len(res.Mutations) != 1 {
		t.Errorf("classifier detection should be censored: %+v", res)
	}
}

func TestImageNormalize(t *testing.T) {
	s := newTestServer()
	dets := []interface{}{
		rawDetection("FACE", 0.9, 0, 0, 10, 10),
		rawDetection("FACE", 0.9, 5, 5, 15, 15),
	}

	tests := []struct {
		name  string
		args  map[string]interface{}
		count int
	}{
		{"merges by default", map[string]interface{}{"detections": dets}, 1},
		{"merging disabled", map[string]interface{}{"detections": dets, "allow_merging": false}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res struct {
				Input      int                   `json:"input"`
				Count      int                   `json:"count"`
				Detections []detection.Detection `json:"detections"`
			}
			decodeText(t, callTool(t, s, "image_normalize", tt.args), &res)
			if res.Input != 2 || res.Count != tt.count {
				t.Errorf("got %d of %d, want %d", res.Count, res.Input, tt.count)
			}
		})
	}

	resp := callTool(t, s, "image_normalize", map[string]interface{}{"detections": dets, "relative_scale": -1})
	if resp.Error == nil {
		t.Error("negative relative_scale should fail")
	}
}

func TestListStyles(t *testing.T) {
	s := newTestServer()

	var res struct {
		Styles []styleInfo `json:"styles"`
		Max    int         `json:"max_level"`
	}
	decodeText(t, callTool(t, s, "list_styles", nil), &res)

	if len(res.Styles) != 5 || res.Max != 20 {
		t.Fatalf("unexpected styles: %+v", res)
	}
	layers := map[string]int{}
	for _, st := range res.Styles {
		layers[st.Provider] = st.Layer
	}
	if layers["bars"] != 10 || layers["caption"] != 6 || layers["blur"] != 0 {
		t.Errorf("unexpected layers: %v", layers)
	}
}
