package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-censor/internal/assets"
	"github.com/ironsheep/image-censor/internal/censor"
	"github.com/ironsheep/image-censor/internal/classifier"
	"github.com/ironsheep/image-censor/internal/detection"
	"github.com/ironsheep/image-censor/internal/effects"
	"github.com/ironsheep/image-censor/internal/imaging"
	"github.com/ironsheep/image-censor/internal/logging"
)

// ErrNoClassifier is returned by tools that need a classifier when none is
// configured.
var ErrNoClassifier = errors.New("no classifier configured")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_censor").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments jsoniter.RawMessage `json:"arguments"`
}

// imageResult is implemented by tool results that carry an image to return
// as an MCP image content block.
type imageResult interface {
	inlineImage() (mimeType string, data []byte, ok bool)
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Results carrying an image add an {"type": "image"} block. Tool execution
// errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = jsoniter.RawMessage("{}")
	}

	log := s.log.WithField("tool", params.Name)
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		log.WithError(err).Warn("Tool execution failed")
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}
	log.Debug("Tool executed")

	content := []map[string]interface{}{
		{
			"type": "text",
			"text": mustMarshalJSON(result),
		},
	}
	if ir, ok := result.(imageResult); ok {
		if mime, data, ok := ir.inlineImage(); ok {
			content = append(content, map[string]interface{}{
				"type":     "image",
				"mimeType": mime,
				"data":     data,
			})
		}
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": content,
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args jsoniter.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "image_censor":
		return s.handleImageCensor(ctx, args)
	case "image_detect":
		return s.handleImageDetect(ctx, args)
	case "image_normalize":
		return s.handleImageNormalize(args)
	case "list_styles":
		return s.handleListStyles()
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func defaultOptions() effects.GlobalOptions {
	return effects.DefaultGlobalOptions()
}

func defaultCatalog(log logrus.FieldLogger) effects.Catalog {
	return effects.DefaultCatalog(assets.EmptyStore{}, log)
}

// imageArgs locates the input image: a file path or an inline payload.
type imageArgs struct {
	Path  string `json:"path"`
	Image string `json:"image"`
}

func (s *Server) loadImage(a imageArgs) (*imaging.Source, error) {
	switch {
	case a.Path != "":
		return s.cache.Load(a.Path)
	case a.Image != "":
		return imaging.DecodeString(a.Image)
	default:
		return nil, errors.New("either path or image is required")
	}
}

func (s *Server) handleImageLoad(args jsoniter.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type imageCensorArgs struct {
	imageArgs
	Detections jsoniter.RawMessage `json:"detections"`
	Detect     bool                `json:"detect"`
	Styles     map[string]string   `json:"styles"`
	Levels     map[string]int      `json:"levels"`
	Format     string              `json:"format"`
	OutputPath string              `json:"output_path"`
}

// mutationSummary describes one drawn mutation without its pixels.
type mutationSummary struct {
	Provider string             `json:"provider"`
	Label    string             `json:"label,omitempty"`
	Kind     effects.Kind       `json:"kind"`
	Layer    int                `json:"layer"`
	Params   map[string]float64 `json:"params,omitempty"`
}

type middlewareSummary struct {
	Name  string       `json:"name"`
	Stage censor.Stage `json:"stage"`
	Added int          `json:"added,omitempty"`
	Error string       `json:"error,omitempty"`
}

// CensorResult is the image_censor tool result.
type CensorResult struct {
	RequestID  string                `json:"request_id"`
	Width      int                   `json:"width"`
	Height     int                   `json:"height"`
	MimeType   string                `json:"mime_type"`
	Detections []detection.Detection `json:"detections"`
	Mutations  []mutationSummary     `json:"mutations"`
	Skipped    int                   `json:"skipped"`
	Middleware []middlewareSummary   `json:"middleware,omitempty"`
	OutputPath string                `json:"output_path,omitempty"`
	SizeBytes  int                   `json:"size_bytes"`

	data []byte
}

func (r *CensorResult) inlineImage() (string, []byte, bool) {
	return r.MimeType, r.data, r.OutputPath == "" && len(r.data) > 0
}

func (s *Server) handleImageCensor(ctx context.Context, args jsoniter.RawMessage) (interface{}, error) {
	var a imageCensorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	src, err := s.loadImage(a.imageArgs)
	if err != nil {
		return nil, err
	}

	var detections []detection.Detection
	if len(a.Detections) > 0 && string(a.Detections) != "null" {
		if detections, err = classifier.ParseDetections(a.Detections); err != nil {
			return nil, err
		}
	}
	if a.Detect {
		found, err := s.detect(ctx, src.Image)
		if err != nil {
			return nil, err
		}
		detections = append(detections, found...)
	}

	format := src.Format
	if a.Format != "" {
		if format, err = imaging.ParseFormat(a.Format); err != nil {
			return nil, err
		}
	} else if a.OutputPath != "" {
		if f, err := imaging.ParseFormat(filepath.Ext(a.OutputPath)); err == nil {
			format = f
		}
	}

	comp, err := s.censorer.Composite(ctx, censor.ImageResult{
		Image:      src.Image,
		Format:     format,
		Detections: detections,
	}, s.requestParser(a.Styles, a.Levels))
	if err != nil {
		return nil, err
	}
	out, err := s.censorer.Encode(comp, format)
	if err != nil {
		return nil, err
	}

	res := &CensorResult{
		RequestID:  comp.RequestID,
		Width:      comp.Image.Bounds().Dx(),
		Height:     comp.Image.Bounds().Dy(),
		MimeType:   out.MimeType,
		Detections: comp.Detections,
		Skipped:    comp.Skipped,
		SizeBytes:  len(out.Bytes),
		data:       out.Bytes,
	}
	for _, m := range comp.Mutations {
		res.Mutations = append(res.Mutations, mutationSummary{
			Provider: m.Provider,
			Label:    m.Label,
			Kind:     m.Kind,
			Layer:    m.Layer,
			Params:   m.Params,
		})
	}
	for _, mr := range comp.Middleware {
		sum := middlewareSummary{Name: mr.Name, Stage: mr.Stage, Added: mr.Added}
		if mr.Err != nil {
			sum.Error = mr.Err.Error()
		}
		res.Middleware = append(res.Middleware, sum)
	}

	if a.OutputPath != "" {
		if err := os.WriteFile(a.OutputPath, out.Bytes, 0644); err != nil {
			return nil, fmt.Errorf("failed to write censored image: %w", err)
		}
		res.OutputPath = a.OutputPath
	}

	s.log.WithFields(logrus.Fields{
		logging.RequestIDKey: comp.RequestID,
		"detections":         len(comp.Detections),
		"mutations":          len(comp.Mutations),
	}).Info("Image censored")
	return res, nil
}

// requestParser puts per-call styles in front of the censorer's parser.
func (s *Server) requestParser(styles map[string]string, levels map[string]int) censor.Parser {
	if len(styles) == 0 {
		return nil
	}
	return censor.ChainParser{
		censor.NewStaticParser(styles, levels, "").Only(),
		s.censorer.Parser,
	}
}

func (s *Server) detect(ctx context.Context, img image.Image) ([]detection.Detection, error) {
	if s.classifier == nil {
		return nil, ErrNoClassifier
	}
	return s.classifier.Detect(ctx, img)
}

func (s *Server) handleImageDetect(ctx context.Context, args jsoniter.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	src, err := s.loadImage(a)
	if err != nil {
		return nil, err
	}
	detections, err := s.detect(ctx, src.Image)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"count":      len(detections),
		"detections": detections,
	}, nil
}

type imageNormalizeArgs struct {
	Detections    jsoniter.RawMessage `json:"detections"`
	AllowMerging  *bool               `json:"allow_merging"`
	RelativeScale *float64            `json:"relative_scale"`
}

func (s *Server) handleImageNormalize(args jsoniter.RawMessage) (interface{}, error) {
	var a imageNormalizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Detections) == 0 {
		return nil, errors.New("detections are required")
	}
	detections, err := classifier.ParseDetections(a.Detections)
	if err != nil {
		return nil, err
	}

	opts := detection.Options{
		AllowMerging:  s.censorer.Options.AllowMerging,
		RelativeScale: s.censorer.Options.RelativeScale,
	}
	if a.AllowMerging != nil {
		opts.AllowMerging = *a.AllowMerging
	}
	if a.RelativeScale != nil {
		if *a.RelativeScale <= 0 {
			return nil, fmt.Errorf("relative_scale must be positive, got %v", *a.RelativeScale)
		}
		opts.RelativeScale = *a.RelativeScale
	}

	out := detection.Normalize(detections, opts)
	return map[string]interface{}{
		"input":      len(detections),
		"count":      len(out),
		"detections": out,
	}, nil
}

type styleInfo struct {
	Provider string `json:"provider"`
	Layer    int    `json:"layer"`
}

func (s *Server) handleListStyles() (interface{}, error) {
	styles := make([]styleInfo, 0, len(s.censorer.Providers))
	for _, p := range s.censorer.Providers {
		styles = append(styles, styleInfo{
			Provider: p.Name(),
			Layer:    p.Layer() + s.censorer.Options.Shift(p.Name()),
		})
	}
	middleware := make([]string, 0, len(s.censorer.Middleware))
	for _, mw := range s.censorer.Middleware {
		middleware = append(middleware, mw.Name())
	}
	return map[string]interface{}{
		"styles":        styles,
		"none_style":    censor.NoneStyle,
		"default_level": effects.DefaultLevel,
		"max_level":     effects.MaxLevel,
		"middleware":    middleware,
		"style_syntax":  strings.Join([]string{"style", "style:category1,category2", "style?color=red&background=bars"}, " | "),
	}, nil
}
