package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var detectionsSchema = map[string]interface{}{
	"type":        "array",
	"description": "Detections in source-image pixels",
	"items": map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"label": map[string]interface{}{
				"type":        "string",
				"description": "Class name, e.g. FACE or TEXT",
			},
			"confidence": map[string]interface{}{
				"type":        "number",
				"description": "Classifier score between 0 and 1",
			},
			"box": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "number"},
				"minItems":    4,
				"maxItems":    4,
				"description": "Corners [x1, y1, x2, y2]",
			},
			"angle": map[string]interface{}{
				"type":        "number",
				"description": "Optional rotation in degrees, counter-clockwise",
			},
		},
		"required": []string{"label", "confidence", "box"},
	},
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var imageProperty = map[string]interface{}{
	"type":        "string",
	"description": "Inline image as a data URL or bare base64. Used when path is not given",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name: "image_censor",
			Description: "Censor labelled regions of an image. Each detection is resolved to a style " +
				"(blur, pixelate, bars, sticker, caption or none) and the effects are composited in layer order. " +
				"Returns the censored image and a summary of what was drawn.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":       pathProperty,
					"image":      imageProperty,
					"detections": detectionsSchema,
					"detect": map[string]interface{}{
						"type":        "boolean",
						"description": "Also run the configured classifier and add its detections",
						"default":     false,
					},
					"styles": map[string]interface{}{
						"type":                 "object",
						"description":          "Label to style overrides for this call, e.g. {\"FACE\": \"sticker:cats\"}",
						"additionalProperties": map[string]interface{}{"type": "string"},
					},
					"levels": map[string]interface{}{
						"type":                 "object",
						"description":          "Label to level (0-20) for the styles given in this call",
						"additionalProperties": map[string]interface{}{"type": "integer"},
					},
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"png", "jpeg", "gif", "webp"},
						"description": "Output format. Defaults to the source format",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Write the censored image here instead of returning it inline",
					},
				},
			},
		},
		{
			Name:        "image_detect",
			Description: "Run the configured classifier on an image and return its detections.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":  pathProperty,
					"image": imageProperty,
				},
			},
		},
		{
			Name:        "image_normalize",
			Description: "Merge intersecting detections and apply relative scaling without touching pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"detections": detectionsSchema,
					"allow_merging": map[string]interface{}{
						"type":        "boolean",
						"description": "Merge intersecting detections of the same label. Defaults to the server setting",
					},
					"relative_scale": map[string]interface{}{
						"type":        "number",
						"description": "Grow (>1) or shrink (<1) every box. Defaults to the server setting",
					},
				},
				"required": []string{"detections"},
			},
		},
		{
			Name:        "list_styles",
			Description: "List the censor styles the server supports and their default layers.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
