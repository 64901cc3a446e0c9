// Package server implements the MCP (Model Context Protocol) server that
// exposes the censoring pipeline as tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_load: Load an image and get its metadata
//   - image_censor: Censor detections and return the composited image
//   - image_detect: Run the configured classifier
//   - image_normalize: Merge and scale detections without touching pixels
//   - list_styles: List providers and their layers
//
// image_censor takes detections as {"label", "confidence", "box": [x1, y1,
// x2, y2], "angle"} objects and optional per-call style overrides. The
// censored image is returned as an MCP image block, or written to
// output_path when one is given.
//
// # Image Caching
//
// Images loaded by path are cached for the lifetime of the process and
// reused across tool calls.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(server.Options{Censorer: c, Log: log})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
