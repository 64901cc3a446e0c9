// Package detection holds the Detection model and the transformers that
// refine raw classifier output before any censoring effect is computed.
//
// # Pipeline Position
//
// Raw detections arrive from an external classifier. They are optionally
// filtered by score (MatchOptions), then run through the configured
// Transformers:
//
//  1. IntersectingMerger: merges duplicate or fragmented detections of the
//     same label into one stable region
//  2. ScaleTransformer: grows or shrinks every box around its own center
//
// Transformers are pure: they never modify their input slice and hold only
// immutable configuration, so one instance can serve concurrent requests.
//
// # Coordinate System
//
// Boxes are geometry.Rect values in source-image pixel space with the origin
// at the top-left corner. Boxes are not clipped here; the compositing
// pipeline clips every detection to the image bounds before censoring.
//
// # Virtual Detections
//
// A virtual detection carries derived geometry (for example a text region
// found by OCR) rather than a direct classifier match. Providers that cannot
// honor rotation may ignore them.
//
// # Text Regions
//
// DetectTextRegions is a dependency-free edge-density heuristic that emits
// virtual detections for areas that look like printed text. It backs the
// text-region middleware when Tesseract is not available.
package detection
