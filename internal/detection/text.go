package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/image-censor/internal/geometry"
)

// TextLabel is the label given to heuristic text regions.
const TextLabel = "TEXT"

// edgeThreshold is the grayscale step that counts as an edge pixel.
const edgeThreshold = 30.0

// textWindows are the sliding window sizes scanned for text, covering
// roughly very small to large printed lines.
var textWindows = []struct{ w, h int }{
	{100, 30},
	{150, 40},
	{200, 50},
	{80, 25},
}

// DetectTextRegions finds regions likely to contain text and returns them as
// virtual detections labeled label (TextLabel when empty).
//
// # Algorithm
//
// An edge map is built from the horizontal and vertical grayscale gradient.
// Windows of several sizes slide over it at half-window steps. A window is a
// candidate when its edge density is between 5% and 40% (text is neither
// sparse nor solid). Its confidence is:
//
//	horizontalScore * (1 - |density - 0.2| / 0.2)
//
// where horizontalScore is the share of horizontal edge runs. Overlapping
// candidates are merged and the result is sorted by descending confidence.
//
// Returns an empty slice for images smaller than the smallest window.
func DetectTextRegions(img image.Image, minConfidence float64, label string) []Detection {
	if label == "" {
		label = TextLabel
	}
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	edges := detectEdges(img, width, height)

	candidates := make([]Detection, 0)
	for _, ws := range textWindows {
		stepX := ws.w / 2
		stepY := ws.h / 2

		for y := 0; y <= height-ws.h; y += stepY {
			for x := 0; x <= width-ws.w; x += stepX {
				edgeCount := 0
				for wy := 0; wy < ws.h; wy++ {
					for wx := 0; wx < ws.w; wx++ {
						if edges[y+wy][x+wx] {
							edgeCount++
						}
					}
				}

				density := float64(edgeCount) / float64(ws.w*ws.h)
				if density < 0.05 || density > 0.4 {
					continue
				}

				horizontalScore := calculateHorizontalScore(edges, x, y, ws.w, ws.h)
				confidence := horizontalScore * (1.0 - math.Abs(density-0.2)/0.2)
				if confidence < minConfidence {
					continue
				}

				candidates = append(candidates, Detection{
					Box: geometry.Rect{
						X:      x + bounds.Min.X,
						Y:      y + bounds.Min.Y,
						Width:  ws.w,
						Height: ws.h,
					},
					Confidence: math.Round(confidence*1000) / 1000,
					Label:      label,
					Virtual:    true,
				})
			}
		}
	}

	merged := mergeOverlappingRegions(candidates)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

// calculateHorizontalScore returns the share of edge runs in the window that
// are horizontal.
func calculateHorizontalScore(edges [][]bool, x, y, w, h int) float64 {
	horizontalRuns := 0
	verticalRuns := 0

	for row := y; row < y+h; row++ {
		inRun := false
		for col := x; col < x+w; col++ {
			if edges[row][col] {
				if !inRun {
					horizontalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	for col := x; col < x+w; col++ {
		inRun := false
		for row := y; row < y+h; row++ {
			if edges[row][col] {
				if !inRun {
					verticalRuns++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	if horizontalRuns+verticalRuns == 0 {
		return 0
	}
	return float64(horizontalRuns) / float64(horizontalRuns+verticalRuns)
}

// mergeOverlappingRegions folds each candidate into the first earlier region
// it overlaps, keeping the higher confidence.
func mergeOverlappingRegions(regions []Detection) []Detection {
	merged := make([]Detection, 0, len(regions))
	for _, r := range regions {
		found := false
		for i := range merged {
			if geometry.Intersects(r.Box, merged[i].Box) {
				merged[i].Box = geometry.Union(r.Box, merged[i].Box)
				merged[i].Confidence = math.Max(r.Confidence, merged[i].Confidence)
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, r)
		}
	}
	return merged
}

// detectEdges marks pixels whose grayscale step to the right or below
// exceeds edgeThreshold. The one-pixel border is never an edge.
func detectEdges(img image.Image, width, height int) [][]bool {
	bounds := img.Bounds()
	edges := make([][]bool, height)

	for y := 0; y < height; y++ {
		edges[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			if x == 0 || y == 0 || x == width-1 || y == height-1 {
				continue
			}

			c := grayValue(img, x+bounds.Min.X, y+bounds.Min.Y)
			cx := grayValue(img, x+1+bounds.Min.X, y+bounds.Min.Y)
			cy := grayValue(img, x+bounds.Min.X, y+1+bounds.Min.Y)

			dx := math.Abs(float64(c) - float64(cx))
			dy := math.Abs(float64(c) - float64(cy))
			if dx > edgeThreshold || dy > edgeThreshold {
				edges[y][x] = true
			}
		}
	}
	return edges
}

// grayValue returns the ITU-R BT.601 luma of the pixel at (x, y).
func grayValue(img image.Image, x, y int) uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(float64(r>>8)*0.299 + float64(g>>8)*0.587 + float64(b>>8)*0.114)
}
