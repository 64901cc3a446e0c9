package effects

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/effect"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	boldOnce sync.Once
	boldFace *opentype.Font
	boldErr  error
)

// defaultFont returns the parsed Go Bold font.
func defaultFont() (*opentype.Font, error) {
	boldOnce.Do(func() {
		boldFace, boldErr = opentype.Parse(gobold.TTF)
	})
	return boldFace, boldErr
}

// MaxOutlineWidth caps TextStyle.OutlineWidth.
const MaxOutlineWidth = 8

// TextStyle controls how RenderText draws a caption.
type TextStyle struct {
	Size    float64
	Color   color.NRGBA
	Outline color.NRGBA

	// OutlineWidth is clamped to [0, MaxOutlineWidth].
	OutlineWidth int

	// WrapWidth is the maximum line width in pixels; 0 disables wrapping.
	WrapWidth int
}

// RenderText draws text, wrapped and centered line by line, on a
// transparent image just large enough to hold it and its outline. A nil font
// selects Go Bold.
func RenderText(f *opentype.Font, text string, st TextStyle) (*image.NRGBA, error) {
	if f == nil {
		var err error
		if f, err = defaultFont(); err != nil {
			return nil, fmt.Errorf("failed to load caption font: %w", err)
		}
	}
	if st.Size <= 0 {
		return nil, fmt.Errorf("invalid font size %.2f", st.Size)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    st.Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	lines := wrapText(face, text, st.WrapWidth)
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty caption")
	}

	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()

	widths := make([]int, len(lines))
	maxWidth := 0
	for i, line := range lines {
		widths[i] = font.MeasureString(face, line).Ceil()
		maxWidth = max(maxWidth, widths[i])
	}

	pad := min(max(st.OutlineWidth, 0), MaxOutlineWidth)
	bounds := image.Rect(0, 0, maxWidth+2*pad, lineHeight*len(lines)+2*pad)

	// Glyph coverage is rasterized once; the outline is that coverage grown
	// by pad pixels.
	glyphs := image.NewAlpha(bounds)
	for i, line := range lines {
		x := pad + (maxWidth-widths[i])/2
		y := pad + ascent + i*lineHeight
		drawString(glyphs, face, x, y, line)
	}

	canvas := image.NewNRGBA(bounds)
	if pad > 0 {
		outline := alphaOf(effect.Dilate(glyphs, float64(pad)))
		draw.DrawMask(canvas, bounds, image.NewUniform(st.Outline), image.Point{}, outline, bounds.Min, draw.Over)
	}
	draw.DrawMask(canvas, bounds, image.NewUniform(st.Color), image.Point{}, glyphs, bounds.Min, draw.Over)
	return canvas, nil
}

// drawString rasterizes s into dst as coverage.
func drawString(dst *image.Alpha, face font.Face, x, y int, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// alphaOf returns the alpha channel of img.
func alphaOf(img *image.RGBA) *image.Alpha {
	out := image.NewAlpha(img.Bounds())
	for i := range out.Pix {
		out.Pix[i] = img.Pix[i*4+3]
	}
	return out
}

// wrapText splits text into lines no wider than maxWidth. A single word wider
// than maxWidth gets a line of its own.
func wrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if maxWidth <= 0 {
		if len(words) == 0 {
			return nil
		}
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	current := ""
	for _, w := range words {
		candidate := w
		if current != "" {
			candidate = current + " " + w
		}
		if current != "" && font.MeasureString(face, candidate).Ceil() > maxWidth {
			lines = append(lines, current)
			current = w
			continue
		}
		current = candidate
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
