package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Box is one annotation drawn by Annotate.
type Box struct {
	Rect image.Rectangle

	// Caption is drawn above the box's top-left corner. Only digits and
	// ".,%-" have glyphs; other characters leave a gap.
	Caption string
}

// Annotate returns a zero-based copy of img with every box outlined in c,
// thickness pixels wide, and its caption drawn on a dark tag. Boxes are in
// img's coordinate space and may extend past its bounds.
func Annotate(img image.Image, boxes []Box, c color.Color, thickness int) *image.NRGBA {
	out := imaging.Clone(img)
	if thickness < 1 {
		thickness = 1
	}
	origin := img.Bounds().Min
	fg := color.NRGBAModel.Convert(c).(color.NRGBA)

	for _, b := range boxes {
		r := b.Rect.Sub(origin)
		for i := 0; i < thickness; i++ {
			inner := r.Inset(i)
			if inner.Empty() {
				break
			}
			hline(out, inner.Min.X, inner.Max.X, inner.Min.Y, fg)
			hline(out, inner.Min.X, inner.Max.X, inner.Max.Y-1, fg)
			vline(out, inner.Min.X, inner.Min.Y, inner.Max.Y, fg)
			vline(out, inner.Max.X-1, inner.Min.Y, inner.Max.Y, fg)
		}
		if b.Caption != "" {
			drawLabel(out, r.Min.X+1, r.Min.Y-labelHeight-1, b.Caption,
				color.NRGBA{255, 255, 255, 255}, color.NRGBA{0, 0, 0, 180})
		}
	}
	return out
}

func hline(img *image.NRGBA, x0, x1, y int, c color.NRGBA) {
	for x := x0; x < x1; x++ {
		setClipped(img, x, y, c)
	}
}

func vline(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	for y := y0; y < y1; y++ {
		setClipped(img, x, y, c)
	}
}

func setClipped(img *image.NRGBA, x, y int, c color.NRGBA) {
	if (image.Point{x, y}).In(img.Bounds()) {
		img.SetNRGBA(x, y, c)
	}
}

const (
	charWidth   = 4
	labelHeight = 7
)

// 3x5 pixel font for numeric captions.
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	',': {"000", "000", "000", "010", "010"},
	'.': {"000", "000", "000", "000", "010"},
	'-': {"000", "000", "111", "000", "000"},
	'%': {"101", "001", "010", "100", "101"},
}

// drawLabel draws text on a background tag with its top-left corner at
// (x, y). Pixels outside img are skipped.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	labelWidth := len(text) * charWidth

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setClipped(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setClipped(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
