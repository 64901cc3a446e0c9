package imaging

import (
	"fmt"
	"image/color"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// namedColors are the colour names accepted by ParseColor.
var namedColors = map[string]string{
	"black":  "#000000",
	"white":  "#ffffff",
	"red":    "#ff0000",
	"green":  "#00ff00",
	"blue":   "#0000ff",
	"yellow": "#ffff00",
	"pink":   "#ff69b4",
	"purple": "#800080",
	"orange": "#ffa500",
	"gray":   "#808080",
	"grey":   "#808080",
}

// ParseColor parses a colour parameter.
//
// Accepted forms:
//   - "#RRGGBB" or "#RGB"
//   - the same without the leading '#'
//   - a name: black, white, red, green, blue, yellow, pink, purple,
//     orange, gray/grey
//
// The result is always fully opaque.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// ColorHex formats c as "#rrggbb", ignoring alpha. Fully transparent colours
// format as "#000000".
func ColorHex(c color.Color) string {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return "#000000"
	}
	return cf.Hex()
}

// Contrasting returns black for light colours and white for dark ones, using
// CIE L*a*b* lightness. It picks a readable outline for caption text.
func Contrasting(c color.Color) color.NRGBA {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return color.NRGBA{A: 255}
	}
	l, _, _ := cf.Lab()
	if l > 0.5 {
		return color.NRGBA{A: 255}
	}
	return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
}
