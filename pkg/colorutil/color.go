// Package colorutil parses CSS color values and provides the contrast and
// lightness math used by the extractor, the legacy token builder and the
// theme compiler.
package colorutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBA is a parsed CSS color. Channels are in [0,1].
type RGBA struct {
	Color colorful.Color
	Alpha float64
}

// Opaque reports whether the color has no transparency.
func (c RGBA) Opaque() bool {
	return c.Alpha >= 0.999
}

// Hex returns the lowercase #rrggbb form, ignoring alpha.
func (c RGBA) Hex() string {
	return strings.ToLower(c.Color.Clamped().Hex())
}

// String renders the color as #rrggbb when opaque and rgba() otherwise.
func (c RGBA) String() string {
	if c.Opaque() {
		return c.Hex()
	}
	r, g, b := c.Color.Clamped().RGB255()
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(round(c.Alpha, 3), 'f', -1, 64))
}

var named = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#008000",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"orange":  "#ffa500",
	"purple":  "#800080",
	"gray":    "#808080",
	"grey":    "#808080",
	"silver":  "#c0c0c0",
	"navy":    "#000080",
	"teal":    "#008080",
	"maroon":  "#800000",
	"olive":   "#808000",
	"lime":    "#00ff00",
	"aqua":    "#00ffff",
	"fuchsia": "#ff00ff",
}

// Parse parses hex, rgb()/rgba(), hsl()/hsla() and basic named colors.
// "transparent", "currentColor", var() references and gradients are
// rejected.
func Parse(value string) (RGBA, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimSuffix(strings.TrimSpace(strings.TrimSuffix(v, "!important")), ";")
	if v == "" {
		return RGBA{}, false
	}
	if hex, ok := named[v]; ok {
		v = hex
	}

	switch {
	case strings.HasPrefix(v, "#"):
		return parseHex(v[1:])
	case strings.HasPrefix(v, "rgb"):
		return parseRGB(v)
	case strings.HasPrefix(v, "hsl"):
		return parseHSL(v)
	}
	return RGBA{}, false
}

// IsColor reports whether value parses as a concrete color.
func IsColor(value string) bool {
	_, ok := Parse(value)
	return ok
}

// Normalize returns the canonical form of a color value (lowercase hex for
// opaque colors), or the trimmed input when it is not a parseable color.
func Normalize(value string) string {
	if c, ok := Parse(value); ok {
		return c.String()
	}
	return strings.TrimSpace(value)
}

// MustHex parses a known-good color and returns its hex form.
func MustHex(value string) string {
	c, ok := Parse(value)
	if !ok {
		panic("colorutil: invalid color " + value)
	}
	return c.Hex()
}

func parseHex(h string) (RGBA, bool) {
	for _, r := range h {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return RGBA{}, false
		}
	}
	switch len(h) {
	case 3, 4:
		expanded := make([]byte, 0, 8)
		for i := 0; i < len(h); i++ {
			expanded = append(expanded, h[i], h[i])
		}
		return parseHex(string(expanded))
	case 6, 8:
		n, err := strconv.ParseUint(h, 16, 64)
		if err != nil {
			return RGBA{}, false
		}
		alpha := 1.0
		if len(h) == 8 {
			alpha = float64(n&0xff) / 255
			n >>= 8
		}
		return RGBA{
			Color: colorful.Color{
				R: float64((n>>16)&0xff) / 255,
				G: float64((n>>8)&0xff) / 255,
				B: float64(n&0xff) / 255,
			},
			Alpha: alpha,
		}, true
	}
	return RGBA{}, false
}

// functionArgs splits "rgb(1 2 3 / 50%)" or "rgba(1, 2, 3, .5)" into parts.
func functionArgs(v string) ([]string, bool) {
	open := strings.IndexByte(v, '(')
	if open < 0 || !strings.HasSuffix(v, ")") {
		return nil, false
	}
	inner := v[open+1 : len(v)-1]
	inner = strings.ReplaceAll(inner, "/", " ")
	inner = strings.ReplaceAll(inner, ",", " ")
	parts := strings.Fields(inner)
	if len(parts) < 3 || len(parts) > 4 {
		return nil, false
	}
	return parts, true
}

func parseRGB(v string) (RGBA, bool) {
	parts, ok := functionArgs(v)
	if !ok {
		return RGBA{}, false
	}
	var ch [3]float64
	for i := 0; i < 3; i++ {
		n, ok := parseNumber(parts[i], 255)
		if !ok {
			return RGBA{}, false
		}
		ch[i] = clamp01(n / 255)
	}
	alpha := 1.0
	if len(parts) == 4 {
		a, ok := parseNumber(parts[3], 1)
		if !ok {
			return RGBA{}, false
		}
		alpha = clamp01(a)
	}
	return RGBA{Color: colorful.Color{R: ch[0], G: ch[1], B: ch[2]}, Alpha: alpha}, true
}

func parseHSL(v string) (RGBA, bool) {
	parts, ok := functionArgs(v)
	if !ok {
		return RGBA{}, false
	}
	h, err := strconv.ParseFloat(strings.TrimSuffix(parts[0], "deg"), 64)
	if err != nil {
		return RGBA{}, false
	}
	s, ok1 := parseNumber(parts[1], 100)
	l, ok2 := parseNumber(parts[2], 100)
	if !ok1 || !ok2 {
		return RGBA{}, false
	}
	alpha := 1.0
	if len(parts) == 4 {
		a, ok := parseNumber(parts[3], 1)
		if !ok {
			return RGBA{}, false
		}
		alpha = clamp01(a)
	}
	h = math.Mod(math.Mod(h, 360)+360, 360)
	return RGBA{Color: colorful.Hsl(h, clamp01(s/100), clamp01(l/100)), Alpha: alpha}, true
}

// parseNumber parses a plain or percentage number; percentages are scaled
// to max.
func parseNumber(s string, max float64) (float64, bool) {
	if strings.HasSuffix(s, "%") {
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, false
		}
		return n / 100 * max, true
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
