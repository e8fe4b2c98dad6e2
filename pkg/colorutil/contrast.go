package colorutil

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// RelativeLuminance is the WCAG 2.x relative luminance of an sRGB color.
func RelativeLuminance(c colorful.Color) float64 {
	lin := func(v float64) float64 {
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	c = c.Clamped()
	return 0.2126*lin(c.R) + 0.7152*lin(c.G) + 0.0722*lin(c.B)
}

// ContrastRatio returns the WCAG contrast ratio (1..21) between two colors.
func ContrastRatio(a, b colorful.Color) float64 {
	la := RelativeLuminance(a)
	lb := RelativeLuminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

// Contrast parses both values and returns their contrast ratio. ok is false
// when either value is not a color.
func Contrast(fg, bg string) (ratio float64, ok bool) {
	a, okA := Parse(fg)
	b, okB := Parse(bg)
	if !okA || !okB {
		return 0, false
	}
	return ContrastRatio(a.Color, b.Color), true
}

// BestOn picks whichever candidate has the highest contrast against bg.
// Ties keep the earlier candidate.
func BestOn(bg string, candidates ...string) string {
	best := ""
	bestRatio := -1.0
	for _, c := range candidates {
		r, ok := Contrast(c, bg)
		if !ok {
			continue
		}
		if r > bestRatio {
			best, bestRatio = c, r
		}
	}
	return best
}

// MixWhite moves each sRGB channel toward white by amount (0..1).
func MixWhite(value string, amount float64) string {
	c, ok := Parse(value)
	if !ok {
		return value
	}
	f := clamp01(amount)
	mix := func(v float64) float64 { return v + (1-v)*f }
	c.Color = colorful.Color{R: mix(c.Color.R), G: mix(c.Color.G), B: mix(c.Color.B)}
	return c.Hex()
}

// MixBlack scales each sRGB channel toward black by amount (0..1).
func MixBlack(value string, amount float64) string {
	c, ok := Parse(value)
	if !ok {
		return value
	}
	f := clamp01(amount)
	mix := func(v float64) float64 { return v * (1 - f) }
	c.Color = colorful.Color{R: mix(c.Color.R), G: mix(c.Color.G), B: mix(c.Color.B)}
	return c.Hex()
}
