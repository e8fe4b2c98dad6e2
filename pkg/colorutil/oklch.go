package colorutil

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Lighten raises OKLCH lightness by amount. Non-colors are returned as is.
func Lighten(value string, amount float64) string {
	return shiftLightness(value, amount)
}

// Darken lowers OKLCH lightness by amount. Non-colors are returned as is.
func Darken(value string, amount float64) string {
	return shiftLightness(value, -amount)
}

func shiftLightness(value string, delta float64) string {
	c, ok := Parse(value)
	if !ok {
		return value
	}
	l, ch, h := c.Color.OkLch()
	return toHex(colorful.OkLch(clamp01(l+delta), ch, h))
}

// ScaleStep is one entry of a derived tonal scale.
type ScaleStep struct {
	Step  int
	Value string
}

// Tonal scale steps and the OKLCH lightness delta applied to the base for
// each one. Step 500 is the base color.
var (
	scaleSteps  = []int{50, 100, 200, 300, 400, 500, 600, 700, 800, 900}
	scaleDeltas = []float64{0.35, 0.25, 0.18, 0.1, 0.05, 0, -0.05, -0.1, -0.18, -0.28}
)

// TonalScale derives a 50..900 palette from base. Lightness is clamped to
// [0.08, 0.98] so the ends never collapse to pure black or white.
func TonalScale(base string) ([]ScaleStep, bool) {
	c, ok := Parse(base)
	if !ok {
		return nil, false
	}
	l, ch, h := c.Color.OkLch()
	out := make([]ScaleStep, 0, len(scaleSteps))
	for i, step := range scaleSteps {
		target := math.Max(0.08, math.Min(0.98, l+scaleDeltas[i]))
		out = append(out, ScaleStep{Step: step, Value: toHex(colorful.OkLch(target, ch, h))})
	}
	return out, true
}

// toHex maps a possibly out-of-gamut color back into sRGB.
func toHex(c colorful.Color) string {
	if !c.IsValid() {
		c = c.Clamped()
	}
	return RGBA{Color: c, Alpha: 1}.Hex()
}
