package compiler

import (
	"strings"

	"github.com/gnana997/themeforge/pkg/colorutil"
)

// Contrast thresholds.
const (
	minTextContrast    = 4.5
	minOnPrimary       = 4.5
	minButtonContrast  = 3.0
	minMutedContrast   = 3.0
	darkOnPrimary      = "#111827"
	lightOnPrimary     = "#ffffff"
	focusRadiusDefault = "var(--pi-shape-control-radius)"
)

// derivedPrefixes are filled from colors.primary rather than from registry
// defaults whenever the theme changes the primary color.
var derivedPrefixes = []string{"states.button.", "colors.primaryHover", "colors.primaryActive"}

func isDerived(path string) bool {
	for _, p := range derivedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// defaultsFor returns registry defaults, leaving derived tokens unset when
// the theme overrides colors.primary.
func defaultsFor(reg *Registry, theme map[string]any) map[string]any {
	def, _ := reg.Lookup("colors.primary")
	primary := getString(theme, "colors.primary")
	custom := primary != "" && !strings.EqualFold(colorutil.Normalize(primary), colorutil.Normalize(def.Default))

	out := make(map[string]any)
	for _, t := range reg.Tokens {
		if custom && isDerived(t.Path) {
			continue
		}
		setString(out, t.Path, t.Default)
	}
	return out
}

// ensureOnPrimary keeps colors.onPrimary when it reaches 4.5:1 against the
// primary; otherwise it picks white or near-black, whichever contrasts more.
func ensureOnPrimary(theme map[string]any) {
	primary := getString(theme, "colors.primary")
	if !colorutil.IsColor(primary) {
		return
	}
	if on := getString(theme, "colors.onPrimary"); on != "" {
		if ratio, ok := colorutil.Contrast(on, primary); ok && ratio >= minOnPrimary {
			return
		}
	}
	setString(theme, "colors.onPrimary", colorutil.BestOn(primary, lightOnPrimary, darkOnPrimary))
}

func ensureButtonStates(theme map[string]any) {
	primary := getString(theme, "colors.primary")
	if primary == "" {
		return
	}
	valueOr(theme, "colors.primaryHover", colorutil.MixBlack(primary, 0.1))
	valueOr(theme, "colors.primaryActive", colorutil.MixBlack(primary, 0.2))
	hover := getString(theme, "colors.primaryHover")
	active := getString(theme, "colors.primaryActive")
	on := getString(theme, "colors.onPrimary")

	states := []struct {
		name, fill, border, shadow, color string
	}{
		{"default", primary, "1px solid " + primary, "0 2px 6px rgba(37, 99, 235, 0.35)", on},
		{"hover", hover, "1px solid " + hover, "0 4px 10px rgba(29, 78, 216, 0.30)", on},
		{"active", active, "1px solid " + active, "0 2px 4px rgba(30, 58, 138, 0.35)", on},
		{"focus", hover, "2px solid #ffffff", "0 0 0 4px rgba(29, 78, 216, 0.25)", on},
		{"selected", "#ffffff", "2px solid " + primary, "0 0 0 2px rgba(37, 99, 235, 0.2)", primary},
	}
	for _, s := range states {
		prefix := "states.button." + s.name + "."
		valueOr(theme, prefix+"fill", s.fill)
		valueOr(theme, prefix+"border", s.border)
		valueOr(theme, prefix+"shadow", s.shadow)
		valueOr(theme, prefix+"color", s.color)
	}
}

func ensureFocusDefaults(theme map[string]any) {
	if r := getString(theme, "focus.radius"); r == "" || r == focusRadiusDefault {
		setString(theme, "focus.radius", getString(theme, "shape.controlRadius"))
	}
}

func normalize(reg *Registry, raw map[string]any) map[string]any {
	theme := Merge(defaultsFor(reg, raw), raw)
	ensureOnPrimary(theme)
	ensureButtonStates(theme)
	ensureFocusDefaults(theme)
	return theme
}
