package compiler

import "strings"

// DefaultAliases maps common schema token paths onto registry paths.
var DefaultAliases = map[string]string{
	"colors.background":          "colors.bg",
	"colors.surface":             "colors.bg",
	"colors.foreground":          "colors.text",
	"colors.brand":               "colors.primary",
	"colors.accent":              "colors.secondary",
	"colors.border":              "colors.answerBorder",
	"typography.family":          "typography.fontFamily",
	"typography.font":            "typography.fontFamily",
	"radius.widget":              "shape.widgetRadius",
	"radius.control":             "shape.controlRadius",
	"radius.button":              "shape.buttonRadius",
	"shadow.widget":              "shadows.widget",
	"components.widget.bodyBg":   "colors.bg",
	"components.widget.radius":   "shape.widgetRadius",
	"components.widget.shadow":   "shadows.widget",
	"components.button.radius":   "shape.buttonRadius",
	"components.input.border":    "colors.inputBorder",
	"components.input.radius":    "inputs.radius",
	"components.question.size":   "typography.sizes.question",
	"components.question.weight": "typography.weights.question",
}

// Adapt reshapes a mapper theme for the compiler. Leaves are flattened,
// renamed through aliases (DefaultAliases when empty) and nested again.
// A path that is already a registry token wins over an alias targeting it.
// Unaliased paths pass through unchanged.
func Adapt(theme map[string]any, aliases map[string]string) map[string]any {
	if len(aliases) == 0 {
		aliases = DefaultAliases
	}
	reg := DefaultRegistry()
	flat := Flatten(theme)
	out := make(map[string]any)
	direct := make(map[string]bool)

	for _, path := range sortedKeys(flat) {
		if _, ok := aliases[path]; !ok {
			setString(out, path, flat[path])
			if _, known := reg.Lookup(path); known {
				direct[path] = true
			}
		}
	}
	for _, path := range sortedKeys(flat) {
		target, ok := aliases[path]
		if !ok || direct[target] || strings.TrimSpace(flat[path]) == "" {
			continue
		}
		setString(out, target, flat[path])
		direct[target] = true
	}
	return out
}
