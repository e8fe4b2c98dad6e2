package compiler

import (
	"strings"

	"github.com/gnana997/themeforge/pkg/colorutil"
	"github.com/gnana997/themeforge/pkg/extractor"
	"github.com/gnana997/themeforge/pkg/schema"
)

// Palette fallbacks when no finding qualifies.
const (
	fallbackPrimary    = "#2563eb"
	fallbackSecondary  = "#1d4ed8"
	fallbackBackground = "#ffffff"
	fallbackText       = "#1f2937"
)

// Palette overrides the picked base colors. Empty fields keep the pick.
type Palette struct {
	Primary    string `json:"primary,omitempty"`
	Secondary  string `json:"secondary,omitempty"`
	Background string `json:"background,omitempty"`
	Text       string `json:"text,omitempty"`
}

// Keyword lists searched in order against finding names.
var (
	primaryKeywords    = []string{"primary", "brand", "accent", "cta", "button", "link", "logo"}
	secondaryKeywords  = []string{"secondary", "alternate", "muted", "support", "logo"}
	backgroundKeywords = []string{"background", "surface", "panel", "card", "body.backgroundcolor"}
	textKeywords       = []string{"text", "body.color", "font", "heading"}
	mutedKeywords      = []string{"muted", "subtle", "secondarytext"}
	borderKeywords     = []string{"border", "outline", "divider"}
)

type colorCandidate struct {
	value string
	name  string
}

// BuildLegacyTokens builds a flat-palette theme straight from raw findings,
// without a schema: base colors are picked by name keyword, the rest are
// derived from them in OKLCH. The result holds every registry token.
func BuildLegacyTokens(findings []extractor.RawFinding, overrides Palette) map[string]any {
	theme := DefaultRegistry().Defaults()
	colors, fonts := legacyCandidates(findings)
	used := make(map[string]bool)

	primary := pickColor(colors, used, primaryKeywords)
	if primary == "" && len(colors) > 0 {
		primary = colors[0].value
	}
	primary = or(primary, fallbackPrimary)
	used[primary] = true

	secondary := pickColor(colors, used, secondaryKeywords)
	if secondary == "" {
		for _, c := range colors {
			if c.value != primary {
				secondary = c.value
				break
			}
		}
	}
	secondary = or(secondary, fallbackSecondary)
	used[secondary] = true

	background := or(pickColor(colors, used, backgroundKeywords), fallbackBackground)
	used[background] = true
	text := or(pickColor(colors, used, textKeywords), fallbackText)
	used[text] = true

	muted := or(pickColor(colors, used, mutedKeywords), colorutil.Lighten(text, 0.2))
	border := or(pickColor(colors, used, borderKeywords), colorutil.Lighten(primary, 0.35))

	if v := overrideColor(overrides.Primary); v != "" {
		primary = v
		border = colorutil.Lighten(primary, 0.35)
	}
	if v := overrideColor(overrides.Text); v != "" {
		text = v
		muted = colorutil.Lighten(text, 0.2)
	}
	secondary = or(overrideColor(overrides.Secondary), secondary)
	background = or(overrideColor(overrides.Background), background)

	set := func(path, v string) { setString(theme, path, v) }
	set("colors.primary", primary)
	set("colors.primaryHover", colorutil.Darken(primary, 0.1))
	set("colors.primaryActive", colorutil.Darken(primary, 0.2))
	set("colors.secondary", secondary)
	set("colors.bg", background)
	set("colors.text", text)
	set("colors.muted", muted)
	set("colors.answerBorder", border)
	set("colors.inputBorder", colorutil.Lighten(primary, 0.4))
	set("colors.inputFocus", colorutil.Lighten(primary, 0.15))
	if len(fonts) > 0 {
		set("typography.fontFamily", fonts[0])
	}
	set("colors.onPrimary", colorutil.BestOn(primary, lightOnPrimary, darkOnPrimary))
	if getString(theme, "colors.onPrimary") == "" {
		set("colors.onPrimary", lightOnPrimary)
	}
	// Button states follow the picked primary, not the registry's.
	delete(theme, "states")
	ensureButtonStates(theme)
	return theme
}

// legacyCandidates collects color and font findings, deduplicated by
// normalized value in observation order.
func legacyCandidates(findings []extractor.RawFinding) ([]colorCandidate, []string) {
	var colors []colorCandidate
	var fonts []string
	seen := make(map[string]bool)
	for _, f := range findings {
		switch f.Category {
		case schema.CategoryColor:
			c, ok := colorutil.Parse(f.Value)
			if !ok {
				continue
			}
			v := c.String()
			if seen[v] {
				continue
			}
			seen[v] = true
			colors = append(colors, colorCandidate{value: v, name: strings.ToLower(f.NormalizedName)})
		case schema.CategoryFont:
			v := strings.TrimSpace(f.Value)
			if v == "" || seen["font:"+v] {
				continue
			}
			seen["font:"+v] = true
			fonts = append(fonts, v)
		}
	}
	return colors, fonts
}

func pickColor(colors []colorCandidate, used map[string]bool, keywords []string) string {
	for _, kw := range keywords {
		for _, c := range colors {
			if strings.Contains(c.name, kw) && !used[c.value] {
				return c.value
			}
		}
	}
	return ""
}

// overrideColor normalizes an override; values that do not parse as a
// color are used verbatim.
func overrideColor(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	return colorutil.Normalize(v)
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
