// Package compiler turns a nested theme into deployable widget CSS. It
// merges the theme over the registry defaults, derives dependent tokens,
// validates the required set and renders a scoped stylesheet.
package compiler

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gnana997/themeforge/pkg/colorutil"
)

// Options select optional stylesheet sections.
type Options struct {
	IncludeLegacyLayer     bool
	IncludeFocusStyles     bool
	IncludeSliderStyles    bool
	IncludeAllAtOnceStyles bool
	IncludeAnswerLayout    bool

	// Registry defaults to the embedded Pulse registry.
	Registry *Registry
	Logger   *slog.Logger
}

// DefaultOptions enables every section except the legacy overlay.
func DefaultOptions() Options {
	return Options{
		IncludeFocusStyles:     true,
		IncludeSliderStyles:    true,
		IncludeAllAtOnceStyles: true,
		IncludeAnswerLayout:    true,
	}
}

// Result is the compiler output. CSS is empty whenever Errors is not.
type Result struct {
	CSS      string         `json:"css,omitempty"`
	Theme    map[string]any `json:"theme"`
	Warnings []string       `json:"warnings"`
	Errors   []string       `json:"errors"`
}

// OK reports whether CSS was produced.
func (r *Result) OK() bool { return len(r.Errors) == 0 }

// Compile normalizes theme and renders it. Validation problems are
// returned as data; Compile itself never fails.
func Compile(theme map[string]any, opts Options) *Result {
	reg := opts.Registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	normalized := normalize(reg, theme)
	res := &Result{Theme: normalized, Warnings: []string{}, Errors: []string{}}
	res.Errors = missingTokens(reg, normalized)
	res.Warnings = contrastWarnings(normalized)

	if len(res.Errors) > 0 {
		logger.Warn("theme rejected", "errors", len(res.Errors))
		return res
	}

	css, err := renderCSS(reg, normalized, opts)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	res.CSS = css
	logger.Debug("theme compiled", "bytes", len(css), "warnings", len(res.Warnings))
	return res
}

func missingTokens(reg *Registry, theme map[string]any) []string {
	errs := []string{}
	for _, path := range reg.CorePaths() {
		if getString(theme, path) == "" {
			errs = append(errs, "Missing token: "+path)
		}
	}
	return errs
}

func contrastWarnings(theme map[string]any) []string {
	warnings := []string{}
	check := func(fg, bg string, min float64, msg string) {
		ratio, ok := colorutil.Contrast(getString(theme, fg), getString(theme, bg))
		if ok && ratio < min {
			warnings = append(warnings, fmt.Sprintf("%s (%.2f:1, %s on %s)", msg, ratio, fg, bg))
		}
	}
	check("colors.text", "colors.bg", minTextContrast, "Text contrast against the background is below 4.5:1")
	check("colors.onPrimary", "colors.primary", minButtonContrast, "Button text contrast may be insufficient for accessibility")
	check("colors.muted", "colors.bg", minMutedContrast, "Muted text contrast against the background is below 3:1")
	return warnings
}

func renderCSS(reg *Registry, theme map[string]any, opts Options) (string, error) {
	sections := []string{variablesBlock(reg, theme)}
	base, err := baseCSS(theme, opts)
	if err != nil {
		return "", err
	}
	sections = append(sections, base)
	if opts.IncludeAnswerLayout {
		layout, err := answerLayoutCSS()
		if err != nil {
			return "", err
		}
		sections = append(sections, layout)
	}
	if opts.IncludeFocusStyles {
		sections = append(sections, staticCSS("focus.css"))
	}
	if opts.IncludeLegacyLayer {
		sections = append(sections, staticCSS("legacy.css"))
	}
	for i := range sections {
		sections[i] = strings.Trim(sections[i], "\n")
	}
	return strings.Join(sections, "\n\n") + "\n", nil
}
