package compiler

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/themeforge/pkg/colorutil"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return opts
}

func TestCompile_Defaults(t *testing.T) {
	res := Compile(nil, testOptions())

	require.True(t, res.OK(), res.Errors)
	assert.Empty(t, res.Warnings)
	assert.True(t, strings.HasPrefix(res.CSS, Container+" {\n"))
	assert.Contains(t, res.CSS, "  --pi-color-primary: #2563eb;\n")
	assert.Contains(t, res.CSS, "  --pi-color-background: #ffffff;\n")
	assert.Contains(t, res.CSS, "  --pi-button-fill-default: #2563eb;\n")
	assert.Contains(t, res.CSS, "display: inline-flex;")
	assert.Contains(t, res.CSS, ":focus-visible")
	assert.Contains(t, res.CSS, `[data-answers-per-row="14"]`)
	assert.NotContains(t, res.CSS, "_pi-control-checkbox:hover", "legacy overlay is opt-in")
	assert.NotContains(t, res.CSS, "{{")

	// Registry default radius reference resolves to the control radius.
	assert.Contains(t, res.CSS, "  --pi-focus-outline-radius: 10px;\n")
}

func TestCompile_MissingCoreTokens(t *testing.T) {
	theme := map[string]any{
		"colors": map[string]any{"primary": "", "text": nil},
	}

	res := Compile(theme, testOptions())

	assert.False(t, res.OK())
	assert.Empty(t, res.CSS)
	assert.Equal(t, []string{"Missing token: colors.primary", "Missing token: colors.text"}, res.Errors)
	assert.NotNil(t, res.Theme)
}

func TestCompile_EachCoreTokenIsRequired(t *testing.T) {
	paths := DefaultRegistry().CorePaths()
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			theme := map[string]any{}
			setString(theme, path, "")

			res := Compile(theme, testOptions())
			assert.False(t, res.OK())
			assert.Empty(t, res.CSS)
			assert.Equal(t, []string{"Missing token: " + path}, res.Errors)

			def, ok := DefaultRegistry().Lookup(path)
			require.True(t, ok)
			setString(theme, path, def.Default)

			res = Compile(theme, testOptions())
			require.True(t, res.OK(), res.Errors)
			assert.Contains(t, res.CSS, "  "+def.CSSVar+": ")
		})
	}
}

func TestCompile_CustomPrimaryDerivesStates(t *testing.T) {
	theme := map[string]any{"colors": map[string]any{"primary": "#e11d48"}}

	res := Compile(theme, testOptions())
	require.True(t, res.OK(), res.Errors)

	hover := colorutil.MixBlack("#e11d48", 0.1)
	assert.Equal(t, hover, getString(res.Theme, "colors.primaryHover"))
	assert.Equal(t, colorutil.MixBlack("#e11d48", 0.2), getString(res.Theme, "colors.primaryActive"))
	assert.Equal(t, "#e11d48", getString(res.Theme, "states.button.default.fill"))
	assert.Equal(t, "1px solid #e11d48", getString(res.Theme, "states.button.default.border"))
	assert.Equal(t, hover, getString(res.Theme, "states.button.hover.fill"))
	assert.Equal(t, hover, getString(res.Theme, "states.button.focus.fill"))
	assert.Equal(t, "2px solid #e11d48", getString(res.Theme, "states.button.selected.border"))
	assert.Equal(t, "#e11d48", getString(res.Theme, "states.button.selected.color"))
	assert.Contains(t, res.CSS, "  --pi-button-fill-hover: "+hover+";\n")
}

func TestCompile_ExplicitStatesKept(t *testing.T) {
	theme := map[string]any{
		"colors": map[string]any{"primary": "#e11d48"},
		"states": map[string]any{"button": map[string]any{"hover": map[string]any{"fill": "#000000"}}},
	}

	res := Compile(theme, testOptions())

	assert.Equal(t, "#000000", getString(res.Theme, "states.button.hover.fill"))
	assert.Equal(t, "#e11d48", getString(res.Theme, "states.button.default.fill"))
}

func TestCompile_OnPrimary(t *testing.T) {
	tests := []struct {
		name      string
		primary   string
		onPrimary any
		want      string
	}{
		{"light primary picks dark text", "#fde047", nil, darkOnPrimary},
		{"low contrast choice replaced", "#fde047", "#ffffff", darkOnPrimary},
		{"dark primary picks white", "#1e3a8a", "", lightOnPrimary},
		{"sufficient choice kept", "#1e3a8a", "#fde047", "#fde047"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			theme := map[string]any{"colors": map[string]any{"primary": tt.primary, "onPrimary": tt.onPrimary}}

			res := Compile(theme, testOptions())

			assert.Equal(t, tt.want, getString(res.Theme, "colors.onPrimary"))
		})
	}
}

func TestCompile_FocusRadius(t *testing.T) {
	res := Compile(map[string]any{"shape": map[string]any{"controlRadius": "6px"}}, testOptions())
	assert.Equal(t, "6px", getString(res.Theme, "focus.radius"))

	res = Compile(map[string]any{"focus": map[string]any{"radius": "0"}}, testOptions())
	assert.Equal(t, "0", getString(res.Theme, "focus.radius"))
}

func TestCompile_ContrastWarnings(t *testing.T) {
	theme := map[string]any{"colors": map[string]any{
		"text":  "#777777",
		"muted": "#cccccc",
	}}

	res := Compile(theme, testOptions())

	require.True(t, res.OK(), "warnings never block compilation")
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "Text contrast")
	assert.Contains(t, res.Warnings[1], "Muted text contrast")
	assert.NotEmpty(t, res.CSS)
}

func TestCompile_ExtraTokensAndEscaping(t *testing.T) {
	theme := map[string]any{
		"components": map[string]any{"widget": map[string]any{"bodyBg": "#fafafa"}},
		"typography": map[string]any{"fontFamily": "Inter,\nsans-serif", "weights": map[string]any{"question": 700.0}},
	}

	res := Compile(theme, testOptions())
	require.True(t, res.OK(), res.Errors)

	assert.Contains(t, res.CSS, "  --pi-components-widget-body-bg: #fafafa;\n")
	assert.Contains(t, res.CSS, "  --pi-typography-font-family: Inter, sans-serif;\n")
	assert.Contains(t, res.CSS, "  --pi-typography-weight-question: 700;\n")
}

func TestCompile_OptionalSections(t *testing.T) {
	opts := testOptions()
	opts.IncludeLegacyLayer = true
	opts.IncludeFocusStyles = false
	opts.IncludeSliderStyles = false

	res := Compile(map[string]any{"answers": map[string]any{"radioStyle": "tile"}}, opts)
	require.True(t, res.OK())

	assert.Contains(t, res.CSS, "_pi-control-checkbox:hover")
	assert.NotContains(t, res.CSS, ":focus-visible")
	assert.NotContains(t, res.CSS, "noUi-handle")
	assert.Contains(t, res.CSS, "display: none;")
	assert.Contains(t, res.CSS, "text-align: center;")
}

func TestMerge(t *testing.T) {
	base := map[string]any{
		"a":    map[string]any{"x": "1", "y": "2"},
		"list": []any{"a", "b"},
		"keep": "k",
	}
	overlay := map[string]any{
		"a":    map[string]any{"y": nil, "z": "3"},
		"list": []any{"c"},
	}

	out := Merge(base, overlay)

	assert.Equal(t, map[string]any{
		"a":    map[string]any{"x": "1", "y": "", "z": "3"},
		"list": []any{"c"},
		"keep": "k",
	}, out)
	assert.Equal(t, "2", base["a"].(map[string]any)["y"], "base is not modified")
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()

	assert.Len(t, reg.Tokens, 71)
	assert.Equal(t, []string{
		"colors.primary", "colors.text", "colors.bg", "colors.muted",
		"typography.fontFamily", "typography.sizes.question", "typography.weights.question",
		"shape.widgetRadius", "shape.controlRadius", "shape.buttonRadius",
	}, reg.CorePaths())
	assert.Equal(t, "--pi-color-background", reg.VarName("colors.bg"))
	assert.Equal(t, "--pi-layers-modal-z", reg.VarName("layers.modalZ"))
	assert.Equal(t, "--pi-brand", reg.VarName("brand"))

	_, err := ParseRegistry([]byte(`{"tokens":[{"path":"a","cssVar":"--a"},{"path":"a","cssVar":"--b"}]}`))
	assert.Error(t, err)
}

func TestParseTheme(t *testing.T) {
	theme, err := ParseTheme([]byte(`{"colors":{"primary":"#2563eb"},"layout":{"gapRow":12}}`))
	require.NoError(t, err)
	assert.Equal(t, "#2563eb", getString(theme, "colors.primary"))

	wrapped, err := ParseTheme([]byte(`{"theme":{"colors":{"primary":"#e11d48"}},"report":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "#e11d48", getString(wrapped, "colors.primary"))

	for _, doc := range []string{
		`[]`,
		`{"colors":{"primary":{"nested":"x"}}}`,
		`{"answers":{"radioStyle":"square"}}`,
		`{"shape":{"controlRadius":true}}`,
		`{not json`,
	} {
		_, err := ParseTheme([]byte(doc))
		var invalid *InvalidThemeError
		assert.True(t, errors.As(err, &invalid), doc)
	}
}
