package sass

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBytes_Variables(t *testing.T) {
	src := `// Brand palette
$primary-color: #2563eb;
$font-base: "Inter", system-ui, sans-serif; // trailing note
/* $commented-out: red; */
$radius: 8px !default;
`
	res, err := ParseBytes("_variables.scss", []byte(src))
	require.NoError(t, err)
	require.Len(t, res.Variables, 3)
	assert.Empty(t, res.Maps)

	v := res.Variables[0]
	assert.Equal(t, "primary-color", v.Name)
	assert.Equal(t, "#2563eb", v.Value)
	assert.Equal(t, Position{File: "_variables.scss", Line: 2, Column: 1}, v.Pos)

	assert.Equal(t, `"Inter", system-ui, sans-serif`, res.Variables[1].Value)

	radius, ok := res.Variable("$radius")
	require.True(t, ok)
	assert.Equal(t, "8px", radius.Value)
	assert.Equal(t, []string{"default"}, radius.Flags)

	_, ok = res.Variable("commented-out")
	assert.False(t, ok)
}

func TestParseBytes_Maps(t *testing.T) {
	src := `$colors: (
  primary: $primary-color,
  "bg": #ffffff, // page background
  text: rgba(17, 24, 39, 0.9),
);

$components: (
  widget: (
    bodyBg: $widget-body-bg,
    radius: 16px
  ),
  fonts: ("Inter", sans-serif)
);
`
	res, err := ParseBytes("_theme-structure.scss", []byte(src))
	require.NoError(t, err)
	require.Len(t, res.Maps, 2)
	assert.Empty(t, res.Variables)

	colors, ok := res.Map("colors")
	require.True(t, ok)
	require.Len(t, colors.Entries, 3)
	assert.Equal(t, "primary", colors.Entries[0].Key)
	assert.Equal(t, "$primary-color", colors.Entries[0].Value)
	assert.Equal(t, "bg", colors.Entries[1].Key)
	assert.Equal(t, "rgba(17, 24, 39, 0.9)", colors.Entries[2].Value)
	assert.Equal(t, 2, colors.Entries[0].Pos.Line)
	assert.Equal(t, 3, colors.Entries[0].Pos.Column)

	comps, ok := res.Map("components")
	require.True(t, ok)
	widget, ok := comps.Lookup("widget")
	require.True(t, ok)
	require.NotNil(t, widget.Nested)
	assert.Equal(t, "widget", widget.Nested.Name)
	require.Len(t, widget.Nested.Entries, 2)
	assert.Equal(t, "bodyBg", widget.Nested.Entries[0].Key)
	assert.Equal(t, 9, widget.Nested.Entries[0].Pos.Line)

	fonts, ok := comps.Lookup("fonts")
	require.True(t, ok)
	assert.Nil(t, fonts.Nested, "a parenthesized list is not a map")
	assert.Equal(t, `("Inter", sans-serif)`, fonts.Value)
}

func TestParseBytes_SkipsRulesAndAtRules(t *testing.T) {
	src := `@use "sass:map";
@import 'base';
$a: 1;
.btn {
  $local: 2;
  color: red;
  &:hover { color: blue; }
}
@mixin builder($name) { content: $name; }
$b: 2;
`
	res, err := ParseBytes("x.scss", []byte(src))
	require.NoError(t, err)
	require.Len(t, res.Variables, 2)
	assert.Equal(t, "a", res.Variables[0].Name)
	assert.Equal(t, "b", res.Variables[1].Name)
}

func TestParseBytes_URLIsNotAComment(t *testing.T) {
	res, err := ParseBytes("x.scss", []byte(`$logo: url(https://cdn.example.com/logo.svg);`))
	require.NoError(t, err)
	require.Len(t, res.Variables, 1)
	assert.Equal(t, "url(https://cdn.example.com/logo.svg)", res.Variables[0].Value)
}

func TestParseBytes_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"unterminated comment", "$a: 1;\n/* open", "unterminated block comment"},
		{"unterminated string", `$a: "open;`, "unterminated string"},
		{"unterminated paren", "$m: (a: 1, b: 2;", "unterminated '('"},
		{"mixed map entries", "$m: (a: 1, b);", "missing ':'"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseBytes("bad.scss", []byte(tc.src))
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Contains(t, pe.Msg, tc.msg)
			assert.Equal(t, "bad.scss", pe.Pos.File)
		})
	}
}

// N variables and M map entries in; exactly N variables and M entries out,
// regardless of interleaved comments.
func TestParseBytes_RoundTripCounts(t *testing.T) {
	for _, tc := range []struct{ vars, entries int }{{0, 0}, {1, 0}, {0, 1}, {7, 5}, {25, 40}} {
		t.Run(fmt.Sprintf("%dv_%de", tc.vars, tc.entries), func(t *testing.T) {
			var b strings.Builder
			for i := 0; i < tc.vars; i++ {
				fmt.Fprintf(&b, "/* v%d */ $var-%d: %dpx; // note\n", i, i, i)
			}
			if tc.entries > 0 {
				b.WriteString("$tokens: (\n")
				for i := 0; i < tc.entries; i++ {
					fmt.Fprintf(&b, "  // entry %d\n  key-%d: $var-%d,\n", i, i, i)
				}
				b.WriteString(");\n")
			}

			res, err := ParseBytes("gen.scss", []byte(b.String()))
			require.NoError(t, err)
			assert.Len(t, res.Variables, tc.vars)
			if tc.entries == 0 {
				assert.Empty(t, res.Maps)
				return
			}
			m, ok := res.Map("tokens")
			require.True(t, ok)
			assert.Len(t, m.Entries, tc.entries)
		})
	}
}

func TestExtractBuilders(t *testing.T) {
	src := []byte(`@include builder("widget");
@include builder( 'buttons' );
@include builder("widget");`)
	assert.Equal(t, []string{"widget", "buttons"}, ExtractBuilders(src))
	assert.Empty(t, ExtractBuilders([]byte("$a: 1;")))
}
