package mapper

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/themeforge/pkg/extractor"
	"github.com/gnana997/themeforge/pkg/schema"
)

func token(id string, cat schema.Category, def string, aliases ...string) schema.Token {
	path := strings.Split(id, ".")
	return schema.Token{
		ID:          id,
		Group:       path[0],
		Path:        path,
		Key:         path[len(path)-1],
		OriginalKey: schema.Kebab(path[len(path)-1]),
		Category:    cat,
		Default:     def,
		Aliases:     aliases,
	}
}

func testSchema() *schema.TokenSchema {
	primary := token("colors.primary", schema.CategoryColor, "#000000", "pi-color-primary", "brand", "primary-color")
	primary.Variable = "pi-color-primary"
	return &schema.TokenSchema{
		Tokens: []schema.Token{
			primary,
			token("colors.primaryHover", schema.CategoryColor, ""),
			token("colors.text", schema.CategoryColor, "#111111"),
			token("colors.bg", schema.CategoryColor, "#ffffff", "background"),
			token("components.widget.bodyBg", schema.CategoryColor, "#fafafa"),
			token("shape.controlRadius", schema.CategoryRadius, "4px", "radius-md"),
			token("shadows.widget", schema.CategoryShadow, "none"),
			token("layers.modal", schema.CategoryZIndex, "1000"),
			token("misc.label", schema.CategoryUnknown, ""),
		},
	}
}

func quietOptions() Options {
	return Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func cssVar(name, value string) extractor.RawFinding {
	return extractor.RawFinding{
		Name:           name,
		NormalizedName: strings.TrimPrefix(name, "--"),
		Category:       schema.InferCategory(name, value),
		Value:          value,
		Sources: []extractor.Evidence{{
			Type: extractor.EvidenceCSSVar, Selector: ":root", Property: name, Value: value,
		}},
	}
}

func cssProp(selector, property, value string, cat schema.Category) extractor.RawFinding {
	return extractor.RawFinding{
		Name:           selector + "::" + property,
		NormalizedName: schema.Kebab(selector) + "." + schema.Kebab(property),
		Category:       cat,
		Value:          value,
		Sources: []extractor.Evidence{{
			Type: extractor.EvidenceCSSProp, Selector: selector, Property: property, Value: value,
		}},
	}
}

func TestMap_EndToEndPrimary(t *testing.T) {
	findings := []extractor.RawFinding{{
		Name:           "primary-color",
		NormalizedName: "primary-color",
		Category:       schema.CategoryColor,
		Value:          "#2563eb",
		Sources: []extractor.Evidence{{
			Type: extractor.EvidenceCSSVar, Selector: ":root", Property: "--brand", Value: "#2563eb", Href: "main.css",
		}},
	}}

	res := Map(testSchema(), findings, quietOptions())

	m := res.Report["colors.primary"]
	assert.Equal(t, "#2563eb", m.Value)
	assert.Equal(t, 1.0, m.Confidence)
	assert.Equal(t, MatchExact, m.MatchType)
	assert.Equal(t, "main.css", m.Evidence[0].Href)

	v, ok := schema.GetPath(res.Theme, []string{"colors", "primary"})
	require.True(t, ok)
	assert.Equal(t, "#2563eb", v)
}

func TestMap_FindingDecodedWithoutNormalizedName(t *testing.T) {
	var findings []extractor.RawFinding
	require.NoError(t, json.Unmarshal([]byte(`[{
		"name": "primary-color",
		"category": "color",
		"value": "#2563eb",
		"sources": [{"type": "css-var", "selector": ":root", "property": "--brand", "value": "#2563eb", "href": "main.css"}]
	}]`), &findings))
	require.Empty(t, findings[0].NormalizedName)

	res := Map(testSchema(), findings, quietOptions())

	m := res.Report["colors.primary"]
	assert.Equal(t, MatchExact, m.MatchType)
	assert.Equal(t, 1.0, m.Confidence)
	assert.Equal(t, "#2563eb", m.Value)
	assert.Equal(t, "matched name primary-color", m.Notes)
}

func TestMap_ExactConfidenceByEvidence(t *testing.T) {
	tests := []struct {
		name    string
		sources []extractor.EvidenceType
		want    float64
	}{
		{"css var", []extractor.EvidenceType{extractor.EvidenceCSSVar}, 1.0},
		{"css prop", []extractor.EvidenceType{extractor.EvidenceCSSProp}, 0.9},
		{"computed only", []extractor.EvidenceType{extractor.EvidenceComputed}, 0.85},
		{"logo", []extractor.EvidenceType{extractor.EvidenceLogo}, 0.8},
		{"css var outranks derived", []extractor.EvidenceType{extractor.EvidenceDerived, extractor.EvidenceCSSVar}, 1.0},
		{"derived only", []extractor.EvidenceType{extractor.EvidenceDerived}, 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := extractor.RawFinding{Name: "brand", NormalizedName: "brand", Category: schema.CategoryColor, Value: "#2563EB"}
			for _, typ := range tt.sources {
				f.Sources = append(f.Sources, extractor.Evidence{Type: typ})
			}
			res := Map(testSchema(), []extractor.RawFinding{f}, quietOptions())

			m := res.Report["colors.primary"]
			assert.Equal(t, tt.want, m.Confidence)
			assert.Equal(t, "#2563eb", m.Value, "colors are normalized")
		})
	}
}

func TestMap_CategoryMustMatch(t *testing.T) {
	f := extractor.RawFinding{
		Name: "primary-color", NormalizedName: "primary-color", Category: schema.CategoryFont, Value: "Inter",
		Sources: []extractor.Evidence{{Type: extractor.EvidenceCSSVar}},
	}

	res := Map(testSchema(), []extractor.RawFinding{f}, quietOptions())

	assert.Equal(t, MatchFallback, res.Report["colors.primary"].MatchType)
	assert.Equal(t, "#000000", res.Report["colors.primary"].Value)
}

func TestMap_UnknownCategoryTokenAcceptsAny(t *testing.T) {
	f := cssVar("--label", "Inter, sans-serif")

	res := Map(testSchema(), []extractor.RawFinding{f}, quietOptions())

	m := res.Report["misc.label"]
	assert.Equal(t, MatchExact, m.MatchType)
	assert.Equal(t, "Inter, sans-serif", m.Value)
}

func TestMap_HeuristicPrefersNamespace(t *testing.T) {
	findings := []extractor.RawFinding{
		cssProp("body", "background-color", "#FFFFFF", schema.CategoryColor),
		cssProp(".modal", "background-color", "#f0f0f0", schema.CategoryColor),
	}

	res := Map(testSchema(), findings, quietOptions())

	widget := res.Report["components.widget.bodyBg"]
	assert.Equal(t, MatchHeuristic, widget.MatchType)
	assert.Equal(t, "#f0f0f0", widget.Value)
	assert.Equal(t, 0.6, widget.Confidence, "body evidence is not a widget candidate")

	bg := res.Report["colors.bg"]
	assert.Equal(t, MatchHeuristic, bg.MatchType)
	assert.Equal(t, "#ffffff", bg.Value)
	assert.Equal(t, 0.7, bg.Confidence)
	assert.Contains(t, bg.Notes, "namespace global")

	// No role or name signal for text: page-wide evidence alone is not enough.
	assert.Equal(t, MatchFallback, res.Report["colors.text"].MatchType)
}

func buttonSchema() *schema.TokenSchema {
	primary := token("colors.primary", schema.CategoryColor, "#2563eb", "brand")
	return &schema.TokenSchema{
		Tokens: []schema.Token{
			primary,
			token("colors.primaryHover", schema.CategoryColor, "", "primary-hover", "brand-hover"),
			token("states.button.default.fill", schema.CategoryColor, ""),
			token("states.button.hover.fill", schema.CategoryColor, ""),
		},
	}
}

func tonalStep(base extractor.RawFinding, step int, value string) extractor.RawFinding {
	f := base
	f.Name = fmt.Sprintf("%s-%d", base.Name, step)
	f.NormalizedName = fmt.Sprintf("%s-%d", base.NormalizedName, step)
	f.Value = value
	f.Sources = append(append([]extractor.Evidence(nil), base.Sources...), extractor.Evidence{
		Type: extractor.EvidenceDerived, Note: "Derived tonal scale",
	})
	return f
}

func TestMap_ComponentTokenRejectsPageEvidence(t *testing.T) {
	findings := []extractor.RawFinding{
		cssVar("--brand", "#E11D48"),
		cssProp("body", "background-color", "#ffffff", schema.CategoryColor),
	}

	res := Map(buttonSchema(), findings, quietOptions())

	for _, id := range []string{"states.button.default.fill", "states.button.hover.fill"} {
		assert.Equal(t, MatchFallback, res.Report[id].MatchType, id)
	}
	assert.Equal(t, "#e11d48", res.Report["colors.primary"].Value)

	// Evidence under a button selector qualifies.
	findings = append(findings, cssProp(".btn-primary", "background-color", "#be123c", schema.CategoryColor))
	res = Map(buttonSchema(), findings, quietOptions())

	fill := res.Report["states.button.default.fill"]
	assert.Equal(t, MatchHeuristic, fill.MatchType)
	assert.Equal(t, "#be123c", fill.Value)
	assert.Contains(t, fill.Notes, "namespace button")
}

func TestMap_StateTokensSkipTonalSteps(t *testing.T) {
	brand := cssVar("--brand", "#E11D48")
	hoverBase := cssVar("--brand-hover", "#be123c")
	findings := []extractor.RawFinding{
		brand,
		tonalStep(brand, 50, "#ffa2b2"),
		tonalStep(brand, 900, "#4c0519"),
	}

	res := Map(buttonSchema(), findings, quietOptions())

	hover := res.Report["colors.primaryHover"]
	assert.Equal(t, MatchFallback, hover.MatchType, "tonal steps of the brand color never fill hover")
	assert.Empty(t, hover.Value)

	// All alias words present, but a derived step still does not qualify.
	findings = []extractor.RawFinding{brand, tonalStep(hoverBase, 50, "#fecdd3")}
	res = Map(buttonSchema(), findings, quietOptions())
	assert.Equal(t, MatchFallback, res.Report["colors.primaryHover"].MatchType)
}

func TestOverlap(t *testing.T) {
	tok := token("colors.primaryHover", schema.CategoryColor, "", "brand-hover", "pi-color-accent")
	names := tokenWords(&tok)

	assert.Equal(t, [][]string{{"primary", "hover"}, {"brand", "hover"}, {"accent"}}, names)
	assert.True(t, overlap(names, "brand-hover"))
	assert.True(t, overlap(names, "site-hover-primary"))
	assert.True(t, overlap(names, "accent"))
	assert.False(t, overlap(names, "brand-50"))
	assert.False(t, overlap(names, "hover"))
}

func TestMap_TieBreakEarliestAndPenalty(t *testing.T) {
	findings := []extractor.RawFinding{
		cssProp(".control-a", "border-radius", "6px", schema.CategoryRadius),
		cssProp(".control-b", "border-radius", "10px", schema.CategoryRadius),
	}

	res := Map(testSchema(), findings, quietOptions())

	m := res.Report["shape.controlRadius"]
	assert.Equal(t, "6px", m.Value)
	assert.Equal(t, 0.45, m.Confidence)
}

func TestMap_TieBreakImportant(t *testing.T) {
	a := cssProp(".control-a", "border-radius", "6px", schema.CategoryRadius)
	b := cssProp(".control-b", "border-radius", "10px", schema.CategoryRadius)
	b.Sources[0].Important = true

	res := Map(testSchema(), []extractor.RawFinding{a, b}, quietOptions())

	m := res.Report["shape.controlRadius"]
	assert.Equal(t, "10px", m.Value)
	assert.Equal(t, 0.55, m.Confidence)
}

func TestMap_ClaimedFindingNotReused(t *testing.T) {
	res := Map(testSchema(), []extractor.RawFinding{cssVar("--primary-color", "#2563eb")}, quietOptions())

	assert.Equal(t, MatchExact, res.Report["colors.primary"].MatchType)
	hover := res.Report["colors.primaryHover"]
	assert.Equal(t, MatchFallback, hover.MatchType)
	assert.Empty(t, hover.Value)
}

func TestMap_Completeness(t *testing.T) {
	s := testSchema()

	res := Map(s, nil, quietOptions())

	require.Len(t, res.Report, len(s.Tokens))
	assert.Equal(t, s.TokenIDs(), res.Unmatched)
	for _, id := range s.TokenIDs() {
		m, ok := res.Report[id]
		require.True(t, ok, id)
		assert.Equal(t, 0.0, m.Confidence)
		assert.Equal(t, MatchFallback, m.MatchType)
		assert.NotEmpty(t, m.FallbackReason)
	}
	assert.Equal(t, "no evidence found for category color", res.Report["colors.text"].FallbackReason)

	// Defaults land in the theme; empty values are omitted.
	v, ok := schema.GetPath(res.Theme, []string{"shape", "controlRadius"})
	require.True(t, ok)
	assert.Equal(t, "4px", v)
	_, ok = schema.GetPath(res.Theme, []string{"misc", "label"})
	assert.False(t, ok)
	_, ok = schema.GetPath(res.Theme, []string{"colors", "primaryHover"})
	assert.False(t, ok)
}

func TestMap_Deterministic(t *testing.T) {
	findings := []extractor.RawFinding{
		cssVar("--brand", "#2563eb"),
		cssProp(".box", "border-radius", "6px", schema.CategoryRadius),
		cssProp(".tag", "border-radius", "10px", schema.CategoryRadius),
		cssProp("body", "background-color", "#ffffff", schema.CategoryColor),
		cssProp(".card", "box-shadow", "0 1px 2px #000", schema.CategoryShadow),
		cssVar("--z-modal", "1050"),
	}

	first := Map(testSchema(), findings, quietOptions())
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again := Map(testSchema(), findings, quietOptions())
		againJSON, err := json.Marshal(again)
		require.NoError(t, err)
		assert.Equal(t, string(firstJSON), string(againJSON))
	}
}

func TestReportSummary(t *testing.T) {
	r := ThemeReport{
		"a": {Confidence: 1.0, MatchType: MatchExact},
		"b": {Confidence: 0.85, MatchType: MatchExact},
		"c": {Confidence: 0.6, MatchType: MatchHeuristic},
		"d": {Confidence: 0.45, MatchType: MatchHeuristic},
		"e": {Confidence: 0, MatchType: MatchFallback},
	}

	assert.Equal(t, Summary{Total: 5, High: 2, Medium: 1, Low: 2, Fallback: 1}, r.Summary())
}

func TestCandidateNames(t *testing.T) {
	tok := token("components.widget.bodyBg", schema.CategoryColor, "", "surface")
	tok.Variable = "pi-widget-body-bg"

	assert.Equal(t, []string{
		"body-bg",
		"widget-body-bg",
		"components-body-bg",
		"components-widget-body-bg",
		"pi-widget-body-bg",
		"surface",
	}, candidateNames(&tok))
}

func TestNamespaceFor(t *testing.T) {
	tests := map[string]string{
		"components.widget.bodyBg":  "widget",
		"states.button.hover.fill":  "button",
		"inputs.radius":             "input",
		"typography.sizes.question": "heading",
		"answers.tileSize":          "answer",
		"colors.primary":            "global",
	}
	for id, want := range tests {
		tok := token(id, schema.CategoryColor, "")
		assert.Equal(t, want, namespaceFor(&tok).name, id)
	}
}

func TestResult_EvidenceTheme(t *testing.T) {
	s := testSchema()
	res := Map(s, []extractor.RawFinding{cssVar("--brand", "#2563eb")}, quietOptions())

	assert.Equal(t, map[string]any{
		"colors": map[string]any{"primary": "#2563eb"},
	}, res.EvidenceTheme(s))
}
