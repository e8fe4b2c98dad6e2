package extractor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/themeforge/pkg/parser"
	"github.com/gnana997/themeforge/pkg/schema"
)

const siteCSS = `
:root {
  --primary-color: #2563EB;
  --radius-md: 8px;
  --font-body: "Inter", sans-serif;
}
@media (prefers-color-scheme: dark) {
  :root { --surface: #111111; }
}
.btn-primary { background-color: #ff0000 !important; color: #fff; }
.unrelated { color: red; }
@keyframes spin { from { color: blue; } }
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRenderer struct {
	pages map[string]*PageSnapshot
	errs  map[string]error
}

func (f *fakeRenderer) Render(_ context.Context, url string, _ Scheme) (*PageSnapshot, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if snap, ok := f.pages[url]; ok {
		return snap, nil
	}
	return nil, &ExtractionError{URL: url, Kind: ErrStatus, Status: 404}
}

func newTestExtractor(t *testing.T, r Renderer) *Extractor {
	t.Helper()
	pm := parser.NewParserManager(testLogger())
	t.Cleanup(func() { _ = pm.Close() })
	return New(DefaultConfig(), r, pm, testLogger())
}

func findFinding(findings []RawFinding, name string) (RawFinding, bool) {
	for _, f := range findings {
		if f.Name == name {
			return f, true
		}
	}
	return RawFinding{}, false
}

func TestParseStylesheet_CollectsDeclarations(t *testing.T) {
	e := newTestExtractor(t, nil)

	rules, err := e.parseStylesheet([]byte(siteCSS))
	require.NoError(t, err)

	global, component := e.collectDeclarations(rules, "https://example.com/site.css")

	require.Len(t, global, 4)
	assert.Equal(t, "--primary-color", global[0].Property)
	assert.Equal(t, "#2563EB", global[0].Value)
	assert.Equal(t, ":root", global[0].Selector)
	assert.Equal(t, "https://example.com/site.css", global[0].Href)
	assert.Equal(t, `"Inter", sans-serif`, global[2].Value)

	assert.Equal(t, "--surface", global[3].Property)
	assert.Equal(t, []string{"@media (prefers-color-scheme: dark)"}, global[3].AtRules)

	require.Len(t, component, 2)
	assert.Equal(t, ".btn-primary", component[0].Selector)
	assert.Equal(t, "background-color", component[0].Property)
	assert.Equal(t, "#ff0000", component[0].Value)
	assert.True(t, component[0].Important)
	assert.False(t, component[1].Important)
}

func TestMatchesSelector(t *testing.T) {
	tests := []struct {
		target   string
		selector string
		want     bool
	}{
		{":root", ":root", true},
		{"body", "body", true},
		{"body", "html body", true},
		{"body", "tbody", false},
		{"a", "nav a", true},
		{"a", ".unrelated", false},
		{"a", "a:hover", true},
		{".btn", ".btn", true},
		{".btn", ".btn-primary", true},
		{".btn", ".btnx", false},
		{".card", ".card > .title", true},
		{"header", "header.site", true},
		{"header", ".page-header", false},
		{"[data-color-scheme]", `html[data-color-scheme]`, true},
		{"input", "input[type=text]", true},
	}
	for _, tt := range tests {
		t.Run(tt.target+" in "+tt.selector, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesSelector(tt.target, tt.selector))
		})
	}
}

func TestSplitSelectors(t *testing.T) {
	got := splitSelectors(`a, .btn:not(.x, .y),  input[value="a,b"]`)
	assert.Equal(t, []string{"a", ".btn:not(.x, .y)", `input[value="a,b"]`}, got)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		property, value string
		want            schema.Category
	}{
		{"color", "#fff", schema.CategoryColor},
		{"background-color", "red", schema.CategoryColor},
		{"font-family", "Inter", schema.CategoryFont},
		{"border-radius", "4px", schema.CategoryRadius},
		{"box-shadow", "0 1px 2px #000", schema.CategoryShadow},
		{"padding", "4px 8px", schema.CategorySpacing},
		{"background", "#2563eb", schema.CategoryColor},
		{"background", "url(x.png) no-repeat", schema.CategoryUnknown},
		{"border", "1px solid #ddd", schema.CategoryColor},
		{"--brand-primary", "#2563eb", schema.CategoryColor},
		{"--radius-md", "8px", schema.CategoryRadius},
	}
	for _, tt := range tests {
		t.Run(tt.property, func(t *testing.T) {
			assert.Equal(t, tt.want, categorize(tt.property, tt.value))
		})
	}
}

func TestNormalizeNames(t *testing.T) {
	assert.Equal(t, "brand-primary", normalizeCustomProperty("--Brand_Primary"))
	assert.Equal(t, "btnPrimary.backgroundColor", normalizeSelectorProperty(".btn-primary", "background-color"))
	assert.Equal(t, "body.color", normalizeSelectorProperty("body", "color"))
}

func TestBuildRawFindings_MergeAndReplace(t *testing.T) {
	cfg := DefaultConfig()
	pages := []PageResult{
		{
			URL: "https://example.com",
			GlobalDeclarations: []Declaration{
				{Selector: "body", Property: "--primary-color", Value: "#111111"},
				{Selector: ":root", Property: "--primary-color", Value: "#2563eb"},
				{Selector: ":root", Property: "--primary-color", Value: "#2563eb"},
				{Selector: ":root", Property: "--primary-color", Value: "#2563eb", AtRules: []string{"@media print"}},
			},
		},
	}

	findings := BuildRawFindings(pages, cfg)

	primary, ok := findFinding(findings, "--primary-color")
	require.True(t, ok)
	assert.Equal(t, "#2563eb", primary.Value)
	assert.Equal(t, "primary-color", primary.NormalizedName)
	assert.Equal(t, schema.CategoryColor, primary.Category)
	// The duplicate is dropped; the at-rule variant is distinct evidence.
	require.Len(t, primary.Sources, 2)
	assert.Equal(t, EvidenceCSSVar, primary.Sources[0].Type)
	assert.Equal(t, []string{"@media print"}, primary.Sources[1].AtRules)
}

func TestBuildRawFindings_ComputedSamples(t *testing.T) {
	pages := []PageResult{{
		URL: "https://example.com",
		Computed: []ComputedSample{
			{Selector: "body", SampleIndex: 0, Properties: map[string]string{"color": "#333333", "font-family": "Inter"}},
		},
	}}

	findings := BuildRawFindings(pages, DefaultConfig())

	color, ok := findFinding(findings, "body::color")
	require.True(t, ok)
	assert.Equal(t, "body.color", color.NormalizedName)
	assert.Equal(t, EvidenceComputed, color.Sources[0].Type)
	assert.Equal(t, "body[0]", color.Sources[0].Selector)

	_, ok = findFinding(findings, "body::font-family")
	assert.True(t, ok)
}

func TestBuildRawFindings_DerivedPalette(t *testing.T) {
	pages := []PageResult{{
		URL: "https://example.com",
		GlobalDeclarations: []Declaration{
			{Selector: ":root", Property: "--text", Value: "#1f2937"},
			{Selector: ":root", Property: "--brand", Value: "#2563eb"},
		},
	}}

	findings := BuildRawFindings(pages, DefaultConfig())

	step, ok := findFinding(findings, "--brand-500")
	require.True(t, ok, "scale derives from the brand-named color")
	assert.Equal(t, "brand-500", step.NormalizedName)
	assert.True(t, step.HasEvidence(EvidenceDerived))
	assert.True(t, step.HasEvidence(EvidenceCSSVar))

	var derived int
	for _, f := range findings {
		if f.HasEvidence(EvidenceDerived) {
			derived++
		}
	}
	assert.Equal(t, 10, derived)
}

func TestBuildRawFindings_NoPaletteWhenRich(t *testing.T) {
	var decls []Declaration
	for _, c := range []string{"#111111", "#222222", "#333333", "#444444", "#555555", "#666666", "#777777"} {
		decls = append(decls, Declaration{Selector: ":root", Property: "--c" + c[1:2] + c[3:4], Value: c})
	}
	findings := BuildRawFindings([]PageResult{{GlobalDeclarations: decls}}, DefaultConfig())
	for _, f := range findings {
		assert.False(t, f.HasEvidence(EvidenceDerived), f.Name)
	}
}

func TestBuildRawFindings_LogoRoles(t *testing.T) {
	pages := []PageResult{{
		URL: "https://example.com",
		Logos: []LogoColors{{
			Source: "https://example.com/logo.svg",
			Method: LogoSVG,
			Colors: []string{"#ff6600", "#003366", "#00aa00", "#999999"},
		}},
	}}
	cfg := DefaultConfig()
	cfg.DerivePaletteUpTo = 1

	findings := BuildRawFindings(pages, cfg)

	require.Len(t, findings, 3)
	assert.Equal(t, "logo.primary", findings[0].NormalizedName)
	assert.Equal(t, "logo.secondary", findings[1].NormalizedName)
	assert.Equal(t, "logo.accent1", findings[2].NormalizedName)
	assert.Equal(t, EvidenceLogo, findings[0].Sources[0].Type)
	assert.Equal(t, "svg", findings[0].Sources[0].Method)
}

func TestScanScript_ThemeHints(t *testing.T) {
	e := newTestExtractor(t, nil)
	body := `
window.siteTheme = {
  primaryColor: "#FF6600",
  "backgroundColor": 'rgb(255, 255, 255)',
  fontFamily: "Lato, sans-serif",
  apiKey: "#123456",
  textColor: "not a color"
};
var brandAccent = "#00aa00";
config.surface = "#fafafa";
`
	hints, err := e.scanScript([]byte(body))
	require.NoError(t, err)

	got := make(map[string]ScriptHint)
	for _, h := range hints {
		got[h.Key] = h
	}
	assert.Equal(t, "#ff6600", got["primaryColor"].Value)
	assert.Equal(t, schema.CategoryColor, got["primaryColor"].Category)
	assert.Equal(t, "#ffffff", got["backgroundColor"].Value)
	assert.Equal(t, schema.CategoryFont, got["fontFamily"].Category)
	assert.Equal(t, "#00aa00", got["brandAccent"].Value)
	assert.Equal(t, "#fafafa", got["surface"].Value)
	assert.NotContains(t, got, "apiKey")
	assert.NotContains(t, got, "textColor")
}

func TestExtract_SinglePage(t *testing.T) {
	r := &fakeRenderer{pages: map[string]*PageSnapshot{
		"https://example.com": {
			URL:         "https://example.com",
			Stylesheets: []Stylesheet{{Href: "https://example.com/site.css", Text: siteCSS}},
			Scripts:     []string{`const theme = { brandColor: "#2563eb" };`},
			Logos:       []LogoAsset{{Source: "inline", Method: LogoSVG, Markup: `<svg><path fill="#e11d48"/></svg>`}},
		},
	}}
	e := newTestExtractor(t, r)

	result, err := e.Extract(context.Background(), Request{URL: "https://example.com", MaxPages: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Pages)
	assert.Equal(t, 1, result.Stats.Stylesheets)
	assert.Equal(t, 6, result.Stats.Declarations)
	assert.Equal(t, len(result.Findings), result.Stats.Findings)
	assert.Empty(t, result.Errors)

	primary, ok := findFinding(result.Findings, "--primary-color")
	require.True(t, ok)
	assert.Equal(t, "primary-color", primary.NormalizedName)

	logo, ok := findFinding(result.Findings, "logo-0-0-primary")
	require.True(t, ok)
	assert.Equal(t, "#e11d48", logo.Value)

	hint, ok := findFinding(result.Findings, "script:brandColor")
	require.True(t, ok)
	assert.Equal(t, "brand-color", hint.NormalizedName)
}

func TestExtract_FirstPageFailureIsFatal(t *testing.T) {
	r := &fakeRenderer{errs: map[string]error{
		"https://blocked.example": &ExtractionError{URL: "https://blocked.example", Kind: ErrStatus, Status: 403, Hint: "blocked"},
		"https://broken.example":  errors.New("boom"),
	}}
	e := newTestExtractor(t, r)

	_, err := e.Extract(context.Background(), Request{URL: "https://blocked.example"})
	var xe *ExtractionError
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, 403, xe.Status)

	_, err = e.Extract(context.Background(), Request{URL: "https://broken.example"})
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrRender, xe.Kind)

	_, err = e.Extract(context.Background(), Request{URL: " "})
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrInvalidURL, xe.Kind)
}

func TestExtract_MultiPage(t *testing.T) {
	r := &fakeRenderer{
		pages: map[string]*PageSnapshot{
			"https://example.com/": {
				URL:         "https://example.com/",
				Stylesheets: []Stylesheet{{Text: `:root { --primary-color: #2563eb; }`}},
				Links: []string{
					"https://example.com/",
					"https://example.com/about",
					"https://example.com/broken",
					"https://example.com/pricing",
				},
			},
			"https://example.com/about": {
				URL:         "https://example.com/about",
				Stylesheets: []Stylesheet{{Text: `:root { --accent: #e11d48; }`}},
			},
		},
		errs: map[string]error{"https://example.com/broken": errors.New("connection reset")},
	}
	e := newTestExtractor(t, r)

	result, err := e.Extract(context.Background(), Request{URL: "https://example.com/", MaxPages: 3})
	require.NoError(t, err)

	require.Len(t, result.Pages, 2)
	assert.Equal(t, "https://example.com/about", result.Pages[1].URL)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "connection reset")

	_, ok := findFinding(result.Findings, "--accent")
	assert.True(t, ok)
}

func TestPickLinks(t *testing.T) {
	snap := &PageSnapshot{
		URL:   "https://example.com",
		Links: []string{"https://example.com/", "mailto:a@b.c", "https://example.com/a", "https://example.com/a/", "https://example.com/b"},
	}
	assert.Equal(t, []string{"https://example.com/a"}, pickLinks(snap, 1))
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, pickLinks(snap, 5))
	assert.Nil(t, pickLinks(snap, 0))
}
