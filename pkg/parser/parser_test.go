package parser

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSS = `:root {
  --brand-primary: #2563eb;
  --radius-md: 10px;
}

@media (min-width: 768px) {
  .btn-primary { background-color: var(--brand-primary) !important; }
}
`

const sampleJS = `window.themeConfig = { primaryColor: "#2563eb", fontFamily: "Inter" };`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParseCSS(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	tree, err := manager.Parse([]byte(sampleCSS), LanguageCSS)
	require.NoError(t, err)
	require.NotNil(t, tree)
	defer tree.Close()

	root := tree.RootNode()
	assert.Equal(t, "stylesheet", root.Kind())
	assert.False(t, root.HasError())

	sexp := root.ToSexp()
	assert.Contains(t, sexp, "rule_set")
	assert.Contains(t, sexp, "media_statement")
	assert.Contains(t, sexp, "important")
}

func TestParseJavaScript(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	tree, err := manager.Parse([]byte(sampleJS), LanguageJavaScript)
	require.NoError(t, err)
	defer tree.Close()

	assert.Equal(t, "program", tree.RootNode().Kind())
	assert.Contains(t, tree.RootNode().ToSexp(), "object")
}

func TestParseFile(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	testCases := []struct {
		fileName     string
		source       string
		expectedKind string
	}{
		{"styles/main.css", sampleCSS, "stylesheet"},
		{"https://cdn.example.com/app.css?v=3", sampleCSS, "stylesheet"},
		{"bundle.js", sampleJS, "program"},
		{"bundle.mjs", sampleJS, "program"},
	}

	for _, tc := range testCases {
		t.Run(tc.fileName, func(t *testing.T) {
			tree, err := manager.ParseFile([]byte(tc.source), tc.fileName)
			require.NoError(t, err)
			defer tree.Close()
			assert.Equal(t, tc.expectedKind, tree.RootNode().Kind())
		})
	}

	_, err := manager.ParseFile([]byte("x"), "readme.md")
	assert.Error(t, err)
}

func TestLazyInitialization(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	assert.Equal(t, 0, manager.GetStats().ParsersCreated)

	tree, err := manager.Parse([]byte("a { color: red; }"), LanguageCSS)
	require.NoError(t, err)
	tree.Close()

	stats := manager.GetStats()
	assert.Equal(t, 1, stats.ParsersCreated)
	assert.Equal(t, 1, stats.ParsesCalled)

	tree, err = manager.Parse([]byte("b { color: blue; }"), LanguageCSS)
	require.NoError(t, err)
	tree.Close()

	stats = manager.GetStats()
	assert.Equal(t, 1, stats.ParsersCreated, "parser is reused")
	assert.Equal(t, 2, stats.ParsesCalled)

	tree, err = manager.Parse([]byte("const y = 2;"), LanguageJavaScript)
	require.NoError(t, err)
	tree.Close()

	stats = manager.GetStats()
	assert.Equal(t, 2, stats.ParsersCreated)
	assert.Equal(t, 3, stats.ParsesCalled)
}

func TestLanguageDetection(t *testing.T) {
	testCases := []struct {
		filePath string
		expected Language
	}{
		{"theme.css", LanguageCSS},
		{"THEME.CSS", LanguageCSS},
		{"/static/site.css#frag", LanguageCSS},
		{"file.js", LanguageJavaScript},
		{"file.jsx", LanguageJavaScript},
		{"file.cjs", LanguageJavaScript},
		{"_variables.scss", LanguageUnknown},
		{"file.md", LanguageUnknown},
	}
	for _, tc := range testCases {
		t.Run(tc.filePath, func(t *testing.T) {
			assert.Equal(t, tc.expected, DetectLanguage(tc.filePath))
		})
	}
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, LanguageCSS, DetectContentType("text/css; charset=utf-8"))
	assert.Equal(t, LanguageJavaScript, DetectContentType("application/javascript"))
	assert.Equal(t, LanguageJavaScript, DetectContentType("text/ecmascript"))
	assert.Equal(t, LanguageUnknown, DetectContentType("text/html"))
}

func TestParseUnknownLanguage(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	tree, err := manager.Parse([]byte("some random text"), LanguageUnknown)
	assert.Error(t, err)
	assert.Nil(t, tree)
}

func TestParseInvalidSyntax(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	tree, err := manager.Parse([]byte(".btn { color: ; background: #fff"), LanguageCSS)
	require.NoError(t, err, "invalid CSS still yields a tree")
	defer tree.Close()

	assert.True(t, tree.RootNode().HasError())
	assert.Equal(t, 1, manager.GetStats().ParseErrors)
}

func TestMemoryCleanup(t *testing.T) {
	manager := NewParserManager(testLogger())

	for _, lang := range SupportedLanguages() {
		tree, err := manager.Parse([]byte("x"), lang)
		if err == nil && tree != nil {
			tree.Close()
		}
	}

	assert.NoError(t, manager.Close())
	assert.Empty(t, manager.pools)
}

func TestParseLanguageString(t *testing.T) {
	testCases := []struct {
		input    string
		expected Language
	}{
		{"css", LanguageCSS},
		{"CSS", LanguageCSS},
		{"javascript", LanguageJavaScript},
		{"js", LanguageJavaScript},
		{"scss", LanguageUnknown},
		{"", LanguageUnknown},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLanguageString(tc.input))
		})
	}
}

func TestLanguageString(t *testing.T) {
	assert.Equal(t, "css", LanguageCSS.String())
	assert.Equal(t, "javascript", LanguageJavaScript.String())
	assert.Equal(t, "unknown", LanguageUnknown.String())
	assert.Len(t, SupportedLanguages(), 2)
}
