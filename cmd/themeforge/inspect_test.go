package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/themeforge/pkg/mapper"
	"github.com/gnana997/themeforge/pkg/pipeline"
)

func sampleReport() *pipeline.Report {
	tokens := mapper.ThemeReport{
		"colors.primary": {ID: "colors.primary", Value: "#2563eb", Confidence: 1, MatchType: mapper.MatchExact},
		"colors.text":    {ID: "colors.text", Value: "#111827", Confidence: 0.5, MatchType: mapper.MatchHeuristic, Notes: "from body color"},
		"radius.control": {ID: "radius.control", Value: "4px", Confidence: 0.2, MatchType: mapper.MatchFallback, FallbackReason: "no radius evidence"},
	}
	return &pipeline.Report{
		URL:     "https://example.com",
		RunID:   "run-20250101T120000Z-1a2b3c4d",
		Summary: tokens.Summary(),
		Tokens:  tokens,
		Compile: pipeline.CompileReport{OK: true, Warnings: []string{"Low contrast: colors.text on colors.background"}},
	}
}

func TestPickTokens(t *testing.T) {
	report := sampleReport().Tokens

	low := pickTokens(report, false)
	require.Len(t, low, 1)
	assert.Equal(t, "colors.text", low[0].ID)

	all := pickTokens(report, true)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"colors.primary", "colors.text", "radius.control"},
		[]string{all[0].ID, all[1].ID, all[2].ID})
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, sampleReport(), false)
	out := buf.String()

	assert.Contains(t, out, "https://example.com  [ok]")
	assert.Contains(t, out, "run-20250101T120000Z-1a2b3c4d")
	assert.Contains(t, out, "(1 fallback)")
	assert.Contains(t, out, "colors.text")
	assert.Contains(t, out, "from body color")
	assert.NotContains(t, out, "radius.control")
	assert.Contains(t, out, "Compile errors  (none)")
	assert.Contains(t, out, "- Low contrast")
	assert.NotContains(t, out, "Extraction errors")
}

func TestPrintReport_Failed(t *testing.T) {
	r := sampleReport()
	r.Compile = pipeline.CompileReport{Errors: []string{"Missing token: colors.primary"}}
	r.Errors = []string{"fetch https://example.com/about: 404"}

	var buf bytes.Buffer
	printReport(&buf, r, true)
	out := buf.String()

	assert.Contains(t, out, "[FAILED]")
	assert.Contains(t, out, "radius.control")
	assert.Contains(t, out, "no radius evidence")
	assert.Contains(t, out, "- Missing token: colors.primary")
	assert.Contains(t, out, "Extraction errors")
}

func TestPrintWrapped(t *testing.T) {
	var buf bytes.Buffer
	printWrapped(&buf, strings.Repeat("word ", 30), 4, 40)

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		assert.LessOrEqual(t, len(line), 40)
		assert.True(t, strings.HasPrefix(line, "    "))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "—", display(""))
}

func TestReadInput(t *testing.T) {
	data, err := readInput(strings.NewReader(`{"colors":{}}`), "-")
	require.NoError(t, err)
	assert.Equal(t, `{"colors":{}}`, string(data))

	path := filepath.Join(t.TempDir(), "theme.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	data, err = readInput(nil, path)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	_, err = readInput(nil, filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read theme")
}
