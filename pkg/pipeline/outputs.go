package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/gnana997/themeforge/pkg/mapper"
)

// Run artifact file names.
const (
	ThemeFile    = "theme.json"
	ReportFile   = "theme.report.json"
	FindingsFile = "raw-findings.json"
	LegacyFile   = "legacy-tokens.json"
	CSSFile      = "theme.css"
)

func newRunID(t time.Time) string {
	return fmt.Sprintf("run-%s-%s", t.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}

// Report is the theme.report.json document.
type Report struct {
	URL       string             `json:"url"`
	RunID     string             `json:"runId"`
	Summary   mapper.Summary     `json:"summary"`
	Unmatched []string           `json:"unmatched"`
	Tokens    mapper.ThemeReport `json:"tokens"`
	Compile   CompileReport      `json:"compile"`
	Errors    []string           `json:"extractionErrors,omitempty"`
}

type CompileReport struct {
	OK       bool     `json:"ok"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

// NewReport summarizes a run.
func NewReport(run *Run) Report {
	return Report{
		URL:       run.URL,
		RunID:     run.ID,
		Summary:   run.Mapping.Report.Summary(),
		Unmatched: run.Mapping.Unmatched,
		Tokens:    run.Mapping.Report,
		Compile: CompileReport{
			OK:       run.Compiled.OK(),
			Warnings: run.Compiled.Warnings,
			Errors:   run.Compiled.Errors,
		},
		Errors: run.Extraction.Errors,
	}
}

// ReadReport loads the report of a run written under dir.
func ReadReport(dir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(dir, ReportFile))
	if err != nil {
		return nil, fmt.Errorf("read run report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ReportFile, err)
	}
	return &r, nil
}

// writeRun persists a run under outDir/<run id>. theme.css is written only
// when compilation succeeded.
func writeRun(outDir string, run *Run) (string, error) {
	dir := filepath.Join(outDir, run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	files := []struct {
		name string
		v    any
	}{
		{ThemeFile, run.Mapping.Theme},
		{ReportFile, NewReport(run)},
		{FindingsFile, run.Extraction.Findings},
		{LegacyFile, run.Legacy},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(dir, f.name), f.v); err != nil {
			return dir, err
		}
	}
	if run.Compiled.OK() {
		if err := os.WriteFile(filepath.Join(dir, CSSFile), []byte(run.Compiled.CSS), 0o644); err != nil {
			return dir, fmt.Errorf("write %s: %w", CSSFile, err)
		}
	}
	return dir, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
