// Package mapper reconciles raw findings with a token schema. Every token
// receives exactly one mapping: an exact name match, a category-scoped
// heuristic match, or the schema default.
package mapper

import (
	"log/slog"

	"github.com/gnana997/themeforge/pkg/extractor"
	"github.com/gnana997/themeforge/pkg/schema"
)

// MatchType records which rule produced a mapping.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchHeuristic MatchType = "heuristic"
	MatchFallback  MatchType = "fallback"
)

// TokenMapping is the mapping decision for one token.
type TokenMapping struct {
	ID         string               `json:"id"`
	Value      string               `json:"value"`
	Confidence float64              `json:"confidence"`
	MatchType  MatchType            `json:"matchType"`
	Finding    string               `json:"finding,omitempty"`
	Evidence   []extractor.Evidence `json:"evidence"`
	// FallbackReason is set only for fallback mappings.
	FallbackReason string `json:"fallbackReason,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// ThemeReport holds one mapping per token id.
type ThemeReport map[string]TokenMapping

// Confidence bands used by Summary.
const (
	HighConfidence   = 0.85
	MediumConfidence = 0.55
)

// Summary counts mappings per confidence band.
type Summary struct {
	Total    int `json:"total"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Fallback int `json:"fallback"`
}

// Summary tallies the report. Fallbacks are counted as low as well.
func (r ThemeReport) Summary() Summary {
	var s Summary
	for _, m := range r {
		s.Total++
		switch {
		case m.Confidence >= HighConfidence:
			s.High++
		case m.Confidence >= MediumConfidence:
			s.Medium++
		default:
			s.Low++
		}
		if m.MatchType == MatchFallback {
			s.Fallback++
		}
	}
	return s
}

// Result is the mapper output.
type Result struct {
	// Theme is the nested value-only projection; tokens with an empty
	// final value are omitted.
	Theme  map[string]any `json:"theme"`
	Report ThemeReport    `json:"report"`
	// Unmatched lists fallback token ids in schema order.
	Unmatched []string `json:"unmatched"`
}

// EvidenceTheme is Theme without fallback values: only tokens that some
// finding supported. Downstream stages use it to apply their own defaults
// and derivations.
func (r *Result) EvidenceTheme(s *schema.TokenSchema) map[string]any {
	out := make(map[string]any)
	for _, tok := range s.Tokens {
		m, ok := r.Report[tok.ID]
		if !ok || m.MatchType == MatchFallback || m.Value == "" {
			continue
		}
		schema.SetPath(out, tok.Path, m.Value)
	}
	return out
}

// Options tunes mapping.
type Options struct {
	// PreferredSelectors identify page-wide evidence for tokens outside any
	// component namespace. Defaults to extractor.DefaultGlobalSelectors.
	PreferredSelectors []string
	Logger             *slog.Logger
}
