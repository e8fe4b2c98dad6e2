package mapper

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/gnana997/themeforge/pkg/colorutil"
	"github.com/gnana997/themeforge/pkg/extractor"
	"github.com/gnana997/themeforge/pkg/schema"
)

// Exact-match confidence by the strongest evidence a finding carries.
// Derived evidence only scores when nothing stronger was observed.
const (
	confidenceCSSVar   = 1.0
	confidenceCSSProp  = 0.9
	confidenceComputed = 0.85
	confidenceLogo     = 0.8
	confidenceDerived  = 0.6
)

// Heuristic confidence: base plus a step per signal, capped, minus a
// penalty per tie-break and for unknown-category findings.
const (
	heuristicBase          = 0.4
	heuristicStep          = 0.1
	heuristicMax           = 0.7
	tieBreakPenalty        = 0.05
	unknownCategoryPenalty = 0.1
)

// candidate is one finding considered for a token.
type candidate struct {
	index   int
	finding *extractor.RawFinding
	// rank is the primary score: exact confidence or heuristic signal count.
	rank     float64
	weak     bool
	signals  []string
	matched  string
	tieBreak int
}

// Map assigns every schema token a value. It never fails; tokens without
// usable evidence fall back to their schema default with confidence 0.
// Output depends only on the inputs and their order.
func Map(s *schema.TokenSchema, findings []extractor.RawFinding, opts Options) *Result {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	preferred := opts.PreferredSelectors
	if len(preferred) == 0 {
		preferred = extractor.DefaultGlobalSelectors
	}

	keys := make([]string, len(findings))
	for i := range findings {
		keys[i] = findingKey(&findings[i])
	}

	result := &Result{
		Theme:  make(map[string]any),
		Report: make(ThemeReport, len(s.Tokens)),
	}

	// Exact matches first: a finding claimed by name is not reused by the
	// heuristic pass for other tokens.
	exact := make([]*candidate, len(s.Tokens))
	claimed := make(map[int]bool)
	for ti := range s.Tokens {
		if c := bestExact(&s.Tokens[ti], findings, keys); c != nil {
			exact[ti] = c
			claimed[c.index] = true
		}
	}

	for ti := range s.Tokens {
		tok := &s.Tokens[ti]
		var m TokenMapping
		switch c := exact[ti]; {
		case c != nil:
			m = TokenMapping{
				ID:         tok.ID,
				Value:      normalizeValue(tok.Category, c.finding.Value),
				Confidence: c.rank,
				MatchType:  MatchExact,
				Finding:    c.finding.Name,
				Evidence:   c.finding.Sources,
				Notes:      "matched name " + c.matched,
			}
		default:
			if h := bestHeuristic(tok, findings, keys, claimed, preferred); h != nil {
				m = TokenMapping{
					ID:         tok.ID,
					Value:      normalizeValue(tok.Category, h.finding.Value),
					Confidence: heuristicConfidence(h),
					MatchType:  MatchHeuristic,
					Finding:    h.finding.Name,
					Evidence:   h.finding.Sources,
					Notes:      "signals: " + strings.Join(h.signals, ", "),
				}
			} else {
				m = TokenMapping{
					ID:             tok.ID,
					Value:          tok.Default,
					MatchType:      MatchFallback,
					Evidence:       []extractor.Evidence{},
					FallbackReason: fallbackReason(tok, findings),
				}
				result.Unmatched = append(result.Unmatched, tok.ID)
			}
		}
		result.Report[tok.ID] = m
		if m.Value != "" {
			schema.SetPath(result.Theme, tok.Path, m.Value)
		}
	}

	sum := result.Report.Summary()
	logger.Info("findings mapped",
		"tokens", sum.Total,
		"findings", len(findings),
		"high", sum.High,
		"medium", sum.Medium,
		"low", sum.Low,
		"fallback", sum.Fallback)
	return result
}

// candidateNames are the kebab-case names a token may appear under.
func candidateNames(tok *schema.Token) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(s string) {
		if k := nameKey(s); k != "" && !seen[k] {
			seen[k] = true
			names = append(names, k)
		}
	}
	add(tok.Key)
	add(tok.OriginalKey)
	if len(tok.Path) > 1 {
		add(tok.Path[len(tok.Path)-2] + "-" + tok.Key)
	}
	add(tok.Group + "-" + tok.Key)
	add(tok.ID)
	add(tok.Variable)
	for _, a := range tok.Aliases {
		add(a)
	}
	return names
}

func nameKey(s string) string {
	return schema.Kebab(strings.TrimSpace(s))
}

// findingKey is the kebab-case name a finding is matched under. Findings
// decoded from JSON may omit normalizedName.
func findingKey(f *extractor.RawFinding) string {
	if k := nameKey(f.NormalizedName); k != "" {
		return k
	}
	return nameKey(f.Name)
}

func categoryCompatible(tok *schema.Token, f *extractor.RawFinding) bool {
	return tok.Category == schema.CategoryUnknown || tok.Category == f.Category
}

func bestExact(tok *schema.Token, findings []extractor.RawFinding, keys []string) *candidate {
	names := candidateNames(tok)
	var best *candidate
	for i := range findings {
		f := &findings[i]
		if !categoryCompatible(tok, f) || strings.TrimSpace(f.Value) == "" {
			continue
		}
		matched := ""
		for _, n := range names {
			if keys[i] == n {
				matched = n
				break
			}
		}
		if matched == "" {
			continue
		}
		c := &candidate{index: i, finding: f, rank: exactConfidence(f), matched: matched}
		if best == nil || better(c, best) {
			best = c
		}
	}
	return best
}

func exactConfidence(f *extractor.RawFinding) float64 {
	switch {
	case f.HasEvidence(extractor.EvidenceCSSVar):
		return confidenceCSSVar
	case f.HasEvidence(extractor.EvidenceCSSProp):
		return confidenceCSSProp
	case f.HasEvidence(extractor.EvidenceComputed):
		return confidenceComputed
	case f.HasEvidence(extractor.EvidenceLogo):
		return confidenceLogo
	}
	return confidenceDerived
}

func bestHeuristic(tok *schema.Token, findings []extractor.RawFinding, keys []string, claimed map[int]bool, preferred []string) *candidate {
	if tok.Category == schema.CategoryUnknown {
		return nil
	}
	ns := namespaceFor(tok)
	roles := rolesFor(tok)
	words := tokenWords(tok)
	state := isStateToken(tok)

	var best, runnerUp *candidate
	for i := range findings {
		f := &findings[i]
		if claimed[i] || strings.TrimSpace(f.Value) == "" {
			continue
		}
		weak := false
		switch f.Category {
		case tok.Category:
		case schema.CategoryUnknown:
			weak = true
		default:
			continue
		}
		if state && isTonalStep(f, keys[i]) {
			continue
		}

		// A namespace hit only counts alongside a role or name signal.
		var signals []string
		if roles.matches(f, keys[i]) {
			signals = append(signals, "property")
		}
		if overlap(words, keys[i]) {
			signals = append(signals, "name")
		}
		if len(signals) == 0 {
			continue
		}
		switch {
		case ns.matches(f, keys[i], preferred):
			signals = append(signals, "namespace "+ns.name)
		case ns.component():
			// Component tokens only take evidence from their namespace.
			continue
		}

		c := &candidate{index: i, finding: f, rank: float64(len(signals)), weak: weak, signals: signals}
		switch {
		case best == nil:
			best = c
		case better(c, best):
			runnerUp, best = best, c
		case runnerUp == nil || better(c, runnerUp):
			runnerUp = c
		}
	}
	if best != nil && runnerUp != nil {
		best.tieBreak = tieBreaksNeeded(best, runnerUp)
	}
	return best
}

func heuristicConfidence(c *candidate) float64 {
	conf := math.Min(heuristicMax, heuristicBase+heuristicStep*c.rank)
	conf -= tieBreakPenalty * float64(c.tieBreak)
	if c.weak {
		conf -= unknownCategoryPenalty
	}
	conf = math.Max(heuristicBase, conf)
	return math.Round(conf*100) / 100
}

// better orders candidates: higher rank, then same-category over unknown,
// then !important, then the longest selector, then earliest observation.
func better(a, b *candidate) bool {
	if a.rank != b.rank {
		return a.rank > b.rank
	}
	if a.weak != b.weak {
		return !a.weak
	}
	if ia, ib := hasImportant(a.finding), hasImportant(b.finding); ia != ib {
		return ia
	}
	if la, lb := longestSelector(a.finding), longestSelector(b.finding); la != lb {
		return la > lb
	}
	return a.index < b.index
}

// tieBreaksNeeded counts how many tie-break stages separated the winner
// from the runner-up; zero when the primary score decided.
func tieBreaksNeeded(a, b *candidate) int {
	if a.rank != b.rank || a.weak != b.weak {
		return 0
	}
	if hasImportant(a.finding) != hasImportant(b.finding) {
		return 1
	}
	if longestSelector(a.finding) != longestSelector(b.finding) {
		return 2
	}
	return 3
}

func hasImportant(f *extractor.RawFinding) bool {
	for _, e := range f.Sources {
		if e.Important {
			return true
		}
	}
	return false
}

func longestSelector(f *extractor.RawFinding) int {
	n := 0
	for _, e := range f.Sources {
		n = max(n, len(e.Selector))
	}
	return n
}

func normalizeValue(cat schema.Category, v string) string {
	v = strings.TrimSpace(v)
	if cat == schema.CategoryColor {
		return colorutil.Normalize(v)
	}
	return v
}

func fallbackReason(tok *schema.Token, findings []extractor.RawFinding) string {
	if tok.Category == schema.CategoryUnknown {
		return "no finding matched the token name"
	}
	n := 0
	for i := range findings {
		if findings[i].Category == tok.Category {
			n++
		}
	}
	if n == 0 {
		return fmt.Sprintf("no evidence found for category %s", tok.Category)
	}
	return fmt.Sprintf("no %s finding matched the token name, namespace or property role (%d candidates)", tok.Category, n)
}
