package extractor

import (
	"fmt"
	"strings"

	"github.com/gnana997/themeforge/pkg/colorutil"
	"github.com/gnana997/themeforge/pkg/schema"
)

// Priority offsets for selectors missing from the priority list. Custom
// properties outrank literal declarations, which outrank computed samples.
const (
	unlistedVarOffset      = 5
	unlistedPropOffset     = 20
	unlistedComputedOffset = 50
)

type aggregated struct {
	finding  RawFinding
	priority int
	seen     map[string]bool
}

// aggregator merges observations per key. Keys keep first-insertion order
// so output is deterministic.
type aggregator struct {
	priority map[string]int
	entries  map[string]*aggregated
	order    []string
}

func newAggregator(selectorPriority []string) *aggregator {
	p := make(map[string]int, len(selectorPriority))
	for i, s := range selectorPriority {
		if _, dup := p[s]; !dup {
			p[s] = i
		}
	}
	return &aggregator{priority: p, entries: make(map[string]*aggregated)}
}

func (a *aggregator) rank(selector string, offset int) int {
	if r, ok := a.priority[selector]; ok {
		return r
	}
	return len(a.priority) + offset
}

// offer records one observation. A strictly better priority replaces the
// entry; an equal priority merges evidence without duplicates.
func (a *aggregator) offer(key string, f RawFinding, priority int) {
	ev := f.Sources[0]
	cur, ok := a.entries[key]
	if !ok {
		a.order = append(a.order, key)
	}
	if !ok || priority < cur.priority {
		a.entries[key] = &aggregated{
			finding:  f,
			priority: priority,
			seen:     map[string]bool{ev.signature(): true},
		}
		return
	}
	if priority == cur.priority {
		sig := ev.signature()
		if !cur.seen[sig] {
			cur.seen[sig] = true
			cur.finding.Sources = append(cur.finding.Sources, ev)
		}
	}
}

func (a *aggregator) addDeclaration(d Declaration) {
	ev := Evidence{
		Selector:  d.Selector,
		Property:  d.Property,
		Value:     strings.TrimSpace(d.Value),
		Important: d.Important,
		Href:      d.Href,
		AtRules:   d.AtRules,
	}
	var (
		key, name, normalized string
		priority              int
	)
	if d.IsCustomProperty() {
		ev.Type = EvidenceCSSVar
		key, name = d.Property, d.Property
		normalized = normalizeCustomProperty(d.Property)
		priority = a.rank(d.Selector, unlistedVarOffset)
	} else {
		ev.Type = EvidenceCSSProp
		key = d.Selector + "::" + d.Property
		name = key
		normalized = normalizeSelectorProperty(d.Selector, d.Property)
		priority = a.rank(d.Selector, unlistedPropOffset)
	}
	a.offer(key, RawFinding{
		Name:           name,
		NormalizedName: normalized,
		Category:       categorize(d.Property, ev.Value),
		Value:          ev.Value,
		Sources:        []Evidence{ev},
	}, priority)
}

func (a *aggregator) addComputed(s ComputedSample, property, value string) {
	key := s.Selector + "::" + property
	value = strings.TrimSpace(value)
	a.offer(key, RawFinding{
		Name:           key,
		NormalizedName: normalizeSelectorProperty(s.Selector, property),
		Category:       categorize(property, value),
		Value:          value,
		Sources: []Evidence{{
			Type:     EvidenceComputed,
			Selector: fmt.Sprintf("%s[%d]", s.Selector, s.SampleIndex),
			Property: property,
			Value:    value,
		}},
	}, a.rank(s.Selector, unlistedComputedOffset)+s.SampleIndex)
}

func (a *aggregator) findings() []RawFinding {
	out := make([]RawFinding, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, a.entries[k].finding)
	}
	return out
}

// BuildRawFindings aggregates per-page evidence into findings: declarations
// and computed samples first, then logo colors, then a derived tonal
// palette when color evidence is sparse.
func BuildRawFindings(pages []PageResult, cfg Config) []RawFinding {
	cfg = cfg.WithDefaults()
	agg := newAggregator(cfg.SelectorPriority)

	for _, page := range pages {
		for _, d := range page.GlobalDeclarations {
			agg.addDeclaration(d)
		}
		for _, d := range page.ComponentDeclarations {
			agg.addDeclaration(d)
		}
		for _, s := range page.Computed {
			for _, prop := range sortedKeys(s.Properties) {
				if v := s.Properties[prop]; strings.TrimSpace(v) != "" {
					agg.addComputed(s, prop, v)
				}
			}
		}
	}

	findings := agg.findings()
	findings = append(findings, logoFindings(pages)...)
	findings = append(findings, hintFindings(pages)...)
	findings = append(findings, derivePalette(findings, cfg.DerivePaletteUpTo)...)
	return findings
}

func logoFindings(pages []PageResult) []RawFinding {
	var out []RawFinding
	for pi, page := range pages {
		for li, logo := range page.Logos {
			colors := logo.Colors
			if len(colors) > 3 {
				colors = colors[:3]
			}
			for ci, c := range colors {
				if c == "" {
					continue
				}
				role := "primary"
				switch {
				case ci == 1:
					role = "secondary"
				case ci > 1:
					role = fmt.Sprintf("accent%d", ci-1)
				}
				out = append(out, RawFinding{
					Name:           fmt.Sprintf("logo-%d-%d-%s", pi, li, role),
					NormalizedName: "logo." + role,
					Category:       schema.CategoryColor,
					Value:          c,
					Sources: []Evidence{{
						Type:   EvidenceLogo,
						Source: logo.Source,
						Method: string(logo.Method),
						Value:  c,
						Note:   logo.Alt,
					}},
				})
			}
		}
	}
	return out
}

// derivePalette builds a 50..900 tonal scale from the primary color
// candidate when there are between 1 and limit color findings.
func derivePalette(findings []RawFinding, limit int) []RawFinding {
	var colors []RawFinding
	for _, f := range findings {
		if f.Category == schema.CategoryColor {
			colors = append(colors, f)
		}
	}
	if len(colors) == 0 || len(colors) > limit {
		return nil
	}

	base := colors[0]
	for _, f := range colors {
		if hintColor.MatchString(f.NormalizedName) {
			base = f
			break
		}
	}
	steps, ok := colorutil.TonalScale(base.Value)
	if !ok {
		return nil
	}

	out := make([]RawFinding, 0, len(steps))
	for _, step := range steps {
		sources := append(append([]Evidence(nil), base.Sources...), Evidence{
			Type: EvidenceDerived,
			Note: fmt.Sprintf("Derived tonal scale (%d) from %s", step.Step, base.Name),
		})
		out = append(out, RawFinding{
			Name:           fmt.Sprintf("%s-%d", base.Name, step.Step),
			NormalizedName: fmt.Sprintf("%s-%d", base.NormalizedName, step.Step),
			Category:       schema.CategoryColor,
			Value:          step.Value,
			Sources:        sources,
		})
	}
	return out
}
