package mapper

import (
	"regexp"
	"strings"

	"github.com/gnana997/themeforge/pkg/extractor"
	"github.com/gnana997/themeforge/pkg/schema"
)

// namespace is a family of selectors a token's evidence is expected under.
type namespace struct {
	name string
	// trigger matches kebab-case token path words that select this
	// namespace; pattern matches evidence selectors and finding names.
	trigger *regexp.Regexp
	pattern *regexp.Regexp
}

// Ordered: the first namespace whose trigger matches the token path wins.
var namespaces = []namespace{
	{
		name:    "widget",
		trigger: regexp.MustCompile(`(^|-)(widget|modal|dialog|container|bar)(-|$)`),
		pattern: regexp.MustCompile(`(?i)widget|modal|dialog|popup|survey|card|panel`),
	},
	{
		name:    "button",
		trigger: regexp.MustCompile(`(^|-)(buttons?|btn|cta|close)(-|$)`),
		pattern: regexp.MustCompile(`(?i)btn|button|cta|\[type=.?submit`),
	},
	{
		name:    "input",
		trigger: regexp.MustCompile(`(^|-)(inputs?|field|textarea|select)(-|$)`),
		pattern: regexp.MustCompile(`(?i)input|field|form-control|textarea|select`),
	},
	{
		name:    "heading",
		trigger: regexp.MustCompile(`(^|-)(question|heading|title)(-|$)`),
		pattern: regexp.MustCompile(`(?i)(^|[^a-z0-9])h[1-3]([^0-9]|$)|heading|title|question`),
	},
	{
		name:    "answer",
		trigger: regexp.MustCompile(`(^|-)(answers?|radio|tile|option)(-|$)`),
		pattern: regexp.MustCompile(`(?i)answer|option|radio|choice|label`),
	},
	{
		name:    "link",
		trigger: regexp.MustCompile(`(^|-)link(-|$)`),
		pattern: regexp.MustCompile(`(?i)(^|[\s>+~])a($|[\s:.\[#>])|link`),
	},
}

// globalNamespace matches page-wide evidence.
var globalNamespace = namespace{name: "global"}

func namespaceFor(tok *schema.Token) namespace {
	path := nameKey(strings.Join(tok.Path, "-"))
	for _, ns := range namespaces {
		if ns.trigger.MatchString(path) {
			return ns
		}
	}
	return globalNamespace
}

func (ns namespace) component() bool { return ns.pattern != nil }

// matches reports whether the finding was observed under the namespace.
// Global tokens accept evidence on a preferred selector.
func (ns namespace) matches(f *extractor.RawFinding, key string, preferred []string) bool {
	if ns.pattern == nil {
		for _, e := range f.Sources {
			sel := strings.TrimSpace(e.Selector)
			if i := strings.IndexByte(sel, '['); i > 0 && e.Type == extractor.EvidenceComputed {
				sel = sel[:i] // computed samples carry "body[0]"
			}
			for _, p := range preferred {
				if sel == p {
					return true
				}
			}
		}
		return false
	}
	if ns.pattern.MatchString(key) {
		return true
	}
	for _, e := range f.Sources {
		if e.Selector != "" && ns.pattern.MatchString(e.Selector) {
			return true
		}
	}
	return false
}

// roleSet maps a token's role to CSS properties and name words.
type roleSet struct {
	properties map[string]bool
	words      []string
}

var roleTable = []struct {
	trigger    *regexp.Regexp
	properties []string
	words      []string
}{
	{regexp.MustCompile(`(^|-)(bg|background|fill|surface)(-|$)`), []string{"background-color", "background"}, []string{"bg", "background", "surface"}},
	{regexp.MustCompile(`(^|-)(border|outline|divider)(-|$)`), []string{"border-color", "border", "outline-color", "outline"}, []string{"border", "outline", "divider"}},
	{regexp.MustCompile(`(^|-)(text|fg|foreground|muted|on)(-|$)`), []string{"color"}, []string{"text", "fg", "foreground"}},
	{regexp.MustCompile(`(^|-)radius(-|$)`), []string{"border-radius"}, []string{"radius", "rounded"}},
	{regexp.MustCompile(`(^|-)shadows?(-|$)`), []string{"box-shadow"}, []string{"shadow", "elevation"}},
	{regexp.MustCompile(`(^|-)(family|font)(-|$)`), []string{"font-family"}, []string{"font", "family", "sans", "serif"}},
	{regexp.MustCompile(`(^|-)sizes?(-|$)`), []string{"font-size"}, []string{"size"}},
	{regexp.MustCompile(`(^|-)weights?(-|$)`), []string{"font-weight"}, []string{"weight"}},
	{regexp.MustCompile(`(^|-)(line|heights?)(-|$)`), []string{"line-height"}, []string{"leading", "line"}},
	{regexp.MustCompile(`(^|-)padding(-|$)`), []string{"padding"}, []string{"padding", "space"}},
	{regexp.MustCompile(`(^|-)(gap|row|col)(-|$)`), []string{"gap", "row-gap", "column-gap"}, []string{"gap", "gutter"}},
}

func rolesFor(tok *schema.Token) roleSet {
	rest := tok.Path
	if len(rest) > 1 {
		rest = rest[1:]
	}
	path := nameKey(strings.Join(rest, "-"))
	rs := roleSet{properties: make(map[string]bool)}
	for _, r := range roleTable {
		if !r.trigger.MatchString(path) {
			continue
		}
		for _, p := range r.properties {
			rs.properties[p] = true
		}
		rs.words = append(rs.words, r.words...)
	}
	return rs
}

// matches reports whether the finding's property or name fits the role.
func (rs roleSet) matches(f *extractor.RawFinding, key string) bool {
	for _, e := range f.Sources {
		if e.Property != "" && rs.properties[e.Property] {
			return true
		}
	}
	parts := strings.Split(key, "-")
	for _, w := range rs.words {
		for _, p := range parts {
			if p == w {
				return true
			}
		}
	}
	return false
}

// stopWords never count toward name overlap.
var stopWords = map[string]bool{
	"pi": true, "color": true, "colors": true, "theme": true, "token": true,
	"default": true, "base": true, "value": true, "var": true,
}

// tokenWords returns the significant words of the token key and of each
// alias, one list per name.
func tokenWords(tok *schema.Token) [][]string {
	var names [][]string
	for _, name := range append([]string{tok.Key}, tok.Aliases...) {
		var words []string
		for _, w := range strings.Split(nameKey(name), "-") {
			if len(w) > 1 && !stopWords[w] {
				words = append(words, w)
			}
		}
		if len(words) > 0 {
			names = append(names, words)
		}
	}
	return names
}

// overlap reports whether key carries every word of at least one name.
func overlap(names [][]string, key string) bool {
	parts := make(map[string]bool)
	for _, p := range strings.Split(key, "-") {
		parts[p] = true
	}
	for _, words := range names {
		all := true
		for _, w := range words {
			if !parts[w] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

var (
	stateTrigger = regexp.MustCompile(`(^|-)(states?|hover|active|focus|selected|pressed|disabled)(-|$)`)
	tonalSuffix  = regexp.MustCompile(`-(50|[1-9]00)$`)
)

// isStateToken reports whether tok is an interaction-state variant.
func isStateToken(tok *schema.Token) bool {
	return stateTrigger.MatchString(nameKey(strings.Join(tok.Path, "-")))
}

// isTonalStep reports whether f is a step of a derived palette scale.
func isTonalStep(f *extractor.RawFinding, key string) bool {
	return f.HasEvidence(extractor.EvidenceDerived) && tonalSuffix.MatchString(key)
}
