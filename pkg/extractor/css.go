package extractor

import (
	"fmt"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/themeforge/pkg/parser"
)

// cssRule is a style rule with its declarations and enclosing at-rules.
type cssRule struct {
	Selectors    []string
	Declarations []cssDeclaration
	AtRules      []string
}

type cssDeclaration struct {
	Property  string
	Value     string
	Important bool
}

// parseStylesheet parses CSS text once and returns its style rules in
// source order, flattening @media, @supports and other block at-rules.
func (e *Extractor) parseStylesheet(text []byte) ([]cssRule, error) {
	tree, err := e.parserManager.Parse(text, parser.LanguageCSS)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stylesheet: %w", err)
	}
	defer tree.Close()

	var rules []cssRule
	walkCSS(tree.RootNode(), text, nil, &rules)
	return rules, nil
}

func walkCSS(node *ts.Node, src []byte, atRules []string, out *[]cssRule) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "rule_set":
		if rule, ok := readRuleSet(node, src, atRules); ok {
			*out = append(*out, rule)
		}
		// Nested rules (CSS nesting) are treated as independent rules.
		if block := childOfKind(node, "block"); block != nil {
			for i := uint(0); i < block.NamedChildCount(); i++ {
				if child := block.NamedChild(i); child.Kind() != "declaration" {
					walkCSS(child, src, atRules, out)
				}
			}
		}
		return

	case "media_statement", "supports_statement", "at_rule":
		block := childOfKind(node, "block")
		if block == nil {
			return
		}
		prelude := strings.TrimSpace(string(src[node.StartByte():block.StartByte()]))
		nested := append(append([]string(nil), atRules...), collapseSpace(prelude))
		for i := uint(0); i < block.NamedChildCount(); i++ {
			walkCSS(block.NamedChild(i), src, nested, out)
		}
		return

	case "keyframes_statement", "import_statement", "charset_statement", "namespace_statement", "comment":
		return
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		walkCSS(node.NamedChild(i), src, atRules, out)
	}
}

func readRuleSet(node *ts.Node, src []byte, atRules []string) (cssRule, bool) {
	selectors := childOfKind(node, "selectors")
	block := childOfKind(node, "block")
	if selectors == nil || block == nil {
		return cssRule{}, false
	}

	rule := cssRule{
		Selectors: splitSelectors(selectors.Utf8Text(src)),
		AtRules:   atRules,
	}
	for i := uint(0); i < block.NamedChildCount(); i++ {
		child := block.NamedChild(i)
		if child.Kind() != "declaration" {
			continue
		}
		if d, ok := readDeclaration(child, src); ok {
			rule.Declarations = append(rule.Declarations, d)
		}
	}
	return rule, len(rule.Selectors) > 0
}

// readDeclaration slices the value between ':' and the optional !important
// or ';' directly from the source so custom property values survive
// verbatim.
func readDeclaration(node *ts.Node, src []byte) (cssDeclaration, bool) {
	var (
		prop      string
		valStart  uint
		valEnd    = node.EndByte()
		important bool
		colonSeen bool
	)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "property_name":
			prop = child.Utf8Text(src)
		case ":":
			if !colonSeen {
				valStart = child.EndByte()
				colonSeen = true
			}
		case "important":
			important = true
			if child.StartByte() < valEnd {
				valEnd = child.StartByte()
			}
		case ";":
			if child.StartByte() < valEnd {
				valEnd = child.StartByte()
			}
		}
	}
	if prop == "" || !colonSeen || valEnd < valStart {
		return cssDeclaration{}, false
	}
	value := collapseSpace(strings.TrimSpace(string(src[valStart:valEnd])))
	if value == "" {
		return cssDeclaration{}, false
	}
	return cssDeclaration{Property: strings.ToLower(strings.TrimSpace(prop)), Value: value, Important: important}, true
}

func childOfKind(node *ts.Node, kind string) *ts.Node {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child.Kind() == kind {
			return child
		}
	}
	return nil
}

// splitSelectors splits a selector list at top-level commas.
func splitSelectors(list string) []string {
	var (
		out   []string
		depth int
		start int
		quote byte
	)
	for i := 0; i < len(list); i++ {
		c := list[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == ',' && depth == 0:
			if s := collapseSpace(strings.TrimSpace(list[start:i])); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := collapseSpace(strings.TrimSpace(list[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// matchesSelector reports whether target occurs in selector as a whole
// simple selector. Class targets also match their BEM-style extensions
// (".btn" matches ".btn-primary").
func matchesSelector(target, selector string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	if selector == target {
		return true
	}
	for from := 0; from < len(selector); {
		i := strings.Index(selector[from:], target)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(target)
		if boundaryBefore(target, selector, i) && boundaryAfter(target, selector, end) {
			return true
		}
		from = i + 1
	}
	return false
}

func boundaryBefore(target, selector string, i int) bool {
	if i == 0 {
		return true
	}
	switch target[0] {
	case '.', '#', '[', ':':
		return true
	}
	// Type selectors must start a compound selector.
	return strings.ContainsRune(" >+~(,", rune(selector[i-1]))
}

func boundaryAfter(target, selector string, end int) bool {
	if end >= len(selector) {
		return true
	}
	c := selector[end]
	if c == '-' && target[0] == '.' {
		return true
	}
	return !isIdentByte(c)
}

func isIdentByte(c byte) bool {
	return c == '-' || c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// collectDeclarations splits rule declarations into global and component
// lists. Custom properties are always kept; literal properties only when
// listed in BaseProperties. A selector can land in both lists.
func (e *Extractor) collectDeclarations(rules []cssRule, href string) (global, component []Declaration) {
	base := make(map[string]bool, len(e.config.BaseProperties))
	for _, p := range e.config.BaseProperties {
		base[p] = true
	}

	capture := func(list *[]Declaration, selector string, rule cssRule) {
		for _, d := range rule.Declarations {
			if !strings.HasPrefix(d.Property, "--") && !base[d.Property] {
				continue
			}
			*list = append(*list, Declaration{
				Selector:  selector,
				Property:  d.Property,
				Value:     d.Value,
				Important: d.Important,
				Href:      href,
				AtRules:   rule.AtRules,
			})
		}
	}

	for _, rule := range rules {
		for _, sel := range rule.Selectors {
			if matchesAny(e.config.GlobalSelectors, sel) {
				capture(&global, sel, rule)
			}
			if matchesAny(e.config.ComponentSelectors, sel) {
				capture(&component, sel, rule)
			}
		}
	}
	return global, component
}

func matchesAny(targets []string, selector string) bool {
	for _, t := range targets {
		if matchesSelector(t, selector) {
			return true
		}
	}
	return false
}
