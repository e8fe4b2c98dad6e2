package extractor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/themeforge/pkg/colorutil"
	"github.com/gnana997/themeforge/pkg/parser"
	"github.com/gnana997/themeforge/pkg/schema"
)

// ScriptHint is a theme value assigned to a role-named key in an inline
// script, e.g. `primaryColor: "#2563eb"`.
type ScriptHint struct {
	Key      string          `json:"key"`
	Value    string          `json:"value"`
	Category schema.Category `json:"category"`
}

var (
	roleKey = regexp.MustCompile(`(?i)primary|secondary|brand|accent|background|(^|[^a-z])bg|text|foreground|font|colou?r|surface|muted`)
	fontKey = regexp.MustCompile(`(?i)font|family|typeface`)
)

const maxHintsPerScript = 64

// scanScript parses one script body and returns role-named string
// assignments whose values are colors or font stacks.
func (e *Extractor) scanScript(body []byte) ([]ScriptHint, error) {
	tree, err := e.parserManager.Parse(body, parser.LanguageJavaScript)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	defer tree.Close()

	var hints []ScriptHint
	seen := make(map[string]bool)
	visit := func(keyNode, valueNode *ts.Node) {
		if keyNode == nil || valueNode == nil || valueNode.Kind() != "string" || len(hints) >= maxHintsPerScript {
			return
		}
		key := strings.Trim(keyNode.Utf8Text(body), `"'`)
		if !roleKey.MatchString(key) {
			return
		}
		value := strings.TrimSpace(strings.Trim(valueNode.Utf8Text(body), `"'`))
		var cat schema.Category
		switch {
		case colorutil.IsColor(value):
			cat = schema.CategoryColor
			value = colorutil.Normalize(value)
		case fontKey.MatchString(key) && value != "":
			cat = schema.CategoryFont
		default:
			return
		}
		if sig := key + "\x00" + value; !seen[sig] {
			seen[sig] = true
			hints = append(hints, ScriptHint{Key: key, Value: value, Category: cat})
		}
	}

	var walk func(n *ts.Node)
	walk = func(n *ts.Node) {
		switch n.Kind() {
		case "pair":
			visit(n.ChildByFieldName("key"), n.ChildByFieldName("value"))
		case "variable_declarator":
			visit(n.ChildByFieldName("name"), n.ChildByFieldName("value"))
		case "assignment_expression":
			left := n.ChildByFieldName("left")
			if left != nil && left.Kind() == "member_expression" {
				left = left.ChildByFieldName("property")
			}
			visit(left, n.ChildByFieldName("right"))
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())
	return hints, nil
}

// hintFindings turns script hints into findings with derived evidence.
// The first page that mentions a key wins.
func hintFindings(pages []PageResult) []RawFinding {
	var out []RawFinding
	seen := make(map[string]bool)
	for _, page := range pages {
		for _, h := range page.Hints {
			name := "script:" + h.Key
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, RawFinding{
				Name:           name,
				NormalizedName: schema.Kebab(h.Key),
				Category:       h.Category,
				Value:          h.Value,
				Sources: []Evidence{{
					Type:  EvidenceDerived,
					Value: h.Value,
					Note:  fmt.Sprintf("inline script assigns %s on %s", h.Key, page.URL),
				}},
			})
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
