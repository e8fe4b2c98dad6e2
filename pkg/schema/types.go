package schema

import (
	"github.com/gnana997/themeforge/pkg/sass"
)

// Category is the closed set of token kinds. It is decided once per
// declaration when the schema is built and never re-derived downstream.
type Category string

const (
	CategoryColor   Category = "color"
	CategoryFont    Category = "font"
	CategorySpacing Category = "spacing"
	CategoryRadius  Category = "radius"
	CategoryShadow  Category = "shadow"
	CategoryZIndex  Category = "z-index"
	CategoryUnknown Category = "unknown"
)

// Categories lists every category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryColor,
		CategoryFont,
		CategorySpacing,
		CategoryRadius,
		CategoryShadow,
		CategoryZIndex,
		CategoryUnknown,
	}
}

// ParseCategory maps a name to a Category; unrecognized names are unknown.
func ParseCategory(name string) Category {
	for _, c := range Categories() {
		if string(c) == name {
			return c
		}
	}
	switch name {
	case "colour", "colors":
		return CategoryColor
	case "typography", "fonts":
		return CategoryFont
	case "zindex", "z_index", "layer":
		return CategoryZIndex
	}
	return CategoryUnknown
}

// Token is one addressable design token.
type Token struct {
	// ID is the dotted path, e.g. "components.widget.bodyBg".
	ID    string   `json:"id"`
	Group string   `json:"group"`
	Path  []string `json:"path"`
	// Key is the camelCased leaf; OriginalKey is as written in the source.
	Key         string   `json:"key"`
	OriginalKey string   `json:"originalKey"`
	Category    Category `json:"category"`
	Default     string   `json:"default,omitempty"`
	// Variable is the semantic variable the token is bound to, without '$'.
	Variable string        `json:"variable,omitempty"`
	Aliases  []string      `json:"aliases,omitempty"`
	Source   sass.Position `json:"source"`
}

// Group is a top-level namespace of the structure file.
type Group struct {
	Name         string        `json:"name"`
	OriginalName string        `json:"originalName"`
	TokenIDs     []string      `json:"tokenIds"`
	Source       sass.Position `json:"source"`
}

// BuilderRef is a builder("name") reference found in the structure file.
type BuilderRef struct {
	Name string `json:"name"`
}

// TokenSchema is the canonical, immutable token schema. Token ids are unique.
type TokenSchema struct {
	SassRoot  string                   `json:"sassRoot"`
	Tokens    []Token                  `json:"tokens"`
	Groups    []Group                  `json:"groups"`
	Variables map[string]sass.Variable `json:"variables"`
	Builders  []BuilderRef             `json:"builders"`

	index map[string]int
}

// Token looks up a token by id.
func (s *TokenSchema) Token(id string) (Token, bool) {
	if s.index == nil {
		s.reindex()
	}
	i, ok := s.index[id]
	if !ok {
		return Token{}, false
	}
	return s.Tokens[i], true
}

// TokenIDs returns all ids in schema order.
func (s *TokenSchema) TokenIDs() []string {
	ids := make([]string, len(s.Tokens))
	for i, t := range s.Tokens {
		ids[i] = t.ID
	}
	return ids
}

// CountByCategory tallies tokens per category.
func (s *TokenSchema) CountByCategory() map[Category]int {
	out := make(map[Category]int)
	for _, t := range s.Tokens {
		out[t.Category]++
	}
	return out
}

// EmptyTheme returns a nested map with every token path present and set to
// its default.
func (s *TokenSchema) EmptyTheme() map[string]any {
	root := make(map[string]any)
	for _, t := range s.Tokens {
		SetPath(root, t.Path, t.Default)
	}
	return root
}

func (s *TokenSchema) reindex() {
	s.index = make(map[string]int, len(s.Tokens))
	for i, t := range s.Tokens {
		s.index[t.ID] = i
	}
}

// SetPath assigns value at path inside a nested map, creating intermediate
// maps. An existing scalar on the way is replaced by a map.
func SetPath(root map[string]any, path []string, value any) {
	cur := root
	for i, seg := range path {
		if i == len(path)-1 {
			cur[seg] = value
			return
		}
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
}

// GetPath reads the value at path from a nested map.
func GetPath(root map[string]any, path []string) (any, bool) {
	var cur any = root
	for _, seg := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
