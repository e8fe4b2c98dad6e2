// Package sass reads the declaration subset of SCSS that theme schema
// sources are written in: top-level `$variable: value;` declarations and
// `$map: (key: value, ...);` maps, possibly nested. Rule blocks, at-rules
// and mixins are skipped; comments never contribute declarations.
package sass

import (
	"fmt"
	"regexp"
	"strings"
)

// Position locates a declaration in its source file. Line and Column are
// 1-based; Column counts bytes.
type Position struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Variable is a flat `$name: value;` declaration.
type Variable struct {
	Name  string   `json:"name"`
	Value string   `json:"value"`
	Flags []string `json:"flags,omitempty"`
	Pos   Position `json:"pos"`
}

// MapEntry is one `key: value` pair of a map. Nested is set when the value
// is itself a map; Value then holds its raw text.
type MapEntry struct {
	Key    string   `json:"key"`
	Value  string   `json:"value"`
	Nested *Map     `json:"nested,omitempty"`
	Pos    Position `json:"pos"`
}

// Map is a `$name: (...)` declaration.
type Map struct {
	Name    string     `json:"name"`
	Entries []MapEntry `json:"entries"`
	Pos     Position   `json:"pos"`
}

// Lookup returns the entry with the given key.
func (m *Map) Lookup(key string) (MapEntry, bool) {
	for _, e := range m.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return MapEntry{}, false
}

// ParseResult holds the declarations of one file in source order.
type ParseResult struct {
	File      string     `json:"file"`
	Variables []Variable `json:"variables"`
	Maps      []Map      `json:"maps"`
}

// Variable returns the last declaration of name, mirroring SCSS
// reassignment semantics.
func (r *ParseResult) Variable(name string) (Variable, bool) {
	name = strings.TrimPrefix(name, "$")
	for i := len(r.Variables) - 1; i >= 0; i-- {
		if r.Variables[i].Name == name {
			return r.Variables[i], true
		}
	}
	return Variable{}, false
}

// Map returns the map declared under name.
func (r *ParseResult) Map(name string) (*Map, bool) {
	name = strings.TrimPrefix(name, "$")
	for i := len(r.Maps) - 1; i >= 0; i-- {
		if r.Maps[i].Name == name {
			return &r.Maps[i], true
		}
	}
	return nil, false
}

// ParseError reports malformed SCSS with its position.
type ParseError struct {
	Pos Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// ParseBytes parses src, attributing positions to file.
func ParseBytes(file string, src []byte) (*ParseResult, error) {
	p := &parser{file: file, src: string(src), result: ParseResult{File: file}}
	clean, err := p.stripComments()
	if err != nil {
		return nil, err
	}
	p.clean = clean
	p.indexLines()
	if err := p.parse(); err != nil {
		return nil, err
	}
	return &p.result, nil
}

var builderRe = regexp.MustCompile(`builder\(\s*["']([^"']+)["']\s*\)`)

// ExtractBuilders returns the distinct builder("name") references in src in
// first-seen order.
func ExtractBuilders(src []byte) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range builderRe.FindAllSubmatch(src, -1) {
		name := string(m[1])
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

type parser struct {
	file       string
	src        string
	clean      string
	lineStarts []int
	result     ParseResult
}

// stripComments blanks out comments while keeping byte offsets and newlines
// intact, so positions computed on the result match the original source.
func (p *parser) stripComments() (string, error) {
	b := []byte(p.src)
	var quote byte
	for i := 0; i < len(b); i++ {
		c := b[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			quote = c
		case c == '/' && i+1 < len(b) && b[i+1] == '*':
			end := strings.Index(p.src[i+2:], "*/")
			if end < 0 {
				return "", &ParseError{Pos: p.position(i), Msg: "unterminated block comment"}
			}
			blank(b, i, i+2+end+2)
			i += 2 + end + 1
		case c == '/' && i+1 < len(b) && b[i+1] == '/' && (i == 0 || b[i-1] != ':'):
			end := strings.IndexByte(p.src[i:], '\n')
			if end < 0 {
				end = len(b) - i
			}
			blank(b, i, i+end)
			i += end - 1
		}
	}
	if quote != 0 {
		return "", &ParseError{Pos: p.position(len(b) - 1), Msg: "unterminated string"}
	}
	return string(b), nil
}

func blank(b []byte, from, to int) {
	for j := from; j < to && j < len(b); j++ {
		if b[j] != '\n' {
			b[j] = ' '
		}
	}
}

func (p *parser) indexLines() {
	p.lineStarts = []int{0}
	for i := 0; i < len(p.src); i++ {
		if p.src[i] == '\n' {
			p.lineStarts = append(p.lineStarts, i+1)
		}
	}
}

func (p *parser) position(offset int) Position {
	if p.lineStarts == nil {
		p.indexLines()
	}
	lo, hi := 0, len(p.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if p.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return Position{File: p.file, Line: lo + 1, Column: offset - p.lineStarts[lo] + 1}
}

func (p *parser) parse() error {
	s := p.clean
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case isSpace(c) || c == ';':
			i++
		case c == '$':
			next, err := p.parseDeclaration(i)
			if err != nil {
				return err
			}
			i = next
		default:
			next, err := p.skipStatement(i)
			if err != nil {
				return err
			}
			i = next
		}
	}
	return nil
}

// parseDeclaration reads `$name: value;` starting at the '$'.
func (p *parser) parseDeclaration(start int) (int, error) {
	s := p.clean
	i := start + 1
	for i < len(s) && isIdent(s[i]) {
		i++
	}
	name := s[start+1 : i]
	if name == "" {
		return 0, &ParseError{Pos: p.position(start), Msg: "expected variable name after '$'"}
	}
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i >= len(s) || s[i] != ':' {
		// A bare `$x` outside a declaration (e.g. in an expression); skip it.
		return p.skipStatement(i)
	}
	i++

	end, next, err := p.scanValue(i)
	if err != nil {
		return 0, err
	}
	raw := strings.TrimSpace(s[i:end])
	value, flags := splitFlags(raw)
	pos := p.position(start)

	if strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")") {
		valueStart := i + strings.Index(s[i:end], "(")
		m, isMap, err := p.parseMap(name, valueStart, value, pos)
		if err != nil {
			return 0, err
		}
		if isMap {
			p.result.Maps = append(p.result.Maps, *m)
			return next, nil
		}
	}

	p.result.Variables = append(p.result.Variables, Variable{
		Name:  name,
		Value: value,
		Flags: flags,
		Pos:   pos,
	})
	return next, nil
}

// scanValue finds the end of the value starting at i. end is exclusive;
// next is where parsing resumes. A value ends at ';', at a closing '}' or at
// end of input.
func (p *parser) scanValue(i int) (end, next int, err error) {
	s := p.clean
	depth := 0
	var quote byte
	for j := i; j < len(s); j++ {
		c := s[j]
		if quote != 0 {
			if c == '\\' {
				j++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth < 0 {
				return 0, 0, &ParseError{Pos: p.position(j), Msg: "unbalanced ')'"}
			}
		case ';':
			if depth == 0 {
				return j, j + 1, nil
			}
		case '}':
			if depth == 0 {
				return j, j, nil
			}
		}
	}
	if depth != 0 {
		return 0, 0, &ParseError{Pos: p.position(i), Msg: "unterminated '(' in value"}
	}
	return len(s), len(s), nil
}

// skipStatement skips a rule, at-rule or stray token, including a balanced
// `{...}` block when present.
func (p *parser) skipStatement(i int) (int, error) {
	s := p.clean
	depth := 0
	var quote byte
	for j := i; j < len(s); j++ {
		c := s[j]
		if quote != 0 {
			if c == '\\' {
				j++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j + 1, nil
			}
			if depth < 0 {
				return j + 1, nil
			}
		case ';':
			if depth == 0 {
				return j + 1, nil
			}
		}
	}
	if depth > 0 {
		return 0, &ParseError{Pos: p.position(i), Msg: "unterminated block"}
	}
	return len(s), nil
}

// parseMap interprets value (which starts at offset in the clean source) as
// a map. isMap is false when the parenthesized value is a plain list.
func (p *parser) parseMap(name string, offset int, value string, pos Position) (*Map, bool, error) {
	inner := value[1 : len(value)-1]
	base := offset + 1
	parts := splitTopLevel(inner, ',')

	m := &Map{Name: name, Pos: pos}
	anyPair := false
	for _, part := range parts {
		text := inner[part.start:part.end]
		if strings.TrimSpace(text) == "" {
			continue
		}
		colon := indexTopLevel(text, ':')
		if colon < 0 {
			if anyPair {
				return nil, false, &ParseError{Pos: p.position(base + part.start), Msg: fmt.Sprintf("map %q entry is missing ':'", name)}
			}
			continue
		}
		anyPair = true

		lead := len(text) - len(strings.TrimLeft(text, " \t\r\n"))
		entryPos := p.position(base + part.start + lead)
		key := unquote(strings.TrimSpace(text[:colon]))
		val := strings.TrimSpace(text[colon+1:])
		if key == "" {
			return nil, false, &ParseError{Pos: entryPos, Msg: fmt.Sprintf("map %q has an empty key", name)}
		}

		entry := MapEntry{Key: key, Value: val, Pos: entryPos}
		if strings.HasPrefix(val, "(") && strings.HasSuffix(val, ")") {
			valOffset := base + part.start + colon + 1 + strings.Index(text[colon+1:], "(")
			nested, isMap, err := p.parseMap(name+"."+key, valOffset, val, entryPos)
			if err != nil {
				return nil, false, err
			}
			if isMap {
				nested.Name = key
				entry.Nested = nested
			}
		}
		m.Entries = append(m.Entries, entry)
	}

	if !anyPair {
		return nil, false, nil
	}
	return m, true, nil
}

type span struct{ start, end int }

// splitTopLevel splits s at sep occurrences outside strings and brackets.
func splitTopLevel(s string, sep byte) []span {
	var out []span
	depth := 0
	var quote byte
	last := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case sep:
			if depth == 0 {
				out = append(out, span{last, i})
				last = i + 1
			}
		}
	}
	return append(out, span{last, len(s)})
}

func indexTopLevel(s string, sep byte) int {
	parts := splitTopLevel(s, sep)
	if len(parts) < 2 {
		return -1
	}
	return parts[0].end
}

// splitFlags removes trailing !default / !global flags from a value.
func splitFlags(v string) (string, []string) {
	var flags []string
	for {
		idx := strings.LastIndex(v, "!")
		if idx < 0 {
			return v, flags
		}
		flag := strings.TrimSpace(v[idx+1:])
		if flag != "default" && flag != "global" {
			return v, flags
		}
		flags = append([]string{flag}, flags...)
		v = strings.TrimSpace(v[:idx])
	}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isIdent(c byte) bool {
	return c == '-' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
