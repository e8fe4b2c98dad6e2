package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gnana997/themeforge/pkg/sass"
	"github.com/gnana997/themeforge/pkg/util"
)

// Default artifact names inside a source root.
const (
	DefaultMapFile       = "_maps.scss"
	DefaultVariablesFile = "_variables.scss"
	DefaultStructureFile = "_theme-structure.scss"

	// categoryOverrideMap is the maps-file map whose entries force a
	// token's category.
	categoryOverrideMap = "token-categories"

	maxVariableDepth = 8
)

// Options selects the schema source. Empty file paths default to the
// standard artifact names under SassRoot.
type Options struct {
	SassRoot      string
	MapFile       string
	VariablesFile string
	StructureFile string
	Logger        *slog.Logger
}

// Resolved returns a copy with absolute artifact paths filled in.
func (o Options) Resolved() Options {
	root := o.SassRoot
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	pick := func(p, def string) string {
		if p == "" {
			return filepath.Join(root, def)
		}
		if !filepath.IsAbs(p) {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
		}
		return p
	}
	return Options{
		SassRoot:      root,
		MapFile:       pick(o.MapFile, DefaultMapFile),
		VariablesFile: pick(o.VariablesFile, DefaultVariablesFile),
		StructureFile: pick(o.StructureFile, DefaultStructureFile),
		Logger:        o.Logger,
	}
}

// Artifacts lists the three source paths in a fixed order.
func (o Options) Artifacts() []string {
	r := o.Resolved()
	return []string{r.MapFile, r.VariablesFile, r.StructureFile}
}

// BuildError reports a schema source that cannot produce a schema: the
// structure file is missing or malformed, or token ids collide.
type BuildError struct {
	Path string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("schema build failed for %s: %v", e.Path, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Build parses the schema source into a TokenSchema. It reads files and has
// no other side effects.
func Build(opts Options) (*TokenSchema, error) {
	opts = opts.Resolved()
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	start := time.Now()

	files := util.NewSourceSet(len(opts.Artifacts()), log)
	defer files.Close()

	structureSrc, err := files.Read(opts.StructureFile)
	if err != nil {
		return nil, &BuildError{Path: opts.StructureFile, Err: fmt.Errorf("read structure file: %w", err)}
	}
	structure, err := sass.ParseBytes(opts.StructureFile, structureSrc)
	if err != nil {
		return nil, &BuildError{Path: opts.StructureFile, Err: err}
	}
	if len(structure.Maps) == 0 {
		return nil, &BuildError{Path: opts.StructureFile, Err: errors.New("structure file declares no token groups")}
	}

	variables := parseOptional(files, opts.VariablesFile, log)
	maps := parseOptional(files, opts.MapFile, log)

	b := &builder{
		variables: make(map[string]sass.Variable),
		seen:      make(map[string]sass.Position),
	}
	for _, v := range structure.Variables {
		b.variables[v.Name] = v
	}
	if variables != nil {
		for _, v := range variables.Variables {
			b.variables[v.Name] = v
		}
	}

	for _, m := range structure.Maps {
		if err := b.addGroup(m); err != nil {
			return nil, &BuildError{Path: opts.StructureFile, Err: err}
		}
	}
	if maps != nil {
		b.applyMaps(maps)
	}
	b.finish()

	schema := &TokenSchema{
		SassRoot:  opts.SassRoot,
		Tokens:    b.tokens,
		Groups:    b.groups,
		Variables: b.variables,
	}
	for _, name := range sass.ExtractBuilders(structureSrc) {
		schema.Builders = append(schema.Builders, BuilderRef{Name: name})
	}
	schema.reindex()

	log.Info("schema built",
		"root", opts.SassRoot,
		"tokens", len(schema.Tokens),
		"groups", len(schema.Groups),
		"variables", len(schema.Variables),
		"ms", time.Since(start).Milliseconds())

	return schema, nil
}

// parseOptional reads an optional artifact. A missing or malformed file
// degrades to nil with a warning.
func parseOptional(files *util.SourceSet, path string, log *slog.Logger) *sass.ParseResult {
	src, err := files.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("optional schema artifact absent", "path", path)
		} else {
			log.Warn("optional schema artifact unreadable", "path", path, "error", err)
		}
		return nil
	}
	res, err := sass.ParseBytes(path, src)
	if err != nil {
		log.Warn("optional schema artifact malformed, ignoring", "path", path, "error", err)
		return nil
	}
	return res
}

type builder struct {
	tokens    []Token
	groups    []Group
	variables map[string]sass.Variable
	seen      map[string]sass.Position

	categoryOverrides map[string]Category
}

func (b *builder) addGroup(m sass.Map) error {
	g := Group{Name: Camel(m.Name), OriginalName: m.Name, Source: m.Pos}
	ids, err := b.addEntries(g.Name, []string{g.Name}, m.Entries)
	if err != nil {
		return err
	}
	g.TokenIDs = ids
	b.groups = append(b.groups, g)
	return nil
}

func (b *builder) addEntries(group string, prefix []string, entries []sass.MapEntry) ([]string, error) {
	var ids []string
	for _, e := range entries {
		path := append(append([]string(nil), prefix...), Camel(e.Key))
		if e.Nested != nil {
			nested, err := b.addEntries(group, path, e.Nested.Entries)
			if err != nil {
				return nil, err
			}
			ids = append(ids, nested...)
			continue
		}

		id := strings.Join(path, ".")
		if prev, dup := b.seen[id]; dup {
			return nil, fmt.Errorf("duplicate token id %q at %s (first declared at %s)", id, e.Pos, prev)
		}
		b.seen[id] = e.Pos

		tok := Token{
			ID:          id,
			Group:       group,
			Path:        path,
			Key:         path[len(path)-1],
			OriginalKey: e.Key,
			Source:      e.Pos,
		}
		b.bindValue(&tok, e.Value)
		b.tokens = append(b.tokens, tok)
		ids = append(ids, id)
	}
	return ids, nil
}

// bindValue interprets a structure entry value: a $variable reference, a
// literal default, or null.
func (b *builder) bindValue(tok *Token, raw string) {
	v := strings.TrimSpace(raw)
	switch {
	case v == "" || v == "null":
		return
	case isVariableRef(v):
		name := strings.TrimPrefix(v, "$")
		tok.Variable = name
		tok.Aliases = appendUnique(tok.Aliases, name)
		tok.Default = b.resolve(v)
	default:
		tok.Default = unquoteValue(v)
	}
}

// resolve follows $variable chains to a literal. Unresolvable references
// yield "".
func (b *builder) resolve(v string) string {
	for depth := 0; depth < maxVariableDepth; depth++ {
		if !isVariableRef(v) {
			return unquoteValue(v)
		}
		decl, ok := b.variables[strings.TrimPrefix(v, "$")]
		if !ok {
			return ""
		}
		v = strings.TrimSpace(decl.Value)
	}
	return ""
}

// applyMaps reads the token-to-semantic-variable maps. Keys are token ids;
// values are a $variable or a parenthesized alias list.
func (b *builder) applyMaps(res *sass.ParseResult) {
	index := make(map[string]int, len(b.tokens))
	for i, t := range b.tokens {
		index[t.ID] = i
	}

	for _, m := range res.Maps {
		if m.Name == categoryOverrideMap {
			b.categoryOverrides = make(map[string]Category, len(m.Entries))
			for _, e := range m.Entries {
				b.categoryOverrides[e.Key] = ParseCategory(unquoteValue(e.Value))
			}
			continue
		}
		for _, e := range m.Entries {
			i, ok := index[e.Key]
			if !ok {
				continue
			}
			tok := &b.tokens[i]
			for _, alias := range aliasList(e.Value) {
				tok.Aliases = appendUnique(tok.Aliases, alias)
				if tok.Variable == "" {
					if _, declared := b.variables[alias]; declared {
						tok.Variable = alias
					}
				}
			}
			if tok.Default == "" && tok.Variable != "" {
				tok.Default = b.resolve("$" + tok.Variable)
			}
		}
	}
}

// finish assigns categories once every token has its default and aliases.
func (b *builder) finish() {
	for i := range b.tokens {
		tok := &b.tokens[i]
		if c, ok := b.categoryOverrides[tok.ID]; ok {
			tok.Category = c
			continue
		}
		tok.Category = InferCategory(tok.Key, tok.Default)
		if tok.Category == CategoryUnknown && tok.Variable != "" {
			tok.Category = InferCategory(tok.Variable, tok.Default)
		}
		if tok.Category == CategoryUnknown {
			tok.Category = InferCategory(strings.Join(tok.Path, "-"), tok.Default)
		}
	}
}

func aliasList(v string) []string {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(strings.TrimPrefix(v, "("), ")")
	var out []string
	for _, part := range strings.Split(v, ",") {
		name := strings.TrimPrefix(unquoteValue(strings.TrimSpace(part)), "$")
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func isVariableRef(v string) bool {
	if !strings.HasPrefix(v, "$") || len(v) < 2 {
		return false
	}
	for i := 1; i < len(v); i++ {
		c := v[i]
		if !(c == '-' || c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

func unquoteValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] && !strings.ContainsAny(v[1:len(v)-1], `"'`) {
		return v[1 : len(v)-1]
	}
	return v
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

// Fingerprint hashes the (path, mtime, size) triple of every artifact. A
// missing optional artifact contributes a fixed marker, so creating it
// changes the fingerprint too.
func Fingerprint(opts Options) string {
	h := newHasher()
	for _, p := range opts.Artifacts() {
		h.write(p)
		st, err := os.Stat(p)
		if err != nil {
			h.write("missing")
			continue
		}
		h.write(fmt.Sprintf("%d:%d", st.ModTime().UnixNano(), st.Size()))
	}
	return h.sum()
}
