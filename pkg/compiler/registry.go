package compiler

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/gnana997/themeforge/catalogs"
	"github.com/gnana997/themeforge/pkg/schema"
)

// RegistryToken documents one compiler token: its theme path, published
// CSS custom property and default value. Core tokens must be non-empty for
// a theme to compile.
type RegistryToken struct {
	Path    string `json:"path"`
	CSSVar  string `json:"cssVar"`
	Default string `json:"default"`
	Core    bool   `json:"core,omitempty"`
}

// Segments splits the dotted path.
func (t RegistryToken) Segments() []string {
	return strings.Split(t.Path, ".")
}

// Registry is the ordered token registry.
type Registry struct {
	Version int             `json:"version"`
	Tokens  []RegistryToken `json:"tokens"`

	byPath map[string]int
}

// ParseRegistry decodes a registry document.
func ParseRegistry(data []byte) (*Registry, error) {
	var r Registry
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	r.byPath = make(map[string]int, len(r.Tokens))
	for i, t := range r.Tokens {
		if t.Path == "" || !strings.HasPrefix(t.CSSVar, "--") {
			return nil, fmt.Errorf("registry token %d: path and --cssVar are required", i)
		}
		if _, dup := r.byPath[t.Path]; dup {
			return nil, fmt.Errorf("registry token %s: duplicate path", t.Path)
		}
		r.byPath[t.Path] = i
	}
	return &r, nil
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the embedded Pulse registry.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		r, err := ParseRegistry(catalogs.RegistryJSON)
		if err != nil {
			panic(fmt.Sprintf("compiler: embedded registry: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Lookup finds a token by dotted path.
func (r *Registry) Lookup(path string) (RegistryToken, bool) {
	i, ok := r.byPath[path]
	if !ok {
		return RegistryToken{}, false
	}
	return r.Tokens[i], true
}

// CorePaths lists required token paths in registry order.
func (r *Registry) CorePaths() []string {
	var out []string
	for _, t := range r.Tokens {
		if t.Core {
			out = append(out, t.Path)
		}
	}
	return out
}

// Defaults builds a fresh nested theme holding every registry default.
func (r *Registry) Defaults() map[string]any {
	out := make(map[string]any)
	for _, t := range r.Tokens {
		schema.SetPath(out, t.Segments(), t.Default)
	}
	return out
}

// VarName returns the custom property for path. Registry tokens use their
// published name; anything else derives --pi-<group>-<kebab rest>.
func (r *Registry) VarName(path string) string {
	if t, ok := r.Lookup(path); ok {
		return t.CSSVar
	}
	segs := strings.Split(path, ".")
	name := "--pi-" + schema.Kebab(segs[0])
	if len(segs) > 1 {
		name += "-" + schema.Kebab(strings.Join(segs[1:], "-"))
	}
	return name
}
