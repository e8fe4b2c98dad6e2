package compiler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gnana997/themeforge/pkg/schema"
)

// Merge deep-merges overlay onto a copy of base. Objects merge key-wise,
// scalars and arrays replace, and an explicit nil or "" in overlay blanks
// the base value.
func Merge(base, overlay map[string]any) map[string]any {
	out := cloneMap(base)
	mergeInto(out, overlay)
	return out
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		switch sv := v.(type) {
		case nil:
			dst[k] = ""
		case map[string]any:
			dm, ok := dst[k].(map[string]any)
			if !ok {
				dm = make(map[string]any, len(sv))
				dst[k] = dm
			}
			mergeInto(dm, sv)
		case []any:
			dst[k] = cloneSlice(sv)
		default:
			dst[k] = sv
		}
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		return cloneSlice(t)
	}
	return v
}

// Stringify renders a theme leaf as CSS text. JSON numbers print without
// a trailing fraction.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, Stringify(e))
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}

// getString reads a leaf as trimmed text; missing paths read as "".
func getString(theme map[string]any, path string) string {
	v, ok := schema.GetPath(theme, strings.Split(path, "."))
	if !ok {
		return ""
	}
	if _, isMap := v.(map[string]any); isMap {
		return ""
	}
	return strings.TrimSpace(Stringify(v))
}

func setString(theme map[string]any, path, value string) {
	schema.SetPath(theme, strings.Split(path, "."), value)
}

// valueOr fills path with fallback only when it is empty.
func valueOr(theme map[string]any, path, fallback string) {
	if getString(theme, path) == "" {
		setString(theme, path, fallback)
	}
}

// Flatten projects a nested theme onto dotted leaf paths.
func Flatten(theme map[string]any) map[string]string {
	out := make(map[string]string)
	flattenInto(out, "", theme)
	return out
}

func flattenInto(out map[string]string, prefix string, m map[string]any) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flattenInto(out, path, child)
			continue
		}
		out[path] = Stringify(v)
	}
}

// sortedKeys returns map keys in lexical order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
