package compiler

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed theme.schema.json
var themeSchemaJSON []byte

var (
	themeSchema     *jsonschema.Schema
	themeSchemaErr  error
	themeSchemaOnce sync.Once
)

func loadThemeSchema() (*jsonschema.Schema, error) {
	themeSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("theme.schema.json", bytes.NewReader(themeSchemaJSON)); err != nil {
			themeSchemaErr = fmt.Errorf("load theme schema: %w", err)
			return
		}
		themeSchema, themeSchemaErr = c.Compile("theme.schema.json")
	})
	return themeSchema, themeSchemaErr
}

// InvalidThemeError reports theme input that does not match the theme
// document schema.
type InvalidThemeError struct {
	Err error
}

func (e *InvalidThemeError) Error() string { return "invalid theme: " + e.Err.Error() }

func (e *InvalidThemeError) Unwrap() error { return e.Err }

// ParseTheme decodes and validates a theme JSON document. Documents may be
// the bare theme or a mapper result carrying it under "theme".
func ParseTheme(data []byte) (map[string]any, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &InvalidThemeError{Err: err}
	}
	if m, ok := doc.(map[string]any); ok {
		if inner, ok := m["theme"].(map[string]any); ok {
			if _, hasReport := m["report"]; hasReport {
				doc = inner
			}
		}
	}
	if err := ValidateTheme(doc); err != nil {
		return nil, err
	}
	return doc.(map[string]any), nil
}

// ValidateTheme checks an already decoded document.
func ValidateTheme(doc any) error {
	s, err := loadThemeSchema()
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return &InvalidThemeError{Err: err}
	}
	return nil
}
