// Package extractor turns a rendered web page into raw design-token
// findings: CSS custom properties, literal declarations on global and
// component selectors, computed style samples, logo colors and theme hints
// found in inline scripts.
package extractor

import (
	"encoding/json"
	"fmt"

	"github.com/gnana997/themeforge/pkg/schema"
)

// EvidenceType discriminates Evidence variants.
type EvidenceType string

const (
	EvidenceCSSVar   EvidenceType = "css-var"
	EvidenceCSSProp  EvidenceType = "css-prop"
	EvidenceComputed EvidenceType = "computed"
	EvidenceLogo     EvidenceType = "logo"
	EvidenceDerived  EvidenceType = "derived"
)

// Evidence records where a value was observed. Which fields are set
// depends on Type:
//
//	css-var, css-prop: Selector, Property, Value, Important, Href, AtRules
//	computed:          Selector, Property, Value
//	logo:              Source, Method, Value, Note
//	derived:           Note
type Evidence struct {
	Type      EvidenceType `json:"type"`
	Selector  string       `json:"selector,omitempty"`
	Property  string       `json:"property,omitempty"`
	Value     string       `json:"value,omitempty"`
	Important bool         `json:"important,omitempty"`
	Href      string       `json:"href,omitempty"`
	AtRules   []string     `json:"atRules,omitempty"`
	Source    string       `json:"source,omitempty"`
	Method    string       `json:"method,omitempty"`
	Note      string       `json:"note,omitempty"`
}

// signature identifies duplicate evidence during aggregation.
func (e Evidence) signature() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// RawFinding is one aggregated observation, keyed by custom property name
// or selector::property. Sources keep observation order.
type RawFinding struct {
	Name           string          `json:"name"`
	NormalizedName string          `json:"normalizedName"`
	Category       schema.Category `json:"category"`
	Value          string          `json:"value"`
	Sources        []Evidence      `json:"sources"`
}

// HasEvidence reports whether any source has the given type.
func (f RawFinding) HasEvidence(t EvidenceType) bool {
	for _, s := range f.Sources {
		if s.Type == t {
			return true
		}
	}
	return false
}

// Scheme selects the preferred color scheme for rendering.
type Scheme string

const (
	SchemeLight Scheme = "light"
	SchemeDark  Scheme = "dark"
)

// Request describes one extraction run.
type Request struct {
	URL      string `json:"url"`
	MaxPages int    `json:"maxPages,omitempty"`
	Scheme   Scheme `json:"scheme,omitempty"`
}

// Stylesheet is CSS text attached to a page. Href is empty for inline
// <style> blocks.
type Stylesheet struct {
	Href string `json:"href,omitempty"`
	Text string `json:"-"`
}

// ComputedSample is a style sample for one node matched by a target
// selector.
type ComputedSample struct {
	Selector    string            `json:"selector"`
	SampleIndex int               `json:"sampleIndex"`
	Properties  map[string]string `json:"properties"`
}

// LogoMethod is how logo colors are obtained.
type LogoMethod string

const (
	LogoImage LogoMethod = "image"
	LogoSVG   LogoMethod = "svg"
)

// LogoAsset is a logo candidate found on a page. Image assets carry the
// fetched bytes in Data; SVG assets carry the markup in Markup.
type LogoAsset struct {
	Source string     `json:"source"`
	Method LogoMethod `json:"method"`
	Alt    string     `json:"alt,omitempty"`
	Markup string     `json:"-"`
	Data   []byte     `json:"-"`
}

// PageSnapshot is everything a Renderer captured from one page.
type PageSnapshot struct {
	URL         string           `json:"url"`
	Stylesheets []Stylesheet     `json:"stylesheets"`
	Computed    []ComputedSample `json:"computed"`
	Logos       []LogoAsset      `json:"logos"`
	Scripts     []string         `json:"-"`
	Links       []string         `json:"links,omitempty"`
	Errors      []string         `json:"errors,omitempty"`
}

// LogoColors is the palette sampled from one logo.
type LogoColors struct {
	Source string     `json:"source"`
	Method LogoMethod `json:"method"`
	Colors []string   `json:"colors"`
	Alt    string     `json:"alt,omitempty"`
}

// Declaration is a CSS declaration captured from a stylesheet.
type Declaration struct {
	Selector  string   `json:"selector"`
	Property  string   `json:"property"`
	Value     string   `json:"value"`
	Important bool     `json:"important"`
	Href      string   `json:"href,omitempty"`
	AtRules   []string `json:"atRules,omitempty"`
}

// IsCustomProperty reports whether the declaration sets a --custom-prop.
func (d Declaration) IsCustomProperty() bool {
	return len(d.Property) > 2 && d.Property[:2] == "--"
}

// PageResult is the evidence gathered from one page before aggregation.
type PageResult struct {
	URL                   string           `json:"url"`
	GlobalDeclarations    []Declaration    `json:"globalDeclarations"`
	ComponentDeclarations []Declaration    `json:"componentDeclarations"`
	Computed              []ComputedSample `json:"computed"`
	Logos                 []LogoColors     `json:"logos"`
	Hints                 []ScriptHint     `json:"hints,omitempty"`
	Errors                []string         `json:"errors,omitempty"`
}

// Result is the outcome of an extraction run.
type Result struct {
	URL      string         `json:"url"`
	Pages    []PageResult   `json:"pages"`
	Findings []RawFinding   `json:"findings"`
	Errors   []string       `json:"errors,omitempty"`
	Stats    ExtractionStat `json:"stats"`
}

// ExtractionStat summarizes a run.
type ExtractionStat struct {
	Pages        int   `json:"pages"`
	Stylesheets  int   `json:"stylesheets"`
	Declarations int   `json:"declarations"`
	Findings     int   `json:"findings"`
	DurationMs   int64 `json:"durationMs"`
}

// ErrorKind classifies an ExtractionError.
type ErrorKind string

const (
	ErrUnreachable ErrorKind = "unreachable"
	ErrTimeout     ErrorKind = "timeout"
	ErrStatus      ErrorKind = "status"
	ErrContentType ErrorKind = "content-type"
	ErrInvalidURL  ErrorKind = "invalid-url"
	ErrRender      ErrorKind = "render"
)

// ExtractionError is fatal to a run. Hint suggests a remediation.
type ExtractionError struct {
	URL    string
	Kind   ErrorKind
	Status int
	Hint   string
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extraction failed for %s (%s)", e.URL, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(": HTTP %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += "; hint: " + e.Hint
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }
