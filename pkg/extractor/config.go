package extractor

import "time"

// ComputedTarget is a selector sampled for computed styles.
type ComputedTarget struct {
	Selector   string   `mapstructure:"selector" yaml:"selector" json:"selector"`
	Properties []string `mapstructure:"properties" yaml:"properties,omitempty" json:"properties,omitempty"`
	Limit      int      `mapstructure:"limit" yaml:"limit,omitempty" json:"limit,omitempty"`
}

// Config tunes evidence collection. Zero fields fall back to defaults via
// WithDefaults.
type Config struct {
	GlobalSelectors    []string         `mapstructure:"global_selectors" yaml:"global_selectors"`
	ComponentSelectors []string         `mapstructure:"component_selectors" yaml:"component_selectors"`
	BaseProperties     []string         `mapstructure:"base_properties" yaml:"base_properties"`
	ComputedTargets    []ComputedTarget `mapstructure:"computed_targets" yaml:"computed_targets"`
	// SelectorPriority orders selectors for aggregation; earlier wins.
	SelectorPriority []string `mapstructure:"selector_priority" yaml:"selector_priority"`

	MaxPages    int `mapstructure:"max_pages" yaml:"max_pages"`
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`

	MaxLogosPerPage   int `mapstructure:"max_logos_per_page" yaml:"max_logos_per_page"`
	MaxColorsPerLogo  int `mapstructure:"max_colors_per_logo" yaml:"max_colors_per_logo"`
	DerivePaletteUpTo int `mapstructure:"derive_palette_up_to" yaml:"derive_palette_up_to"`
}

// Selectors whose declarations apply page-wide.
var DefaultGlobalSelectors = []string{
	":root",
	"html",
	"body",
	":root[data-theme]",
	"html[data-theme]",
	"body[data-theme]",
	"html.dark",
	"body.dark",
	".theme-dark",
	"[data-color-scheme]",
}

var DefaultComponentSelectors = []string{
	"header",
	"nav",
	"main",
	"footer",
	".app",
	".layout",
	".shell",
	".container",
	".card",
	".panel",
	".surface",
	".modal",
	".dialog",
	".btn",
	`[role="button"]`,
	"a",
	".primary",
	"input",
	"select",
	"textarea",
	".form-control",
}

// Literal properties captured from matched rules. Custom properties are
// always captured.
var DefaultBaseProperties = []string{
	"color",
	"background",
	"background-color",
	"font-family",
	"font-size",
	"line-height",
	"border-radius",
	"box-shadow",
	"letter-spacing",
	"padding",
}

var DefaultComputedProperties = []string{
	"color",
	"background-color",
	"font-family",
	"font-size",
	"line-height",
	"border-radius",
	"box-shadow",
	"letter-spacing",
}

var DefaultComputedTargets = []ComputedTarget{
	{Selector: "body"},
	{Selector: "h1"},
	{Selector: "h2"},
	{Selector: "h3"},
	{Selector: "a"},
	{Selector: "button"},
	{Selector: ".btn"},
	{Selector: ".card"},
	{Selector: "input[type=submit]"},
}

// DefaultConfig returns the standard collection settings.
func DefaultConfig() Config {
	return Config{
		GlobalSelectors:    DefaultGlobalSelectors,
		ComponentSelectors: DefaultComponentSelectors,
		BaseProperties:     DefaultBaseProperties,
		ComputedTargets:    DefaultComputedTargets,
		SelectorPriority:   DefaultGlobalSelectors,
		MaxPages:           3,
		Concurrency:        4,
		MaxLogosPerPage:    4,
		MaxColorsPerLogo:   3,
		DerivePaletteUpTo:  6,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if len(c.GlobalSelectors) == 0 {
		c.GlobalSelectors = d.GlobalSelectors
	}
	if len(c.ComponentSelectors) == 0 {
		c.ComponentSelectors = d.ComponentSelectors
	}
	if len(c.BaseProperties) == 0 {
		c.BaseProperties = d.BaseProperties
	}
	if len(c.ComputedTargets) == 0 {
		c.ComputedTargets = d.ComputedTargets
	}
	if len(c.SelectorPriority) == 0 {
		c.SelectorPriority = c.GlobalSelectors
	}
	if c.MaxPages <= 0 {
		c.MaxPages = d.MaxPages
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.MaxLogosPerPage <= 0 {
		c.MaxLogosPerPage = d.MaxLogosPerPage
	}
	if c.MaxColorsPerLogo <= 0 {
		c.MaxColorsPerLogo = d.MaxColorsPerLogo
	}
	if c.DerivePaletteUpTo <= 0 {
		c.DerivePaletteUpTo = d.DerivePaletteUpTo
	}
	return c
}

// HTTPConfig tunes the static-fetch renderer.
type HTTPConfig struct {
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries         uint          `mapstructure:"retries" yaml:"retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	StylesheetCache int           `mapstructure:"stylesheet_cache" yaml:"stylesheet_cache"`
	// IgnoreStylesheets are doublestar patterns matched against the
	// stylesheet URL path (e.g. "**/vendor/**", "**/*.min.css").
	IgnoreStylesheets []string `mapstructure:"ignore_stylesheets" yaml:"ignore_stylesheets"`
}

// DefaultHTTPConfig returns the standard renderer settings.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:         20 * time.Second,
		Retries:         3,
		RetryDelay:      300 * time.Millisecond,
		UserAgent:       "themeforge/1.0 (+https://github.com/gnana997/themeforge)",
		MaxBodyBytes:    8 << 20,
		StylesheetCache: 128,
		IgnoreStylesheets: []string{
			"**/fonts.googleapis.com/**",
			"**/font-awesome*/**",
		},
	}
}
