// Package config loads themeforge settings from defaults, an optional
// YAML file, a .env file and THEMEFORGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gnana997/themeforge/pkg/compiler"
	"github.com/gnana997/themeforge/pkg/extractor"
	"github.com/gnana997/themeforge/pkg/pipeline"
	"github.com/gnana997/themeforge/pkg/schema"
	"github.com/gnana997/themeforge/pkg/util"
)

// EnvPrefix prefixes every environment override, with dots in the key
// replaced by underscores: THEMEFORGE_PIPELINE_OUT_DIR.
const EnvPrefix = "THEMEFORGE"

// FileName is the config file looked up in . and $HOME/.themeforge.
const FileName = "themeforge"

type Config struct {
	Log       LogConfig            `mapstructure:"log" yaml:"log"`
	Extractor extractor.Config     `mapstructure:"extractor" yaml:"extractor"`
	HTTP      extractor.HTTPConfig `mapstructure:"http" yaml:"http"`
	Schema    SchemaConfig         `mapstructure:"schema" yaml:"schema"`
	Pipeline  PipelineConfig       `mapstructure:"pipeline" yaml:"pipeline"`
	Compile   CompileConfig        `mapstructure:"compile" yaml:"compile"`
	MCP       MCPConfig            `mapstructure:"mcp" yaml:"mcp"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	// File switches logging to a rotating file.
	File string `mapstructure:"file" yaml:"file"`
}

// SchemaConfig locates the SCSS schema source. An empty sass_root uses the
// bundled Pulse source.
type SchemaConfig struct {
	SassRoot      string        `mapstructure:"sass_root" yaml:"sass_root"`
	MapFile       string        `mapstructure:"map_file" yaml:"map_file"`
	VariablesFile string        `mapstructure:"variables_file" yaml:"variables_file"`
	StructureFile string        `mapstructure:"structure_file" yaml:"structure_file"`
	CacheDir      string        `mapstructure:"cache_dir" yaml:"cache_dir"`
	MemoryEntries int           `mapstructure:"memory_entries" yaml:"memory_entries"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce" yaml:"watch_debounce"`
}

type PipelineConfig struct {
	OutDir     string        `mapstructure:"out_dir" yaml:"out_dir"`
	Workers    int           `mapstructure:"workers" yaml:"workers"`
	JobTimeout time.Duration `mapstructure:"job_timeout" yaml:"job_timeout"`
	// Aliases rename mapped theme paths before compilation. Empty uses the
	// built-in alias table.
	Aliases map[string]string `mapstructure:"aliases" yaml:"aliases,omitempty"`
	// Palette overrides the legacy token colors.
	Palette PaletteConfig `mapstructure:"palette" yaml:"palette"`
}

type PaletteConfig struct {
	Primary    string `mapstructure:"primary" yaml:"primary"`
	Secondary  string `mapstructure:"secondary" yaml:"secondary"`
	Background string `mapstructure:"background" yaml:"background"`
	Text       string `mapstructure:"text" yaml:"text"`
}

type CompileConfig struct {
	IncludeLegacyLayer     bool `mapstructure:"include_legacy_layer" yaml:"include_legacy_layer"`
	IncludeFocusStyles     bool `mapstructure:"include_focus_styles" yaml:"include_focus_styles"`
	IncludeSliderStyles    bool `mapstructure:"include_slider_styles" yaml:"include_slider_styles"`
	IncludeAllAtOnceStyles bool `mapstructure:"include_all_at_once_styles" yaml:"include_all_at_once_styles"`
	IncludeAnswerLayout    bool `mapstructure:"include_answer_layout" yaml:"include_answer_layout"`
}

type MCPConfig struct {
	// CallLog receives one JSONL line per tool call. Empty disables it.
	CallLog string `mapstructure:"call_log" yaml:"call_log"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	opts := compiler.DefaultOptions()
	return Config{
		Log:       LogConfig{Level: string(util.LevelInfo), Format: string(util.FormatText)},
		Extractor: extractor.DefaultConfig(),
		HTTP:      extractor.DefaultHTTPConfig(),
		Schema: SchemaConfig{
			CacheDir:      schema.DefaultCacheDir(),
			MemoryEntries: 16,
			WatchDebounce: 200 * time.Millisecond,
		},
		Pipeline: PipelineConfig{
			OutDir:     "themeforge-out",
			JobTimeout: 2 * time.Minute,
		},
		Compile: CompileConfig{
			IncludeLegacyLayer:     opts.IncludeLegacyLayer,
			IncludeFocusStyles:     opts.IncludeFocusStyles,
			IncludeSliderStyles:    opts.IncludeSliderStyles,
			IncludeAllAtOnceStyles: opts.IncludeAllAtOnceStyles,
			IncludeAnswerLayout:    opts.IncludeAnswerLayout,
		},
	}
}

// Load resolves the configuration. cfgFile names an explicit file; when
// empty, themeforge.yaml is looked up in . and $HOME/.themeforge and its
// absence is not an error. A .env file in the working directory is loaded
// first so its values act as environment overrides.
func Load(cfgFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if err := setDefaults(v, DefaultConfig()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.themeforge")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every leaf of d so that AutomaticEnv can override
// nested keys individually.
func setDefaults(v *viper.Viper, d Config) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to decode defaults: %w", err)
	}
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, val := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := val.(map[string]any); ok && len(sub) > 0 {
				walk(key, sub)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", tree)
	return nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	var errs []error
	switch util.LogLevel(c.Log.Level) {
	case util.LevelDebug, util.LevelInfo, util.LevelWarn, util.LevelError:
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch util.LogFormat(c.Log.Format) {
	case util.FormatJSON, util.FormatText:
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if c.Pipeline.Workers < 0 {
		errs = append(errs, fmt.Errorf("pipeline.workers: must not be negative"))
	}
	if c.Pipeline.JobTimeout < 0 {
		errs = append(errs, fmt.Errorf("pipeline.job_timeout: must not be negative"))
	}
	if c.HTTP.Timeout < 0 {
		errs = append(errs, fmt.Errorf("http.timeout: must not be negative"))
	}
	return errors.Join(errs...)
}

// LoggerConfig converts the log section. Output goes to stderr unless a
// file is configured.
func (c *Config) LoggerConfig() util.LoggerConfig {
	lc := util.DefaultLoggerConfig()
	lc.Level = util.ParseLevel(c.Log.Level)
	lc.Format = util.LogFormat(c.Log.Format)
	lc.File = c.Log.File
	return lc
}

// SchemaOptions converts the schema section.
func (c *Config) SchemaOptions() schema.Options {
	return schema.Options{
		SassRoot:      c.Schema.SassRoot,
		MapFile:       c.Schema.MapFile,
		VariablesFile: c.Schema.VariablesFile,
		StructureFile: c.Schema.StructureFile,
	}
}

func (c *Config) CompileOptions() compiler.Options {
	return compiler.Options{
		IncludeLegacyLayer:     c.Compile.IncludeLegacyLayer,
		IncludeFocusStyles:     c.Compile.IncludeFocusStyles,
		IncludeSliderStyles:    c.Compile.IncludeSliderStyles,
		IncludeAllAtOnceStyles: c.Compile.IncludeAllAtOnceStyles,
		IncludeAnswerLayout:    c.Compile.IncludeAnswerLayout,
	}
}

// PipelineConfig converts the sections a pipeline.Pipeline needs.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Schema:  c.SchemaOptions(),
		OutDir:  c.Pipeline.OutDir,
		Aliases: c.Pipeline.Aliases,
		Compile: c.CompileOptions(),
		Palette: compiler.Palette{
			Primary:    c.Pipeline.Palette.Primary,
			Secondary:  c.Pipeline.Palette.Secondary,
			Background: c.Pipeline.Palette.Background,
			Text:       c.Pipeline.Palette.Text,
		},
	}
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# themeforge configuration
# Every key can be overridden with THEMEFORGE_<SECTION>_<KEY>, e.g.
# THEMEFORGE_PIPELINE_OUT_DIR=/tmp/themes or THEMEFORGE_LOG_LEVEL=debug.
# Leave schema.sass_root empty to use the bundled Pulse schema source.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
