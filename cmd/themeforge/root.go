package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gnana997/themeforge/pkg/config"
	"github.com/gnana997/themeforge/pkg/extractor"
	"github.com/gnana997/themeforge/pkg/parser"
	"github.com/gnana997/themeforge/pkg/pipeline"
	"github.com/gnana997/themeforge/pkg/schema"
	"github.com/gnana997/themeforge/pkg/util"
)

var (
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "themeforge",
	Short: "Extract a site's design tokens and compile them into survey widget CSS",
	Long: `themeforge derives a theme for the Pulse survey widget from an existing site.

The pipeline:
  - builds the token schema from the widget's SCSS sources (cached)
  - extracts colors, fonts, radii and shadows from the site's CSS and logos
  - maps the evidence onto the schema with per-token confidence
  - compiles the theme into scoped CSS custom properties and widget rules`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = string(util.ParseLevel(logLevel))
		}
		cfg = c
		logger = util.NewLogger(c.LoggerConfig())
		util.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./themeforge.yaml or ~/.themeforge/themeforge.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn or error",
	)
}

// app holds the long-lived components a command needs.
type app struct {
	pipeline *pipeline.Pipeline
	schemas  *schema.Cache
	parsers  *parser.ParserManager
}

func newApp(pc pipeline.Config) (*app, error) {
	pm := parser.NewParserManager(logger)
	remote, err := extractor.NewHTTPRenderer(cfg.HTTP, cfg.Extractor, nil, logger)
	if err != nil {
		_ = pm.Close()
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	renderer := extractor.RoutingRenderer{
		Remote: remote,
		Local:  extractor.NewLocalRenderer(cfg.Extractor, nil, logger),
	}
	cache := schema.NewCache(&schema.CacheConfig{
		Dir:           cfg.Schema.CacheDir,
		MemoryEntries: cfg.Schema.MemoryEntries,
		Logger:        logger,
	})
	ext := extractor.New(cfg.Extractor, renderer, pm, logger)
	return &app{
		pipeline: pipeline.New(ext, cache, pc, logger),
		schemas:  cache,
		parsers:  pm,
	}, nil
}

// Close flushes pending cache writes and releases parsers.
func (a *app) Close() {
	a.schemas.Wait()
	if err := a.parsers.Close(); err != nil {
		logger.Warn("close parsers", "error", err)
	}
}
