// Package pipeline runs the full theme flow for one target: build (or
// load) the token schema, extract evidence, map it onto the schema,
// compile CSS and persist the run's artifacts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gnana997/themeforge/catalogs"
	"github.com/gnana997/themeforge/pkg/compiler"
	"github.com/gnana997/themeforge/pkg/extractor"
	"github.com/gnana997/themeforge/pkg/mapper"
	"github.com/gnana997/themeforge/pkg/schema"
)

// Config wires a Pipeline.
type Config struct {
	// Schema selects the token schema source. An empty SassRoot uses the
	// bundled Pulse source, materialized under the cache directory.
	Schema schema.Options
	// OutDir receives one run-* directory per run. Empty disables output.
	OutDir string
	// Aliases rename mapped theme paths onto compiler registry paths.
	// Empty uses compiler.DefaultAliases.
	Aliases map[string]string
	Compile compiler.Options
	Palette compiler.Palette
}

// Pipeline is safe for concurrent Run calls.
type Pipeline struct {
	extractor *extractor.Extractor
	schemas   *schema.Cache
	config    Config
	logger    *slog.Logger

	sourceOnce sync.Once
	sourceErr  error
}

// New creates a pipeline. A nil cache gets a default one.
func New(ext *extractor.Extractor, schemas *schema.Cache, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if schemas == nil {
		schemas = schema.NewCache(&schema.CacheConfig{Logger: logger})
	}
	if cfg.Compile.Logger == nil {
		cfg.Compile.Logger = logger
	}
	return &Pipeline{extractor: ext, schemas: schemas, config: cfg, logger: logger}
}

// Config returns the pipeline settings.
func (p *Pipeline) Config() Config {
	return p.config
}

// SchemaOptions resolves the schema source, materializing the bundled one
// when no root is configured.
func (p *Pipeline) SchemaOptions() (schema.Options, error) {
	opts := p.config.Schema
	if opts.Logger == nil {
		opts.Logger = p.logger
	}
	if opts.SassRoot != "" {
		return opts, nil
	}
	root := filepath.Join(filepath.Dir(p.schemas.Dir()), "pulse-source")
	p.sourceOnce.Do(func() {
		if _, err := os.Stat(filepath.Join(root, schema.DefaultStructureFile)); err == nil {
			return
		}
		p.sourceErr = catalogs.MaterializePulse(root)
	})
	if p.sourceErr != nil {
		return opts, fmt.Errorf("materialize bundled schema source: %w", p.sourceErr)
	}
	opts.SassRoot = root
	return opts, nil
}

// Schema returns the token schema and whether it came from the cache.
func (p *Pipeline) Schema() (*schema.TokenSchema, bool, error) {
	opts, err := p.SchemaOptions()
	if err != nil {
		return nil, false, err
	}
	return p.schemas.BuildWithCache(opts)
}

// Schemas exposes the schema cache.
func (p *Pipeline) Schemas() *schema.Cache {
	return p.schemas
}

// Map maps findings onto s, treating the extractor's global selectors as
// page-wide evidence.
func (p *Pipeline) Map(s *schema.TokenSchema, findings []extractor.RawFinding) *mapper.Result {
	return mapper.Map(s, findings, mapper.Options{
		PreferredSelectors: p.extractor.Config().GlobalSelectors,
		Logger:             p.logger,
	})
}

// Run is the outcome of one pipeline invocation.
type Run struct {
	ID           string
	Dir          string
	URL          string
	SchemaCached bool
	Extraction   *extractor.Result
	Mapping      *mapper.Result
	Legacy       map[string]any
	Compiled     *compiler.Result
	Duration     time.Duration
}

// Run executes the pipeline for req. Schema and extraction failures are
// returned as errors; compile problems are reported in Run.Compiled.
func (p *Pipeline) Run(ctx context.Context, req extractor.Request) (*Run, error) {
	start := time.Now()

	s, cached, err := p.Schema()
	if err != nil {
		return nil, err
	}

	ext, err := p.extractor.Extract(ctx, req)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:           newRunID(start),
		URL:          req.URL,
		SchemaCached: cached,
		Extraction:   ext,
	}
	run.Mapping = p.Map(s, ext.Findings)
	run.Legacy = compiler.BuildLegacyTokens(ext.Findings, p.config.Palette)
	// Fallback values are left to the compiler so derived tokens follow
	// the extracted palette.
	run.Compiled = compiler.Compile(compiler.Adapt(run.Mapping.EvidenceTheme(s), p.config.Aliases), p.config.Compile)
	run.Duration = time.Since(start)

	if p.config.OutDir != "" {
		dir, err := writeRun(p.config.OutDir, run)
		if err != nil {
			return run, fmt.Errorf("write run outputs: %w", err)
		}
		run.Dir = dir
	}

	p.logger.Info("pipeline run complete",
		"run", run.ID,
		"url", req.URL,
		"findings", len(ext.Findings),
		"unmatched", len(run.Mapping.Unmatched),
		"compiled", run.Compiled.OK(),
		"duration_ms", run.Duration.Milliseconds())
	return run, nil
}
