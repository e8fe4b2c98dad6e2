package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gnana997/themeforge/pkg/parser"
)

// Extractor collects evidence from a site through a Renderer and turns it
// into raw findings.
type Extractor struct {
	config        Config
	renderer      Renderer
	parserManager *parser.ParserManager
	logger        *slog.Logger
}

// New creates an extractor. A nil parser manager gets a private one.
func New(cfg Config, renderer Renderer, pm *parser.ParserManager, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if pm == nil {
		pm = parser.NewParserManager(logger)
	}
	return &Extractor{
		config:        cfg.WithDefaults(),
		renderer:      renderer,
		parserManager: pm,
		logger:        logger,
	}
}

// Config returns the effective collection settings.
func (e *Extractor) Config() Config {
	return e.config
}

// Extract renders req.URL and up to MaxPages-1 same-origin pages linked
// from it. Failure to render the first page is fatal and returned as an
// *ExtractionError; failures on additional pages are recorded in
// Result.Errors.
func (e *Extractor) Extract(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if strings.TrimSpace(req.URL) == "" {
		return nil, &ExtractionError{URL: req.URL, Kind: ErrInvalidURL, Err: errors.New("empty URL")}
	}
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = e.config.MaxPages
	}
	scheme := req.Scheme
	if scheme == "" {
		scheme = SchemeLight
	}

	e.logger.Info("extraction started", "url", req.URL, "maxPages", maxPages, "scheme", scheme)

	first, err := e.renderer.Render(ctx, req.URL, scheme)
	if err != nil {
		var xe *ExtractionError
		if errors.As(err, &xe) {
			return nil, xe
		}
		return nil, &ExtractionError{URL: req.URL, Kind: ErrRender, Err: err}
	}

	result := &Result{URL: req.URL}
	pages := []PageResult{e.processPage(ctx, first)}
	result.Stats.Stylesheets += len(first.Stylesheets)

	if extra := pickLinks(first, maxPages-1); len(extra) > 0 {
		more, stylesheets, errs := e.renderMore(ctx, extra, scheme)
		pages = append(pages, more...)
		result.Stats.Stylesheets += stylesheets
		result.Errors = append(result.Errors, errs...)
	}
	for _, p := range pages {
		for _, msg := range p.Errors {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", p.URL, msg))
		}
		result.Stats.Declarations += len(p.GlobalDeclarations) + len(p.ComponentDeclarations)
	}

	result.Pages = pages
	result.Findings = BuildRawFindings(pages, e.config)
	result.Stats.Pages = len(pages)
	result.Stats.Findings = len(result.Findings)
	result.Stats.DurationMs = time.Since(start).Milliseconds()

	e.logger.Info("extraction complete",
		"url", req.URL,
		"pages", result.Stats.Pages,
		"stylesheets", result.Stats.Stylesheets,
		"declarations", result.Stats.Declarations,
		"findings", result.Stats.Findings,
		"errors", len(result.Errors),
		"ms", result.Stats.DurationMs)
	return result, nil
}

// renderMore renders the extra pages concurrently. Results keep link
// order regardless of completion order.
func (e *Extractor) renderMore(ctx context.Context, links []string, scheme Scheme) ([]PageResult, int, []string) {
	results := make([]*PageResult, len(links))
	sheets := make([]int, len(links))
	var (
		mu   sync.Mutex
		errs = make([]string, len(links))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Concurrency)
	for i, link := range links {
		g.Go(func() error {
			snap, err := e.renderer.Render(gctx, link, scheme)
			if err != nil {
				e.logger.Warn("page render failed", "url", link, "error", err)
				mu.Lock()
				errs[i] = fmt.Sprintf("%s: %v", link, err)
				mu.Unlock()
				return nil
			}
			pr := e.processPage(gctx, snap)
			results[i] = &pr
			sheets[i] = len(snap.Stylesheets)
			return nil
		})
	}
	_ = g.Wait()

	var (
		out    []PageResult
		total  int
		errOut []string
	)
	for i := range links {
		if results[i] != nil {
			out = append(out, *results[i])
			total += sheets[i]
		}
		if errs[i] != "" {
			errOut = append(errOut, errs[i])
		}
	}
	return out, total, errOut
}

// pickLinks returns up to n distinct same-origin links other than the page
// itself.
func pickLinks(snap *PageSnapshot, n int) []string {
	if n <= 0 {
		return nil
	}
	self := strings.TrimSuffix(snap.URL, "/")
	seen := map[string]bool{self: true}
	var out []string
	for _, l := range snap.Links {
		key := strings.TrimSuffix(l, "/")
		if seen[key] || strings.HasPrefix(l, "mailto:") || strings.HasPrefix(l, "tel:") {
			continue
		}
		seen[key] = true
		out = append(out, l)
		if len(out) == n {
			break
		}
	}
	return out
}

// processPage parses every stylesheet and script on a snapshot and samples
// its logos. Unparseable resources are recorded as page errors.
func (e *Extractor) processPage(ctx context.Context, snap *PageSnapshot) PageResult {
	pr := PageResult{
		URL:      snap.URL,
		Computed: snap.Computed,
		Errors:   append([]string(nil), snap.Errors...),
	}

	for _, sheet := range snap.Stylesheets {
		if ctx.Err() != nil {
			pr.Errors = append(pr.Errors, ctx.Err().Error())
			return pr
		}
		rules, err := e.parseStylesheet([]byte(sheet.Text))
		if err != nil {
			pr.Errors = append(pr.Errors, fmt.Sprintf("stylesheet %s: %v", sheetName(sheet), err))
			continue
		}
		global, component := e.collectDeclarations(rules, sheet.Href)
		pr.GlobalDeclarations = append(pr.GlobalDeclarations, global...)
		pr.ComponentDeclarations = append(pr.ComponentDeclarations, component...)
	}

	for _, logo := range snap.Logos {
		if len(pr.Logos) >= e.config.MaxLogosPerPage {
			break
		}
		colors, err := logoColors(logo, e.config.MaxColorsPerLogo)
		if err != nil {
			pr.Errors = append(pr.Errors, fmt.Sprintf("logo %s: %v", logo.Source, err))
			continue
		}
		if len(colors) == 0 {
			continue
		}
		pr.Logos = append(pr.Logos, LogoColors{Source: logo.Source, Method: logo.Method, Colors: colors, Alt: logo.Alt})
	}

	for _, body := range snap.Scripts {
		hints, err := e.scanScript([]byte(body))
		if err != nil {
			e.logger.Debug("script skipped", "url", snap.URL, "error", err)
			continue
		}
		pr.Hints = append(pr.Hints, hints...)
	}

	e.logger.Debug("page processed",
		"url", snap.URL,
		"global", len(pr.GlobalDeclarations),
		"component", len(pr.ComponentDeclarations),
		"computed", len(pr.Computed),
		"logos", len(pr.Logos),
		"hints", len(pr.Hints))
	return pr
}

func sheetName(s Stylesheet) string {
	if s.Href == "" {
		return "<inline>"
	}
	return s.Href
}
