package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/themeforge/pkg/compiler"
	"github.com/gnana997/themeforge/pkg/extractor"
	"github.com/gnana997/themeforge/pkg/mapper"
	"github.com/gnana997/themeforge/pkg/schema"
)

type compileJSON struct {
	OK       bool           `json:"ok"`
	Warnings []string       `json:"warnings"`
	Errors   []string       `json:"errors"`
	CSS      string         `json:"css,omitempty"`
	Theme    map[string]any `json:"theme,omitempty"`
}

func compileResult(r *compiler.Result, withCSS bool) compileJSON {
	out := compileJSON{OK: r.OK(), Warnings: nonNil(r.Warnings), Errors: nonNil(r.Errors)}
	if withCSS {
		out.CSS = r.CSS
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult turns a fatal pipeline error into a tool error. Schema
// build failures are prefixed so clients can tell them from fetch errors.
func errorResult(err error) *mcp.CallToolResult {
	var be *schema.BuildError
	if errors.As(err, &be) {
		return mcp.NewToolResultError("schema unavailable: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

type extractResponse struct {
	RunID        string                 `json:"runId"`
	URL          string                 `json:"url"`
	Dir          string                 `json:"dir,omitempty"`
	SchemaCached bool                   `json:"schemaCached"`
	Pages        []string               `json:"pages"`
	Findings     int                    `json:"findings"`
	Summary      mapper.Summary         `json:"summary"`
	Unmatched    []string               `json:"unmatched"`
	Theme        map[string]any         `json:"theme"`
	Report       mapper.ThemeReport     `json:"report,omitempty"`
	Compile      compileJSON            `json:"compile"`
	Logos        []extractor.LogoColors `json:"logos,omitempty"`
	Errors       []string               `json:"extractionErrors,omitempty"`
}

func (s *Server) handleExtractTheme(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url is required"), nil
	}
	xreq := extractor.Request{
		URL:      strings.TrimSpace(target),
		MaxPages: req.GetInt("max_pages", 0),
		Scheme:   extractor.Scheme(req.GetString("scheme", "")),
	}
	if xreq.Scheme != "" && xreq.Scheme != extractor.SchemeLight && xreq.Scheme != extractor.SchemeDark {
		return mcp.NewToolResultError(fmt.Sprintf("scheme must be light or dark, got %q", xreq.Scheme)), nil
	}

	run, err := s.pipeline.Run(ctx, xreq)
	if err != nil {
		return errorResult(err), nil
	}
	setRunID(ctx, run.ID)

	pages := make([]string, 0, len(run.Extraction.Pages))
	var logos []extractor.LogoColors
	for _, pg := range run.Extraction.Pages {
		pages = append(pages, pg.URL)
		logos = append(logos, pg.Logos...)
	}
	resp := extractResponse{
		RunID:        run.ID,
		URL:          run.URL,
		Dir:          run.Dir,
		SchemaCached: run.SchemaCached,
		Pages:        pages,
		Findings:     len(run.Extraction.Findings),
		Summary:      run.Mapping.Report.Summary(),
		Unmatched:    nonNil(run.Mapping.Unmatched),
		Theme:        run.Mapping.Theme,
		Compile:      compileResult(run.Compiled, req.GetBool("include_css", false)),
		Logos:        logos,
		Errors:       run.Extraction.Errors,
	}
	if req.GetBool("include_report", false) {
		resp.Report = run.Mapping.Report
	}
	return jsonResult(resp)
}

func (s *Server) handleMapFindings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("findings")
	if err != nil {
		return mcp.NewToolResultError("findings is required"), nil
	}
	var findings []extractor.RawFinding
	if err := json.Unmarshal([]byte(raw), &findings); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("findings must be a JSON array of raw findings: %v", err)), nil
	}

	ts, _, err := s.pipeline.Schema()
	if err != nil {
		return errorResult(err), nil
	}
	res := s.pipeline.Map(ts, findings)
	return jsonResult(map[string]any{
		"theme":     res.Theme,
		"summary":   res.Report.Summary(),
		"unmatched": nonNil(res.Unmatched),
		"report":    res.Report,
	})
}

func (s *Server) handleCompileTheme(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("theme")
	if err != nil {
		return mcp.NewToolResultError("theme is required"), nil
	}
	theme, err := compiler.ParseTheme([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cfg := s.pipeline.Config()
	opts := cfg.Compile
	opts.IncludeLegacyLayer = req.GetBool("include_legacy_layer", opts.IncludeLegacyLayer)
	// Rejected themes come back as data with the normalized theme.
	res := compiler.Compile(compiler.Adapt(theme, cfg.Aliases), opts)
	out := compileResult(res, true)
	out.Theme = res.Theme
	return jsonResult(out)
}

type schemaStatus struct {
	SassRoot   string                  `json:"sassRoot"`
	Cached     bool                    `json:"cached"`
	Tokens     int                     `json:"tokens"`
	Groups     []string                `json:"groups"`
	Categories map[schema.Category]int `json:"categories"`
	Builders   int                     `json:"builders"`
	CachePath  string                  `json:"cachePath"`
	CacheStats schema.CacheStats       `json:"cacheStats"`
}

func (s *Server) handleSchemaStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ts, cached, err := s.pipeline.Schema()
	if err != nil {
		return errorResult(err), nil
	}
	opts, _ := s.pipeline.SchemaOptions()

	groups := make([]string, len(ts.Groups))
	for i, g := range ts.Groups {
		groups[i] = g.Name
	}
	return jsonResult(schemaStatus{
		SassRoot:   ts.SassRoot,
		Cached:     cached,
		Tokens:     len(ts.Tokens),
		Groups:     groups,
		Categories: ts.CountByCategory(),
		Builders:   len(ts.Builders),
		CachePath:  s.pipeline.Schemas().Path(opts),
		CacheStats: s.pipeline.Schemas().Stats(),
	})
}
