package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gnana997/themeforge/pkg/extractor"
	"github.com/gnana997/themeforge/pkg/pipeline"
)

var (
	extractOut      string
	extractNoWrite  bool
	extractMaxPages int
	extractScheme   string
	extractWorkers  int
	extractJSON     bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <url|path>...",
	Short: "Extract, map and compile a theme for one or more sites",
	Long: `Run the full pipeline for each target. Targets may be http(s) URLs or local
HTML files, CSS files or directories of a saved site. Several targets are
processed concurrently; each gets its own run directory with theme.json,
theme.report.json, raw-findings.json, legacy-tokens.json and, when
compilation succeeds, theme.css.

Examples:
  themeforge extract https://example.com
  themeforge extract --scheme dark --max-pages 1 https://example.com
  themeforge extract --workers 4 https://a.example https://b.example ./saved-site`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if extractScheme != "" && extractScheme != string(extractor.SchemeLight) && extractScheme != string(extractor.SchemeDark) {
			return fmt.Errorf("--scheme must be light or dark, got %q", extractScheme)
		}

		pc := cfg.PipelineConfig()
		if cmd.Flags().Changed("out") {
			pc.OutDir = extractOut
		}
		if extractNoWrite {
			pc.OutDir = ""
		}
		a, err := newApp(pc)
		if err != nil {
			return err
		}
		defer a.Close()

		reqs := make([]extractor.Request, len(args))
		for i, target := range args {
			reqs[i] = extractor.Request{URL: target, MaxPages: extractMaxPages, Scheme: extractor.Scheme(extractScheme)}
		}
		workers := extractWorkers
		if workers <= 0 {
			workers = cfg.Pipeline.Workers
		}
		if workers <= 0 {
			workers = min(len(reqs), 4)
		}

		results, errs := pipeline.RunBatch(cmd.Context(), a.pipeline, reqs, workers, cfg.Pipeline.JobTimeout, logger)

		out := cmd.OutOrStdout()
		if extractJSON {
			if err := writeRunsJSON(out, results); err != nil {
				return err
			}
		} else {
			for i, r := range results {
				if i > 0 {
					fmt.Fprintln(out)
				}
				report := pipeline.NewReport(r.Run)
				printReport(out, &report, false)
				if r.Run.Dir != "" {
					fmt.Fprintf(out, "\nWrote %s\n", r.Run.Dir)
				}
			}
		}
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", e.Job.Request.URL, e.Err)
		}
		if len(errs) > 0 {
			return fmt.Errorf("%d of %d targets failed", len(errs), len(reqs))
		}
		return nil
	},
}

type runJSON struct {
	pipeline.Report
	Dir string `json:"dir,omitempty"`
}

func writeRunsJSON(w io.Writer, results []pipeline.JobResult) error {
	runs := make([]runJSON, len(results))
	for i, r := range results {
		runs[i] = runJSON{Report: pipeline.NewReport(r.Run), Dir: r.Run.Dir}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(runs)
}

func init() {
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "", "output directory (default from config pipeline.out_dir)")
	extractCmd.Flags().BoolVar(&extractNoWrite, "no-write", false, "do not write run artifacts")
	extractCmd.Flags().IntVar(&extractMaxPages, "max-pages", 0, "pages per site, including the first (default from config)")
	extractCmd.Flags().StringVar(&extractScheme, "scheme", "", "preferred color scheme: light or dark")
	extractCmd.Flags().IntVarP(&extractWorkers, "workers", "w", 0, "concurrent targets (default from config, else up to 4)")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print run reports as JSON")

	rootCmd.AddCommand(extractCmd)
}
