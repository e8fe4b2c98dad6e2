package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnana997/themeforge/pkg/schema"
)

var (
	schemaRoot    string
	schemaRebuild bool
	schemaDump    bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Build or inspect the token schema",
	Long: `Build the token schema from the SCSS sources (or load it from the cache) and
print a summary. Without --sass-root the bundled Pulse sources are used.

Examples:
  themeforge schema
  themeforge schema --sass-root ./pulse/scss --rebuild
  themeforge schema --dump > schema.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pc := cfg.PipelineConfig()
		if schemaRoot != "" {
			pc.Schema.SassRoot = schemaRoot
		}
		a, err := newApp(pc)
		if err != nil {
			return err
		}
		defer a.Close()

		opts, err := a.pipeline.SchemaOptions()
		if err != nil {
			return err
		}
		if schemaRebuild {
			if err := a.schemas.Invalidate(opts); err != nil {
				return err
			}
		}
		ts, cached, err := a.pipeline.Schema()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if schemaDump {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(ts)
		}

		source := "built"
		if cached {
			source = "cached"
		}
		fmt.Fprintf(out, "%s  [%s]\n", ts.SassRoot, source)
		fmt.Fprintf(out, "  cache %s\n", a.schemas.Path(opts))
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Tokens  %d in %d groups\n", len(ts.Tokens), len(ts.Groups))
		counts := ts.CountByCategory()
		for _, c := range schema.Categories() {
			if n := counts[c]; n > 0 {
				fmt.Fprintf(out, "  %-8s %4d\n", c, n)
			}
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Groups")
		for _, g := range ts.Groups {
			fmt.Fprintf(out, "  %-16s %4d\n", g.Name, len(g.TokenIDs))
		}
		if len(ts.Builders) > 0 {
			fmt.Fprintf(out, "\nBuilders  %d\n", len(ts.Builders))
		}
		return nil
	},
}

func init() {
	schemaCmd.Flags().StringVar(&schemaRoot, "sass-root", "", "SCSS source directory (default from config, else bundled)")
	schemaCmd.Flags().BoolVar(&schemaRebuild, "rebuild", false, "drop the cached schema before loading")
	schemaCmd.Flags().BoolVar(&schemaDump, "dump", false, "print the full schema as JSON")

	rootCmd.AddCommand(schemaCmd)
}
