package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnana997/themeforge/pkg/schema"
)

var watchRoot string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the token schema whenever its SCSS sources change",
	Long: `Watch the schema's three SCSS artifacts and rebuild (and re-cache) the
schema after each burst of changes. Runs until interrupted.

Examples:
  themeforge watch --sass-root ./pulse/scss`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pc := cfg.PipelineConfig()
		if watchRoot != "" {
			pc.Schema.SassRoot = watchRoot
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
		if _, _, err := a.pipeline.Schema(); err != nil {
			logger.Warn("initial schema build failed", "error", err)
		}

		w, err := schema.NewWatcher(a.schemas, opts, schema.WatchOptions{Debounce: cfg.Schema.WatchDebounce}, logger)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		err = w.Start(func(ts *schema.TokenSchema, err error) {
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "rebuild failed: %v\n", err)
				return
			}
			fmt.Fprintf(out, "schema rebuilt: %d tokens in %d groups\n", len(ts.Tokens), len(ts.Groups))
		})
		if err != nil {
			return err
		}
		defer w.Stop()

		fmt.Fprintf(out, "watching %s (Ctrl+C to stop)\n", opts.Resolved().SassRoot)
		<-cmd.Context().Done()
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchRoot, "sass-root", "", "SCSS source directory (default from config, else bundled)")
	rootCmd.AddCommand(watchCmd)
}
