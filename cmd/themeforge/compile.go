package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnana997/themeforge/pkg/compiler"
)

var (
	compileOut     string
	compileLegacy  bool
	compileNoFocus bool
)

var compileCmd = &cobra.Command{
	Use:   "compile <theme.json|->",
	Short: "Compile a theme JSON document to widget CSS",
	Long: `Validate a theme (a bare theme object, or a mapper result with the theme
under "theme") and compile it. Warnings go to stderr; missing core tokens
fail the command and no CSS is written.

Examples:
  themeforge compile themeforge-out/run-.../theme.json -o theme.css
  cat theme.json | themeforge compile - --legacy`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		theme, err := compiler.ParseTheme(data)
		if err != nil {
			return err
		}

		opts := cfg.CompileOptions()
		opts.Logger = logger
		if cmd.Flags().Changed("legacy") {
			opts.IncludeLegacyLayer = compileLegacy
		}
		if compileNoFocus {
			opts.IncludeFocusStyles = false
		}

		res := compiler.Compile(compiler.Adapt(theme, cfg.Pipeline.Aliases), opts)
		for _, w := range res.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
		}
		if !res.OK() {
			return fmt.Errorf("compile failed: %s", strings.Join(res.Errors, "; "))
		}

		if compileOut == "" || compileOut == "-" {
			_, err := io.WriteString(cmd.OutOrStdout(), res.CSS)
			return err
		}
		return os.WriteFile(compileOut, []byte(res.CSS), 0o644)
	},
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read theme: %w", err)
	}
	return data, nil
}

func init() {
	compileCmd.Flags().StringVarP(&compileOut, "out", "o", "", "CSS output file (default stdout)")
	compileCmd.Flags().BoolVar(&compileLegacy, "legacy", false, "append the legacy compatibility overlay")
	compileCmd.Flags().BoolVar(&compileNoFocus, "no-focus", false, "omit focus-visible styles")

	rootCmd.AddCommand(compileCmd)
}
