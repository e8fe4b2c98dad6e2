package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnana997/themeforge/pkg/mapper"
	"github.com/gnana997/themeforge/pkg/pipeline"
)

const maxWidth = 80

var inspectAll bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <run-dir>",
	Short: "Print the report of a previous run",
	Long: `Print the mapping summary, low-confidence tokens and compile diagnostics
recorded in a run directory's theme.report.json.

Examples:
  themeforge inspect themeforge-out/run-20250101T120000Z-1a2b3c4d
  themeforge inspect --all themeforge-out/run-...   # list every token`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := pipeline.ReadReport(args[0])
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report, inspectAll)
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectAll, "all", false, "list every token, not only low-confidence ones")
	rootCmd.AddCommand(inspectCmd)
}

// printReport renders a run report for humans.
func printReport(w io.Writer, r *pipeline.Report, all bool) {
	status := "ok"
	if !r.Compile.OK {
		status = "FAILED"
	}
	fmt.Fprintf(w, "%s  [%s]\n", r.URL, status)
	fmt.Fprintf(w, "  run %s\n", r.RunID)

	s := r.Summary
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Confidence")
	fmt.Fprintf(w, "  %-8s %4d\n", "high", s.High)
	fmt.Fprintf(w, "  %-8s %4d\n", "medium", s.Medium)
	fmt.Fprintf(w, "  %-8s %4d  (%d fallback)\n", "low", s.Low, s.Fallback)
	fmt.Fprintf(w, "  %-8s %4d\n", "total", s.Total)

	fmt.Fprintln(w)
	title := "Tokens below medium confidence"
	if all {
		title = "Tokens"
	}
	printTokenTable(w, title, pickTokens(r.Tokens, all))

	fmt.Fprintln(w)
	printList(w, "Compile errors", r.Compile.Errors)
	fmt.Fprintln(w)
	printList(w, "Compile warnings", r.Compile.Warnings)
	if len(r.Errors) > 0 {
		fmt.Fprintln(w)
		printList(w, "Extraction errors", r.Errors)
	}
}

// pickTokens returns evidence-backed tokens under the medium band, or
// every token when all is set, ordered by id. Fallbacks are listed
// separately by the Confidence block.
func pickTokens(report mapper.ThemeReport, all bool) []mapper.TokenMapping {
	var out []mapper.TokenMapping
	for _, m := range report {
		if all || (m.MatchType != mapper.MatchFallback && m.Confidence < mapper.MediumConfidence) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// printTokenTable renders mappings with dynamic column widths.
func printTokenTable(w io.Writer, title string, rows []mapper.TokenMapping) {
	if len(rows) == 0 {
		fmt.Fprintf(w, "%s  (none)\n", title)
		return
	}
	fmt.Fprintln(w, title)

	idW, valW := len("TOKEN"), len("VALUE")
	for _, m := range rows {
		idW = max(idW, len(m.ID))
		valW = max(valW, len(display(m.Value)))
	}
	valW = min(valW, 28)

	fmt.Fprintf(w, "  %-*s  %-*s  %-4s  %s\n", idW, "TOKEN", valW, "VALUE", "CONF", "MATCH")
	fmt.Fprintf(w, "  %s\n", strings.Repeat("─", min(idW+valW+20, maxWidth-2)))
	for _, m := range rows {
		fmt.Fprintf(w, "  %-*s  %-*s  %.2f  %s\n", idW, m.ID, valW, truncate(display(m.Value), valW), m.Confidence, m.MatchType)
		note := m.FallbackReason
		if note == "" {
			note = m.Notes
		}
		if note != "" {
			printWrapped(w, note, idW+4, maxWidth)
		}
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(w, "%s  (none)\n", title)
		return
	}
	fmt.Fprintln(w, title)
	for _, it := range items {
		printWrapped(w, "- "+it, 2, maxWidth)
	}
}

func display(v string) string {
	if v == "" {
		return "—"
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n || n < 2 {
		return s
	}
	return s[:n-1] + "…"
}

// printWrapped prints text word-wrapped at width with the given left indent.
func printWrapped(w io.Writer, text string, indent, width int) {
	words := strings.Fields(text)
	prefix := strings.Repeat(" ", indent)
	line := prefix
	for _, word := range words {
		if len(line)+len(word)+1 > width && line != prefix {
			fmt.Fprintln(w, line)
			line = prefix + word
		} else if line == prefix {
			line += word
		} else {
			line += " " + word
		}
	}
	if line != prefix {
		fmt.Fprintln(w, line)
	}
}
