package main

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/gnana997/themeforge/pkg/mcp"
	"github.com/gnana997/themeforge/pkg/mcplog"
)

var serveCallLog string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Serve the extract_theme, map_findings, compile_theme and schema_status
tools over the Model Context Protocol on stdin/stdout. Logs go to stderr
or to log.file; stdout carries only protocol messages.

Examples:
  themeforge serve
  themeforge serve --call-log ~/.themeforge/calls.jsonl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.MCP.CallLog
		if cmd.Flags().Changed("call-log") {
			path = serveCallLog
		}
		callLog, err := mcplog.NewLogger(path)
		if err != nil {
			return err
		}
		if callLog != nil {
			defer callLog.Close()
		}

		a, err := newApp(cfg.PipelineConfig())
		if err != nil {
			return err
		}
		defer a.Close()

		logger.Info("starting MCP server", "call_log", path)
		return mcpserver.NewServer(a.pipeline, callLog, logger).ServeStdio()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveCallLog, "call-log", "", "JSONL file recording every tool call (default from config mcp.call_log)")
	rootCmd.AddCommand(serveCmd)
}
