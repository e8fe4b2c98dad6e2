// Package mcp exposes the theme pipeline as MCP tools over stdio.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/themeforge/pkg/mcplog"
	"github.com/gnana997/themeforge/pkg/pipeline"
)

const serverVersion = "0.1.0-dev"

// Server implements the themeforge MCP server.
type Server struct {
	mcpServer *server.MCPServer
	pipeline  *pipeline.Pipeline
	callLog   *mcplog.Logger // nil disables the JSONL call log
	logger    *slog.Logger
}

// NewServer creates a server backed by p. callLog may be nil.
func NewServer(p *pipeline.Pipeline, callLog *mcplog.Logger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{pipeline: p, callLog: callLog, logger: logger}

	s.mcpServer = server.NewMCPServer(
		"themeforge",
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(s.loggingMiddleware()),
	)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: extractThemeTool(), Handler: s.handleExtractTheme},
		server.ServerTool{Tool: mapFindingsTool(), Handler: s.handleMapFindings},
		server.ServerTool{Tool: compileThemeTool(), Handler: s.handleCompileTheme},
		server.ServerTool{Tool: schemaStatusTool(), Handler: s.handleSchemaStatus},
	)

	return s
}

// MCPServer exposes the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
