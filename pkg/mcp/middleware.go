package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/themeforge/pkg/mcplog"
)

type callInfoKey struct{}

// callInfo carries per-call details from a handler back to the middleware.
type callInfo struct {
	runID string
}

func setRunID(ctx context.Context, id string) {
	if ci, ok := ctx.Value(callInfoKey{}).(*callInfo); ok {
		ci.runID = id
	}
}

// loggingMiddleware logs every tool call through slog and, when a call log
// is configured, appends a JSONL entry.
func (s *Server) loggingMiddleware() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			info := &callInfo{}
			ctx = context.WithValue(ctx, callInfoKey{}, info)
			args := req.GetArguments()

			start := mcplog.Now()
			result, err := next(ctx, req)
			elapsed := time.Since(start).Milliseconds()

			toolErr := result != nil && result.IsError
			s.logger.Debug("tool call",
				"tool", req.Params.Name,
				"params", mcplog.ParamKeys(args),
				"duration_ms", elapsed,
				"tool_error", toolErr,
				"error", err)

			if s.callLog == nil {
				return result, err
			}
			var errStr *string
			if err != nil {
				msg := err.Error()
				errStr = &msg
			}
			_ = s.callLog.Write(mcplog.LogEntry{
				Ts:            start.UTC().Format(time.RFC3339),
				Tool:          req.Params.Name,
				Params:        mcplog.SanitizeParams(args),
				DurationMs:    elapsed,
				ResponseBytes: mcplog.ResponseBytes(result),
				ToolError:     toolErr,
				RunID:         info.runID,
				Error:         errStr,
			})
			return result, err
		}
	}
}
