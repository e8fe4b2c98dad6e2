// Package mcplog records MCP tool calls as JSONL, one line per call.
package mcplog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogEntry is one JSONL line.
type LogEntry struct {
	Ts            string         `json:"ts"`
	Tool          string         `json:"tool"`
	Params        map[string]any `json:"params"`
	DurationMs    int64          `json:"duration_ms"`
	ResponseBytes int            `json:"response_bytes"`
	// ToolError is set when the tool answered with an error result, as
	// opposed to Error, which is a protocol-level failure.
	ToolError bool    `json:"tool_error,omitempty"`
	RunID     string  `json:"run_id,omitempty"`
	Error     *string `json:"error"`
}

// Rotation limits for the call log.
const (
	maxSizeMB  = 10
	maxBackups = 5
)

// Logger appends entries to a size-rotated file. Safe for concurrent use.
type Logger struct {
	mu  sync.Mutex
	out *lumberjack.Logger
	enc *json.Encoder
}

// NewLogger opens the call log at path, creating parent directories.
// An empty path returns nil, nil; callers treat a nil Logger as disabled.
func NewLogger(path string) (*Logger, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mcplog: create log directory: %w", err)
	}
	out := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
	return &Logger{out: out, enc: json.NewEncoder(out)}, nil
}

// Write appends one entry. Callers ignore the error so logging never
// changes a tool result.
func (l *Logger) Write(entry LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(entry)
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Close()
}

// shortStringMax is the longest string parameter logged verbatim.
const shortStringMax = 64

// SanitizeParams copies args for logging. Long strings, such as inline
// theme or findings JSON, are replaced by a "<key>_len" entry.
func SanitizeParams(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok && len(s) > shortStringMax {
			out[k+"_len"] = len(s)
		} else {
			out[k] = v
		}
	}
	return out
}

// ParamKeys returns the sorted argument names.
func ParamKeys(args map[string]any) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResponseBytes is the encoded size of a result's content, 0 for nil.
func ResponseBytes(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	b, err := json.Marshal(result.Content)
	if err != nil {
		return 0
	}
	return len(b)
}

// Now is replaced in tests.
var Now = func() time.Time { return time.Now() }
