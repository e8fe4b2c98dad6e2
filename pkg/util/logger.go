package util

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// LoggerConfig holds the configuration for the logger.
//
// When File is set, records are written to a rotating log file instead of
// Output. The MCP server relies on this because stdout carries the protocol.
type LoggerConfig struct {
	Level  LogLevel
	Format LogFormat
	Output io.Writer

	// File enables size-based rotation through lumberjack.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultLoggerConfig returns a logger config with sensible defaults.
// Logs go to stderr so that stdout stays free for command output.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     os.Stderr,
		MaxSizeMB:  15,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// NewLogger creates a new structured logger with the given configuration
func NewLogger(config LoggerConfig) *slog.Logger {
	level := parseLevel(config.Level)

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: level,
	}

	out := logWriter(config)

	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(out, opts)
	case FormatText:
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler)
}

// logWriter picks the destination for log records.
func logWriter(config LoggerConfig) io.Writer {
	if config.File != "" {
		return &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   true,
		}
	}
	if config.Output == nil {
		return os.Stderr
	}
	return config.Output
}

// ParseLevel converts a level name (case-sensitive) to a LogLevel,
// falling back to info.
func ParseLevel(name string) LogLevel {
	switch LogLevel(name) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return LogLevel(name)
	default:
		return LevelInfo
	}
}

// parseLevel converts a LogLevel to slog.Level
func parseLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefault sets the default logger for the slog package
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
