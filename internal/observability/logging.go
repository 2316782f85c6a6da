// Package observability provides structured logging with request
// correlation and Prometheus metrics for the daemon.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ContextKey is the type for context keys used in logging.
type ContextKey string

const (
	// CorrelationIDKey is the context key for per-request correlation IDs.
	CorrelationIDKey ContextKey = "correlation_id"

	// SessionIDKey is the context key for session IDs.
	SessionIDKey ContextKey = "session_id"

	// ProjectIDKey is the context key for project IDs.
	ProjectIDKey ContextKey = "project_id"
)

// LogConfig configures the logging behavior.
type LogConfig struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error".
	Level string

	// Format specifies output format: "json" or "text".
	Format string

	// Output is the writer for log output. Defaults to os.Stderr: stdout is
	// reserved for JSON-RPC frames when the stdio transport is attached.
	Output io.Writer
}

// Logger wraps slog with correlation-aware helpers. All log records carry
// the correlation id, session id and project id found in the context.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a structured logger with the given configuration.
func NewLogger(config LogConfig) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	var level slog.Level
	switch strings.ToLower(config.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(config.Output, opts)
	} else {
		handler = slog.NewTextHandler(config.Output, opts)
	}

	return &Logger{logger: slog.New(handler)}
}

// NewNopLogger returns a logger that discards everything. Useful in tests.
func NewNopLogger() *Logger {
	return NewLogger(LogConfig{Level: "error", Output: io.Discard})
}

// With returns a logger with additional fixed attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// Slog exposes the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	args = append(args, contextAttrs(ctx)...)
	l.logger.Log(ctx, level, msg, args...)
}

// Debug logs at debug level with context correlation fields.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args)
}

// Info logs at info level with context correlation fields.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, args)
}

// Warn logs at warn level with context correlation fields.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, args)
}

// Error logs at error level with context correlation fields.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelError, msg, args)
}

func contextAttrs(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	attrs := make([]any, 0, 6)
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok && id != "" {
		attrs = append(attrs, "correlation_id", id)
	}
	if id, ok := ctx.Value(SessionIDKey).(string); ok && id != "" {
		attrs = append(attrs, "session_id", id)
	}
	if id, ok := ctx.Value(ProjectIDKey).(string); ok && id != "" {
		attrs = append(attrs, "project_id", id)
	}
	return attrs
}

// WithCorrelationID attaches a correlation id to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// CorrelationID extracts the correlation id from the context, if any.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}
