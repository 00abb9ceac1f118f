// SPDX-License-Identifier: Apache-2.0

// Package logging provides structured logging for the timelinedb engine.
package logging

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Logger is the interface for structured logging used throughout the engine
// and its adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

// slogLogger wraps slog.Logger to implement Logger.
type slogLogger struct {
	logger *slog.Logger
}

// NewLogger creates a new logger with the given configuration.
func NewLogger(config *Config) Logger {
	if config == nil {
		config = DefaultConfig()
	}

	opts := &slog.HandlerOptions{
		Level: config.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	logger := slog.New(handler).With(
		"tenant", config.Tenant,
	)

	return &slogLogger{logger: logger}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

// WithContext pulls well-known correlation values out of ctx (the batch
// correlation ID stored by WithBatchID, in particular) and attaches them to
// the returned logger.
func (l *slogLogger) WithContext(ctx context.Context) Logger {
	attrs := make([]any, 0, 2)
	if batchID := ctx.Value(batchIDKey{}); batchID != nil {
		attrs = append(attrs, "batch_id", batchID)
	}
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}

// batchIDKey is the context key a batch's correlation UUID is stored
// under; exported indirectly via WithBatchID so callers
// never need to know the key type.
type batchIDKey struct{}

// WithBatchID returns a context carrying id so a logger built via
// WithContext can surface it automatically.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey{}, id)
}

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Format Format
	Output *os.File
	Tenant string
}

// Format represents the log output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// DefaultConfig returns a default logger configuration: text output at info
// level, written to stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:  slog.LevelInfo,
		Format: FormatText,
		Output: os.Stdout,
		Tenant: "default",
	}
}

// sanitizeLogValue strips control characters from string values before they
// reach a log line, closing off log injection via resource names, labels,
// or other caller-supplied strings.
func sanitizeLogValue(value any) any {
	str, ok := value.(string)
	if !ok {
		return value
	}
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, str)
}

func sanitizeFields(fields []any) []any {
	sanitized := make([]any, len(fields))
	for i, field := range fields {
		sanitized[i] = sanitizeLogValue(field)
	}
	return sanitized
}

// LogOperation returns a logger scoped to a named engine operation
// (e.g. "commit-batch", "availability-query"), tagging it with the call
// site for debugging.
func LogOperation(logger Logger, operation string, fields ...any) Logger {
	_, file, line, _ := runtime.Caller(1)
	baseFields := []any{
		"operation", sanitizeLogValue(operation),
		"caller", file + ":" + strconv.Itoa(line),
	}
	return logger.With(append(baseFields, sanitizeFields(fields)...)...)
}

// LogDuration logs the duration of an operation that started at start.
func LogDuration(logger Logger, start time.Time, operation string) {
	d := time.Since(start)
	logger.Info("operation completed",
		"operation", operation,
		"duration_ms", d.Milliseconds(),
	)
}

// LogError logs a failed operation along with its stable error kind, when
// the error came from pkg/errors.
func LogError(logger Logger, err error, operation string, fields ...any) {
	if err == nil {
		return
	}
	baseFields := []any{
		"operation", operation,
		"error", err.Error(),
	}
	logger.Error("operation failed", append(baseFields, sanitizeFields(fields)...)...)
}

// NoOpLogger discards all log messages; used by components under test that
// don't want to assert on log output.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, args ...any)          {}
func (NoOpLogger) Info(msg string, args ...any)           {}
func (NoOpLogger) Warn(msg string, args ...any)           {}
func (NoOpLogger) Error(msg string, args ...any)          {}
func (NoOpLogger) With(args ...any) Logger                { return NoOpLogger{} }
func (NoOpLogger) WithContext(ctx context.Context) Logger { return NoOpLogger{} }
