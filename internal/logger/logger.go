// Package logger provides structured logging on top of log/slog with
// context-aware methods and trace-ID enrichment.
package logger

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Level represents the minimum logging level.
type Level slog.Level

// Supported logging levels.
const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// TraceIDFn extracts a trace ID from the context, if present.
type TraceIDFn func(ctx context.Context) string

// LoggerInterface is the logging surface consumed by the rest of the app.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}

// Logger writes structured JSON log records.
type Logger struct {
	handler   slog.Handler
	traceIDFn TraceIDFn
}

// New constructs a logger that writes to w at the given minimum level.
// The service name is attached to every record. traceIDFn may be nil.
func New(w io.Writer, minLevel Level, serviceName string, traceIDFn TraceIDFn) *Logger {
	handler := slog.Handler(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.Level(minLevel),
	}))

	if serviceName != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", serviceName)})
	}

	return &Logger{
		handler:   handler,
		traceIDFn: traceIDFn,
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.write(ctx, slog.LevelDebug, msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.write(ctx, slog.LevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.write(ctx, slog.LevelWarn, msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.write(ctx, slog.LevelError, msg, args...)
}

// Slog returns a *slog.Logger sharing this logger's handler, for
// components that take the standard library type directly.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(l.handler)
}

func (l *Logger) write(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.handler.Enabled(ctx, level) {
		return
	}

	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.Add(args...)

	if l.traceIDFn != nil {
		if traceID := l.traceIDFn(ctx); traceID != "" {
			r.Add("trace_id", traceID)
		}
	}

	_ = l.handler.Handle(ctx, r)
}
