// Package logging provides structured logging configuration using log/slog.
//
// Each pipeline run gets an ID that is stored in the context under chi's
// request-ID key, so every log entry written through FromContext for that
// run carries the same run_id.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup configures the global slog logger based on level and format.
// A nil w writes to stderr.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(w io.Writer, level, format string) {
	if w == nil {
		w = os.Stderr
	}
	slog.SetDefault(New(w, level, format))
}

// New builds a logger writing to w. Setup uses it for the global logger;
// tests use it to capture output.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRunID returns a context carrying runID for FromContext.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, middleware.RequestIDKey, runID)
}

// RunID returns the run ID stored in ctx, or "".
func RunID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// FromContext returns the default logger, enriched with run_id when ctx
// carries one.
//
// Usage:
//
//	ctx = logging.WithRunID(ctx, uuid.NewString())
//	logging.FromContext(ctx).Info("extracting", "path", path)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if id := RunID(ctx); id != "" {
		logger = logger.With("run_id", id)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// Useful for stage-scoped loggers that carry the same context through
// several log calls:
//
//	loadLogger := logging.WithFields(ctx, "destination", dest, "table", name)
//	loadLogger.Info("loading")
//	// ... later ...
//	loadLogger.Info("load complete", "rows", n)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
