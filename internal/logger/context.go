// Package logger provides utilities for working with [slog] and [context.Context].
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/lmittmann/tint"
)

type ctxKey struct{}

var ctxLoggerKey = ctxKey{}

// New returns a JSON [slog.Logger], or a human-readable one (with colors, if the output
// is a terminal) in development mode or if pretty logging was requested explicitly.
func New(w io.Writer, devMode, pretty bool) *slog.Logger {
	level := slog.LevelInfo
	if devMode {
		level = slog.LevelDebug
	}

	if devMode || pretty {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
		}))
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}))
}

// WithContext returns a derived [context.Context] that points to
// the given parent, and has the given [slog.Logger] attached to it.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey, l)
}

// FromContext returns the [slog.Logger] attached to the given
// [context.Context], or [slog.Default] if none is attached.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxLoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// Fatal logs an error message with the default logger, and exits with status 1.
func Fatal(msg string, err error, attrs ...slog.Attr) {
	var pcs [1]uintptr
	runtime.Callers(2, pcs[:]) // Discard wrapper frames (Callers, Fatal).

	r := slog.NewRecord(time.Now(), slog.LevelError, msg, pcs[0])
	if err != nil {
		r.AddAttrs(slog.Any("error", err))
	}
	r.AddAttrs(attrs...)

	_ = slog.Default().Handler().Handle(context.Background(), r)
	os.Exit(1)
}
