// Package logging defines the structured-logging interface used across the
// project together with slog and zerolog implementations.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "starting server", "addr", addr)
//
// Records logged with a context carrying a request id (see WithRequestID)
// get a "request_id" field.
type Logger interface {
	// Debug logs diagnostic details that are off in production.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}

// Options selects and tunes a Logger implementation.
type Options struct {
	Backend string // "slog" (default) or "zerolog"
	Format  string // "json" (default) or "text"
	Level   string // debug, info, warn, error
}

// New builds the Logger described by opts writing to w.
func New(w io.Writer, opts Options) Logger {
	if strings.EqualFold(opts.Backend, "zerolog") {
		return newZerolog(w, opts)
	}
	return newSlog(w, opts)
}

const requestIDKey = "request_id"

type ctxKey struct{}

// WithRequestID returns a copy of ctx tagged with the request id id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Nop returns a Logger that discards everything. Handy in tests.
func Nop() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
