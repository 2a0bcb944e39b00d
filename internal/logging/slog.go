package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// SlogLogger is the default Logger, backed by log/slog.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l. The handler of l is decorated so that records
// logged with a request-scoped context carry the request id.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	h := l.Handler()
	if _, ok := h.(requestIDHandler); !ok {
		l = slog.New(requestIDHandler{h})
	}
	return &SlogLogger{l: l}
}

func newSlog(w io.Writer, opts Options) *SlogLogger {
	ho := &slog.HandlerOptions{Level: slogLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "text") {
		return NewSlogLogger(slog.New(slog.NewTextHandler(w, ho)))
	}
	return NewSlogLogger(slog.New(slog.NewJSONHandler(w, ho)))
}

// slogLevel maps a configured level name to slog; unknown names mean info.
func slogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}

// requestIDHandler adds the request id of the record's context.
type requestIDHandler struct {
	slog.Handler
}

func (h requestIDHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestID(ctx); id != "" {
		r.AddAttrs(slog.String(requestIDKey, id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h requestIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestIDHandler{h.Handler.WithAttrs(attrs)}
}

func (h requestIDHandler) WithGroup(name string) slog.Handler {
	return requestIDHandler{h.Handler.WithGroup(name)}
}
