package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()

	tests := []struct {
		level string
		msg   string
		attr  string
	}{
		{"DEBUG", "dbg", "a=1"},
		{"INFO", "inf", "b=2"},
		{"WARN", "wrn", "c=3"},
		{"ERROR", "err", "d=4"},
	}
	for _, tc := range tests {
		assert.Contains(t, out, "level="+tc.level)
		assert.Contains(t, out, "msg="+tc.msg)
		assert.Contains(t, out, tc.attr)
	}
}

func TestSlogLogger_With(t *testing.T) {
	log, buf := newTestLogger(t)

	log.With("request_id", "123", "module", "api").Info(context.Background(), "hello", "k", "v")

	for _, s := range []string{"level=INFO", "msg=hello", "request_id=123", "module=api", "k=v"} {
		assert.Contains(t, buf.String(), s)
	}
}

func TestNew_SelectsFormatAndLevel(t *testing.T) {
	var jsonBuf, textBuf bytes.Buffer

	New(&jsonBuf, Options{Format: "json", Level: "error"}).Info(context.Background(), "skipped")
	New(&jsonBuf, Options{Format: "json"}).Info(context.Background(), "kept")
	New(&textBuf, Options{Format: "text", Level: "debug"}).Debug(context.Background(), "dbg")

	assert.NotContains(t, jsonBuf.String(), "skipped")
	assert.True(t, strings.HasPrefix(jsonBuf.String(), "{"))
	assert.Contains(t, textBuf.String(), "msg=dbg")
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error(context.Background(), "nothing happens")
	assert.NotNil(t, log.With("a", 1))
}

func TestSlogLogger_RequestIDFromContext(t *testing.T) {
	log, buf := newTestLogger(t)

	ctx := WithRequestID(context.Background(), "req-42")
	log.With("module", "api").Info(ctx, "tagged")
	log.Info(context.Background(), "untagged")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "request_id=req-42")
	assert.Contains(t, lines[0], "module=api")
	assert.NotContains(t, lines[1], "request_id")
}

func TestRequestID(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
	ctx := context.Background()
	assert.Equal(t, ctx, WithRequestID(ctx, ""))
	assert.Equal(t, "abc", RequestID(WithRequestID(ctx, "abc")))
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, slogLevel(" DEBUG"))
	assert.Equal(t, slog.LevelWarn, slogLevel("warning"))
	assert.Equal(t, slog.LevelError, slogLevel("error"))
	assert.Equal(t, slog.LevelInfo, slogLevel("verbose"))
}
