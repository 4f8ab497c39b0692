// Package logger configures the application slog logger and provides the per-request
// logging helpers used by the http handlers.
//
// Development and test environments log with the tint handler (human readable, coloured),
// staging and prod log JSON.
//
// Each request gets its own logger (see RequestLogging) that carries the request id, method and path.
// Handlers retrieve it with ContextRequestLogger and can add attributes to the final request
// log line with ContextWithLogAttrs.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// LevelNone is used to disable logging (e.g in tests)
const LevelNone = slog.Level(12)

type contextKey int

const (
	loggerKey contextKey = iota
	logAttrsKey
)

// InitLogger creates the application logger and sets it as the slog default.
func InitLogger(level slog.Level, environment string) *slog.Logger {
	var handler slog.Handler
	var w io.Writer = os.Stdout

	if level == LevelNone {
		w = io.Discard
	}

	switch environment {
	case "prod", "staging":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// ParseLogLevel converts a LOG_LEVEL string to a slog.Level. Unknown values default to debug.
// "none" disables logging.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "none":
		return LevelNone
	case "error":
		return slog.LevelError
	case "warn":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// ContextWithLogger returns a copy of ctx that carries l.
func ContextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// ContextRequestLogger returns the request logger stored in ctx, or the default logger.
func ContextRequestLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// logAttrs collects attributes that are added to the request log line written when the request completes.
type logAttrs struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

// ContextWithLogAttrs adds attributes to the final request log line.
// It is a no-op when the request was not set up by RequestLogging.
func ContextWithLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	la, ok := ctx.Value(logAttrsKey).(*logAttrs)
	if !ok {
		return
	}
	la.mu.Lock()
	la.attrs = append(la.attrs, attrs...)
	la.mu.Unlock()
}

func (la *logAttrs) snapshot() []slog.Attr {
	la.mu.Lock()
	defer la.mu.Unlock()
	out := make([]slog.Attr, len(la.attrs))
	copy(out, la.attrs)
	return out
}

// TokenPrefix returns a short prefix of a secret for log output.
func TokenPrefix(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}
