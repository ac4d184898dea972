// Package logging sets up structured logging on log/slog.
//
// The level lives in a shared slog.LevelVar so it can be changed while the
// process runs (for example after a config reload).
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

var level = new(slog.LevelVar)

// New builds a logger writing to w (stderr when nil) in json or text format.
func New(w io.Writer, format, lvl string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	SetLevel(lvl)

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text", "console":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// SetLevel changes the level of every logger built by New.
func SetLevel(lvl string) {
	level.Set(ParseLevel(lvl))
}

// Level returns the current level.
func Level() slog.Level {
	return level.Level()
}

func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
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

// Gorm adapts logger for gorm: slow queries over a second and errors are
// reported at warn level, missing records are not.
func Gorm(logger *slog.Logger) gormlogger.Interface {
	return gormlogger.New(
		slog.NewLogLogger(logger.With("component", "db").Handler(), slog.LevelWarn),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

type ctxKey struct{}

// WithLogger stores a request-scoped logger in ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by WithLogger, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
