// Copyright 2025 Certen Protocol
//
// Package logging wraps log/slog with the fields this service attaches to
// every line: component, request ID, container ID, error.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Config selects the logger's level, output format, and destination.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// Logger embeds *slog.Logger so callers can use it exactly like the
// standard library logger, with a handful of UBL-specific builders on top.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from cfg. An empty Output defaults to os.Stdout.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent returns a Logger tagged with a component name, e.g.
// "membrane" or "ledger".
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name)}
}

// WithRequestID returns a Logger tagged with a request correlation ID.
func (l *Logger) WithRequestID(id string) *Logger {
	return &Logger{Logger: l.Logger.With("request_id", id)}
}

// WithContainer returns a Logger tagged with a container_id.
func (l *Logger) WithContainer(containerID string) *Logger {
	return &Logger{Logger: l.Logger.With("container_id", containerID)}
}

// WithError returns a Logger with the error attached, or the receiver
// unchanged if err is nil.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{Logger: l.Logger.With("error", err.Error())}
}

type contextKey struct{}

// IntoContext stores l in ctx for retrieval by FromContext.
func IntoContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the Logger stored in ctx, or a default logger if none
// was stored.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return l
	}
	return New(Config{})
}
