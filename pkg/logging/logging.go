// Package logging provides the structured logger shared across the core
// packages, adapted from the reference lite client's slog-based logger but
// trimmed to what a library embedded in a host process needs: leveled,
// component-tagged output, no HTTP-request or tracing helpers.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Config controls how a Logger is constructed.
type Config struct {
	Level  slog.Level
	Format string // "json" or "text"
	Output string // "stdout", "stderr", or a file path
}

// DefaultConfig returns text logging to stdout at info level.
func DefaultConfig() *Config {
	return &Config{Level: slog.LevelInfo, Format: "text", Output: "stdout"}
}

// Logger wraps slog.Logger with the With* helpers the core packages use to
// tag log lines with domain, operation, and resource context.
type Logger struct {
	*slog.Logger
}

// New constructs a Logger from cfg, defaulting to DefaultConfig if cfg is
// nil.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var output io.Writer
	switch cfg.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("logging: open %s: %w", cfg.Output, err)
		}
		output = f
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	return &Logger{Logger: slog.New(handler)}, nil
}

// WithComponent tags every subsequent log line from the returned Logger
// with component (e.g. "router", "resource", "factlog").
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With("component", component)}
}

// WithDomain tags every subsequent log line with a domain id.
func (l *Logger) WithDomain(domain string) *Logger {
	return &Logger{Logger: l.Logger.With("domain", domain)}
}

// WithError tags every subsequent log line with an error's message.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{Logger: l.Logger.With("error", err.Error())}
}

// LogOperation records an operation's outcome with its elapsed duration, at
// Info level on success and Error level on failure; the duration is logged
// but does not affect the level.
func (l *Logger) LogOperation(opType, opId string, success bool, d time.Duration) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelError
	}
	l.Logger.Log(context.Background(), level, "operation", "op_type", opType, "op_id", opId, "success", success, "duration_ms", d.Milliseconds())
}
