// Package logging builds the zerolog loggers used by pubmerge commands.
//
// Library packages never reach for a global logger; they take a
// *zerolog.Logger through their options. This package only decides how
// the command-line tool formats and filters log output.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LevelEnv names the environment variable holding the default level.
const LevelEnv = "PUBMERGE_LOG_LEVEL"

// Config holds logger configuration options.
type Config struct {
	// Level is the minimum level to output: trace, debug, info, warn, error, disabled.
	Level string

	// Format is console, json, or auto (console on a terminal).
	Format string

	// Out receives log lines. Nil means stderr.
	Out io.Writer

	NoColor bool
}

// New creates a logger from configuration.
func New(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}

	format := strings.ToLower(cfg.Format)
	if format == "" || format == "auto" {
		format = "json"
		if isTerminal(out) {
			format = "console"
		}
	}
	if format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    cfg.NoColor,
		}
	}

	level := ParseLevel(cfg.Level)
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// Default creates a logger configured from the environment.
func Default() zerolog.Logger {
	return New(Config{
		Level:   os.Getenv(LevelEnv),
		Format:  os.Getenv("PUBMERGE_LOG_FORMAT"),
		NoColor: os.Getenv("NO_COLOR") != "",
	})
}

// ParseLevel parses a level name, falling back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	case "none", "off":
		return zerolog.Disabled
	}
	if l, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
		return l
	}
	return zerolog.InfoLevel
}

type contextKey struct{}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts the logger from context, or returns a disabled logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(contextKey{}).(*zerolog.Logger); ok && logger != nil {
			return logger
		}
	}
	nop := zerolog.Nop()
	return &nop
}

// WithBatch returns a child logger tagged with the batch key.
func WithBatch(logger *zerolog.Logger, key string) *zerolog.Logger {
	child := logger.With().Str("batch", key).Logger()
	return &child
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
