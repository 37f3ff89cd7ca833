// Package logger builds the structured zerolog.Logger shared by every
// component of the dashboard. The Telemetry Store and Client write to an
// io.Writer that is never os.Stdout — whisper logs must not cost the
// monitored agents any tokens — while the dashboard and launcher may log
// to stderr.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls how a Logger is constructed.
type Config struct {
	// Level is one of zerolog's level names ("debug", "info", "warn",
	// "error"). Defaults to "info" when empty or unrecognized.
	Level string
	// Pretty enables zerolog's human-readable console writer. Production
	// agents should leave this false and ship structured JSON lines.
	Pretty bool
	// Output overrides the destination writer. Defaults to os.Stderr.
	// Pass io.Discard for components under contract to never write
	// anywhere observable (the Telemetry Client).
	Output io.Writer
}

// New builds a zerolog.Logger from cfg.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Silent returns a Logger that discards everything it is given. Used by
// the Telemetry Client when no explicit logger is configured, since the
// client's contract forbids any stdout/stderr side effect.
func Silent() zerolog.Logger {
	return zerolog.Nop()
}
