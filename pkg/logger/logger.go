package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects level and output format
type Options struct {
	Level   string
	Format  string // "json" or "pretty"
	Service string
	Out     io.Writer
}

// New creates a zerolog logger from LOG_LEVEL, LOG_FORMAT and ENV
func New() zerolog.Logger {
	format := os.Getenv("LOG_FORMAT")
	if os.Getenv("ENV") == "development" {
		format = "pretty"
	}
	return NewWithOptions(Options{
		Level:   os.Getenv("LOG_LEVEL"),
		Format:  format,
		Service: "pengajuan-konten-api",
	})
}

// NewWithOptions creates a logger with structured output
func NewWithOptions(opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.Service == "" {
		opts.Service = "pengajuan-konten-api"
	}

	// Use pretty console output in development
	if strings.EqualFold(opts.Format, "pretty") {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(ParseLevel(opts.Level)).
			With().
			Timestamp().
			Caller().
			Str("service", opts.Service).
			Logger()
	}

	// JSON output for production
	return zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Str("service", opts.Service).
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
