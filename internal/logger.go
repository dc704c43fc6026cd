package internal

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a JSON logger in prod and a human readable console
// logger otherwise.
func NewLogger(w io.Writer, env string, level string) zerolog.Logger {
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		l = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = w
	if env != "prod" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(l).With().Timestamp().Logger()
}
