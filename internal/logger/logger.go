package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var l = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init configures the process-wide logger. In dev the output is a human-readable
// console writer, otherwise JSON lines on stderr.
func Init(env, level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if env == "dev" {
		out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
		l = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
		return
	}
	l = zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// L returns the process-wide logger.
func L() *zerolog.Logger {
	return &l
}
