// Package logging sets up the process-wide zerolog logger and hands
// out small per-component child loggers.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var base zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}

// SetJSON switches the base logger to structured JSON output, for
// production deployments where logs are shipped rather than watched.
func SetJSON() {
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// SetLevel adjusts the global minimum log level.
func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// For returns a child logger scoped to the named component.
func For(component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}
