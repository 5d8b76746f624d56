// Package logging sets up the process-wide zerolog logger, matching the
// teacher's cmd/cryptorun/main.go console-writer init for local/TTY runs
// and switching to bare JSON when stderr is not a terminal (container/
// systemd deployment), so the three cmd/* binaries all start the same way.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Init configures the global zerolog logger and returns a component
// logger tagged with the calling binary's name.
func Init(component, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var out zerolog.Logger
	if term.IsTerminal(int(os.Stderr.Fd())) {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		out = zerolog.New(os.Stderr)
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	logger := out.Level(lvl).With().Timestamp().Str("component", component).Logger()
	zerolog.DefaultContextLogger = &logger
	return logger
}
