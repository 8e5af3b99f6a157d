// Package logging provides structured logging for vulnstats using zerolog.
package logging

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger     atomic.Pointer[zerolog.Logger]
	prettyMode atomic.Bool
)

func init() {
	SetLogger(New(os.Stderr, false, false))
}

// New builds a timestamped logger writing to w. debug lowers the level to
// Debug; human switches from JSON lines to the console writer.
func New(w io.Writer, debug, human bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	if human {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Init configures the global logger on stderr and toggles the "_h"
// companion fields that completion events add in human mode.
func Init(debug, human bool) {
	SetPrettyMode(human)
	SetLogger(New(os.Stderr, debug, human))
}

// L returns the global logger.
func L() *zerolog.Logger {
	return logger.Load()
}

// SetLogger replaces the global logger.
func SetLogger(l zerolog.Logger) {
	logger.Store(&l)
}

// SetPrettyMode toggles the human-readable "_h" companion fields.
func SetPrettyMode(on bool) {
	prettyMode.Store(on)
}

// IsPrettyMode reports whether human-readable companion fields are emitted.
func IsPrettyMode() bool {
	return prettyMode.Load()
}
