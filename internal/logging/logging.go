package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger used across the engine. A nil *Logger discards everything.
type Logger = logiface.Logger[*stumpy.Event]

// New returns a JSON logger writing to w at the given level.
func New(w io.Writer, level logiface.Level) *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(w),
			stumpy.WithTimeField(``),
			stumpy.WithLevelField(`lvl`),
		),
		stumpy.L.WithLevel(level),
	)
}

// Discard returns a logger that drops every event.
func Discard() *Logger {
	return New(io.Discard, logiface.LevelDisabled)
}

// ParseLevel maps a level name to a logiface level.
func ParseLevel(s string) (logiface.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "disabled", "off", "none":
		return logiface.LevelDisabled, nil
	case "crit", "critical":
		return logiface.LevelCritical, nil
	case "err", "error":
		return logiface.LevelError, nil
	case "warn", "warning":
		return logiface.LevelWarning, nil
	case "notice":
		return logiface.LevelNotice, nil
	case "info", "informational":
		return logiface.LevelInformational, nil
	case "debug":
		return logiface.LevelDebug, nil
	case "trace":
		return logiface.LevelTrace, nil
	}
	return logiface.LevelDisabled, fmt.Errorf("unknown log level %q", s)
}

// FromConfig builds a logger for a level name, falling back to warnings on a bad name.
func FromConfig(w io.Writer, level string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return New(w, logiface.LevelWarning), err
	}
	return New(w, lvl), nil
}
