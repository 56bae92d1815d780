// Package logging builds the structured logger shared by every command.
//
// Log records go to stderr through a tint handler, so warnings about
// skipped overlay ranges and converter progress never mix with the command
// output written to stdout (plans, JSON results).
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"github.com/muesli/termenv"
)

// Level returns the minimum level to log: Debug in verbose mode, Info
// otherwise.
func Level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// New returns a human-readable logger writing to dest. Colors are enabled
// only when dest is a terminal that supports them.
func New(dest io.Writer, verbose bool) *slog.Logger {
	profile := termenv.NewOutput(dest).Profile
	return PrettyLogger(dest, profile, Level(verbose))
}

// PrettyLogger returns a tint-backed logger with an explicit color profile.
func PrettyLogger(dest io.Writer, profile termenv.Profile, level slog.Level) *slog.Logger {
	opts := &tint.Options{
		TimeFormat: time.TimeOnly,
		NoColor:    profile == termenv.Ascii,
		Level:      level,
	}
	return slog.New(tint.NewHandler(dest, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
