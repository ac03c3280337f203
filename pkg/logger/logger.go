// Package logger builds the *slog.Logger used across the ideas server, the
// stream client and the CLI.
package logger

import (
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// New returns a logger configured by opts. Without options it writes text
// records at Info level to os.Stdout.
func New(opts ...Option) *slog.Logger {
	o := &options{
		level:  slog.LevelInfo,
		format: FormatText,
		w:      os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	l := slog.New(o.handler())
	if o.component != "" {
		l = l.With("component", o.component)
	}
	return l
}

func (o *options) handler() slog.Handler {
	if o.format == FormatPretty {
		return charmlog.NewWithOptions(o.w, charmlog.Options{
			Level:           charmlog.Level(o.level),
			ReportTimestamp: true,
			ReportCaller:    o.source,
		})
	}

	hopts := &slog.HandlerOptions{Level: o.level, AddSource: o.source}
	if o.format == FormatJSON {
		return slog.NewJSONHandler(o.w, hopts)
	}
	return slog.NewTextHandler(o.w, hopts)
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
