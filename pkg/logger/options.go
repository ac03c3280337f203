package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format selects the handler that renders records.
type Format string

const (
	// FormatText writes slog key=value records.
	FormatText Format = "text"

	// FormatJSON writes one JSON object per record, for log shippers and
	// the --log-file sink of "ideas serve".
	FormatJSON Format = "json"

	// FormatPretty writes colorized records through charmbracelet/log.
	FormatPretty Format = "pretty"
)

// ParseFormat maps a flag value to a Format. The empty string is text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatPretty:
		return f, nil
	default:
		return "", fmt.Errorf("unknown log format %q (want text, json or pretty)", s)
	}
}

// Option configures a logger built by New.
type Option func(*options)

type options struct {
	level     slog.Level
	format    Format
	source    bool
	w         io.Writer
	component string
}

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(o *options) {
		if debug {
			o.level = slog.LevelDebug
			return
		}
		o.level = slog.LevelInfo
	}
}

func WithFormat(f Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithWriter sets the destination. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.w = w
	}
}

// WithSource adds the caller's file:line to every record.
func WithSource(source bool) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithComponent binds a "component" attribute, e.g. "server" or "client".
func WithComponent(name string) Option {
	return func(o *options) {
		o.component = name
	}
}
