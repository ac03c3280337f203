package utils

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Truncate shortens s to at most maxWidth terminal cells, ending in "..."
// when cut. Escape sequences and wide runes are measured as displayed.
func Truncate(s string, maxWidth int) string {
	return ansi.Truncate(s, maxWidth, "...")
}

// Headline returns the first non-empty line of a markdown document without
// its heading markers, for one-line previews.
func Headline(markdown string) string {
	for line := range strings.Lines(markdown) {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if line != "" {
			return line
		}
	}
	return ""
}
