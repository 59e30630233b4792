// Package logging builds the structured logger shared by specgraph components.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w at the named level ("debug", "info", "warn", "error").
// An empty level means info; a nil writer means stderr.
func New(level string, w io.Writer) (*log.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: "specgraph",
		Level:  lvl,
	}), nil
}

// Discard returns a logger that drops everything. Components fall back to it when
// constructed without a logger.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
