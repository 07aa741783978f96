// package logging builds the application loggers
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// New creates a new [log.Logger] writing to w with timestamps and caller
// reporting enabled.
//
// The writer defaults to [os.Stderr]
func New(w io.Writer, level log.Level) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true, Level: level}
	return log.NewWithOptions(w, opts)
}

// NewFile opens (appending) the log file at path and returns a logger
// writing to it. The terminal UI logs here so output never mixes with the
// screen. Close the returned closer on exit.
func NewFile(path string, level log.Level) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return New(f, level), f, nil
}

// Discard returns a logger that drops everything
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// With creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func With(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}
