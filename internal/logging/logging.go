// ABOUTME: Structured logger construction shared by the CLI, MCP server and core
// ABOUTME: Wraps charmbracelet/log with level, format and component prefixes
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options configures New.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds a logger writing to opts.Output (stderr when nil).
func New(opts Options) (*log.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "docchat",
	})
	switch strings.ToLower(opts.Format) {
	case "", "text":
	case "json":
		logger.SetFormatter(log.JSONFormatter)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	return logger, nil
}

// ParseLevel maps a config string to a log level; empty means info.
func ParseLevel(s string) (log.Level, error) {
	if s == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(strings.ToLower(s))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// Component derives a child logger tagged with a component name.
func Component(logger *log.Logger, name string) *log.Logger {
	if logger == nil {
		logger = Discard()
	}
	return logger.WithPrefix(name)
}
