// Package logging provides zerolog-based structured logging for cloudseek.
//
// Components obtain a logger in one of two ways:
//   - Long-lived objects (schedulers, calculators, stores) accept a logger at
//     construction and default to zerolog.Nop().
//   - Request-scoped code pulls the logger out of the context with FromContext.
//
// Every component logger carries a "component" field so log lines can be
// filtered per subsystem.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output and format identifiers accepted by Config.
const (
	FormatConsole = "console"
	FormatJSON    = "json"

	OutputStderr = "stderr"
	OutputStdout = "stdout"
	OutputFile   = "file"
)

// DefaultLevel is used when Config.Level is empty or cannot be parsed.
const DefaultLevel = zerolog.InfoLevel

// Config describes how the root logger is built.
type Config struct {
	// Level is a zerolog level name (trace, debug, info, warn, error).
	Level string `yaml:"level" json:"level"`

	// Format is either "console" (human readable) or "json".
	Format string `yaml:"format" json:"format"`

	// Output is "stderr", "stdout" or "file".
	Output string `yaml:"output" json:"output"`

	// File is the log file path, used when Output is "file".
	File string `yaml:"file" json:"file"`

	// Caller adds file:line to every entry.
	Caller bool `yaml:"caller" json:"caller"`
}

// DefaultConfig returns console logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  DefaultLevel.String(),
		Format: FormatConsole,
		Output: OutputStderr,
	}
}

// LoggerResult is returned by NewLoggerWithWriter so callers can release the
// log file handle when the process finishes.
type LoggerResult struct {
	Logger   zerolog.Logger
	FilePath string
	file     *os.File
}

// Close releases the log file, if one was opened.
func (r *LoggerResult) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// ParseLevel converts a level name to a zerolog level, falling back to
// DefaultLevel for empty or unknown names.
func ParseLevel(level string) zerolog.Level {
	if strings.TrimSpace(level) == "" {
		return DefaultLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return DefaultLevel
	}
	return lvl
}

// NewLogger builds a root logger from cfg. File output that cannot be opened
// falls back to stderr; use NewLoggerWithWriter to observe that failure.
func NewLogger(cfg Config) zerolog.Logger {
	result, err := NewLoggerWithWriter(cfg, nil)
	if err != nil {
		fallback := cfg
		fallback.Output = OutputStderr
		result, _ = NewLoggerWithWriter(fallback, nil)
	}
	return result.Logger
}

// NewLoggerWithWriter builds a root logger from cfg. When w is non-nil it
// overrides the configured output, which is how tests capture log lines.
func NewLoggerWithWriter(cfg Config, w io.Writer) (*LoggerResult, error) {
	result := &LoggerResult{}

	out := w
	if out == nil {
		switch cfg.Output {
		case OutputStdout:
			out = os.Stdout
		case OutputFile:
			if cfg.File == "" {
				return nil, fmt.Errorf("log output %q requires a file path", OutputFile)
			}
			f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
			if err != nil {
				return nil, fmt.Errorf("opening log file: %w", err)
			}
			result.file = f
			result.FilePath = cfg.File
			out = f
		default:
			out = os.Stderr
		}
	}

	if cfg.Format != FormatJSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    w != nil || result.file != nil,
		}
	}

	ctx := zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	result.Logger = ctx.Logger()

	return result, nil
}

// ComponentLogger returns a child logger tagged with the component name.
func ComponentLogger(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}
