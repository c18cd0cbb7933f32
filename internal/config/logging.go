package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloudseek/cloudseek/internal/logging"
	"github.com/cloudseek/cloudseek/internal/validate"
)

const outputTypeFile = "file"

// LoggingConfig is the logging section of the config file.
type LoggingConfig struct {
	Level  string `yaml:"level"            json:"level"  validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `yaml:"format"           json:"format" validate:"omitempty,oneof=console json"`
	File   string `yaml:"file,omitempty"   json:"file,omitempty"`
	Caller bool   `yaml:"caller,omitempty" json:"caller,omitempty"`
}

// DefaultLoggingConfig returns info-level console logging to stderr.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: logging.FormatConsole,
	}
}

// Validate checks the level and format names.
func (lc LoggingConfig) Validate() error {
	return validate.Struct(lc)
}

// ToLoggingConfig converts the file section into a logging.Config.
//
// The conversion applies these rules:
//   - Level, Format and Caller are copied directly
//   - If File is set, Output becomes "file" and File is passed through
//   - If File is empty, Output defaults to "stderr"
func (lc LoggingConfig) ToLoggingConfig() logging.Config {
	output := logging.OutputStderr
	if lc.File != "" {
		output = outputTypeFile
	}

	return logging.Config{
		Level:  lc.Level,
		Format: lc.Format,
		Output: output,
		File:   lc.File,
		Caller: lc.Caller,
	}
}

// EnsureLogDir creates the parent directory of the configured log file. It
// does nothing when no file is configured.
func (lc LoggingConfig) EnsureLogDir() error {
	if lc.File == "" {
		return nil
	}
	logDir := filepath.Dir(lc.File)
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}
	return nil
}
