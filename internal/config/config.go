// Package config loads, validates and saves the cloudseek configuration file.
//
// Values are resolved in order: built-in defaults, the YAML file
// (~/.cloudseek/config.yaml or --config), then CLOUDSEEK_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cloudseek/cloudseek/internal/content"
	"github.com/cloudseek/cloudseek/internal/engine/batch"
	"github.com/cloudseek/cloudseek/internal/engine/window"
	"github.com/cloudseek/cloudseek/pkg/version"
)

// ErrConfigNotFound is returned by Load when an explicit path does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Config is the root configuration document.
type Config struct {
	SchemaVersion string         `yaml:"schema_version" json:"schema_version"`
	Scheduler     batch.Config   `yaml:"scheduler"      json:"scheduler"`
	Window        window.Config  `yaml:"window"         json:"window"`
	Content       content.Config `yaml:"content"        json:"content"`
	Logging       LoggingConfig  `yaml:"logging"        json:"logging"`

	configPath string
	warnings   []string
}

// New returns the default configuration, bound to the default config path.
func New() *Config {
	path, err := DefaultConfigPath()
	if err != nil {
		path = ""
	}
	return &Config{
		SchemaVersion: version.SchemaVersion,
		Scheduler:     batch.DefaultConfig(),
		Window:        window.DefaultConfig(),
		Content:       content.DefaultConfig(),
		Logging:       DefaultLoggingConfig(),
		configPath:    path,
	}
}

// Load builds the configuration from defaults, the file at path and the
// environment. An empty path means the default location, where a missing
// file is not an error. The result is validated.
func Load(path string) (*Config, error) {
	cfg := New()

	explicit := path != ""
	if explicit {
		cfg.configPath = path
	}

	if cfg.configPath != "" {
		warnings, err := MergeYAMLFile(cfg, cfg.configPath)
		switch {
		case err == nil:
			cfg.warnings = append(cfg.warnings, warnings...)
		case errors.Is(err, os.ErrNotExist) && !explicit:
		case errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		default:
			return nil, err
		}
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigPath returns the file this configuration is read from and saved to.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// SetConfigPath changes the file Save writes to.
func (c *Config) SetConfigPath(path string) {
	c.configPath = path
}

// Warnings lists non-fatal problems found while loading, such as unknown keys.
func (c *Config) Warnings() []string {
	return c.warnings
}

// Validate checks the schema version and every section.
func (c *Config) Validate() error {
	if err := version.CheckSchema(c.SchemaVersion); err != nil {
		return fmt.Errorf("schema_version: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Window.Validate(); err != nil {
		return fmt.Errorf("window: %w", err)
	}
	if err := c.Content.Validate(); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Save writes the configuration as YAML, creating the parent directory.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("no configuration path set")
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %s: %w", c.configPath, err)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}
