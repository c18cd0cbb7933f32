package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudseek/cloudseek/internal/engine/cache"
)

// Environment variables that override the config file.
const (
	EnvHome         = "CLOUDSEEK_HOME"
	EnvLogLevel     = "CLOUDSEEK_LOG_LEVEL"
	EnvLogFormat    = "CLOUDSEEK_LOG_FORMAT"
	EnvCacheTTL     = "CLOUDSEEK_CACHE_TTL"
	EnvMaxBatchSize = "CLOUDSEEK_MAX_BATCH_SIZE"
	EnvMaxWait      = "CLOUDSEEK_MAX_WAIT"
)

// ApplyEnvOverrides applies CLOUDSEEK_* variables from the process
// environment onto cfg.
func ApplyEnvOverrides(cfg *Config) error {
	return ApplyEnvOverridesWith(cfg, os.LookupEnv)
}

// ApplyEnvOverridesWith applies overrides using lookupEnv. Empty values are
// ignored; malformed values are errors naming the variable.
func ApplyEnvOverridesWith(cfg *Config, lookupEnv func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookupEnv(name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvLogLevel); ok {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v, ok := get(EnvLogFormat); ok {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v, ok := get(EnvCacheTTL); ok {
		ttl, err := cache.ParseTTL(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheTTL, err)
		}
		cfg.Scheduler.CacheTTL = ttl
	}
	if v, ok := get(EnvMaxBatchSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q: %w", EnvMaxBatchSize, v, err)
		}
		cfg.Scheduler.MaxBatchSize = n
	}
	if v, ok := get(EnvMaxWait); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", EnvMaxWait, v, err)
		}
		cfg.Scheduler.MaxWaitTime = d
	}
	return nil
}
