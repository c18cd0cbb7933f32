package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudseek/cloudseek/internal/config"
	"github.com/cloudseek/cloudseek/internal/engine/batch"
	"github.com/cloudseek/cloudseek/internal/engine/cache"
	"github.com/cloudseek/cloudseek/pkg/version"
)

// isolateHome points CLOUDSEEK_HOME at a temp dir and clears overrides.
func isolateHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvHome, dir)
	for _, name := range []string{
		config.EnvLogLevel, config.EnvLogFormat, config.EnvCacheTTL,
		config.EnvMaxBatchSize, config.EnvMaxWait,
	} {
		t.Setenv(name, "")
	}
	return dir
}

// writeConfig is a test helper that writes YAML content to a temp file
// and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew_Defaults(t *testing.T) {
	home := isolateHome(t)

	cfg := config.New()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, version.SchemaVersion, cfg.SchemaVersion)
	assert.Equal(t, batch.DefaultMaxBatchSize, cfg.Scheduler.MaxBatchSize)
	assert.Equal(t, batch.DefaultMaxWaitTime, cfg.Scheduler.MaxWaitTime)
	assert.Equal(t, cache.DefaultTTL, cfg.Scheduler.CacheTTL)
	assert.True(t, cfg.Scheduler.Deduplicate)
	assert.True(t, cfg.Window.PreserveScrollPosition)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, filepath.Join(home, "config.yaml"), cfg.ConfigPath())
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	isolateHome(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, batch.DefaultMaxBatchSize, cfg.Scheduler.MaxBatchSize)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	isolateHome(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, config.ErrConfigNotFound)
}

func TestLoad_PartialSectionsKeepDefaults(t *testing.T) {
	isolateHome(t)
	path := writeConfig(t, `
schema_version: 1.2.0
scheduler:
  max_batch_size: 2
  max_wait: 10ms
  priority_weights:
    high: 9
window:
  overscan: 2
content:
  fail_every: 4
logging:
  level: debug
extra_section:
  foo: bar
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1.2.0", cfg.SchemaVersion)
	assert.Equal(t, 2, cfg.Scheduler.MaxBatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.Scheduler.MaxWaitTime)
	assert.Equal(t, cache.DefaultTTL, cfg.Scheduler.CacheTTL, "absent key keeps default")
	assert.True(t, cfg.Scheduler.Deduplicate)
	assert.Equal(t, batch.PriorityWeights{High: 9, Medium: 2, Low: 1}, cfg.Scheduler.PriorityWeights)
	assert.Equal(t, 2, cfg.Window.OverscanCount)
	assert.InDelta(t, 50, cfg.Window.EstimatedItemHeight, 0)
	assert.Equal(t, 4, cfg.Content.FailEvery)
	assert.Equal(t, 20, cfg.Content.PageSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, path, cfg.ConfigPath())

	require.Len(t, cfg.Warnings(), 1)
	assert.Contains(t, cfg.Warnings()[0], "extra_section")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "corrupt yaml", content: "{{{{not valid yaml", errMsg: "parsing config YAML"},
		{name: "wrong type", content: "scheduler:\n  max_batch_size: lots\n", errMsg: "scheduler"},
		{name: "bad duration", content: "scheduler:\n  max_wait: soon\n", errMsg: "scheduler"},
		{name: "invalid value", content: "scheduler:\n  max_batch_size: 0\n", errMsg: "max_batch_size"},
		{name: "incompatible schema", content: "schema_version: 2.0.0\n", errMsg: "schema_version"},
		{name: "bad log level", content: "logging:\n  level: loud\n", errMsg: "logging"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t)
			_, err := config.Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	isolateHome(t)

	cfg, err := config.Load(writeConfig(t, "# only comments\n"))
	require.NoError(t, err)
	assert.Equal(t, config.New().Scheduler, cfg.Scheduler)
	assert.Empty(t, cfg.Warnings())
}

func TestApplyEnvOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv(config.EnvLogLevel, "WARN")
	t.Setenv(config.EnvCacheTTL, "120")
	t.Setenv(config.EnvMaxBatchSize, "7")
	t.Setenv(config.EnvMaxWait, "5ms")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.CacheTTL)
	assert.Equal(t, 7, cfg.Scheduler.MaxBatchSize)
	assert.Equal(t, 5*time.Millisecond, cfg.Scheduler.MaxWaitTime)
}

func TestApplyEnvOverridesWith_Errors(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		inErr string
	}{
		{name: "ttl", env: map[string]string{config.EnvCacheTTL: "forever"}, inErr: config.EnvCacheTTL},
		{name: "batch size", env: map[string]string{config.EnvMaxBatchSize: "many"}, inErr: config.EnvMaxBatchSize},
		{name: "max wait", env: map[string]string{config.EnvMaxWait: "later"}, inErr: config.EnvMaxWait},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			}
			err := config.ApplyEnvOverridesWith(config.New(), lookup)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.inErr)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	isolateHome(t)

	cfg := config.New()
	cfg.Scheduler.MaxWaitTime = 25 * time.Millisecond
	cfg.Window.OverscanCount = 8
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg.SetConfigPath(path)
	require.NoError(t, cfg.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_wait: 25ms")

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Scheduler, loaded.Scheduler)
	assert.Equal(t, cfg.Window, loaded.Window)
	assert.Equal(t, cfg.Content, loaded.Content)
}

func TestSave_NoPath(t *testing.T) {
	cfg := config.New()
	cfg.SetConfigPath("")
	require.Error(t, cfg.Save())
}

func TestMergeYAML_NilTarget(t *testing.T) {
	_, err := config.MergeYAML(nil, []byte("logging: {}"))
	require.Error(t, err)
}

func TestLoggingConfig_ToLoggingConfig(t *testing.T) {
	lc := config.LoggingConfig{Level: "debug", Format: "json"}
	got := lc.ToLoggingConfig()
	assert.Equal(t, "stderr", got.Output)
	assert.Equal(t, "debug", got.Level)

	lc.File = filepath.Join(t.TempDir(), "logs", "cloudseek.log")
	got = lc.ToLoggingConfig()
	assert.Equal(t, "file", got.Output)
	assert.Equal(t, lc.File, got.File)

	require.NoError(t, lc.EnsureLogDir())
	_, err := os.Stat(filepath.Dir(lc.File))
	require.NoError(t, err)
}

func TestGlobalConfig(t *testing.T) {
	isolateHome(t)
	t.Cleanup(config.ResetGlobalConfigForTest)

	config.ResetGlobalConfigForTest()
	def := config.GetGlobalConfig()
	require.NotNil(t, def)
	assert.Same(t, def, config.GetGlobalConfig())

	custom := config.New()
	custom.Scheduler.MaxBatchSize = 3
	config.SetGlobalConfig(custom)
	assert.Equal(t, 3, config.GetGlobalConfig().Scheduler.MaxBatchSize)
}
