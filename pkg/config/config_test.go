package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 9101, cfg.Port)
	assert.Equal(t, 15, cfg.IntervalSeconds)
	assert.True(t, cfg.Parallel)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.Interval())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9200
interval_seconds: 30
parallel: false
workers: 2
log_level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.Interval())
	assert.False(t, cfg.Parallel)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9200\n"), 0o644))

	t.Setenv("EXPORTER_PORT", "9300")
	t.Setenv("COLLECTION_INTERVAL", "60")
	t.Setenv("PARALLEL_COLLECTORS", "false")
	t.Setenv("MAX_WORKERS", "8")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9300, cfg.Port)
	assert.Equal(t, 60, cfg.IntervalSeconds)
	assert.False(t, cfg.Parallel)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("EXPORTER_PORT", "not-a-port")
	t.Setenv("PARALLEL_COLLECTORS", "maybe")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9101, cfg.Port)
	assert.True(t, cfg.Parallel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Port = 70000 }, true},
		{"zero interval", func(c *Config) { c.IntervalSeconds = 0 }, true},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
