package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "file://./data", cfg.StorageURL)
	assert.Equal(t, "gochannel", cfg.EventBus)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bos.yaml")
	body := "storage_url: file:///var/lib/bos\nport: 9999\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	t.Setenv("BOS_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file:///var/lib/bos", cfg.StorageURL)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel, "env overrides file")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty storage url", mutate: func(c *Config) { c.StorageURL = "" }},
		{name: "unknown event bus", mutate: func(c *Config) { c.EventBus = "carrier-pigeon" }},
		{name: "port out of range", mutate: func(c *Config) { c.Port = 700000 }},
		{name: "negative retention", mutate: func(c *Config) { c.MaxBackups = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			assert.Error(t, cfg.Validate())
		})
	}
}
