// Package config loads service configuration from a YAML file with BOS_*
// environment overrides layered on top.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the full service configuration.
type Config struct {
	// StorageURL selects the store backend: file://<dir>, redis://... or postgres://...
	StorageURL string `koanf:"storage_url"`

	// Port for the HTTP API.
	Port int `koanf:"port"`

	// LogLevel: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// EventBus provider: gochannel or kafka.
	EventBus string `koanf:"event_bus"`

	// MaxBackups overrides the backup retention cap.
	MaxBackups int `koanf:"max_backups"`

	// ScheduledBackups enables the cron backup job.
	ScheduledBackups bool `koanf:"scheduled_backups"`

	// BackupSchedule is the cron expression for automatic backups.
	BackupSchedule string `koanf:"backup_schedule"`

	// FallbackKey is the storage slot for the degraded-capability flag.
	FallbackKey string `koanf:"fallback_key"`
}

// DefaultConfig returns the configuration used when nothing is provided.
func DefaultConfig() *Config {
	return &Config{
		StorageURL:     "file://./data",
		Port:           9080,
		LogLevel:       "info",
		EventBus:       "gochannel",
		BackupSchedule: "0 * * * *",
	}
}

// Load reads configuration from path (when it exists), then overlays BOS_*
// environment variables (BOS_STORAGE_URL -> storage_url, ...).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("BOS_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "BOS_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

var validEventBuses = map[string]bool{
	"gochannel": true,
	"kafka":     true,
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.StorageURL == "" {
		return fmt.Errorf("storage_url is required")
	}

	if !validEventBuses[c.EventBus] {
		return fmt.Errorf("invalid event_bus %q: must be gochannel or kafka", c.EventBus)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	if c.MaxBackups < 0 {
		return fmt.Errorf("max_backups must not be negative")
	}

	return nil
}
