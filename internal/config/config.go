// Package config loads server configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// DataDir holds the SQLite database.
	DataDir string `yaml:"data_dir"`

	// StaticDir holds the frontend files served at /.
	StaticDir string `yaml:"static_dir"`

	Cloud      CloudConfig      `yaml:"cloud"`
	Sync       SyncConfig       `yaml:"sync"`
	Recurrence RecurrenceConfig `yaml:"recurrence"`
}

// CloudConfig points at the hosted backend. Sync stays off when URL or
// APIKey is empty.
type CloudConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	AccessToken string `yaml:"access_token"`

	// AuthPollSeconds is how often the current user identity is re-checked.
	AuthPollSeconds int `yaml:"auth_poll_seconds"`
}

// SyncConfig tunes the outbound sync queue.
type SyncConfig struct {
	DebounceSeconds   int     `yaml:"debounce_seconds"`
	MaxRetries        int     `yaml:"max_retries"`
	RetryDelaySeconds int     `yaml:"retry_delay_seconds"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`

	// CooldownSeconds is how long the syncing indicator stays up after a
	// collection change is handed to the queue.
	CooldownSeconds float64 `yaml:"cooldown_seconds"`
}

// RecurrenceConfig tunes the recurring event sweep.
type RecurrenceConfig struct {
	// SweepSchedule is a cron spec, e.g. "@every 1h".
	SweepSchedule string `yaml:"sweep_schedule"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() *Config {
	return &Config{
		Addr:      ":8099",
		DataDir:   "/data",
		StaticDir: "./static",
		Cloud: CloudConfig{
			AuthPollSeconds: 60,
		},
		Sync: SyncConfig{
			DebounceSeconds:   2,
			MaxRetries:        3,
			RetryDelaySeconds: 1,
			BackoffMultiplier: 2,
			CooldownSeconds:   2.5,
		},
		Recurrence: RecurrenceConfig{
			SweepSchedule: "@every 1h",
		},
	}
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults plus env only.
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("CLOUD_URL"); v != "" {
		c.Cloud.URL = v
	}
	if v := os.Getenv("CLOUD_API_KEY"); v != "" {
		c.Cloud.APIKey = v
	}
	if v := os.Getenv("CLOUD_ACCESS_TOKEN"); v != "" {
		c.Cloud.AccessToken = v
	}
}

// SyncCooldown returns the syncing indicator hold time.
func (c *Config) SyncCooldown() time.Duration {
	return time.Duration(c.Sync.CooldownSeconds * float64(time.Second))
}

// SyncDebounce returns the queue quiet period.
func (c *Config) SyncDebounce() time.Duration {
	return time.Duration(c.Sync.DebounceSeconds) * time.Second
}

// SyncRetryDelay returns the wait before the first retry.
func (c *Config) SyncRetryDelay() time.Duration {
	return time.Duration(c.Sync.RetryDelaySeconds) * time.Second
}

// AuthPollInterval returns the identity re-check period.
func (c *Config) AuthPollInterval() time.Duration {
	return time.Duration(c.Cloud.AuthPollSeconds) * time.Second
}

// CloudEnabled reports whether remote sync is configured at all.
func (c *Config) CloudEnabled() bool {
	return c.Cloud.URL != "" && c.Cloud.APIKey != ""
}
