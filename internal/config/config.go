// Package config loads runtime startup configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "config.yaml"

// AppConfig holds runtime startup configuration.
type AppConfig struct {
	Port           int              `yaml:"port"`
	DSN            string           `yaml:"dsn"` // MySQL DSN
	RedisURL       string           `yaml:"redis_url"`
	Env            string           `yaml:"env"` // "development" | "production"
	AllowedOrigins []string         `yaml:"allowed_origins"`
	Publishing     PublishingConfig `yaml:"publishing"`
}

// PublishingConfig tunes the deferred publication machinery.
type PublishingConfig struct {
	// SweepIntervalSeconds is how often the safety-net sweep over due
	// scheduled posts runs behind the per-post timers.
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
	// RetryWindowSeconds bounds how long the deferred worker keeps retrying
	// a transient commit failure, measured from the first attempt.
	RetryWindowSeconds int `yaml:"retry_window_seconds"`
}

// SweepInterval returns the sweep interval as a duration.
func (c PublishingConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// RetryWindow returns the retry window as a duration.
func (c PublishingConfig) RetryWindow() time.Duration {
	return time.Duration(c.RetryWindowSeconds) * time.Second
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env == "development" }

// Load reads and validates the YAML config file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &AppConfig{
		Port: 2333,
		Env:  "production",
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.DSN == "" {
		return nil, fmt.Errorf("config: dsn is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("config: redis_url is required")
	}
	if cfg.Publishing.SweepIntervalSeconds <= 0 {
		cfg.Publishing.SweepIntervalSeconds = 60
	}
	if cfg.Publishing.RetryWindowSeconds <= 0 {
		cfg.Publishing.RetryWindowSeconds = 600
	}
	return cfg, nil
}
