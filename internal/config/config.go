package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voxmedia/maestro-go/internal/progress"
)

// Config defines configuration for the maestro CLI.
type Config struct {
	URL       string      `yaml:"url"`
	Token     string      `yaml:"token"`
	Table     string      `yaml:"table"`
	MaxSleep  float64     `yaml:"max_sleep"`
	ChunkSize int64       `yaml:"chunk_size"`
	Dest      string      `yaml:"dest"`
	Cleanup   bool        `yaml:"cleanup"`
	LogLevel  string      `yaml:"log_level"`
	Retry     RetryConfig `yaml:"retry"`
}

// RetryConfig defines retry behavior for bulk transfers.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		MaxSleep:  60,
		ChunkSize: 64 * 1024,
		LogLevel:  "info",
		Retry: RetryConfig{
			Attempts:   5,
			Backoff:    time.Second,
			MaxBackoff: 30 * time.Second,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with human-readable chunk
// size and durations.
type yamlConfig struct {
	URL       string          `yaml:"url"`
	Token     string          `yaml:"token"`
	Table     string          `yaml:"table"`
	MaxSleep  float64         `yaml:"max_sleep"`
	ChunkSize string          `yaml:"chunk_size"`
	Dest      string          `yaml:"dest"`
	Cleanup   bool            `yaml:"cleanup"`
	LogLevel  string          `yaml:"log_level"`
	Retry     yamlRetryConfig `yaml:"retry"`
}

type yamlRetryConfig struct {
	Attempts   int    `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.URL != "" {
		cfg.URL = yc.URL
	}
	if yc.Token != "" {
		cfg.Token = yc.Token
	}
	if yc.Table != "" {
		cfg.Table = yc.Table
	}
	if yc.MaxSleep != 0 {
		cfg.MaxSleep = yc.MaxSleep
	}
	if yc.ChunkSize != "" {
		size, err := progress.ParseBytes(yc.ChunkSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse chunk_size: %w", err)
		}
		cfg.ChunkSize = size
	}
	if yc.Dest != "" {
		cfg.Dest = yc.Dest
	}
	cfg.Cleanup = yc.Cleanup
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	if yc.Retry.Backoff != "" {
		d, err := time.ParseDuration(yc.Retry.Backoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.backoff: %w", err)
		}
		cfg.Retry.Backoff = d
	}
	if yc.Retry.MaxBackoff != "" {
		d, err := time.ParseDuration(yc.Retry.MaxBackoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.max_backoff: %w", err)
		}
		cfg.Retry.MaxBackoff = d
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the MAESTRO_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("MAESTRO_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("MAESTRO_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("MAESTRO_TABLE"); v != "" {
		c.Table = v
	}
	if v := os.Getenv("MAESTRO_MAX_SLEEP"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse MAESTRO_MAX_SLEEP: %w", err)
		}
		c.MaxSleep = f
	}
	if v := os.Getenv("MAESTRO_CHUNK_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse MAESTRO_CHUNK_SIZE: %w", err)
		}
		c.ChunkSize = size
	}
	if v := os.Getenv("MAESTRO_DEST"); v != "" {
		c.Dest = v
	}
	if v := os.Getenv("MAESTRO_CLEANUP"); v != "" {
		c.Cleanup = v == "true" || v == "1"
	}
	if v := os.Getenv("MAESTRO_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MAESTRO_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MAESTRO_RETRY_ATTEMPTS: %w", err)
		}
		c.Retry.Attempts = n
	}
	if v := os.Getenv("MAESTRO_RETRY_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse MAESTRO_RETRY_BACKOFF: %w", err)
		}
		c.Retry.Backoff = d
	}
	if v := os.Getenv("MAESTRO_RETRY_MAX_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse MAESTRO_RETRY_MAX_BACKOFF: %w", err)
		}
		c.Retry.MaxBackoff = d
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("config: url is required")
	}
	if c.Token == "" {
		return errors.New("config: token is required")
	}
	if c.Table == "" {
		return errors.New("config: table is required")
	}
	if c.MaxSleep <= 0 {
		return errors.New("config: max_sleep must be positive")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.URL != "" {
		c.URL = override.URL
	}
	if override.Token != "" {
		c.Token = override.Token
	}
	if override.Table != "" {
		c.Table = override.Table
	}
	if override.MaxSleep != 0 {
		c.MaxSleep = override.MaxSleep
	}
	if override.ChunkSize != 0 {
		c.ChunkSize = override.ChunkSize
	}
	if override.Dest != "" {
		c.Dest = override.Dest
	}
	if override.Cleanup {
		c.Cleanup = override.Cleanup
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	return c
}
