package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ligustah/fontpack/internal/progress"
)

// Config defines configuration for the fontpack CLI.
type Config struct {
	Cache      string        `yaml:"cache"`
	Prefix     string        `yaml:"prefix"`
	Workers    int           `yaml:"workers"`
	Timeout    time.Duration `yaml:"timeout"`
	CopyBuffer int64         `yaml:"copy_buffer"`
	Level      int           `yaml:"level"`
	Progress   bool          `yaml:"progress"`
	Retry      RetryConfig   `yaml:"retry"`
	Log        LogConfig     `yaml:"log"`
}

// RetryConfig defines retry behavior.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// LogConfig defines logger output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Workers:    0, // unbounded
		Timeout:    30 * time.Second,
		CopyBuffer: 32 * 1024,
		Level:      flate.DefaultCompression,
		Retry: RetryConfig{
			Attempts:   5,
			Backoff:    time.Second,
			MaxBackoff: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// fileConfig is the on-disk form with string durations and sizes.
type fileConfig struct {
	Cache      string          `yaml:"cache" toml:"cache"`
	Prefix     string          `yaml:"prefix" toml:"prefix"`
	Workers    int             `yaml:"workers" toml:"workers"`
	Timeout    string          `yaml:"timeout" toml:"timeout"`
	CopyBuffer string          `yaml:"copy_buffer" toml:"copy_buffer"`
	Level      *int            `yaml:"level" toml:"level"`
	Progress   bool            `yaml:"progress" toml:"progress"`
	Retry      fileRetryConfig `yaml:"retry" toml:"retry"`
	Log        LogConfig       `yaml:"log" toml:"log"`
}

type fileRetryConfig struct {
	Attempts   int    `yaml:"attempts" toml:"attempts"`
	Backoff    string `yaml:"backoff" toml:"backoff"`
	MaxBackoff string `yaml:"max_backoff" toml:"max_backoff"`
}

// LoadFromFile loads configuration from a YAML file, or a TOML file when
// path ends in .toml. Unset fields keep their defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &fc)
	} else {
		err = yaml.Unmarshal(data, &fc)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if fc.Cache != "" {
		cfg.Cache = fc.Cache
	}
	if fc.Prefix != "" {
		cfg.Prefix = fc.Prefix
	}
	if fc.Workers != 0 {
		cfg.Workers = fc.Workers
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if fc.CopyBuffer != "" {
		size, err := progress.ParseBytes(fc.CopyBuffer)
		if err != nil {
			return Config{}, fmt.Errorf("parse copy_buffer: %w", err)
		}
		cfg.CopyBuffer = size
	}
	if fc.Level != nil {
		cfg.Level = *fc.Level
	}
	cfg.Progress = fc.Progress
	if fc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = fc.Retry.Attempts
	}
	if fc.Retry.Backoff != "" {
		d, err := time.ParseDuration(fc.Retry.Backoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.backoff: %w", err)
		}
		cfg.Retry.Backoff = d
	}
	if fc.Retry.MaxBackoff != "" {
		d, err := time.ParseDuration(fc.Retry.MaxBackoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.max_backoff: %w", err)
		}
		cfg.Retry.MaxBackoff = d
	}
	if fc.Log.Level != "" {
		cfg.Log.Level = fc.Log.Level
	}
	if fc.Log.Format != "" {
		cfg.Log.Format = fc.Log.Format
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the FONTPACK_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("FONTPACK_CACHE"); v != "" {
		c.Cache = v
	}
	if v := os.Getenv("FONTPACK_PREFIX"); v != "" {
		c.Prefix = v
	}
	if v := os.Getenv("FONTPACK_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse FONTPACK_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("FONTPACK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse FONTPACK_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("FONTPACK_COPY_BUFFER"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse FONTPACK_COPY_BUFFER: %w", err)
		}
		c.CopyBuffer = size
	}
	if v := os.Getenv("FONTPACK_LEVEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse FONTPACK_LEVEL: %w", err)
		}
		c.Level = n
	}
	if v := os.Getenv("FONTPACK_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("FONTPACK_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse FONTPACK_RETRY_ATTEMPTS: %w", err)
		}
		c.Retry.Attempts = n
	}
	if v := os.Getenv("FONTPACK_RETRY_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse FONTPACK_RETRY_BACKOFF: %w", err)
		}
		c.Retry.Backoff = d
	}
	if v := os.Getenv("FONTPACK_RETRY_MAX_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse FONTPACK_RETRY_MAX_BACKOFF: %w", err)
		}
		c.Retry.MaxBackoff = d
	}
	if v := os.Getenv("FONTPACK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FONTPACK_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Cache == "" {
		return errors.New("config: cache is required")
	}
	if c.Workers < 0 {
		return errors.New("config: workers must not be negative")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	if c.CopyBuffer <= 0 {
		return errors.New("config: copy_buffer must be positive")
	}
	if c.Level < flate.HuffmanOnly || c.Level > flate.BestCompression {
		return fmt.Errorf("config: level must be between %d and %d", flate.HuffmanOnly, flate.BestCompression)
	}
	if c.Retry.Attempts < 1 {
		return errors.New("config: retry.attempts must be at least 1")
	}
	if c.Retry.Backoff < 0 || c.Retry.MaxBackoff < 0 {
		return errors.New("config: retry backoff must not be negative")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Cache != "" {
		c.Cache = override.Cache
	}
	if override.Prefix != "" {
		c.Prefix = override.Prefix
	}
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.CopyBuffer != 0 {
		c.CopyBuffer = override.CopyBuffer
	}
	if override.Level != 0 {
		c.Level = override.Level
	}
	if override.Progress {
		c.Progress = override.Progress
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
	if override.Log.Level != "" {
		c.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		c.Log.Format = override.Log.Format
	}
	return c
}
