// Package config loads the settings of the file diff cache from an optional
// YAML file and FILEDIFF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"filediff/internal/gitdiff"
	"filediff/internal/logging"
)

// Config holds every setting. Durations are written as Go durations such as
// "5s" in YAML.
type Config struct {
	ReposPath   string        `yaml:"repos_path"`
	RenameScore int           `yaml:"rename_score"`
	Algorithm   string        `yaml:"algorithm"`
	Whitespace  string        `yaml:"whitespace"`
	DiffTimeout time.Duration `yaml:"diff_timeout"`
	MaxWeight   int64         `yaml:"max_weight"`
	Redis       RedisConfig   `yaml:"redis"`
	LogLevel    string        `yaml:"log_level"`
	LogFile     string        `yaml:"log_file"`
}

// RedisConfig selects the durable store. An empty Addr disables it.
type RedisConfig struct {
	Addr   string        `yaml:"addr"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		ReposPath:   ".",
		RenameScore: 60,
		Algorithm:   gitdiff.Histogram.String(),
		Whitespace:  gitdiff.IgnoreNone.String(),
		DiffTimeout: 5 * time.Second,
		MaxWeight:   10 << 20,
		Redis: RedisConfig{
			Prefix: "filediff:",
			TTL:    24 * time.Hour,
		},
		LogLevel: "info",
	}
}

// Load reads path on top of the defaults, then applies the environment. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.ReposPath = getEnv("FILEDIFF_REPOS_PATH", c.ReposPath)
	c.Algorithm = getEnv("FILEDIFF_ALGORITHM", c.Algorithm)
	c.Whitespace = getEnv("FILEDIFF_WHITESPACE", c.Whitespace)
	c.Redis.Addr = getEnv("FILEDIFF_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Prefix = getEnv("FILEDIFF_REDIS_PREFIX", c.Redis.Prefix)
	c.LogLevel = getEnv("FILEDIFF_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("FILEDIFF_LOG_FILE", c.LogFile)

	var err error
	if c.RenameScore, err = getEnvInt("FILEDIFF_RENAME_SCORE", c.RenameScore); err != nil {
		return err
	}
	maxWeight, err := getEnvInt("FILEDIFF_MAX_WEIGHT", int(c.MaxWeight))
	if err != nil {
		return err
	}
	c.MaxWeight = int64(maxWeight)
	if c.DiffTimeout, err = getEnvDuration("FILEDIFF_DIFF_TIMEOUT", c.DiffTimeout); err != nil {
		return err
	}
	if c.Redis.TTL, err = getEnvDuration("FILEDIFF_REDIS_TTL", c.Redis.TTL); err != nil {
		return err
	}
	return nil
}

// Validate checks enum names and bounds.
func (c *Config) Validate() error {
	var errs []error
	if _, err := gitdiff.ParseAlgorithm(c.Algorithm); err != nil {
		errs = append(errs, err)
	}
	if _, err := gitdiff.ParseWhitespace(c.Whitespace); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.RenameScore > 100 || c.RenameScore < gitdiff.RenameDetectionDisabled {
		errs = append(errs, fmt.Errorf("rename score %d out of range", c.RenameScore))
	}
	if c.MaxWeight <= 0 {
		errs = append(errs, fmt.Errorf("max weight must be positive, got %d", c.MaxWeight))
	}
	if c.DiffTimeout < 0 {
		errs = append(errs, fmt.Errorf("diff timeout must not be negative, got %s", c.DiffTimeout))
	}
	if c.Redis.TTL < 0 {
		errs = append(errs, fmt.Errorf("redis ttl must not be negative, got %s", c.Redis.TTL))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// DiffAlgorithm returns the parsed Algorithm. Call Validate first.
func (c *Config) DiffAlgorithm() gitdiff.Algorithm {
	a, _ := gitdiff.ParseAlgorithm(c.Algorithm)
	return a
}

// WhitespaceMode returns the parsed Whitespace. Call Validate first.
func (c *Config) WhitespaceMode() gitdiff.Whitespace {
	w, _ := gitdiff.ParseWhitespace(c.Whitespace)
	return w
}

// Level returns the parsed log level. Call Validate first.
func (c *Config) Level() logging.LogLevel {
	l, _ := logging.ParseLevel(c.LogLevel)
	return l
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid env %s: %w", key, err)
	}
	return i, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid env %s: %w", key, err)
	}
	return d, nil
}
