// Package config loads cellcluster settings from defaults, an optional YAML
// file and CELLCLUSTER_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds runtime settings shared by the CLI, the runner and the API.
type Config struct {
	// MaxCells bounds the grid allocated for a run.
	MaxCells int    `yaml:"max_cells" validate:"gt=0"`
	Format   string `yaml:"format" validate:"oneof=text json"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
	// Production switches logging to JSON output.
	Production bool `yaml:"production"`

	SaveDir string        `yaml:"save_dir" validate:"required"`
	MaxRuns int           `yaml:"max_runs" validate:"gt=0"`
	RunTTL  time.Duration `yaml:"run_ttl" validate:"gt=0"`
	Addr    string        `yaml:"addr" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MaxCells: 1 << 24,
		Format:   "text",
		LogLevel: "info",
		SaveDir:  "data/runs",
		MaxRuns:  5,
		RunTTL:   30 * time.Minute,
		Addr:     ":8000",
	}
}

// OrDefault returns Default if c is nil, otherwise fills zero fields of c
// with their defaults.
func (c *Config) OrDefault() *Config {
	d := Default()
	if c == nil {
		return d
	}
	if c.MaxCells <= 0 {
		c.MaxCells = d.MaxCells
	}
	if c.Format == "" {
		c.Format = d.Format
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.SaveDir == "" {
		c.SaveDir = d.SaveDir
	}
	if c.MaxRuns <= 0 {
		c.MaxRuns = d.MaxRuns
	}
	if c.RunTTL <= 0 {
		c.RunTTL = d.RunTTL
	}
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	return c
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.OrDefault()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CELLCLUSTER_MAX_CELLS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CELLCLUSTER_MAX_CELLS: %w", err)
		}
		c.MaxCells = n
	}
	if v := os.Getenv("CELLCLUSTER_FORMAT"); v != "" {
		c.Format = v
	}
	if v := os.Getenv("CELLCLUSTER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CELLCLUSTER_PRODUCTION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CELLCLUSTER_PRODUCTION: %w", err)
		}
		c.Production = b
	}
	if v := os.Getenv("CELLCLUSTER_SAVE_DIR"); v != "" {
		c.SaveDir = v
	}
	if v := os.Getenv("CELLCLUSTER_MAX_RUNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CELLCLUSTER_MAX_RUNS: %w", err)
		}
		c.MaxRuns = n
	}
	if v := os.Getenv("CELLCLUSTER_RUN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CELLCLUSTER_RUN_TTL: %w", err)
		}
		c.RunTTL = d
	}
	if v := os.Getenv("CELLCLUSTER_ADDR"); v != "" {
		c.Addr = v
	}
	return nil
}
