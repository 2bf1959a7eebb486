package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if validation fails.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom reads configuration from environ instead of the process
// environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Pipeline validation
	if strings.TrimSpace(c.Pipeline.InputPath) == "" {
		errs = append(errs, "ETL_INPUT_PATH must not be empty")
	}
	if strings.TrimSpace(c.Pipeline.Destination) == "" {
		errs = append(errs, "ETL_DESTINATION must not be empty")
	}
	if strings.TrimSpace(c.Pipeline.TableName) == "" {
		errs = append(errs, "ETL_TABLE must not be empty")
	}
	if strings.TrimSpace(c.Pipeline.DateColumn) == "" {
		errs = append(errs, "ETL_DATE_COLUMN must not be empty")
	}
	if _, err := c.CutoffDate(); err != nil {
		errs = append(errs, fmt.Sprintf("ETL_CUTOFF_DATE (%q) must be a date in YYYY-MM-DD form", c.Pipeline.Cutoff))
	}
	validPolicies := map[string]bool{"last_wins": true, "fail": true}
	if !validPolicies[strings.ToLower(c.Pipeline.OnDuplicateColumn)] {
		errs = append(errs, fmt.Sprintf("ETL_ON_DUPLICATE_COLUMN (%q) must be one of: last_wins, fail", c.Pipeline.OnDuplicateColumn))
	}

	// Database validation
	if c.Database.ConnectTimeout <= 0 {
		errs = append(errs, "DB_CONNECT_TIMEOUT must be positive")
	}
	if c.Database.BatchSize <= 0 {
		errs = append(errs, "DB_BATCH_SIZE must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
