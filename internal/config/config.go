// Package config provides centralized configuration for the ETL run.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// CutoffLayout is the format of ETL_CUTOFF_DATE.
const CutoffLayout = "2006-01-02"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Pipeline PipelineConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// PipelineConfig holds the run's inputs and transformation settings.
type PipelineConfig struct {
	// InputPath is the CSV file to read (default: sample_data.csv)
	InputPath string `env:"ETL_INPUT_PATH" envDefault:"sample_data.csv"`

	// Destination is a SQLite file path or a database URL (default: analytics.db)
	Destination string `env:"ETL_DESTINATION" envDefault:"analytics.db"`

	// TableName is the table replaced at the destination (default: clean_sales_data)
	TableName string `env:"ETL_TABLE" envDefault:"clean_sales_data"`

	// DateColumn is the normalized column the recency filter applies to (default: order_date)
	DateColumn string `env:"ETL_DATE_COLUMN" envDefault:"order_date"`

	// Cutoff is the earliest date kept, YYYY-MM-DD, inclusive (default: 2024-01-01)
	Cutoff string `env:"ETL_CUTOFF_DATE" envDefault:"2024-01-01"`

	// OnDuplicateColumn is last_wins or fail (default: last_wins)
	OnDuplicateColumn string `env:"ETL_ON_DUPLICATE_COLUMN" envDefault:"last_wins"`
}

// DatabaseConfig holds destination connection settings.
type DatabaseConfig struct {
	// ConnectTimeout bounds opening the destination (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"10s"`

	// BatchSize is the number of rows per INSERT statement (default: 500)
	BatchSize int `env:"DB_BATCH_SIZE" envDefault:"500"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// CutoffDate parses Pipeline.Cutoff.
func (c *Config) CutoffDate() (time.Time, error) {
	return time.Parse(CutoffLayout, strings.TrimSpace(c.Pipeline.Cutoff))
}

// String returns a safe string representation of the config for logging.
// Credentials in the destination URL are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Pipeline: {Input: %q, Destination: %q, Table: %q, DateColumn: %q, Cutoff: %q}, ",
		c.Pipeline.InputPath, maskDestination(c.Pipeline.Destination), c.Pipeline.TableName,
		c.Pipeline.DateColumn, c.Pipeline.Cutoff))
	b.WriteString(fmt.Sprintf("Database: {ConnectTimeout: %s, BatchSize: %d}, ",
		c.Database.ConnectTimeout, c.Database.BatchSize))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

// maskDestination hides the password of a URL destination.
func maskDestination(dest string) string {
	u, err := url.Parse(dest)
	if err != nil || u.User == nil {
		return dest
	}
	return u.Redacted()
}
