package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values
const (
	DefaultBatchSize      = 20
	DefaultMaxWorkers     = 5
	DefaultRequestTimeout = 30 * time.Second
)

// BackupConfig holds the configuration for one backup run
type BackupConfig struct {
	// GitHub
	Token   string
	OrgName string

	// Scheduling
	BatchSize  int
	MaxWorkers int

	// LimitUsers truncates the member set to the first N members when > 0.
	// Used for test runs against large organizations.
	LimitUsers int

	RequestTimeout time.Duration
}

// Load loads the configuration from environment variables
func Load() (*BackupConfig, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return &BackupConfig{
		Token:          getEnv("GITHUB_TOKEN", ""),
		OrgName:        getEnv("GITHUB_ORG", ""),
		BatchSize:      getEnvInt("BACKUP_BATCH_SIZE", DefaultBatchSize),
		MaxWorkers:     getEnvInt("BACKUP_MAX_WORKERS", DefaultMaxWorkers),
		LimitUsers:     getEnvInt("BACKUP_LIMIT_USERS", 0),
		RequestTimeout: DefaultRequestTimeout,
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// Validate validates the configuration
func (c *BackupConfig) Validate() error {
	if c.Token == "" {
		return &ConfigError{Field: "GITHUB_TOKEN", Message: "GitHub token is required"}
	}
	if c.OrgName == "" {
		return &ConfigError{Field: "GITHUB_ORG", Message: "organization name is required"}
	}
	if c.BatchSize <= 0 {
		return &ConfigError{Field: "BACKUP_BATCH_SIZE", Message: "batch size must be positive"}
	}
	if c.MaxWorkers <= 0 {
		return &ConfigError{Field: "BACKUP_MAX_WORKERS", Message: "max workers must be positive"}
	}
	if c.LimitUsers < 0 {
		return &ConfigError{Field: "BACKUP_LIMIT_USERS", Message: "limit users must not be negative"}
	}
	if c.RequestTimeout <= 0 {
		return &ConfigError{Field: "REQUEST_TIMEOUT", Message: "request timeout must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
