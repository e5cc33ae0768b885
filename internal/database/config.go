package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// parseBoolEnv reads an environment variable and parses it as a boolean.
// The second return value reports whether the variable was set at all.
func parseBoolEnv(name string) (bool, bool) {
	raw, present := os.LookupEnv(name)
	if !present || raw == "" {
		return false, false
	}
	val, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, false
	}
	return val, true
}

// Config holds all database configuration options
type Config struct {
	// Database connection settings
	Path                  string        `json:"path"`                  // Database file path
	MaxConnections        int           `json:"maxConnections"`        // Maximum number of open connections
	MaxIdleConns          int           `json:"maxIdleConns"`          // Maximum number of idle connections
	ConnMaxLifetime       time.Duration `json:"connMaxLifetime"`       // Maximum connection lifetime
	ConnMaxIdleTime       time.Duration `json:"connMaxIdleTime"`       // Maximum connection idle time
	ForceSingleConnection bool          `json:"forceSingleConnection"` // Force single connection mode for SQLite

	// Migration settings
	AutoMigrate bool `json:"autoMigrate"` // Whether to run migrations automatically on startup

	// Performance settings
	JournalMode     string `json:"journalMode"`     // SQLite journal mode (WAL, DELETE, etc.)
	SynchronousMode string `json:"synchronousMode"` // SQLite synchronous mode (FULL, NORMAL, OFF)
	CacheSize       int    `json:"cacheSize"`       // SQLite cache size in KB
	BusyTimeout     int    `json:"busyTimeout"`     // SQLite busy timeout in milliseconds
	ForeignKeys     bool   `json:"foreignKeys"`     // Enable foreign key constraints

	// Environment and runtime settings
	Environment string `json:"environment"` // Environment (development, production, test)
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path:                  "lifepulse.db",
		MaxConnections:        4,
		MaxIdleConns:          2,
		ConnMaxLifetime:       24 * time.Hour,
		ConnMaxIdleTime:       30 * time.Minute,
		ForceSingleConnection: false, // Let the service auto-detect based on journal mode
		AutoMigrate:           true,
		JournalMode:           "WAL",
		SynchronousMode:       "NORMAL",
		CacheSize:             2000,  // 2MB cache
		BusyTimeout:           30000, // 30 seconds
		ForeignKeys:           true,
		Environment:           "production",
	}
}

// DevelopmentConfig returns a configuration optimized for development
func DevelopmentConfig() *Config {
	config := DefaultConfig()
	config.Path = "lifepulse_dev.db"
	config.Environment = "development"
	return config
}

// TestConfig returns a configuration optimized for testing
func TestConfig() *Config {
	config := DefaultConfig()
	config.Path = ":memory:" // Use in-memory database for tests
	config.Environment = "test"
	config.JournalMode = "MEMORY" // WAL is meaningless for in-memory databases
	config.SynchronousMode = "OFF"
	config.CacheSize = 1000
	config.BusyTimeout = 1000
	return config
}

// LoadFromEnvironment loads configuration from environment variables
func (c *Config) LoadFromEnvironment() error {
	if path := os.Getenv("LIFEPULSE_DB_PATH"); path != "" {
		c.Path = path
	}

	if maxConns := os.Getenv("LIFEPULSE_DB_MAX_CONNECTIONS"); maxConns != "" {
		if val, err := strconv.Atoi(maxConns); err == nil && val > 0 {
			c.MaxConnections = val
		}
	}

	if maxIdle := os.Getenv("LIFEPULSE_DB_MAX_IDLE_CONNECTIONS"); maxIdle != "" {
		if val, err := strconv.Atoi(maxIdle); err == nil && val > 0 {
			c.MaxIdleConns = val
		}
	}

	if lifetime := os.Getenv("LIFEPULSE_DB_CONN_MAX_LIFETIME"); lifetime != "" {
		if val, err := time.ParseDuration(lifetime); err == nil {
			c.ConnMaxLifetime = val
		}
	}

	if idleTime := os.Getenv("LIFEPULSE_DB_CONN_MAX_IDLE_TIME"); idleTime != "" {
		if val, err := time.ParseDuration(idleTime); err == nil {
			c.ConnMaxIdleTime = val
		}
	}

	if autoMigrate, present := parseBoolEnv("LIFEPULSE_DB_AUTO_MIGRATE"); present {
		c.AutoMigrate = autoMigrate
	}

	if journalMode := os.Getenv("LIFEPULSE_DB_JOURNAL_MODE"); journalMode != "" {
		c.JournalMode = journalMode
	}

	if syncMode := os.Getenv("LIFEPULSE_DB_SYNCHRONOUS_MODE"); syncMode != "" {
		c.SynchronousMode = syncMode
	}

	if cacheSize := os.Getenv("LIFEPULSE_DB_CACHE_SIZE"); cacheSize != "" {
		if val, err := strconv.Atoi(cacheSize); err == nil && val > 0 {
			c.CacheSize = val
		}
	}

	if busyTimeout := os.Getenv("LIFEPULSE_DB_BUSY_TIMEOUT"); busyTimeout != "" {
		if val, err := strconv.Atoi(busyTimeout); err == nil && val >= 0 {
			c.BusyTimeout = val
		}
	}

	if foreignKeys, present := parseBoolEnv("LIFEPULSE_DB_FOREIGN_KEYS"); present {
		c.ForeignKeys = foreignKeys
	}

	if forceSingle, present := parseBoolEnv("LIFEPULSE_DB_FORCE_SINGLE_CONNECTION"); present {
		c.ForceSingleConnection = forceSingle
	}

	if environment := os.Getenv("LIFEPULSE_ENVIRONMENT"); environment != "" {
		c.Environment = environment
	}

	return nil
}

// Validate validates the configuration parameters
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	// For file-based databases, ensure the directory exists
	if c.Path != ":memory:" {
		dir := filepath.Dir(c.Path)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create database directory %s: %w", dir, err)
				}
			}
		}
	}

	if c.MaxConnections <= 0 {
		return fmt.Errorf("maxConnections must be positive, got %d", c.MaxConnections)
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("maxIdleConns cannot be negative, got %d", c.MaxIdleConns)
	}
	if c.MaxIdleConns > c.MaxConnections {
		return fmt.Errorf("maxIdleConns (%d) cannot exceed maxConnections (%d)", c.MaxIdleConns, c.MaxConnections)
	}

	switch strings.ToUpper(c.JournalMode) {
	case "WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF":
	default:
		return fmt.Errorf("invalid journal mode: %s", c.JournalMode)
	}

	switch strings.ToUpper(c.SynchronousMode) {
	case "FULL", "NORMAL", "OFF", "EXTRA":
	default:
		return fmt.Errorf("invalid synchronous mode: %s", c.SynchronousMode)
	}

	if c.CacheSize <= 0 {
		return fmt.Errorf("cacheSize must be positive, got %d", c.CacheSize)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busyTimeout cannot be negative, got %d", c.BusyTimeout)
	}

	return nil
}

// GetConnectionString builds the SQLite connection string with all options.
// Uses net/url for proper URL encoding of query parameters only.
func (c *Config) GetConnectionString() string {
	values := url.Values{}

	if c.ForeignKeys {
		values.Set("_foreign_keys", "on")
	} else {
		values.Set("_foreign_keys", "off")
	}
	values.Set("_journal_mode", c.JournalMode)
	values.Set("_synchronous", c.SynchronousMode)
	// Negative value so SQLite interprets the cache size as KB
	values.Set("_cache_size", fmt.Sprintf("%d", -c.CacheSize))
	values.Set("_busy_timeout", fmt.Sprintf("%d", c.BusyTimeout))

	// Escape only the characters that would break query string parsing
	path := c.Path
	if strings.ContainsAny(path, "?&") {
		path = strings.ReplaceAll(path, "?", "%3F")
		path = strings.ReplaceAll(path, "&", "%26")
	}

	return path + "?" + values.Encode()
}

// IsInMemory returns true if the database is configured to use in-memory storage
func (c *Config) IsInMemory() bool {
	return c.Path == ":memory:"
}

// ConfigForEnvironment returns a configuration optimized for the given environment
func ConfigForEnvironment(env string) *Config {
	switch env {
	case "development":
		return DevelopmentConfig()
	case "test":
		return TestConfig()
	default:
		config := DefaultConfig()
		config.Path = filepath.Join(".", "lifepulse.db")
		return config
	}
}
