// Package container provides dependency injection and lifecycle management
// for the approval ledger.
package container

import (
	"fmt"
	"time"
)

// Store backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all configuration for the Container.
type Config struct {
	// Store selects and tunes the ledger backend
	Store StoreConfig

	// Database configuration for the sqlite backend
	Database DatabaseConfig

	// Redis configuration for the redis backend
	Redis RedisConfig

	// Metrics configuration
	Metrics MetricsConfig

	// Integrity configures the background history verifier
	Integrity IntegrityConfig
}

// StoreConfig selects the AtomicStore implementation.
type StoreConfig struct {
	// Backend is one of memory, sqlite, redis
	Backend string

	// LockTTL bounds how long a distributed lock is held
	LockTTL time.Duration

	// Install writes the initial named keys on Start
	Install bool
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits on a locked database
	BusyTimeout time.Duration
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces every key the ledger writes
	Prefix string
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
	Path      string
}

// IntegrityConfig holds background verifier settings.
type IntegrityConfig struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendSQLite,
			LockTTL: 30 * time.Second,
			Install: true,
		},
		Database: DatabaseConfig{
			Path:            "data/ledger.db",
			MaxOpenConns:    8,
			MaxIdleConns:    4,
			ConnMaxLifetime: 30 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "ledger:",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "approval_ledger",
			Path:      "/metrics",
		},
		Integrity: IntegrityConfig{
			Enabled:   true,
			Interval:  time.Minute,
			BatchSize: 100,
		},
	}
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Store.LockTTL <= 0 {
		return fmt.Errorf("lock TTL must be positive")
	}

	if c.Integrity.Enabled && (c.Integrity.Interval <= 0 || c.Integrity.BatchSize <= 0) {
		return fmt.Errorf("integrity interval and batch size must be positive")
	}

	return nil
}
