package config

import (
	"github.com/garyjia/approval-ledger/internal/container"
)

// ToContainerConfig converts the file-based config loaded by viper into
// the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Store: container.StoreConfig{
			Backend: c.Store.Backend,
			LockTTL: c.Store.LockTTL,
			Install: c.Store.Install,
		},
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Redis: container.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
		},
		Metrics: container.MetricsConfig{
			Enabled:   c.Metrics.Enabled,
			Namespace: c.Metrics.Namespace,
			Path:      c.Metrics.Path,
		},
		Integrity: container.IntegrityConfig{
			Enabled:   c.Integrity.Enabled,
			Interval:  c.Integrity.Interval,
			BatchSize: c.Integrity.BatchSize,
		},
	}
}
