package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/approval-ledger/internal/application/dispatcher"
	"github.com/garyjia/approval-ledger/internal/application/ledger"
	"github.com/garyjia/approval-ledger/internal/application/port"
	"github.com/garyjia/approval-ledger/internal/infrastructure/audit"
	"github.com/garyjia/approval-ledger/internal/infrastructure/host"
	"github.com/garyjia/approval-ledger/internal/infrastructure/metrics"
	"github.com/garyjia/approval-ledger/internal/infrastructure/persistence/memory"
	redisstore "github.com/garyjia/approval-ledger/internal/infrastructure/persistence/redis"
	"github.com/garyjia/approval-ledger/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/approval-ledger/internal/infrastructure/worker"
	"github.com/garyjia/approval-ledger/pkg/database"
)

// StoreBundle holds the storage backend and its optional distributed lock.
type StoreBundle struct {
	Store  port.AtomicStore
	Locker port.Locker
}

// ProvideStore opens the configured AtomicStore. Only the redis backend
// can be shared between processes, so it alone comes with a Locker.
func ProvideStore(ctx context.Context, cfg *Config, logger *zap.Logger) (*StoreBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Store.Backend {
	case BackendMemory:
		return &StoreBundle{Store: memory.NewStore(logger)}, nil

	case BackendSQLite:
		store, err := sqlite.Open(ctx, database.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			BusyTimeout:     cfg.Database.BusyTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return &StoreBundle{Store: store}, nil

	case BackendRedis:
		store := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisstore.WithPrefix(cfg.Redis.Prefix),
			redisstore.WithLogger(logger),
		)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		return &StoreBundle{
			Store:  store,
			Locker: redisstore.NewLocker(store.Client(), cfg.Redis.Prefix),
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(dispatcher.WithLogger(logger)), nil
}

// ProvideMetrics creates the Prometheus collectors and subscribes them to
// ledger events.
func ProvideMetrics(cfg *MetricsConfig, disp dispatcher.Dispatcher) *metrics.Metrics {
	m := metrics.New(metrics.Config{
		Enabled:   cfg.Enabled,
		Namespace: cfg.Namespace,
		Path:      cfg.Path,
	})
	if m.Enabled() {
		m.Subscribe(disp)
	}
	return m
}

// ProvideAuditLog subscribes the structured audit log to ledger events.
func ProvideAuditLog(disp dispatcher.Dispatcher, logger *zap.Logger) *audit.Logger {
	a := audit.NewLogger(logger)
	a.Subscribe(disp)
	return a
}

// EngineDeps holds dependencies for the ledger engine.
type EngineDeps struct {
	Stores     *StoreBundle
	Dispatcher dispatcher.Dispatcher
	Clock      port.Clock
	Identity   port.Identity
	Config     *StoreConfig
	Logger     *zap.Logger
}

// ProvideEngine creates the ledger engine.
// Identity defaults to the caller carried by the request context.
func ProvideEngine(deps *EngineDeps) (ledger.Engine, error) {
	if deps == nil || deps.Stores == nil || deps.Stores.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = host.NewSystemClock()
	}
	identity := deps.Identity
	if identity == nil {
		identity = host.ContextIdentity{}
	}

	opts := []ledger.EngineOption{ledger.WithLogger(deps.Logger)}
	if deps.Dispatcher != nil {
		opts = append(opts, ledger.WithDispatcher(deps.Dispatcher))
	}
	if deps.Stores.Locker != nil {
		opts = append(opts, ledger.WithLocker(deps.Stores.Locker))
	}
	if deps.Config != nil && deps.Config.LockTTL > 0 {
		opts = append(opts, ledger.WithLockTTL(deps.Config.LockTTL))
	}

	return ledger.NewEngine(deps.Stores.Store, clock, identity, opts...), nil
}

// WorkerBundle holds the background workers and their manager.
type WorkerBundle struct {
	Manager   *worker.Manager
	Integrity *worker.IntegrityWorker
}

// ProvideWorkers registers the background workers. The integrity worker is
// only added when enabled; reporter may be nil.
func ProvideWorkers(cfg *IntegrityConfig, engine ledger.Engine, reporter worker.IntegrityReporter, logger *zap.Logger) (*WorkerBundle, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	bundle := &WorkerBundle{Manager: worker.NewManager(logger)}
	if cfg.Enabled {
		bundle.Integrity = worker.NewIntegrityWorker(worker.IntegrityConfig{
			PollInterval: cfg.Interval,
			BatchSize:    cfg.BatchSize,
		}, engine, reporter, logger)
		bundle.Manager.Register(bundle.Integrity)
	}
	return bundle, nil
}
