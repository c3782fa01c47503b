package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/approval-ledger/internal/application/dispatcher"
	"github.com/garyjia/approval-ledger/internal/application/ledger"
	"github.com/garyjia/approval-ledger/internal/application/port"
	"github.com/garyjia/approval-ledger/internal/infrastructure/audit"
	"github.com/garyjia/approval-ledger/internal/infrastructure/metrics"
	"github.com/garyjia/approval-ledger/internal/infrastructure/worker"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	clock    port.Clock
	identity port.Identity

	// Infrastructure
	stores *StoreBundle

	// Application
	dispatcher dispatcher.Dispatcher
	metrics    *metrics.Metrics
	auditLog   *audit.Logger
	engine     ledger.Engine

	// Workers
	workers *WorkerBundle

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// Option customises the host capabilities handed to the engine.
type Option func(*Container)

// WithClock overrides the system clock.
func WithClock(clock port.Clock) Option {
	return func(c *Container) {
		c.clock = clock
	}
}

// WithIdentity overrides the request-context identity.
func WithIdentity(identity port.Identity) Option {
	return func(c *Container) {
		c.identity = identity
	}
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Container{
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start initializes all components in dependency order:
// 1. Store (and distributed locker)
// 2. Event dispatcher with metrics and audit subscribers
// 3. Ledger engine, installed when configured
// 4. Background workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization", zap.String("backend", c.config.Store.Backend))

	// Step 1: Initialize store
	stores, err := ProvideStore(ctx, c.config, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	c.stores = stores
	c.logger.Info("Store initialized", zap.Bool("distributed_lock", stores.Locker != nil))

	// Step 2: Initialize dispatcher and its subscribers
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		c.closeStore()
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.dispatcher = disp
	c.metrics = ProvideMetrics(&c.config.Metrics, disp)
	c.auditLog = ProvideAuditLog(disp, c.logger)
	c.logger.Info("Dispatcher initialized", zap.Bool("metrics", c.metrics.Enabled()))

	// Step 3: Initialize engine
	engine, err := ProvideEngine(&EngineDeps{
		Stores:     c.stores,
		Dispatcher: c.dispatcher,
		Clock:      c.clock,
		Identity:   c.identity,
		Config:     &c.config.Store,
		Logger:     c.logger,
	})
	if err != nil {
		_ = c.dispatcher.Close()
		c.closeStore()
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	c.engine = engine

	if c.config.Store.Install {
		if err := c.engine.Install(ctx); err != nil {
			_ = c.dispatcher.Close()
			c.closeStore()
			return fmt.Errorf("failed to install ledger: %w", err)
		}
	}
	c.logger.Info("Ledger engine initialized")

	// Step 4: Initialize and start workers
	workers, err := ProvideWorkers(&c.config.Integrity, c.engine, c.metrics, c.logger)
	if err != nil {
		_ = c.dispatcher.Close()
		c.closeStore()
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	if err := workers.Manager.StartAll(context.WithoutCancel(ctx)); err != nil {
		_ = c.dispatcher.Close()
		c.closeStore()
		return fmt.Errorf("failed to start workers: %w", err)
	}
	c.workers = workers
	c.logger.Info("Workers initialized and started", zap.Int("count", workers.Manager.Count()))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

func (c *Container) closeStore() {
	if c.stores != nil {
		if err := c.stores.Store.Close(); err != nil {
			c.logger.Warn("Failed to close store", zap.Error(err))
		}
	}
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Step 1: Stop workers (reverse of step 4)
	if c.workers != nil {
		if err := c.workers.Manager.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	// Step 2: Close dispatcher, draining in-flight events (reverse of step 2)
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 3: Close store (reverse of step 1)
	if c.stores != nil {
		if err := c.stores.Store.Close(); err != nil {
			c.logger.Error("Failed to close store", zap.Error(err))
			errs = append(errs, fmt.Errorf("close store: %w", err))
		} else {
			c.logger.Info("Store closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	// Check store
	if c.stores != nil && !c.closed.Load() {
		if err := c.stores.Store.Ping(ctx); err != nil {
			status.Components["store"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["store"] = ComponentHealth{Healthy: true, Message: c.config.Store.Backend}
		}
	} else {
		status.Components["store"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Check dispatcher
	if c.dispatcher != nil && !c.closed.Load() {
		status.Components["dispatcher"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["dispatcher"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Check workers
	if c.workers != nil && c.workers.Manager.IsRunning() {
		msg := fmt.Sprintf("worker count: %d", c.workers.Manager.Count())
		if c.workers.Integrity != nil {
			stats := c.workers.Integrity.Stats()
			msg = fmt.Sprintf("%s, verified: %d, mismatches: %d", msg, stats.Checked, stats.Failed)
		}
		status.Components["workers"] = ComponentHealth{Healthy: true, Message: msg}
	} else {
		status.Components["workers"] = ComponentHealth{
			Healthy: false,
			Message: "not running",
		}
		status.Overall = false
	}

	// Check engine
	if c.engine != nil {
		status.Components["engine"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["engine"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	return status
}

// Getters for accessing container components

// Store returns the ledger's AtomicStore.
func (c *Container) Store() port.AtomicStore {
	if c.stores == nil {
		return nil
	}
	return c.stores.Store
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Metrics returns the Prometheus collectors.
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// Engine returns the ledger engine.
func (c *Container) Engine() ledger.Engine {
	return c.engine
}

// IntegrityWorker returns the background verifier, or nil when disabled.
func (c *Container) IntegrityWorker() *worker.IntegrityWorker {
	if c.workers == nil {
		return nil
	}
	return c.workers.Integrity
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
