package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/garyjia/approval-ledger/internal/application/ledger"
)

// IntegrityReporter receives the outcome of each workflow check
type IntegrityReporter interface {
	ObserveVerification(err error)
}

// IntegrityConfig holds configuration for the integrity worker
type IntegrityConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultIntegrityConfig returns default configuration
func DefaultIntegrityConfig() IntegrityConfig {
	return IntegrityConfig{
		PollInterval: time.Minute,
		BatchSize:    100,
	}
}

// IntegrityStats summarises the worker's progress
type IntegrityStats struct {
	Checked  uint64
	Failed   uint64
	Cursor   string
	LastRun  time.Time
	LastFail string
}

// IntegrityWorker walks every workflow in id order, replays its audit trail
// and compares the result with the stored record. Each tick checks one batch
// and the walk restarts from id 1 after reaching the counter.
type IntegrityWorker struct {
	config   IntegrityConfig
	engine   ledger.Engine
	reporter IntegrityReporter
	logger   *zap.Logger

	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
	cursor    *uint256.Int
	stats     IntegrityStats
}

// NewIntegrityWorker creates a new integrity worker. reporter may be nil.
func NewIntegrityWorker(config IntegrityConfig, engine ledger.Engine, reporter IntegrityReporter, logger *zap.Logger) *IntegrityWorker {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultIntegrityConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultIntegrityConfig().BatchSize
	}
	return &IntegrityWorker{
		config:   config,
		engine:   engine,
		reporter: reporter,
		logger:   logger.Named("integrity"),
		cursor:   uint256.NewInt(1),
	}
}

// Start begins the worker polling loop
func (w *IntegrityWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("integrity worker already running")
	}

	var runCtx context.Context
	runCtx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("IntegrityWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop(runCtx, w.done)
	return nil
}

// Stop terminates the worker and waits for an in-flight batch to finish
func (w *IntegrityWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	stats := w.Stats()
	w.logger.Info("IntegrityWorker stopped",
		zap.Uint64("checked", stats.Checked),
		zap.Uint64("failed", stats.Failed))
	return nil
}

// Name returns the worker name for identification
func (w *IntegrityWorker) Name() string {
	return "IntegrityWorker"
}

// Stats returns a snapshot of the worker's progress
func (w *IntegrityWorker) Stats() IntegrityStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := w.stats
	s.Cursor = w.cursor.Dec()
	return s
}

func (w *IntegrityWorker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn("Integrity batch aborted", zap.Error(err))
			}
		}
	}
}

// RunOnce checks the next batch of workflows. A workflow that fails
// verification is counted and logged; an error reading the ledger aborts the
// batch and the same ids are retried on the next run.
func (w *IntegrityWorker) RunOnce(ctx context.Context) error {
	count, err := w.engine.GetWorkflowCount(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	if w.cursor.Gt(count) {
		w.cursor = uint256.NewInt(1)
	}
	id := new(uint256.Int).Set(w.cursor)
	w.mu.Unlock()

	one := uint256.NewInt(1)
	for i := 0; i < w.config.BatchSize && !id.Gt(count) && !id.IsZero(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		verr, err := w.check(ctx, id)
		if err != nil {
			return err
		}
		if w.reporter != nil {
			w.reporter.ObserveVerification(verr)
		}

		w.mu.Lock()
		w.stats.Checked++
		if verr != nil {
			w.stats.Failed++
			w.stats.LastFail = id.Dec()
		}
		w.cursor = new(uint256.Int).Add(id, one)
		w.mu.Unlock()

		if verr != nil {
			w.logger.Error("Workflow failed verification",
				zap.String("workflow_id", id.Dec()),
				zap.Error(verr))
		}

		id = new(uint256.Int).Add(id, one)
	}

	w.mu.Lock()
	w.stats.LastRun = time.Now()
	w.mu.Unlock()
	return nil
}

// check verifies one workflow and returns the mismatch, if any. A mismatch
// is only reported when a second snapshot confirms it, since a writer that
// does not share this engine's lock can still commit between two reads.
func (w *IntegrityWorker) check(ctx context.Context, id *uint256.Int) (mismatch error, err error) {
	for attempt := 0; attempt < 2; attempt++ {
		wf, records, err := w.engine.GetWorkflowSnapshot(ctx, id)
		if err != nil {
			return nil, err
		}
		if mismatch = ledger.Verify(wf, records); mismatch == nil {
			return nil, nil
		}
		if attempt == 0 {
			w.logger.Debug("Verification failed, re-reading workflow",
				zap.String("workflow_id", id.Dec()),
				zap.Error(mismatch))
		}
	}
	return mismatch, nil
}
