package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/garyjia/approval-ledger/internal/application/dispatcher"
	"github.com/garyjia/approval-ledger/internal/application/port"
	"github.com/garyjia/approval-ledger/internal/domain/entity"
	"github.com/garyjia/approval-ledger/internal/domain/event"
	domainwf "github.com/garyjia/approval-ledger/internal/domain/workflow"
)

// CurrentContractVersion is written to named_keys at installation
const CurrentContractVersion = "1.0.0"

const (
	counterLockKey = "counter"
	defaultLockTTL = 30 * time.Second
)

// Engine is the audited approval state machine
type Engine interface {
	// Install writes the initial named keys. It is idempotent.
	Install(ctx context.Context) error

	// ContractVersion returns the installed layout version
	ContractVersion(ctx context.Context) (string, error)

	// CreateWorkflow starts a DRAFT workflow owned by the caller and returns its id
	CreateWorkflow(ctx context.Context, templateHash, dataHash entity.Hash) (*uint256.Int, error)

	// TransitionState moves a workflow to a new state and appends the audit record.
	// actorRole is recorded as claimed; it is never checked.
	TransitionState(ctx context.Context, id *uint256.Int, to domainwf.State, actorRole entity.Role, commentHash entity.Hash) error

	// GetWorkflowState returns the current record
	GetWorkflowState(ctx context.Context, id *uint256.Int) (*entity.WorkflowData, error)

	// GetWorkflowHistory returns the audit trail in call order
	GetWorkflowHistory(ctx context.Context, id *uint256.Int) ([]entity.TransitionRecord, error)

	// GetWorkflowCount returns how many workflows have been created
	GetWorkflowCount(ctx context.Context) (*uint256.Int, error)

	// GetWorkflowSnapshot returns the record and its audit trail read under the
	// workflow's lock, so no transition can land between the two reads
	GetWorkflowSnapshot(ctx context.Context, id *uint256.Int) (*entity.WorkflowData, []entity.TransitionRecord, error)
}

type engineImpl struct {
	store     port.AtomicStore
	clock     port.Clock
	identity  port.Identity
	counter   *Counter
	workflows *WorkflowStore
	log       *TransitionLog

	local      *keyedMutex
	locker     port.Locker
	lockTTL    time.Duration
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger
}

// EngineOption configures the engine
type EngineOption func(*engineImpl)

// WithDispatcher publishes ledger events after each committed write
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLocker adds a cross-process lock taken after the in-process one
func WithLocker(l port.Locker) EngineOption {
	return func(e *engineImpl) {
		e.locker = l
	}
}

// WithLockTTL bounds how long a cross-process lock may be held
func WithLockTTL(ttl time.Duration) EngineOption {
	return func(e *engineImpl) {
		if ttl > 0 {
			e.lockTTL = ttl
		}
	}
}

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *engineImpl) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over the given host capabilities
func NewEngine(store port.AtomicStore, clock port.Clock, identity port.Identity, opts ...EngineOption) Engine {
	counter := NewCounter(store)
	e := &engineImpl{
		store:     store,
		clock:     clock,
		identity:  identity,
		counter:   counter,
		workflows: NewWorkflowStore(store, counter),
		log:       NewTransitionLog(store),
		local:     newKeyedMutex(),
		lockTTL:   defaultLockTTL,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func workflowLockKey(id *uint256.Int) string {
	return "workflow:" + entity.WorkflowKey(id)
}

// withLock runs fn holding key in this process and, if configured, across processes
func (e *engineImpl) withLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	unlockLocal, err := e.local.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: acquire lock %s: %w", domainwf.ErrStorage, key, err)
	}
	defer unlockLocal()

	if e.locker != nil {
		unlock, err := e.locker.Lock(ctx, key, e.lockTTL)
		if err != nil {
			return fmt.Errorf("%w: acquire distributed lock %s: %w", domainwf.ErrStorage, key, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				e.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					zap.String("key", key), zap.Error(err))
			}
		}()
	}

	return fn(ctx)
}

// classify makes sure a failure coming out of a commit carries an error kind
func classify(err error) error {
	if err == nil || domainwf.CodeOf(err) != domainwf.CodeUnknown {
		return err
	}
	return fmt.Errorf("%w: %w", domainwf.ErrStorage, err)
}

func (e *engineImpl) Install(ctx context.Context) error {
	err := e.withLock(ctx, counterLockKey, func(ctx context.Context) error {
		return e.store.WithTransaction(ctx, func(txCtx context.Context) error {
			if _, err := e.store.Get(txCtx, port.DictNamedKeys, port.KeyWorkflowCount); errors.Is(err, port.ErrKeyNotFound) {
				if err := e.counter.Seed(txCtx, uint256.NewInt(0)); err != nil {
					return err
				}
			} else if err != nil {
				return fmt.Errorf("%w: read workflow count: %w", domainwf.ErrStorage, err)
			}

			if _, err := e.store.Get(txCtx, port.DictNamedKeys, port.KeyContractVersion); errors.Is(err, port.ErrKeyNotFound) {
				if err := e.store.Put(txCtx, port.DictNamedKeys, port.KeyContractVersion, entity.EncodeString(CurrentContractVersion)); err != nil {
					return fmt.Errorf("%w: write contract version: %w", domainwf.ErrStorage, err)
				}
			} else if err != nil {
				return fmt.Errorf("%w: read contract version: %w", domainwf.ErrStorage, err)
			}
			return nil
		})
	})
	if err != nil {
		e.logger.Error("Failed to install ledger", zap.Error(err))
		return classify(err)
	}

	e.logger.Info("Ledger installed", zap.String("contract_version", CurrentContractVersion))
	return nil
}

func (e *engineImpl) ContractVersion(ctx context.Context) (string, error) {
	raw, err := e.store.Get(ctx, port.DictNamedKeys, port.KeyContractVersion)
	if errors.Is(err, port.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: contract version not installed", domainwf.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%w: read contract version: %w", domainwf.ErrStorage, err)
	}
	version, err := entity.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("%w: decode contract version: %w", domainwf.ErrStorage, err)
	}
	return version, nil
}

func (e *engineImpl) CreateWorkflow(ctx context.Context, templateHash, dataHash entity.Hash) (*uint256.Int, error) {
	creator, err := e.identity.Caller(ctx)
	if err != nil {
		return nil, err
	}

	var (
		id  *uint256.Int
		now uint64
	)
	err = e.withLock(ctx, counterLockKey, func(ctx context.Context) error {
		now = e.clock.Now()
		return e.store.WithTransaction(ctx, func(txCtx context.Context) error {
			created, err := e.workflows.Create(txCtx, templateHash, dataHash, creator, now)
			if err != nil {
				return err
			}
			if err := e.log.Init(txCtx, created); err != nil {
				return err
			}
			id = created
			return nil
		})
	})
	if err != nil {
		err = classify(err)
		e.logger.Error("Failed to create workflow", zap.Stringer("creator", creator), zap.Error(err))
		return nil, err
	}

	e.logger.Info("Workflow created",
		zap.String("workflow_id", id.Dec()),
		zap.Stringer("creator", creator),
		zap.Stringer("template_hash", templateHash),
	)
	e.publish(ctx, event.NewEvent(event.TypeWorkflowCreated, id.Dec(), map[string]interface{}{
		event.KeyCreator:  creator.String(),
		event.KeyToState:  domainwf.StateDraft.String(),
		event.KeyLedgerAt: now,
	}))
	return new(uint256.Int).Set(id), nil
}

func (e *engineImpl) TransitionState(ctx context.Context, id *uint256.Int, to domainwf.State, actorRole entity.Role, commentHash entity.Hash) error {
	if id == nil {
		return fmt.Errorf("%w: workflow_id", domainwf.ErrMissingArgument)
	}

	var (
		rec       entity.TransitionRecord
		completed bool
		from      domainwf.State
	)
	err := e.withLock(ctx, workflowLockKey(id), func(ctx context.Context) error {
		return e.store.WithTransaction(ctx, func(txCtx context.Context) error {
			current, err := e.workflows.Get(txCtx, id)
			if err != nil {
				return err
			}
			from = current.CurrentState
			if current.IsCompleted {
				return fmt.Errorf("%w: workflow %s is %s", domainwf.ErrAlreadyCompleted, id.Dec(), from)
			}
			if err := domainwf.NewMachine(from).Fire(to); err != nil {
				return err
			}

			actor, err := e.identity.Caller(txCtx)
			if err != nil {
				return err
			}
			now := e.clock.Now()

			if err := e.workflows.ApplyTransition(txCtx, current, to, now); err != nil {
				return err
			}
			rec = entity.TransitionRecord{
				FromState:   from,
				ToState:     to,
				Actor:       actor,
				ActorRole:   actorRole,
				Timestamp:   now,
				CommentHash: commentHash,
			}
			if err := e.log.Append(txCtx, id, rec); err != nil {
				return err
			}
			completed = current.IsCompleted
			return nil
		})
	})
	if err != nil {
		err = classify(err)
		e.reject(ctx, id, from, to, actorRole, err)
		return err
	}

	e.logger.Info("Workflow transitioned",
		zap.String("workflow_id", id.Dec()),
		zap.Stringer("from_state", rec.FromState),
		zap.Stringer("to_state", rec.ToState),
		zap.Stringer("actor", rec.Actor),
		zap.Stringer("actor_role", rec.ActorRole),
	)

	evt := event.NewEvent(event.TypeWorkflowTransitioned, id.Dec(), map[string]interface{}{
		event.KeyFromState: rec.FromState.String(),
		event.KeyToState:   rec.ToState.String(),
		event.KeyActor:     rec.Actor.String(),
		event.KeyRole:      uint64(rec.ActorRole),
		event.KeyLedgerAt:  rec.Timestamp,
	})
	e.publish(ctx, evt)
	if completed {
		e.publish(ctx, evt.Derive(event.TypeWorkflowCompleted))
	}
	return nil
}

func (e *engineImpl) reject(ctx context.Context, id *uint256.Int, from, to domainwf.State, role entity.Role, err error) {
	code := domainwf.CodeOf(err)
	fields := []zap.Field{
		zap.String("workflow_id", id.Dec()),
		zap.Stringer("to_state", to),
		zap.Stringer("actor_role", role),
		zap.Stringer("code", code),
		zap.Error(err),
	}
	if code == domainwf.CodeStorage {
		e.logger.Error("Transition failed", fields...)
	} else {
		e.logger.Warn("Transition rejected", fields...)
	}

	payload := map[string]interface{}{
		event.KeyToState: to.String(),
		event.KeyRole:    uint64(role),
		event.KeyReason:  code.String(),
		event.KeyCode:    uint64(code),
	}
	if code != domainwf.CodeNotFound {
		payload[event.KeyFromState] = from.String()
	}
	e.publish(ctx, event.NewEvent(event.TypeTransitionRejected, id.Dec(), payload))
}

func (e *engineImpl) publish(ctx context.Context, evt *event.Event) {
	if e.dispatcher != nil {
		e.dispatcher.DispatchAsync(ctx, evt)
	}
}

func (e *engineImpl) GetWorkflowState(ctx context.Context, id *uint256.Int) (*entity.WorkflowData, error) {
	if id == nil {
		return nil, fmt.Errorf("%w: workflow_id", domainwf.ErrMissingArgument)
	}
	return e.workflows.Get(ctx, id)
}

func (e *engineImpl) GetWorkflowHistory(ctx context.Context, id *uint256.Int) ([]entity.TransitionRecord, error) {
	if id == nil {
		return nil, fmt.Errorf("%w: workflow_id", domainwf.ErrMissingArgument)
	}
	return e.log.Get(ctx, id)
}

func (e *engineImpl) GetWorkflowCount(ctx context.Context) (*uint256.Int, error) {
	return e.counter.Current(ctx)
}

func (e *engineImpl) GetWorkflowSnapshot(ctx context.Context, id *uint256.Int) (*entity.WorkflowData, []entity.TransitionRecord, error) {
	if id == nil {
		return nil, nil, fmt.Errorf("%w: workflow_id", domainwf.ErrMissingArgument)
	}

	var (
		w       *entity.WorkflowData
		records []entity.TransitionRecord
	)
	err := e.withLock(ctx, workflowLockKey(id), func(ctx context.Context) error {
		return e.store.WithTransaction(ctx, func(txCtx context.Context) error {
			var err error
			if w, err = e.workflows.Get(txCtx, id); err != nil {
				return err
			}
			records, err = e.log.Get(txCtx, id)
			return err
		})
	})
	if err != nil {
		return nil, nil, classify(err)
	}
	return w, records, nil
}
