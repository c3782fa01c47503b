package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/garyjia/approval-ledger/internal/application/port"
	"github.com/garyjia/approval-ledger/internal/domain/entity"
	domainwf "github.com/garyjia/approval-ledger/internal/domain/workflow"
)

// TransitionLog owns each workflow's append-only audit trail
type TransitionLog struct {
	kv port.KeyValueStore
}

// NewTransitionLog creates a log over the given store
func NewTransitionLog(kv port.KeyValueStore) *TransitionLog {
	return &TransitionLog{kv: kv}
}

// Init writes an empty trail for a newly created workflow
func (l *TransitionLog) Init(ctx context.Context, id *uint256.Int) error {
	return l.put(ctx, entity.WorkflowKey(id), nil)
}

// Append adds rec to the end of the trail; ErrNotFound if Init never ran for id
func (l *TransitionLog) Append(ctx context.Context, id *uint256.Int, rec entity.TransitionRecord) error {
	records, err := l.Get(ctx, id)
	if err != nil {
		return err
	}
	return l.put(ctx, entity.WorkflowKey(id), append(records, rec))
}

// Get returns the trail in call order. A workflow that has not transitioned
// yields an empty slice; an id that was never created yields ErrNotFound.
func (l *TransitionLog) Get(ctx context.Context, id *uint256.Int) ([]entity.TransitionRecord, error) {
	key := entity.WorkflowKey(id)
	raw, err := l.kv.Get(ctx, port.DictTransitions, key)
	if errors.Is(err, port.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: no transition log for id %s", domainwf.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read transitions %s: %w", domainwf.ErrStorage, key, err)
	}

	records, err := entity.DecodeTransitions(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode transitions %s: %w", domainwf.ErrStorage, key, err)
	}
	return records, nil
}

func (l *TransitionLog) put(ctx context.Context, key string, records []entity.TransitionRecord) error {
	if err := l.kv.Put(ctx, port.DictTransitions, key, entity.EncodeTransitions(records)); err != nil {
		return fmt.Errorf("%w: write transitions %s: %w", domainwf.ErrStorage, key, err)
	}
	return nil
}
