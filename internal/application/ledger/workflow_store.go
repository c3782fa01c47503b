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

// WorkflowStore owns every WorkflowData record. Records are never deleted.
type WorkflowStore struct {
	kv      port.KeyValueStore
	counter *Counter
}

// NewWorkflowStore creates a store that allocates ids from counter
func NewWorkflowStore(kv port.KeyValueStore, counter *Counter) *WorkflowStore {
	return &WorkflowStore{kv: kv, counter: counter}
}

// Create allocates the next id and writes a DRAFT record for it
func (s *WorkflowStore) Create(ctx context.Context, templateHash, dataHash entity.Hash, creator entity.AccountHash, now uint64) (*uint256.Int, error) {
	id, err := s.counter.Next(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.put(ctx, entity.NewWorkflow(id, templateHash, dataHash, creator, now)); err != nil {
		return nil, err
	}
	return id, nil
}

// Get loads the record, failing with ErrNotFound if id was never created
func (s *WorkflowStore) Get(ctx context.Context, id *uint256.Int) (*entity.WorkflowData, error) {
	key := entity.WorkflowKey(id)
	raw, err := s.kv.Get(ctx, port.DictWorkflows, key)
	if errors.Is(err, port.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: id %s", domainwf.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read workflow %s: %w", domainwf.ErrStorage, key, err)
	}

	var w entity.WorkflowData
	if err := w.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: decode workflow %s: %w", domainwf.ErrStorage, key, err)
	}
	return &w, nil
}

// ApplyTransition moves w, the record the caller validated against the state
// table, to the target state and writes it back. It does not re-read the record.
func (s *WorkflowStore) ApplyTransition(ctx context.Context, w *entity.WorkflowData, to domainwf.State, now uint64) error {
	w.Apply(to, now)
	return s.put(ctx, w)
}

func (s *WorkflowStore) put(ctx context.Context, w *entity.WorkflowData) error {
	key := entity.WorkflowKey(&w.ID)
	raw, err := w.MarshalBinary()
	if err != nil {
		return fmt.Errorf("%w: encode workflow %s: %w", domainwf.ErrStorage, key, err)
	}
	if err := s.kv.Put(ctx, port.DictWorkflows, key, raw); err != nil {
		return fmt.Errorf("%w: write workflow %s: %w", domainwf.ErrStorage, key, err)
	}
	return nil
}
