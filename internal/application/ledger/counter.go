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

// Counter is the workflow id sequence, persisted under named_keys/workflow_count.
// An absent value reads as zero.
type Counter struct {
	kv port.KeyValueStore
}

// NewCounter creates a counter over the given store
func NewCounter(kv port.KeyValueStore) *Counter {
	return &Counter{kv: kv}
}

// Current returns the number of workflows created so far
func (c *Counter) Current(ctx context.Context) (*uint256.Int, error) {
	raw, err := c.kv.Get(ctx, port.DictNamedKeys, port.KeyWorkflowCount)
	if errors.Is(err, port.ErrKeyNotFound) {
		return uint256.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read workflow count: %w", domainwf.ErrStorage, err)
	}
	v, err := entity.DecodeU256(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode workflow count: %w", domainwf.ErrStorage, err)
	}
	return v, nil
}

// Next increments the counter and returns the new value, which is the next id.
// The increment is checked; exhaustion fails with ErrOverflow and writes nothing.
func (c *Counter) Next(ctx context.Context) (*uint256.Int, error) {
	cur, err := c.Current(ctx)
	if err != nil {
		return nil, err
	}
	next, overflow := new(uint256.Int).AddOverflow(cur, uint256.NewInt(1))
	if overflow {
		return nil, fmt.Errorf("%w: workflow counter exhausted at %s", domainwf.ErrOverflow, cur.Dec())
	}
	if err := c.Seed(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Seed overwrites the counter value
func (c *Counter) Seed(ctx context.Context, v *uint256.Int) error {
	if err := c.kv.Put(ctx, port.DictNamedKeys, port.KeyWorkflowCount, entity.EncodeU256(v)); err != nil {
		return fmt.Errorf("%w: write workflow count: %w", domainwf.ErrStorage, err)
	}
	return nil
}
