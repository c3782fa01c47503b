package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/garyjia/approval-ledger/internal/application/port"
	"github.com/garyjia/approval-ledger/internal/domain/entity"
	"github.com/garyjia/approval-ledger/internal/infrastructure/persistence/memory"
)

// stepClock advances by one millisecond per reading
type stepClock struct {
	t atomic.Uint64
}

func newStepClock(start uint64) *stepClock {
	c := &stepClock{}
	c.t.Store(start)
	return c
}

func (c *stepClock) Now() uint64 {
	return c.t.Add(1)
}

type fixedIdentity struct {
	account entity.AccountHash
}

func (f fixedIdentity) Caller(context.Context) (entity.AccountHash, error) {
	return f.account, nil
}

var (
	alice = entity.AccountHash{0xa1}
	bob   = entity.AccountHash{0xb0}
)

// faultyStore wraps the memory store and fails selected operations
type faultyStore struct {
	*memory.Store
	mu      sync.Mutex
	failPut map[string]bool
	failGet map[string]bool
}

var errDiskGone = errors.New("disk gone")

func newFaultyStore() *faultyStore {
	return &faultyStore{
		Store:   memory.NewStore(nil),
		failPut: map[string]bool{},
		failGet: map[string]bool{},
	}
}

func (f *faultyStore) breakPut(dict string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPut[dict] = true
}

func (f *faultyStore) breakGet(dict string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet[dict] = true
}

func (f *faultyStore) Get(ctx context.Context, dict, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.failGet[dict]
	f.mu.Unlock()
	if fail {
		return nil, errDiskGone
	}
	return f.Store.Get(ctx, dict, key)
}

func (f *faultyStore) Put(ctx context.Context, dict, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failPut[dict]
	f.mu.Unlock()
	if fail {
		return errDiskGone
	}
	return f.Store.Put(ctx, dict, key, value)
}

var _ port.AtomicStore = (*faultyStore)(nil)

func newTestEngine(t *testing.T, store port.AtomicStore, opts ...EngineOption) *engineImpl {
	t.Helper()
	if store == nil {
		store = memory.NewStore(nil)
	}
	return NewEngine(store, newStepClock(1_700_000_000_000), fixedIdentity{account: alice}, opts...).(*engineImpl)
}

func hashOf(b byte) entity.Hash {
	var h entity.Hash
	for i := range h {
		h[i] = b
	}
	return h
}
