package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/garyjia/approval-ledger/internal/application/port"
	"github.com/garyjia/approval-ledger/internal/infrastructure/persistence/journal"
)

// Store keeps every dictionary in process memory
type Store struct {
	mu     sync.RWMutex
	dicts  map[string]map[string][]byte
	logger *zap.Logger
}

// NewStore creates an empty in-memory store
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dicts:  make(map[string]map[string][]byte),
		logger: logger,
	}
}

func (s *Store) Get(ctx context.Context, dict, key string) ([]byte, error) {
	if j := journal.From(ctx); j != nil {
		if v, ok := j.Lookup(dict, key); ok {
			return v, nil
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.dicts[dict][key]
	if !ok {
		return nil, port.ErrKeyNotFound
	}
	return append([]byte{}, v...), nil
}

func (s *Store) Put(ctx context.Context, dict, key string, value []byte) error {
	if j := journal.From(ctx); j != nil {
		j.Put(dict, key, value)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(dict, key, value)
	return nil
}

func (s *Store) set(dict, key string, value []byte) {
	d, ok := s.dicts[dict]
	if !ok {
		d = make(map[string][]byte)
		s.dicts[dict] = d
	}
	d[key] = append([]byte{}, value...)
}

// WithTransaction buffers writes and applies them under one lock
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if journal.From(ctx) != nil {
		return fn(ctx)
	}

	j := journal.New()
	if err := fn(journal.With(ctx, j)); err != nil {
		s.logger.Debug("Transaction discarded", zap.Int("writes", j.Len()), zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range j.Writes() {
		s.set(w.Dict, w.Key, w.Value)
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

var _ port.AtomicStore = (*Store)(nil)
