package redis

import (
	"context"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/approval-ledger/internal/application/port"
	"github.com/garyjia/approval-ledger/internal/infrastructure/persistence/journal"
)

const (
	defaultPrefix     = "ledger:"
	maxCommitAttempts = 16
)

// ErrConflict is returned when a transaction kept losing to concurrent
// writers on the hashes it read
var ErrConflict = errors.New("transaction conflict")

// unit is the per-attempt state of a transaction: the connection holding
// the WATCH and the hashes watched so far
type unit struct {
	tx      *backend.Tx
	watched map[string]struct{}
}

type unitKey struct{}

func unitFrom(ctx context.Context) *unit {
	u, _ := ctx.Value(unitKey{}).(*unit)
	return u
}

// Store implements port.AtomicStore with one Redis hash per dictionary
type Store struct {
	client *backend.Client
	prefix string
	logger *zap.Logger
}

type Option func(*Store)

// WithPrefix sets the key prefix for the dictionary hashes
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithLogger sets the store logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store with its own client
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a store from an existing client
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client so a Locker can share it
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) hashKey(dict string) string {
	return s.prefix + dict
}

func (s *Store) Get(ctx context.Context, dict, key string) ([]byte, error) {
	if j := journal.From(ctx); j != nil {
		if v, ok := j.Lookup(dict, key); ok {
			return v, nil
		}
	}

	var (
		val []byte
		err error
	)
	if u := unitFrom(ctx); u != nil {
		val, err = s.watchedGet(ctx, u, dict, key)
	} else {
		val, err = s.client.HGet(ctx, s.hashKey(dict), key).Bytes()
	}
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, port.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read %s/%s from redis: %w", dict, key, err)
	}
	return val, nil
}

func (s *Store) Put(ctx context.Context, dict, key string, value []byte) error {
	if j := journal.From(ctx); j != nil {
		j.Put(dict, key, value)
		return nil
	}

	if err := s.client.HSet(ctx, s.hashKey(dict), key, value).Err(); err != nil {
		return fmt.Errorf("failed to write %s/%s to redis: %w", dict, key, err)
	}
	return nil
}

// watchedGet reads through the transaction's connection, watching the hash
// first so a concurrent commit to it aborts this transaction's EXEC
func (s *Store) watchedGet(ctx context.Context, u *unit, dict, key string) ([]byte, error) {
	hk := s.hashKey(dict)
	if _, ok := u.watched[hk]; !ok {
		if err := u.tx.Watch(ctx, hk).Err(); err != nil {
			return nil, fmt.Errorf("failed to watch %s: %w", hk, err)
		}
		u.watched[hk] = struct{}{}
	}
	return u.tx.HGet(ctx, hk, key).Bytes()
}

// WithTransaction buffers writes and flushes them in one MULTI/EXEC block.
// Every hash read inside fn is watched; if another client writes one of them
// before EXEC, fn is run again from scratch against the new values.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if journal.From(ctx) != nil {
		return fn(ctx)
	}

	for attempt := 1; ; attempt++ {
		err := s.client.Watch(ctx, func(tx *backend.Tx) error {
			return s.runUnit(ctx, tx, fn)
		})
		if !errors.Is(err, backend.TxFailedErr) {
			return err
		}
		if attempt == maxCommitAttempts {
			s.logger.Error("Transaction aborted by concurrent writers", zap.Int("attempts", attempt))
			return fmt.Errorf("%w after %d attempts", ErrConflict, attempt)
		}
		s.logger.Debug("Watched hash changed before commit, retrying", zap.Int("attempt", attempt))
	}
}

func (s *Store) runUnit(ctx context.Context, tx *backend.Tx, fn func(ctx context.Context) error) error {
	u := &unit{tx: tx, watched: make(map[string]struct{})}
	j := journal.New()
	if err := fn(context.WithValue(journal.With(ctx, j), unitKey{}, u)); err != nil {
		return err
	}
	if j.Len() == 0 {
		return nil
	}

	_, err := tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		for _, w := range j.Writes() {
			pipe.HSet(ctx, s.hashKey(w.Dict), w.Key, w.Value)
		}
		return nil
	})
	if errors.Is(err, backend.TxFailedErr) {
		return err
	}
	if err != nil {
		s.logger.Error("Failed to commit transaction", zap.Int("writes", j.Len()), zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ port.AtomicStore = (*Store)(nil)
