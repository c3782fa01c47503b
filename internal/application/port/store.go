package port

import (
	"context"
	"errors"
)

// Dictionaries of the ledger's key-value storage
const (
	DictWorkflows   = "workflows"
	DictTransitions = "transitions"
	DictNamedKeys   = "named_keys"
)

// Keys of the named_keys dictionary
const (
	KeyWorkflowCount   = "workflow_count"
	KeyContractVersion = "contract_version"
)

// ErrKeyNotFound is returned by Get when the dictionary has no such key
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore reads and writes raw encoded values by dictionary and key
type KeyValueStore interface {
	// Get returns ErrKeyNotFound when the key is absent
	Get(ctx context.Context, dict, key string) ([]byte, error)

	// Put overwrites the value. Inside WithTransaction the write is
	// buffered until commit and visible to later Gets on the same context.
	Put(ctx context.Context, dict, key string, value []byte) error
}

// TransactionManager handles atomic units of work
type TransactionManager interface {
	// WithTransaction commits every Put made through ctx inside fn
	// together, or none of them if fn returns an error
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AtomicStore is the storage capability the ledger engine is built on
type AtomicStore interface {
	KeyValueStore
	TransactionManager

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error

	Close() error
}
