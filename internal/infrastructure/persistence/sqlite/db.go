package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/garyjia/approval-ledger/internal/application/port"
	"github.com/garyjia/approval-ledger/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type contextKey string

const txKey contextKey = "tx"

// Store implements port.AtomicStore on a single kv table
type Store struct {
	db     *database.DB
	logger *zap.Logger
}

// Open connects to the database file and applies pending migrations
func Open(ctx context.Context, cfg database.Config, logger *zap.Logger) (*Store, error) {
	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(ctx, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an open database, applying pending migrations
func NewStore(ctx context.Context, db *database.DB, logger *zap.Logger) (*Store, error) {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, err
	}
	if _, err := database.NewMigrator(db, logger).Run(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// WithTransaction implements port.TransactionManager.
// A transaction already carried by ctx is reused.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := extractTx(ctx); tx != nil {
		return fn(ctx)
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(context.WithValue(ctx, txKey, tx))
	})
}

func (s *Store) Get(ctx context.Context, dict, key string) ([]byte, error) {
	var value []byte
	err := s.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT value FROM kv WHERE dict = ? AND key = ?`, dict, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", dict, key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, dict, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.getExecutor(ctx).ExecContext(ctx,
		`INSERT INTO kv (dict, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (dict, key) DO UPDATE SET value = excluded.value`,
		dict, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", dict, key, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func extractTx(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return nil
}

func (s *Store) getExecutor(ctx context.Context) executor {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return s.db.DB
}

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var _ port.AtomicStore = (*Store)(nil)
