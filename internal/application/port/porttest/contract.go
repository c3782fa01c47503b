// Package porttest holds behavioural tests every port.AtomicStore backend must pass.
package porttest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/approval-ledger/internal/application/port"
)

// RunAtomicStoreContract exercises a fresh, empty store
func RunAtomicStoreContract(t *testing.T, store port.AtomicStore) {
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, store.Ping(ctx))
	})

	t.Run("Get Missing", func(t *testing.T) {
		_, err := store.Get(ctx, port.DictWorkflows, "missing")
		assert.ErrorIs(t, err, port.ErrKeyNotFound)
	})

	t.Run("Put and Get", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, port.DictWorkflows, "1", []byte{0x01, 0x02}))

		got, err := store.Get(ctx, port.DictWorkflows, "1")
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0x02}, got)

		require.NoError(t, store.Put(ctx, port.DictWorkflows, "1", []byte{0x03}))
		got, err = store.Get(ctx, port.DictWorkflows, "1")
		require.NoError(t, err)
		assert.Equal(t, []byte{0x03}, got, "Put must overwrite")
	})

	t.Run("Dictionaries Are Independent", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, port.DictTransitions, "dict-key", []byte("t")))
		_, err := store.Get(ctx, port.DictWorkflows, "dict-key")
		assert.ErrorIs(t, err, port.ErrKeyNotFound)
	})

	t.Run("Returned Value Is A Copy", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, port.DictNamedKeys, "copy", []byte{0x0a}))
		got, err := store.Get(ctx, port.DictNamedKeys, "copy")
		require.NoError(t, err)
		got[0] = 0xff

		again, err := store.Get(ctx, port.DictNamedKeys, "copy")
		require.NoError(t, err)
		assert.Equal(t, []byte{0x0a}, again)
	})

	t.Run("Empty Value", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, port.DictTransitions, "empty", []byte{}))
		got, err := store.Get(ctx, port.DictTransitions, "empty")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Transaction Commit", func(t *testing.T) {
		err := store.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := store.Put(txCtx, port.DictNamedKeys, "tx-a", []byte("a")); err != nil {
				return err
			}
			if err := store.Put(txCtx, port.DictWorkflows, "tx-b", []byte("b")); err != nil {
				return err
			}

			got, err := store.Get(txCtx, port.DictNamedKeys, "tx-a")
			require.NoError(t, err, "writes are visible inside the transaction")
			assert.Equal(t, []byte("a"), got)
			return nil
		})
		require.NoError(t, err)

		a, err := store.Get(ctx, port.DictNamedKeys, "tx-a")
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), a)
		b, err := store.Get(ctx, port.DictWorkflows, "tx-b")
		require.NoError(t, err)
		assert.Equal(t, []byte("b"), b)
	})

	t.Run("Transaction Rollback", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, port.DictNamedKeys, "rb", []byte("before")))
		boom := errors.New("boom")

		err := store.WithTransaction(ctx, func(txCtx context.Context) error {
			require.NoError(t, store.Put(txCtx, port.DictNamedKeys, "rb", []byte("after")))
			require.NoError(t, store.Put(txCtx, port.DictWorkflows, "rb-new", []byte("x")))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.Get(ctx, port.DictNamedKeys, "rb")
		require.NoError(t, err)
		assert.Equal(t, []byte("before"), got)
		_, err = store.Get(ctx, port.DictWorkflows, "rb-new")
		assert.ErrorIs(t, err, port.ErrKeyNotFound)
	})

	t.Run("Nested Transaction Joins Outer", func(t *testing.T) {
		boom := errors.New("outer failed")
		err := store.WithTransaction(ctx, func(outer context.Context) error {
			inner := store.WithTransaction(outer, func(innerCtx context.Context) error {
				return store.Put(innerCtx, port.DictNamedKeys, "nested", []byte("n"))
			})
			require.NoError(t, inner)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = store.Get(ctx, port.DictNamedKeys, "nested")
		assert.ErrorIs(t, err, port.ErrKeyNotFound, "inner writes roll back with the outer transaction")
	})
}
