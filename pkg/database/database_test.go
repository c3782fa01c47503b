package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfig_DSN(t *testing.T) {
	dsn := Config{Path: "/tmp/ledger.db"}.DSN()
	assert.Contains(t, dsn, "file:/tmp/ledger.db?")
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "_busy_timeout=5000")
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, "second", migrations[1].Name)

	_, err = LoadMigrations(fstest.MapFS{"bad.sql": {Data: []byte("x")}})
	assert.Error(t, err)

	_, err = LoadMigrations(fstest.MapFS{
		"001_a.sql": {Data: []byte("x")},
		"1_b.sql":   {Data: []byte("y")},
	})
	assert.ErrorContains(t, err, "duplicate migration version")
}

func TestMigrator_Run(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "m.db")}, logger)
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"001_things.sql": {Data: []byte("CREATE TABLE things (id INTEGER PRIMARY KEY);")},
	}
	ctx := context.Background()

	n, err := NewMigrator(db, logger).Run(ctx, fsys)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = NewMigrator(db, logger).Run(ctx, fsys)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "applied migrations are skipped")

	_, err = db.ExecContext(ctx, "INSERT INTO things (id) VALUES (1)")
	assert.NoError(t, err)
}
