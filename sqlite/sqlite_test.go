package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fwojciec/docint"
	"github.com/fwojciec/docint/sqlite"
	"github.com/stretchr/testify/require"
)

func TestDB_Open(t *testing.T) {
	t.Parallel()

	t.Run("creates schema on first open", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB(":memory:")
		err := db.Open()
		require.NoError(t, err)
		defer db.Close()

		ctx := context.Background()

		var count int
		err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM extractions").Scan(&count)
		require.NoError(t, err)
		require.Zero(t, count)
	})

	t.Run("returns error for invalid path", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB("/nonexistent/path/db.sqlite")
		err := db.Open()
		require.Error(t, err)
	})

	t.Run("enables WAL mode for file-based databases", func(t *testing.T) {
		t.Parallel()

		dbPath := t.TempDir() + "/test.db"
		db := sqlite.NewDB(dbPath)
		err := db.Open()
		require.NoError(t, err)
		defer db.Close()

		ctx := context.Background()
		var journalMode string
		err = db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode)
		require.NoError(t, err)
		require.Equal(t, "wal", journalMode)
	})

	t.Run("records schema version", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)

		v, err := db.Version()
		require.NoError(t, err)
		require.Equal(t, sqlite.SchemaVersion, v)
	})

	t.Run("keeps entries across reopen", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "cache.db")
		ctx := context.Background()

		db := sqlite.NewDB(path)
		require.NoError(t, db.Open())
		require.NoError(t, sqlite.NewCacheService(db).Put(ctx, "k", &docint.ExtractionResult{Content: "kept"}))
		require.NoError(t, db.Close())

		db = sqlite.NewDB(path)
		require.NoError(t, db.Open())
		defer db.Close()

		res, ok, err := sqlite.NewCacheService(db).Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "kept", res.Content)
	})

	t.Run("clears cache written with another schema version", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "cache.db")
		ctx := context.Background()

		db := sqlite.NewDB(path)
		require.NoError(t, db.Open())
		require.NoError(t, sqlite.NewCacheService(db).Put(ctx, "k", &docint.ExtractionResult{Content: "stale"}))
		_, err := db.ExecContext(ctx, "PRAGMA user_version = 99")
		require.NoError(t, err)
		require.NoError(t, db.Close())

		db = sqlite.NewDB(path)
		require.NoError(t, db.Open())
		defer db.Close()

		_, ok, err := sqlite.NewCacheService(db).Get(ctx, "k")
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}
