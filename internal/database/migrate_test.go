package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrateAndCheckVersion(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(db))
	t.Log("migrations applied")
	require.NoError(t, CheckVersion(db))

	// migrating twice is a no-op
	require.NoError(t, Migrate(db))

	var version int
	var dirty bool
	require.NoError(t, db.QueryRow(`SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty))
	require.GreaterOrEqual(t, version, MinSchemaVersion)
	require.False(t, dirty)
}

func TestCheckVersionTooOld(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "old.db")
	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE schema_migrations (version uint64, dirty bool)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO schema_migrations(version, dirty) VALUES (1, 0)`)
	require.NoError(t, err)

	err = CheckVersion(db)
	require.ErrorIs(t, err, ErrSchemaTooOld)
}

func TestSeedDefaultsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "seed.db")
	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db))

	require.NoError(t, SeedDefaults(ctx, db))
	require.NoError(t, SeedDefaults(ctx, db))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&count))
	require.Equal(t, 2, count)
}
