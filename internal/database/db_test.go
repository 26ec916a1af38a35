package database

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpen_CreatesSchema(t *testing.T) {
	db, err := Open(":memory:", testLogger())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	for _, table := range []string{"companies", "devices", "schema_migrations"} {
		var n int
		err := db.Bun().QueryRowContext(ctx,
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "expected table %s to exist", table)
	}

	var n int
	err = db.Bun().QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_devices_company_last_seen'`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_FileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.db")

	db, err := Open(path, testLogger())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Bun().ExecContext(context.Background(),
		`INSERT INTO companies (company_key, name, status, created_at) VALUES ('acme', 'acme', 'ACTIVE', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
}

func TestMigrate_RecordsEveryStep(t *testing.T) {
	db, err := Open(":memory:", testLogger())
	require.NoError(t, err)
	defer db.Close()

	var n int
	err = db.Bun().QueryRowContext(context.Background(),
		`SELECT count(*) FROM schema_migrations`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), n)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db, err := Open(":memory:", testLogger())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	// Open already ran the full history; a second pass must be a no-op.
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))

	var n int
	err = db.Bun().QueryRowContext(ctx, `SELECT count(*) FROM schema_migrations`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), n)
}

func TestMigrationIDsAreOrderedAndUnique(t *testing.T) {
	seen := make(map[string]bool, len(migrations))
	prev := ""
	for _, m := range migrations {
		assert.False(t, seen[m.ID], "duplicate migration id %s", m.ID)
		assert.Greater(t, m.ID, prev, "migration ids must be appended in order")
		seen[m.ID] = true
		prev = m.ID
	}
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:", dsn(":memory:"))
	assert.Contains(t, dsn("gate.db"), "journal_mode(WAL)")
	assert.Contains(t, dsn("gate.db"), "busy_timeout(5000)")
}
