package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// DB wraps the bun handle for the licensing store.
type DB struct {
	db     *bun.DB
	logger *slog.Logger
}

// Option is a functional option for configuring the database.
type Option func(*DB)

// WithDebug enables query logging for debugging.
func WithDebug(enabled bool) Option {
	return func(d *DB) {
		if enabled {
			d.db.AddQueryHook(bundebug.NewQueryHook(
				bundebug.WithVerbose(true),
			))
			d.logger.Info("bun query logging enabled")
		}
	}
}

// Open opens (creating if necessary) the SQLite store at path and applies
// all pending schema migrations. Use ":memory:" for an ephemeral store.
func Open(path string, logger *slog.Logger, opts ...Option) (*DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; a single pooled connection keeps
	// concurrent registry writes queued in-process instead of returning
	// SQLITE_BUSY.
	sqldb.SetMaxOpenConns(1)

	d := &DB{
		db:     bun.NewDB(sqldb, sqlitedialect.New()),
		logger: logger.With(slog.String("component", "database")),
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.Migrate(context.Background()); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	d.logger.Info("database initialized", slog.String("path", path))
	return d, nil
}

// dsn builds the driver connection string. WAL journaling and a busy
// timeout are applied through URI pragmas; in-memory stores skip WAL.
func dsn(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file::memory:") {
		return path
	}
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Bun returns the underlying bun.DB handle.
func (d *DB) Bun() *bun.DB {
	return d.db
}
