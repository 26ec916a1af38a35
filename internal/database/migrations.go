package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
)

// migration is one step in the ordered, additive schema history. Each step
// runs at most once; applied IDs are recorded in schema_migrations.
type migration struct {
	ID string
	Up func(ctx context.Context, tx bun.Tx) error
}

// migrations is the declared schema history. Append only; never edit or
// reorder an entry that has shipped.
var migrations = []migration{
	{
		ID: "0001_create_companies",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS companies (
				company_key TEXT PRIMARY KEY,
				name        TEXT NOT NULL,
				status      TEXT NOT NULL DEFAULT 'ACTIVE',
				created_at  TIMESTAMP NOT NULL
			)`,
		),
	},
	{
		ID: "0002_create_devices",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS devices (
				company_key TEXT NOT NULL,
				device_id   TEXT NOT NULL,
				hostname    TEXT NOT NULL DEFAULT '',
				status      TEXT NOT NULL DEFAULT 'PENDING',
				first_seen  TIMESTAMP NOT NULL,
				last_seen   TIMESTAMP NOT NULL,
				PRIMARY KEY (company_key, device_id)
			)`,
		),
	},
	{
		ID: "0003_device_descriptive_metadata",
		Up: execAll(
			`ALTER TABLE devices ADD COLUMN pc_name TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE devices ADD COLUMN requester_name TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE devices ADD COLUMN establishment TEXT NOT NULL DEFAULT ''`,
		),
	},
	{
		ID: "0004_device_activity_index",
		Up: execAll(
			`CREATE INDEX IF NOT EXISTS idx_devices_company_last_seen
				ON devices (company_key, last_seen DESC)`,
		),
	},
}

// execAll returns an Up function running the given statements in order.
func execAll(stmts ...string) func(ctx context.Context, tx bun.Tx) error {
	return func(ctx context.Context, tx bun.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

// Migrate applies every pending migration in order, each inside its own
// transaction together with the bookkeeping insert, so a failed step leaves
// neither a half-applied schema nor a stale version record.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		id         TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := d.applied(ctx, m.ID)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = d.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			if err := m.Up(ctx, tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (id, applied_at) VALUES (?, ?)`,
				m.ID, time.Now().UTC())
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", m.ID, err)
		}
		d.logger.Info("migration applied", slog.String("id", m.ID))
	}
	return nil
}

func (d *DB) applied(ctx context.Context, id string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		`SELECT count(*) FROM schema_migrations WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	return n > 0, nil
}
