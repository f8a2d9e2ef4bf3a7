package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gosim/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// step is one schema change. Steps are applied in order and recorded in the
// migrations table so each runs once.
type step struct {
	version    int
	name       string
	statements []string
}

// The DDL sticks to types both Postgres and SQLite accept. Timestamps are
// stored as RFC 3339 text.
var steps = []step{
	{1, "create runs", []string{`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			study_name TEXT NOT NULL,
			generator TEXT NOT NULL,
			analyzer TEXT NOT NULL,
			study_hash TEXT NOT NULL,
			seed BIGINT NOT NULL,
			replications INTEGER NOT NULL,
			cells INTEGER NOT NULL,
			workers INTEGER NOT NULL DEFAULT 0,
			code_version TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			status TEXT NOT NULL,
			trials INTEGER NOT NULL DEFAULT 0,
			failures INTEGER NOT NULL DEFAULT 0,
			elapsed_ms BIGINT NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			fields TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL
		)`,
	}},
	{2, "create trials", []string{`
		CREATE TABLE IF NOT EXISTS trials (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			row_index INTEGER NOT NULL,
			cell_index INTEGER NOT NULL,
			rep INTEGER NOT NULL,
			missing BOOLEAN NOT NULL DEFAULT FALSE,
			reason TEXT NOT NULL DEFAULT '',
			record TEXT NOT NULL,
			PRIMARY KEY (run_id, row_index)
		)`,
	}},
	{3, "create summaries", []string{`
		CREATE TABLE IF NOT EXISTS summaries (
			run_id TEXT PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
			axes TEXT NOT NULL,
			metrics TEXT NOT NULL
		)`, `
		CREATE TABLE IF NOT EXISTS summary_rows (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			cell_index INTEGER NOT NULL,
			cell_key TEXT NOT NULL,
			params TEXT NOT NULL,
			n INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			failure_rate DOUBLE PRECISION NOT NULL,
			estimates TEXT NOT NULL,
			PRIMARY KEY (run_id, cell_index)
		)`,
	}},
	{4, "create indexes", []string{
		"CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_runs_study_hash ON runs(study_hash)",
		"CREATE INDEX IF NOT EXISTS idx_trials_cell ON trials(run_id, cell_index)",
	}},
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	table string
}

// NewRunner creates a migration runner that records applied versions in table
func NewRunner(table string) *MigrationRunner {
	if table == "" {
		table = "schema_migrations"
	}
	return &MigrationRunner{table: table}
}

// Version returns the latest schema version this binary knows
func (r *MigrationRunner) Version() string {
	return fmt.Sprintf("%d", steps[len(steps)-1].version)
}

// Run applies every pending step in order, each in its own transaction
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`, r.table)); err != nil {
		return errors.DatabaseError("failed to create migrations table", err)
	}

	applied, err := r.Applied(ctx, db)
	if err != nil {
		return err
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, s := range steps {
		if done[s.version] {
			continue
		}
		if err := r.apply(ctx, db, s); err != nil {
			return errors.Wrapf(err, "failed to apply migration %d (%s)", s.version, s.name)
		}
	}
	return nil
}

// Applied lists the versions already recorded, ascending
func (r *MigrationRunner) Applied(ctx context.Context, db *sqlx.DB) ([]int, error) {
	var versions []int
	if err := db.SelectContext(ctx, &versions, fmt.Sprintf("SELECT version FROM %s ORDER BY version", r.table)); err != nil {
		return nil, errors.DatabaseError("failed to read applied migrations", err)
	}
	return versions, nil
}

func (r *MigrationRunner) apply(ctx context.Context, db *sqlx.DB, s step) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("begin migration", err)
	}
	defer tx.Rollback()

	for _, stmt := range s.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.DatabaseError("execute migration", err)
		}
	}
	record := tx.Rebind(fmt.Sprintf("INSERT INTO %s (version, name, applied_at) VALUES (?, ?, ?)", r.table))
	if _, err := tx.ExecContext(ctx, record, s.version, s.name, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return errors.DatabaseError("record migration", err)
	}
	return tx.Commit()
}
