package migrations

import (
	"context"

	"github.com/gear6io/wwi-etl/pipeline/history/records"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/uptrace/bun"
)

// Package-specific error codes for migrations
var (
	MigrationTableCreationFailed = errors.MustNewCode("migrations.table_creation_failed")
	MigrationIndexCreationFailed = errors.MustNewCode("migrations.index_creation_failed")
)

// Migration001 creates the run ledger
type Migration001 struct{}

func (m *Migration001) Version() int {
	return 1
}

func (m *Migration001) Name() string {
	return "initial_run_ledger"
}

func (m *Migration001) Description() string {
	return "Runs and their per-table outcomes"
}

func (m *Migration001) Up(ctx context.Context, tx bun.Tx) error {
	if _, err := tx.NewCreateTable().
		Model((*records.Run)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.New(MigrationTableCreationFailed, "failed to create runs table", err)
	}

	if _, err := tx.NewCreateTable().
		Model((*records.TableRun)(nil)).
		ForeignKey(`("run_id") REFERENCES "runs" ("id") ON DELETE CASCADE`).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.New(MigrationTableCreationFailed, "failed to create run_tables table", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_run_tables_run ON run_tables(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_run_tables_name ON run_tables(name)`,
	}
	for _, stmt := range indexes {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.New(MigrationIndexCreationFailed, "failed to create index", err).AddContext("sql", stmt)
		}
	}
	return nil
}
