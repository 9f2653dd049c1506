package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/gear6io/wwi-etl/pipeline/history/migrations"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

var HistoryMigrationFailed = errors.MustNewCode("history.migration_failed")

// Migration is implemented by every file under migrations/
type Migration interface {
	Version() int
	Name() string
	Description() string
	Up(ctx context.Context, tx bun.Tx) error
}

type migrationRecord struct {
	bun.BaseModel `bun:"table:bun_migrations"`
	Version       int    `bun:"version,pk,type:integer"`
	Name          string `bun:"name,type:text,notnull"`
	AppliedAt     string `bun:"applied_at,type:text,notnull"`
}

func availableMigrations() []Migration {
	return []Migration{
		&migrations.Migration001{}, // from migrations/001_initial.go
	}
}

// migrate applies pending migrations in a single transaction
func migrate(ctx context.Context, db *bun.DB, logger zerolog.Logger) error {
	if _, err := db.NewCreateTable().Model((*migrationRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return errors.New(HistoryMigrationFailed, "failed to create migrations table", err)
	}
	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	var pending []Migration
	for _, m := range availableMigrations() {
		if m.Version() > current {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New(HistoryMigrationFailed, "failed to begin transaction for migrations", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, m := range pending {
		if err := m.Up(ctx, tx); err != nil {
			_ = tx.Rollback()
			return errors.New(HistoryMigrationFailed, "migration failed", err).
				AddContext("version", m.Name())
		}
		rec := &migrationRecord{Version: m.Version(), Name: m.Name(), AppliedAt: now}
		if _, err := tx.NewInsert().Model(rec).Exec(ctx); err != nil {
			_ = tx.Rollback()
			return errors.New(HistoryMigrationFailed, "failed to record migration", err).
				AddContext("version", m.Name())
		}
		logger.Debug().Int("version", m.Version()).Str("name", m.Name()).Msg("Applied migration")
	}
	if err := tx.Commit(); err != nil {
		return errors.New(HistoryMigrationFailed, "failed to commit migrations", err)
	}
	return nil
}

func currentVersion(ctx context.Context, db *bun.DB) (int, error) {
	var version int
	err := db.NewSelect().
		Model((*migrationRecord)(nil)).
		Column("version").
		Order("version DESC").
		Limit(1).
		Scan(ctx, &version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.New(HistoryMigrationFailed, "failed to get current version", err)
	}
	return version, nil
}
