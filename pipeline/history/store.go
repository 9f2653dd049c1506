// Package history keeps a sqlite ledger of pipeline runs.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"github.com/gear6io/wwi-etl/pipeline/history/records"
	"github.com/gear6io/wwi-etl/pipeline/orchestrator"
	"github.com/gear6io/wwi-etl/pkg/errors"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

var (
	HistoryOpenFailed  = errors.MustNewCode("history.open_failed")
	HistoryWriteFailed = errors.MustNewCode("history.write_failed")
	HistoryReadFailed  = errors.MustNewCode("history.read_failed")
)

type (
	Run      = records.Run
	TableRun = records.TableRun
)

// Store records RunResults into sqlite through bun
type Store struct {
	db     *bun.DB
	path   string
	logger zerolog.Logger
}

// Open creates the database file if needed and applies pending migrations
func Open(ctx context.Context, path string, logger zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.New(HistoryOpenFailed, "failed to create history directory", err).AddContext("path", dir)
		}
	}
	sqldb, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, errors.New(HistoryOpenFailed, "failed to open SQLite database", err).AddContext("path", path)
	}
	// sqlite allows a single writer
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	s := &Store{
		db:     db,
		path:   path,
		logger: logger.With().Str("component", "history").Logger(),
	}
	if err := migrate(ctx, db, s.logger); err != nil {
		db.Close()
		return nil, errors.AsError(err).AddContext("path", path)
	}
	return s, nil
}

// Record stores res and its table outcomes atomically
func (s *Store) Record(ctx context.Context, res *orchestrator.RunResult) error {
	run := &Run{
		ID:         res.RunID,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Succeeded:  len(res.Succeeded()),
		Failed:     len(res.Failed()),
		ExitCode:   res.ExitCode(),
	}
	tables := make([]*TableRun, len(res.Tables))
	for i, t := range res.Tables {
		tables[i] = &TableRun{
			RunID:      res.RunID,
			Position:   i,
			Name:       t.Name,
			Domain:     t.Domain,
			Status:     string(t.Status),
			Stage:      string(t.Stage),
			Code:       t.Code,
			Reason:     t.Reason,
			Rows:       t.Rows,
			Columns:    t.Columns,
			Invalid:    t.Invalid,
			Dropped:    strings.Join(t.Dropped, ","),
			Output:     t.Output,
			Bytes:      t.Bytes,
			Checksum:   t.Checksum,
			DurationMs: t.Duration.Milliseconds(),
		}
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(run).Exec(ctx); err != nil {
			return err
		}
		if len(tables) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&tables).Exec(ctx)
		return err
	})
	if err != nil {
		return errors.New(HistoryWriteFailed, "failed to record run", err).AddContext("run_id", res.RunID)
	}
	s.logger.Debug().Str("run_id", res.RunID).Int("tables", len(tables)).Msg("Recorded run")
	return nil
}

// Recent returns up to limit runs, newest first, each with its tables in
// run order.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []*Run
	err := s.db.NewSelect().
		Model(&runs).
		Relation("Tables", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("position ASC")
		}).
		Order("id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, errors.New(HistoryReadFailed, "failed to query runs", err)
	}
	return runs, nil
}

// Get returns one run by id
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	run := new(Run)
	err := s.db.NewSelect().
		Model(run).
		Relation("Tables", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("position ASC")
		}).
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.CommonNotFound, "run not found", err).AddContext("run_id", id)
	}
	if err != nil {
		return nil, errors.New(HistoryReadFailed, "failed to query run", err).AddContext("run_id", id)
	}
	return run, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
