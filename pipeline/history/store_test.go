package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gear6io/wwi-etl/pipeline/orchestrator"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/gear6io/wwi-etl/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "state", "wwi-etl.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(startedAt time.Time) *orchestrator.RunResult {
	return &orchestrator.RunResult{
		RunID:      utils.NewRunIDAt(startedAt).String(),
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(3 * time.Second),
		Tables: []orchestrator.TableResult{
			{
				Name: "colors", Domain: "dimensions", Status: orchestrator.StatusSucceeded, Stage: orchestrator.StageDone,
				Rows: 36, Columns: 5, Dropped: []string{"comments", "notes"}, Output: "dimensions/colors.parquet",
				Bytes: 1024, Checksum: "00ff00ff00ff00ff", Duration: 1500 * time.Millisecond,
			},
			{
				Name: "orders", Domain: "sales", Status: orchestrator.StatusFailed, Stage: orchestrator.StageLoad,
				Code: errors.PipelineMissingSource.String(), Reason: "source file not found",
			},
		},
	}
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	base := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	older := sampleRun(base)
	newer := sampleRun(base.Add(time.Hour))
	require.NoError(t, s.Record(ctx, older))
	require.NoError(t, s.Record(ctx, newer))

	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.RunID, runs[0].ID)
	assert.Equal(t, older.RunID, runs[1].ID)

	got := runs[0]
	assert.Equal(t, 1, got.Succeeded)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, 1, got.ExitCode)
	assert.Equal(t, 3*time.Second, got.Duration())
	require.Len(t, got.Tables, 2)
	assert.Equal(t, "colors", got.Tables[0].Name)
	assert.Equal(t, "comments,notes", got.Tables[0].Dropped)
	assert.Equal(t, int64(1500), got.Tables[0].DurationMs)
	assert.Equal(t, "orders", got.Tables[1].Name)
	assert.Equal(t, "pipeline.missing_source", got.Tables[1].Code)

	limited, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	run := sampleRun(time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC))
	require.NoError(t, s.Record(ctx, run))

	got, err := s.Get(ctx, run.RunID)
	require.NoError(t, err)
	assert.Len(t, got.Tables, 2)

	_, err = s.Get(ctx, "01JUNKNOWNRUN00000000000000")
	assert.True(t, errors.HasCode(err, errors.CommonNotFound))
}

func TestRecordDuplicateRunFails(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	run := sampleRun(time.Now().UTC())

	require.NoError(t, s.Record(ctx, run))
	err := s.Record(ctx, run)
	assert.True(t, errors.HasCode(err, HistoryWriteFailed))

	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Len(t, runs[0].Tables, 2)
}

func TestReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wwi-etl.db")

	s, err := Open(ctx, path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, sampleRun(time.Now().UTC())))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	version, err := currentVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	runs, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
