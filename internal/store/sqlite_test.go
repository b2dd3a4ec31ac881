package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanmetrics/lisa-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testParams() model.AnalysisParams {
	return model.AnalysisParams{
		Permutations: 999,
		Seed:         42,
		Alpha:        0.05,
		Dataset:      "out/dataset.geojson",
	}
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testParams())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, testParams(), got.Params)
	assert.Nil(t, got.Result)
}

func TestSQLite_UpdateRunStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testParams())
	require.NoError(t, err)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, got.Status)
}

func TestSQLite_UpdateRunResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testParams())
	require.NoError(t, err)

	result := &model.AnalysisResult{
		Global: model.GlobalResult{I: 0.42, Expected: -0.25, PseudoP: 0.001, Permutations: 999, Seed: 42},
		Locals: []model.LocalResult{
			{GEOID: "24510000100", I: 1.8, PseudoP: 0.002, Label: model.HighHigh},
		},
		FDRThreshold: 0.002,
		Alpha:        0.05,
	}
	require.NoError(t, s.UpdateRunResult(ctx, run.ID, result))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.InDelta(t, 0.42, got.Result.Global.I, 1e-12)
	require.Len(t, got.Result.Locals, 1)
	assert.Equal(t, model.HighHigh, got.Result.Locals[0].Label)
}

func TestSQLite_FailRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testParams())
	require.NoError(t, err)

	require.NoError(t, s.FailRun(ctx, run.ID, errors.New("island tract 24510000999")))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, "island tract")
}

func TestSQLite_UpdateMissingRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UpdateRunStatus(ctx, "nope", model.RunStatusRunning)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_GetMissingRun(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for range 3 {
		run, err := s.CreateRun(ctx, testParams())
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}
	require.NoError(t, s.UpdateRunStatus(ctx, ids[1], model.RunStatusRunning))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	running, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusRunning})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, ids[1], running[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CreateRun(context.Background(), testParams())
	assert.NoError(t, err)
}
