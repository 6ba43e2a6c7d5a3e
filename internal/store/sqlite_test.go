package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "signing", "export-signing-x.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "signing", got.Flavor)
	assert.Equal(t, "export-signing-x.csv", got.OutputFile)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.Nil(t, got.Summary)
}

func TestSQLite_CompleteRun(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "list", "out.csv")
	require.NoError(t, err)

	summary := &RunSummary{Organizations: 3, Documents: 120, Rows: 118, Retried: 2, RetryFailures: 2}
	require.NoError(t, st.CompleteRun(ctx, run.ID, summary))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, *summary, *got.Summary)
}

func TestSQLite_FailRun(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "timeline", "out.csv")
	require.NoError(t, err)

	require.NoError(t, st.FailRun(ctx, run.ID, errors.New("auth expired")))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "auth expired", got.Error)
}

func TestSQLite_UpdateMissingRun(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	err := st.CompleteRun(ctx, "no-such-id", &RunSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = st.FailRun(ctx, "no-such-id", errors.New("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_GetMissingRun(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)

	_, err := st.GetRun(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListRuns(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	r1, err := st.CreateRun(ctx, "signing", "a.csv")
	require.NoError(t, err)
	r2, err := st.CreateRun(ctx, "list", "b.csv")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "signing", "c.csv")
	require.NoError(t, err)

	require.NoError(t, st.CompleteRun(ctx, r1.ID, &RunSummary{Rows: 5}))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	signing, err := st.ListRuns(ctx, RunFilter{Flavor: "signing"})
	require.NoError(t, err)
	assert.Len(t, signing, 2)

	complete, err := st.ListRuns(ctx, RunFilter{Status: RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, r1.ID, complete[0].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	both, err := st.ListRuns(ctx, RunFilter{Flavor: "list", Status: RunStatusRunning})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, r2.ID, both[0].ID)
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}
