package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oversightworks/budgetdb/internal/model"
	"github.com/oversightworks/budgetdb/internal/store"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func TestPruneOldest(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"budgetdb_20250101_000000.db",
		"budgetdb_20250102_000000.db",
		"budgetdb_20250103_000000.db",
		"budgetdb_20250104_000000.db",
		"budgetdb_20250105_000000.db",
	}
	for _, n := range names {
		touch(t, dir, n)
	}

	deleted, err := PruneOldest(dir, "budgetdb", 2)
	require.NoError(t, err)
	require.Len(t, deleted, 3)
	for i, n := range names[:3] {
		assert.Equal(t, filepath.Join(dir, n), deleted[i])
	}

	remaining, err := filepath.Glob(filepath.Join(dir, "*.db"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, names[3]),
		filepath.Join(dir, names[4]),
	}, remaining)
}

func TestPruneOldest_KeepCountBelowOne(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "budgetdb_20250101_000000.db")

	_, err := PruneOldest(dir, "budgetdb", 0)
	require.Error(t, err)
	assert.True(t, model.IsConfiguration(err))

	// Rejected before touching anything.
	remaining, err := filepath.Glob(filepath.Join(dir, "*.db"))
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestPruneOldest_UnderRetention(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "budgetdb_20250101_000000.db")
	touch(t, dir, "budgetdb_20250102_000000.db")

	deleted, err := PruneOldest(dir, "budgetdb", 5)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestPruneOldest_IgnoresOtherPrefixes(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "budgetdb_20250101_000000.db")
	touch(t, dir, "budgetdb_20250102_000000.db")
	touch(t, dir, "other_20240101_000000.db")

	deleted, err := PruneOldest(dir, "budgetdb", 1)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Contains(t, deleted[0], "budgetdb_20250101")

	remaining, err := filepath.Glob(filepath.Join(dir, "other_*.db"))
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestOnlineCopy_SnapshotIsComplete(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "live.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Initialize(ctx))

	require.NoError(t, st.InsertBudgetLineBatch(ctx, []model.BudgetLine{{
		SourceFile:   "src.xlsx",
		Exhibit:      "p-1",
		FiscalYear:   2025,
		Organization: "Army",
	}}))

	destDir := t.TempDir()
	path, err := OnlineCopy(ctx, st, destDir, "budgetdb")
	require.NoError(t, err)
	assert.Equal(t, destDir, filepath.Dir(path))

	snap, err := store.Open(path)
	require.NoError(t, err)
	defer snap.Close() //nolint:errcheck

	n, err := snap.CountBudgetLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOnlineCopy_EmptyPrefix(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "live.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Initialize(ctx))

	_, err = OnlineCopy(ctx, st, t.TempDir(), "")
	require.Error(t, err)
	assert.True(t, model.IsConfiguration(err))
}
