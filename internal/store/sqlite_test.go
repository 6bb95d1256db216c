package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oversightworks/budgetdb/internal/model"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Initialize(context.Background()))
	return st
}

// newBulkTestStore enables bulk-load mode before the schema first exists,
// the way a build does.
func newBulkTestStore(t *testing.T) *SQLite {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.SetBulkLoadMode(ctx, true))
	require.NoError(t, st.Initialize(ctx))
	return st
}

func testLine(org string, amounts map[string]float64) model.BudgetLine {
	return model.BudgetLine{
		SourceFile:   "pb/army/p1.xlsx",
		Exhibit:      "p-1",
		FiscalYear:   2025,
		Organization: org,
		AccountCode:  "2035A",
		AccountTitle: "Other Procurement",
		Amounts:      amounts,
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Initialize(ctx))
	require.NoError(t, st.Initialize(ctx))

	n, err := st.CountBudgetLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestInsertBudgetLineBatch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	lines := []model.BudgetLine{
		testLine("Army", map[string]float64{"fy2025_request": 60000}),
		testLine("Navy", map[string]float64{"fy2025_request": 220000}),
	}
	require.NoError(t, st.InsertBudgetLineBatch(ctx, lines))

	n, err := st.CountBudgetLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInsertBudgetLineBatch_Empty(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.InsertBudgetLineBatch(context.Background(), nil))
}

func TestInsertPageBatch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	pages := []model.PageRecord{
		{SourceFile: "pb/navy/vol1.pdf", PageNumber: 1, Text: "Justification of estimates"},
		{SourceFile: "pb/navy/vol1.pdf", PageNumber: 2, Text: "Procurement programs", HasTables: true, TableData: `{"rows":[]}`},
	}
	require.NoError(t, st.InsertPageBatch(ctx, pages))

	n, err := st.CountPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInsertPageBatch_DuplicatePageRollsBackBatch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertPageBatch(ctx, []model.PageRecord{
		{SourceFile: "a.pdf", PageNumber: 1, Text: "one"},
	}))

	// page number is unique per source file; the whole batch must roll back
	err := st.InsertPageBatch(ctx, []model.PageRecord{
		{SourceFile: "a.pdf", PageNumber: 2, Text: "two"},
		{SourceFile: "a.pdf", PageNumber: 1, Text: "dup"},
	})
	require.Error(t, err)
	assert.True(t, IsStoreError(err))

	n, err := st.CountPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDuplicateBudgetLinesAreKept(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	line := testLine("Army", map[string]float64{"fy2025_request": 100})
	require.NoError(t, st.InsertBudgetLineBatch(ctx, []model.BudgetLine{line, line}))

	n, err := st.CountBudgetLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLoadMode_FreshStoreIsIdle(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	defer st.Close()

	mode, err := st.LoadMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeIdle, mode)
}

func TestSetBulkLoadMode_BeforeInitialize(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "bulk.db"))
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	require.NoError(t, st.SetBulkLoadMode(ctx, true))
	require.NoError(t, st.Initialize(ctx))

	mode, err := st.LoadMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeLoading, mode)

	exist, err := st.syncTriggersExist(ctx)
	require.NoError(t, err)
	assert.False(t, exist)
}

func TestSetBulkLoadMode_AfterTriggersFailsLoudly(t *testing.T) {
	st := newTestStore(t) // Initialize in idle mode creates the triggers
	ctx := context.Background()

	err := st.SetBulkLoadMode(ctx, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "triggers already exist")
}

func TestSetBulkLoadMode_ResumeLoadingIsNoop(t *testing.T) {
	st := newBulkTestStore(t)
	ctx := context.Background()

	// A restarted loader re-enables the persisted mode.
	require.NoError(t, st.SetBulkLoadMode(ctx, true))

	mode, err := st.LoadMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeLoading, mode)
}

func TestSetBulkLoadMode_DisableCreatesTriggers(t *testing.T) {
	st := newBulkTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetBulkLoadMode(ctx, false))

	mode, err := st.LoadMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeIdle, mode)

	exist, err := st.syncTriggersExist(ctx)
	require.NoError(t, err)
	assert.True(t, exist)
}

func TestLoadMode_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.SetBulkLoadMode(ctx, true))
	require.NoError(t, st.Initialize(ctx))
	require.NoError(t, st.Close())

	st2, err := Open(path)
	require.NoError(t, err)
	defer st2.Close()

	mode, err := st2.LoadMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeLoading, mode)

	// Initialize on reopen must not create triggers while loading.
	require.NoError(t, st2.Initialize(ctx))
	exist, err := st2.syncTriggersExist(ctx)
	require.NoError(t, err)
	assert.False(t, exist)
}
