package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oversightworks/budgetdb/internal/model"
)

func TestRebuild_EmptyStore(t *testing.T) {
	st := newBulkTestStore(t)

	res, err := st.RebuildFullTextIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.LinesIndexed)
	assert.Equal(t, 0, res.PagesIndexed)
}

func TestRebuild_CountsMatchPrimaryTables(t *testing.T) {
	st := newBulkTestStore(t)
	ctx := context.Background()

	var lines []model.BudgetLine
	for i := 0; i < 57; i++ {
		l := testLine("Army", map[string]float64{"fy2025_request": float64(i)})
		l.LineItemTitle = fmt.Sprintf("Line item %d", i)
		lines = append(lines, l)
	}
	require.NoError(t, st.InsertBudgetLineBatch(ctx, lines))

	var pages []model.PageRecord
	for i := 1; i <= 23; i++ {
		pages = append(pages, model.PageRecord{
			SourceFile: "pb/army/vol1.pdf",
			PageNumber: i,
			Text:       fmt.Sprintf("page %d text", i),
		})
	}
	require.NoError(t, st.InsertPageBatch(ctx, pages))

	// Bulk mode: nothing indexed until the rebuild.
	n, err := st.CountIndexedLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	res, err := st.RebuildFullTextIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 57, res.LinesIndexed)
	assert.Equal(t, 23, res.PagesIndexed)

	lineCount, err := st.CountBudgetLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, lineCount, res.LinesIndexed)

	pageCount, err := st.CountPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, pageCount, res.PagesIndexed)

	mode, err := st.LoadMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeIdle, mode)
}

func TestRebuild_AbsorbsPartialIndex(t *testing.T) {
	// Loading without bulk mode maintains the index per row; a rebuild on
	// top of that is wasteful but not an error.
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertBudgetLineBatch(ctx, []model.BudgetLine{
		testLine("Navy", map[string]float64{"fy2025_request": 1}),
	}))

	n, err := st.CountIndexedLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n) // trigger-maintained

	res, err := st.RebuildFullTextIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LinesIndexed)

	n, err = st.CountIndexedLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTriggers_MaintainIndexAfterRebuild(t *testing.T) {
	st := newBulkTestStore(t)
	ctx := context.Background()

	_, err := st.RebuildFullTextIndex(ctx)
	require.NoError(t, err)

	// Post-rebuild writes go through the maintenance triggers.
	require.NoError(t, st.InsertPageBatch(ctx, []model.PageRecord{
		{SourceFile: "a.pdf", PageNumber: 1, Text: "incremental"},
	}))

	n, err := st.CountIndexedPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCountIndexed_ReflectsIndexNotPrimaryTable(t *testing.T) {
	st := newBulkTestStore(t)
	ctx := context.Background()

	l := testLine("Army", nil)
	l.LineItemTitle = "Javelin missile rounds"
	require.NoError(t, st.InsertBudgetLineBatch(ctx, []model.BudgetLine{l}))

	// One primary row, zero index entries while bulk mode suppresses
	// maintenance: the counts must disagree.
	primary, err := st.CountBudgetLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, primary)

	indexed, err := st.CountIndexedLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, indexed)

	hits, err := st.Search(ctx, "missile", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = st.RebuildFullTextIndex(ctx)
	require.NoError(t, err)

	indexed, err = st.CountIndexedLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, indexed)

	hits, err = st.Search(ctx, "missile", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	l := testLine("Air Force", nil)
	l.LineItemTitle = "Sidewinder missile procurement"
	require.NoError(t, st.InsertBudgetLineBatch(ctx, []model.BudgetLine{l}))
	require.NoError(t, st.InsertPageBatch(ctx, []model.PageRecord{
		{SourceFile: "pb/af/vol2.pdf", PageNumber: 4, Text: "The missile program continues development."},
	}))

	hits, err := st.Search(ctx, "missile", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	kinds := map[string]bool{}
	for _, h := range hits {
		kinds[h.Kind] = true
	}
	assert.True(t, kinds["line"])
	assert.True(t, kinds["page"])
}
