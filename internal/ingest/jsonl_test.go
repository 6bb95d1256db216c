package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oversightworks/budgetdb/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func drainLines(t *testing.T, recs <-chan model.BudgetLine, errCh <-chan error) []model.BudgetLine {
	t.Helper()
	var out []model.BudgetLine
	for r := range recs {
		out = append(out, r)
	}
	require.NoError(t, <-errCh)
	return out
}

func TestStreamBudgetLinesJSONL(t *testing.T) {
	path := writeFile(t, "lines.jsonl", `{"source_file":"p1.xlsx","exhibit":"p-1","fiscal_year":2025,"organization":"Army","amounts":{"fy2025_request":60000}}
{"source_file":"p1.xlsx","exhibit":"p-1","fiscal_year":2025,"organization":"Navy","amounts":{"fy2025_request":220000}}
`)

	recs, errCh := StreamBudgetLinesJSONL(context.Background(), path)
	out := drainLines(t, recs, errCh)

	require.Len(t, out, 2)
	assert.Equal(t, "Army", out[0].Organization)
	assert.InDelta(t, 220000, out[1].Amounts["fy2025_request"], 0.001)
}

func TestStreamBudgetLinesJSONL_MalformedAndBlank(t *testing.T) {
	path := writeFile(t, "lines.jsonl", `{"source_file":"p1.xlsx","exhibit":"p-1","fiscal_year":2025,"organization":"Army"}

not json at all
{"source_file":"p1.xlsx","exhibit":"p-1","fiscal_year":2025,"organization":"Navy"}
`)

	recs, errCh := StreamBudgetLinesJSONL(context.Background(), path)
	out := drainLines(t, recs, errCh)

	// Blank lines vanish; the malformed line arrives as a zero-value record
	// that fails validation, so it lands in the loader's rejected count.
	require.Len(t, out, 3)
	require.NoError(t, out[0].Validate())
	require.Error(t, out[1].Validate())
	assert.True(t, model.IsValidation(out[1].Validate()))
	require.NoError(t, out[2].Validate())
}

func TestStreamBudgetLinesJSONL_MissingFile(t *testing.T) {
	recs, errCh := StreamBudgetLinesJSONL(context.Background(), filepath.Join(t.TempDir(), "nope.jsonl"))
	for range recs {
	}
	require.Error(t, <-errCh)
}

func TestStreamBudgetLinesJSONL_Cancelled(t *testing.T) {
	path := writeFile(t, "lines.jsonl", `{"source_file":"a","exhibit":"p-1","fiscal_year":2025,"organization":"Army"}
{"source_file":"b","exhibit":"p-1","fiscal_year":2025,"organization":"Navy"}
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// An unbuffered consumer with a cancelled context must not hang.
	recs, errCh := StreamBudgetLinesJSONL(ctx, path)
	for range recs {
	}
	// Either the reader finished before observing cancellation (tiny file
	// fits the channel buffer) or it reports the cancellation.
	if err := <-errCh; err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestStreamPagesJSONL(t *testing.T) {
	path := writeFile(t, "pages.jsonl", `{"source_file":"v1.pdf","page_number":1,"text":"hello","has_tables":true,"table_data":"{}"}
{"source_file":"v1.pdf","page_number":2,"text":"world"}
{broken
`)

	recs, errCh := StreamPagesJSONL(context.Background(), path)
	var out []model.PageRecord
	for r := range recs {
		out = append(out, r)
	}
	require.NoError(t, <-errCh)

	require.Len(t, out, 3)
	assert.True(t, out[0].HasTables)
	assert.Equal(t, 2, out[1].PageNumber)
	assert.False(t, out[1].HasTables)
	require.Error(t, out[2].Validate())
}
