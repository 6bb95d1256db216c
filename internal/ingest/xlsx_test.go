package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/oversightworks/budgetdb/internal/model"
)

var xlsxHeader = []string{
	"source_file", "exhibit", "fiscal_year", "organization",
	"account_code", "account_title", "activity_title", "subactivity_title",
	"line_item_code", "line_item_title", "element_code", "amounts", "quantities",
}

func writeXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("records")
	require.NoError(t, err)

	hdr := sheet.AddRow()
	for _, h := range xlsxHeader {
		hdr.AddCell().Value = h
	}
	for _, row := range rows {
		r := sheet.AddRow()
		for _, v := range row {
			r.AddCell().Value = v
		}
	}

	path := filepath.Join(t.TempDir(), "records.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestStreamBudgetLinesXLSX(t *testing.T) {
	path := writeXLSX(t, [][]string{
		{"p1.xlsx", "p-1", "2025", "Army", "2035A", "Other Procurement, Army",
			"", "", "", "Trucks", "", `{"fy2025_request":60000}`, `{"fy2025_request":12}`},
		{"p1.xlsx", "p-1", "2025", "Navy", "", "", "", "", "", "", "", "", ""},
	})

	recs, errCh := StreamBudgetLinesXLSX(context.Background(), path)
	var out []model.BudgetLine
	for r := range recs {
		out = append(out, r)
	}
	require.NoError(t, <-errCh)

	require.Len(t, out, 2)
	assert.Equal(t, "Army", out[0].Organization)
	assert.Equal(t, 2025, out[0].FiscalYear)
	assert.InDelta(t, 60000, out[0].Amounts["fy2025_request"], 0.001)
	assert.Equal(t, 12, out[0].Quantities["fy2025_request"])
	assert.Nil(t, out[1].Amounts)
}

func TestStreamBudgetLinesXLSX_BadRowsFailValidation(t *testing.T) {
	path := writeXLSX(t, [][]string{
		{"p1.xlsx", "p-1", "not-a-year", "Army", "", "", "", "", "", "", "", "", ""},
		{"p1.xlsx", "p-1", "2025", "Navy", "", "", "", "", "", "", "", "bad json", ""},
		{"p1.xlsx", "p-1", "2025", "Army", "", "", "", "", "", "", "", "", ""},
	})

	recs, errCh := StreamBudgetLinesXLSX(context.Background(), path)
	var out []model.BudgetLine
	for r := range recs {
		out = append(out, r)
	}
	require.NoError(t, <-errCh)

	// Undecodable rows come through as zero-value records for the loader to
	// reject and count.
	require.Len(t, out, 3)
	require.Error(t, out[0].Validate())
	require.Error(t, out[1].Validate())
	require.NoError(t, out[2].Validate())
	assert.Equal(t, "Army", out[2].Organization)
}

func TestStreamBudgetLinesXLSX_MissingFile(t *testing.T) {
	recs, errCh := StreamBudgetLinesXLSX(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"))
	for range recs {
	}
	require.Error(t, <-errCh)
}
