package ingest

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/oversightworks/budgetdb/internal/model"
)

// Column layout for XLSX budget line record files. The first row is a
// header and is skipped.
const (
	colSourceFile = iota
	colExhibit
	colFiscalYear
	colOrganization
	colAccountCode
	colAccountTitle
	colActivityTitle
	colSubActivityTitle
	colLineItemCode
	colLineItemTitle
	colElementCode
	colAmounts
	colQuantities
	colCount
)

// StreamBudgetLinesXLSX reads budget line records from the first sheet of
// an XLSX record file and sends them to a channel. Rows that cannot be
// decoded are emitted as zero-value records so the loader rejects and
// counts them. Both channels are closed when the sheet is exhausted.
func StreamBudgetLinesXLSX(ctx context.Context, path string) (<-chan model.BudgetLine, <-chan error) {
	out := make(chan model.BudgetLine, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		log := zap.L().With(zap.String("component", "ingest"), zap.String("file", path))

		f, err := xlsx.OpenFile(path)
		if err != nil {
			errCh <- eris.Wrapf(err, "ingest: open xlsx %s", path)
			return
		}
		if len(f.Sheets) == 0 {
			errCh <- eris.Errorf("ingest: %s has no sheets", path)
			return
		}

		for i, row := range f.Sheets[0].Rows {
			if i == 0 {
				continue // header
			}

			// A malformed row becomes a zero-value record so the loader
			// counts it as rejected.
			rec, err := rowToBudgetLine(row)
			if err != nil {
				log.Warn("malformed xlsx row", zap.Int("row", i+1), zap.Error(err))
				rec = model.BudgetLine{}
			}

			select {
			case out <- rec:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: xlsx cancelled")
				return
			}
		}
	}()

	return out, errCh
}

func rowToBudgetLine(row *xlsx.Row) (model.BudgetLine, error) {
	cells := make([]string, colCount)
	for j, cell := range row.Cells {
		if j >= colCount {
			break
		}
		cells[j] = strings.TrimSpace(cell.String())
	}

	fy := 0
	if cells[colFiscalYear] != "" {
		v, err := strconv.Atoi(cells[colFiscalYear])
		if err != nil {
			return model.BudgetLine{}, eris.Wrapf(err, "fiscal year %q", cells[colFiscalYear])
		}
		fy = v
	}

	rec := model.BudgetLine{
		SourceFile:       cells[colSourceFile],
		Exhibit:          cells[colExhibit],
		FiscalYear:       fy,
		Organization:     cells[colOrganization],
		AccountCode:      cells[colAccountCode],
		AccountTitle:     cells[colAccountTitle],
		ActivityTitle:    cells[colActivityTitle],
		SubActivityTitle: cells[colSubActivityTitle],
		LineItemCode:     cells[colLineItemCode],
		LineItemTitle:    cells[colLineItemTitle],
		ElementCode:      cells[colElementCode],
	}

	if cells[colAmounts] != "" {
		if err := json.Unmarshal([]byte(cells[colAmounts]), &rec.Amounts); err != nil {
			return model.BudgetLine{}, eris.Wrap(err, "amounts")
		}
	}
	if cells[colQuantities] != "" {
		if err := json.Unmarshal([]byte(cells[colQuantities]), &rec.Quantities); err != nil {
			return model.BudgetLine{}, eris.Wrap(err, "quantities")
		}
	}
	return rec, nil
}
