// Package ingest decodes normalized record files handed over by the
// external document parsers. Two transports are supported: JSONL (one
// record per line) and XLSX sheets with a fixed column layout. The package
// performs no document parsing itself.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/oversightworks/budgetdb/internal/model"
)

// Lines larger than this are malformed extractions, not records.
const maxLineBytes = 4 << 20

// StreamBudgetLinesJSONL reads budget line records from a JSONL file and
// sends them to a channel. Malformed lines are emitted as zero-value
// records so the loader rejects and counts them; only file-level failures
// surface on the error channel. Both channels are closed when the file is
// exhausted.
func StreamBudgetLinesJSONL(ctx context.Context, path string) (<-chan model.BudgetLine, <-chan error) {
	out := make(chan model.BudgetLine, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		log := zap.L().With(zap.String("component", "ingest"), zap.String("file", path))

		f, err := os.Open(path)
		if err != nil {
			errCh <- eris.Wrapf(err, "ingest: open %s", path)
			return
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 64*1024), maxLineBytes)

		lineNo := 0
		for sc.Scan() {
			lineNo++
			if len(sc.Bytes()) == 0 {
				continue
			}

			// A malformed line becomes a zero-value record: it fails
			// validation downstream and is counted as rejected there.
			var rec model.BudgetLine
			if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
				log.Warn("malformed budget line", zap.Int("line", lineNo), zap.Error(err))
				rec = model.BudgetLine{}
			}

			select {
			case out <- rec:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: budget lines cancelled")
				return
			}
		}
		if err := sc.Err(); err != nil {
			errCh <- eris.Wrapf(err, "ingest: read %s", path)
		}
	}()

	return out, errCh
}

// StreamPagesJSONL reads page records from a JSONL file with the same
// semantics as StreamBudgetLinesJSONL.
func StreamPagesJSONL(ctx context.Context, path string) (<-chan model.PageRecord, <-chan error) {
	out := make(chan model.PageRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		log := zap.L().With(zap.String("component", "ingest"), zap.String("file", path))

		f, err := os.Open(path)
		if err != nil {
			errCh <- eris.Wrapf(err, "ingest: open %s", path)
			return
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 64*1024), maxLineBytes)

		lineNo := 0
		for sc.Scan() {
			lineNo++
			if len(sc.Bytes()) == 0 {
				continue
			}

			var rec model.PageRecord
			if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
				log.Warn("malformed page record", zap.Int("line", lineNo), zap.Error(err))
				rec = model.PageRecord{}
			}

			select {
			case out <- rec:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: pages cancelled")
				return
			}
		}
		if err := sc.Err(); err != nil {
			errCh <- eris.Wrapf(err, "ingest: read %s", path)
		}
	}()

	return out, errCh
}
