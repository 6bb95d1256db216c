// Package loader writes normalized records from the external document
// parsers into the store in transactional batches. It is the only writer
// during a build; parallel readers may feed one loader, whose writer lock
// serializes batch commits.
package loader

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/oversightworks/budgetdb/internal/model"
	"github.com/oversightworks/budgetdb/internal/store"
)

// DefaultBatchSize is used when no batch size is configured.
const DefaultBatchSize = 2000

// Loader batches record inserts against a single store.
type Loader struct {
	st        *store.SQLite
	batchSize int

	mu sync.Mutex // serializes batch transactions across feeding goroutines
}

// New creates a Loader with the given batch size (<= 0 uses the default).
func New(st *store.SQLite, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{st: st, batchSize: batchSize}
}

// Result reports how many records a load pass committed and rejected.
type Result struct {
	Loaded   int
	Rejected int
}

// LoadBudgetLines drains records, validating each and committing in
// batches. Records failing validation are skipped and counted, never fatal;
// a store failure aborts the load with prior batches intact. Cancelling ctx
// rolls back the open batch and returns.
func (l *Loader) LoadBudgetLines(ctx context.Context, records <-chan model.BudgetLine) (Result, error) {
	log := zap.L().With(zap.String("component", "loader"))
	var res Result

	batch := make([]model.BudgetLine, 0, l.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		l.mu.Lock()
		err := l.st.InsertBudgetLineBatch(ctx, batch)
		l.mu.Unlock()
		if err != nil {
			return err
		}
		res.Loaded += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return res, eris.Wrap(ctx.Err(), "loader: budget lines cancelled")
		case rec, ok := <-records:
			if !ok {
				if err := flush(); err != nil {
					return res, err
				}
				log.Info("budget lines loaded",
					zap.Int("loaded", res.Loaded),
					zap.Int("rejected", res.Rejected),
				)
				return res, nil
			}
			if err := rec.Validate(); err != nil {
				res.Rejected++
				log.Warn("rejected budget line",
					zap.String("source_file", rec.SourceFile),
					zap.Error(err),
				)
				continue
			}
			batch = append(batch, rec)
			if len(batch) >= l.batchSize {
				if err := flush(); err != nil {
					return res, err
				}
			}
		}
	}
}

// LoadPageRecords drains page records with the same batching and error
// semantics as LoadBudgetLines.
func (l *Loader) LoadPageRecords(ctx context.Context, records <-chan model.PageRecord) (Result, error) {
	log := zap.L().With(zap.String("component", "loader"))
	var res Result

	batch := make([]model.PageRecord, 0, l.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		l.mu.Lock()
		err := l.st.InsertPageBatch(ctx, batch)
		l.mu.Unlock()
		if err != nil {
			return err
		}
		res.Loaded += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return res, eris.Wrap(ctx.Err(), "loader: pages cancelled")
		case rec, ok := <-records:
			if !ok {
				if err := flush(); err != nil {
					return res, err
				}
				log.Info("pages loaded",
					zap.Int("loaded", res.Loaded),
					zap.Int("rejected", res.Rejected),
				)
				return res, nil
			}
			if err := rec.Validate(); err != nil {
				res.Rejected++
				log.Warn("rejected page record",
					zap.String("source_file", rec.SourceFile),
					zap.Int("page_number", rec.PageNumber),
					zap.Error(err),
				)
				continue
			}
			batch = append(batch, rec)
			if len(batch) >= l.batchSize {
				if err := flush(); err != nil {
					return res, err
				}
			}
		}
	}
}
