package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oversightworks/budgetdb/internal/ingest"
	"github.com/oversightworks/budgetdb/internal/loader"
	"github.com/oversightworks/budgetdb/internal/model"
	"github.com/oversightworks/budgetdb/internal/store"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Bulk-load parsed records and rebuild the full-text index",
	Long: `Load normalized budget line and page record files into the store.

Record files are produced by the external document parsers: JSONL (one
record per line) or XLSX sheets with the fixed record column layout.
By default the load runs in bulk mode: per-row full-text maintenance is
suppressed and the index is rebuilt in one pass at the end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "build"))

		lineGlobs, _ := cmd.Flags().GetStringSlice("lines")
		pageGlobs, _ := cmd.Flags().GetStringSlice("pages")
		workers, _ := cmd.Flags().GetInt("workers")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		noBulk, _ := cmd.Flags().GetBool("no-bulk-mode")

		if len(lineGlobs) == 0 && len(pageGlobs) == 0 {
			return eris.New("build: nothing to load; pass --lines and/or --pages")
		}
		lineFiles, err := expandGlobs(lineGlobs)
		if err != nil {
			return err
		}
		pageFiles, err := expandGlobs(pageGlobs)
		if err != nil {
			return err
		}
		if workers <= 0 {
			workers = cfg.Load.Workers
		}
		if batchSize <= 0 {
			batchSize = cfg.Load.BatchSize
		}
		bulkMode := cfg.Load.BulkMode && !noBulk

		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		// Bulk mode must be set before Initialize first creates the index
		// maintenance triggers.
		if bulkMode {
			if err := st.SetBulkLoadMode(ctx, true); err != nil {
				return err
			}
		}
		if err := st.Initialize(ctx); err != nil {
			return err
		}

		ld := loader.New(st, batchSize)

		log.Info("starting build",
			zap.Int("line_files", len(lineFiles)),
			zap.Int("page_files", len(pageFiles)),
			zap.Int("workers", workers),
			zap.Int("batch_size", batchSize),
			zap.Bool("bulk_mode", bulkMode),
		)

		lineRes, err := loadLineFiles(ctx, ld, lineFiles, workers)
		if err != nil {
			return err
		}
		pageRes, err := loadPageFiles(ctx, ld, pageFiles, workers)
		if err != nil {
			return err
		}

		if bulkMode {
			rebuilt, err := st.RebuildFullTextIndex(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Indexed %d lines, %d pages\n", rebuilt.LinesIndexed, rebuilt.PagesIndexed)
		}

		fmt.Printf("Loaded %d budget lines (%d rejected), %d pages (%d rejected)\n",
			lineRes.Loaded, lineRes.Rejected, pageRes.Loaded, pageRes.Rejected)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringSlice("lines", nil, "budget line record files (globs; .jsonl or .xlsx)")
	buildCmd.Flags().StringSlice("pages", nil, "page record files (globs; .jsonl)")
	buildCmd.Flags().Int("workers", 0, "parallel record file readers")
	buildCmd.Flags().Int("batch-size", 0, "records per insert transaction")
	buildCmd.Flags().Bool("no-bulk-mode", false, "maintain the full-text index per row instead of one batch rebuild")
	rootCmd.AddCommand(buildCmd)
}

func expandGlobs(globs []string) ([]string, error) {
	var files []string
	for _, g := range globs {
		matches, err := filepath.Glob(g)
		if err != nil {
			return nil, eris.Wrapf(err, "build: bad glob %q", g)
		}
		if len(matches) == 0 {
			return nil, eris.Errorf("build: no files match %q", g)
		}
		files = append(files, matches...)
	}
	return files, nil
}

// loadLineFiles reads record files in parallel and feeds the single write
// path. A failure on either side cancels the other; batches already
// committed stay committed.
func loadLineFiles(ctx context.Context, ld *loader.Loader, files []string, workers int) (loader.Result, error) {
	if len(files) == 0 {
		return loader.Result{}, nil
	}

	merged := make(chan model.BudgetLine, 256)
	var res loader.Result

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		readers, rctx := errgroup.WithContext(gctx)
		readers.SetLimit(workers)
		for _, f := range files {
			readers.Go(func() error {
				var recs <-chan model.BudgetLine
				var errCh <-chan error
				if strings.EqualFold(filepath.Ext(f), ".xlsx") {
					recs, errCh = ingest.StreamBudgetLinesXLSX(rctx, f)
				} else {
					recs, errCh = ingest.StreamBudgetLinesJSONL(rctx, f)
				}
				for r := range recs {
					select {
					case merged <- r:
					case <-rctx.Done():
						return rctx.Err()
					}
				}
				return <-errCh
			})
		}
		err := readers.Wait()
		close(merged)
		return err
	})

	g.Go(func() error {
		var err error
		res, err = ld.LoadBudgetLines(gctx, merged)
		return err
	})

	return res, g.Wait()
}

func loadPageFiles(ctx context.Context, ld *loader.Loader, files []string, workers int) (loader.Result, error) {
	if len(files) == 0 {
		return loader.Result{}, nil
	}

	merged := make(chan model.PageRecord, 256)
	var res loader.Result

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		readers, rctx := errgroup.WithContext(gctx)
		readers.SetLimit(workers)
		for _, f := range files {
			readers.Go(func() error {
				recs, errCh := ingest.StreamPagesJSONL(rctx, f)
				for r := range recs {
					select {
					case merged <- r:
					case <-rctx.Done():
						return rctx.Err()
					}
				}
				return <-errCh
			})
		}
		err := readers.Wait()
		close(merged)
		return err
	})

	g.Go(func() error {
		var err error
		res, err = ld.LoadPageRecords(gctx, merged)
		return err
	})

	return res, g.Wait()
}
