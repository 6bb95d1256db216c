package store

import (
	"context"

	"go.uber.org/zap"
)

// RebuildResult reports how many rows the full-text rebuild indexed.
type RebuildResult struct {
	LinesIndexed int
	PagesIndexed int
}

// RebuildFullTextIndex clears the full-text shadow tables and re-derives
// them from primary-table content in one pass, in primary-key order. The
// clear and the repopulate are a single transaction: any failure leaves the
// index in its pre-rebuild state. On success the store transitions to Idle
// and the per-row maintenance triggers are created for subsequent writes.
//
// Running against a store that was never in bulk-load mode is harmless: the
// clear step absorbs whatever partial index content exists.
func (s *SQLite) RebuildFullTextIndex(ctx context.Context) (RebuildResult, error) {
	log := zap.L().With(zap.String("component", "store.fts"))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RebuildResult{}, wrapStore("begin rebuild", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, fts := range []string{"budget_lines_fts", "pages_fts"} {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO "+fts+"("+fts+") VALUES('delete-all')",
		); err != nil {
			return RebuildResult{}, wrapStore("clear "+fts, err)
		}
	}

	var result RebuildResult

	res, err := tx.ExecContext(ctx, `
		INSERT INTO budget_lines_fts(rowid, account_title, activity_title, subactivity_title, line_item_title)
		SELECT id, account_title, activity_title, subactivity_title, line_item_title
		FROM budget_lines ORDER BY id`)
	if err != nil {
		return RebuildResult{}, wrapStore("repopulate budget_lines_fts", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return RebuildResult{}, wrapStore("rows affected budget_lines_fts", err)
	}
	result.LinesIndexed = int(n)

	res, err = tx.ExecContext(ctx, `
		INSERT INTO pages_fts(rowid, text)
		SELECT id, text FROM pages ORDER BY id`)
	if err != nil {
		return RebuildResult{}, wrapStore("repopulate pages_fts", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return RebuildResult{}, wrapStore("rows affected pages_fts", err)
	}
	result.PagesIndexed = int(n)

	if _, err := tx.ExecContext(ctx, syncTriggerSQL); err != nil {
		return RebuildResult{}, wrapStore("create sync triggers", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO store_config (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		modeKey, string(ModeIdle),
	); err != nil {
		return RebuildResult{}, wrapStore("persist load mode", err)
	}

	if err := tx.Commit(); err != nil {
		return RebuildResult{}, wrapStore("commit rebuild", err)
	}

	log.Info("full-text index rebuilt",
		zap.Int("lines_indexed", result.LinesIndexed),
		zap.Int("pages_indexed", result.PagesIndexed),
	)
	return result, nil
}

// SearchHit is one full-text match against budget line titles or page text.
type SearchHit struct {
	Kind       string // "line" or "page"
	SourceFile string
	Label      string
}

// Search runs the given FTS5 query against both shadow tables and returns
// up to limit hits per table, best-ranked first.
func (s *SQLite) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	var hits []SearchHit

	rows, err := s.db.QueryContext(ctx, `
		SELECT bl.source_file, bl.exhibit || ' ' || snippet(budget_lines_fts, -1, '', '', '…', 12)
		FROM budget_lines_fts
		JOIN budget_lines bl ON bl.id = budget_lines_fts.rowid
		WHERE budget_lines_fts MATCH ?
		ORDER BY rank LIMIT ?`, query, limit)
	if err != nil {
		return nil, wrapStore("search budget lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		h := SearchHit{Kind: "line"}
		if err := rows.Scan(&h.SourceFile, &h.Label); err != nil {
			return nil, wrapStore("scan line hit", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStore("iterate line hits", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT p.source_file, 'p.' || p.page_number || ' ' || snippet(pages_fts, 0, '', '', '…', 12)
		FROM pages_fts
		JOIN pages p ON p.id = pages_fts.rowid
		WHERE pages_fts MATCH ?
		ORDER BY rank LIMIT ?`, query, limit)
	if err != nil {
		return nil, wrapStore("search pages", err)
	}
	defer rows.Close()
	for rows.Next() {
		h := SearchHit{Kind: "page"}
		if err := rows.Scan(&h.SourceFile, &h.Label); err != nil {
			return nil, wrapStore("scan page hit", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStore("iterate page hits", err)
	}

	return hits, nil
}

// CountIndexedLines returns the number of budget line rows actually present
// in the full-text index. Counting the external-content fts5 table itself
// would answer from the primary table, so the docsize shadow table is
// counted instead.
func (s *SQLite) CountIndexedLines(ctx context.Context) (int, error) {
	return s.count(ctx, "budget_lines_fts_docsize")
}

// CountIndexedPages returns the number of page rows actually present in the
// full-text index.
func (s *SQLite) CountIndexedPages(ctx context.Context) (int, error) {
	return s.count(ctx, "pages_fts_docsize")
}
