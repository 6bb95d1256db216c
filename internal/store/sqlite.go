// Package store owns the SQLite schema, the bulk-load mode state machine,
// and all SQL touched by the pipeline. The store is a single portable file;
// downstream readers get it as-is.
package store

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "modernc.org/sqlite"

	"github.com/oversightworks/budgetdb/internal/model"
)

// SQLite wraps the budget store database.
type SQLite struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) a SQLite store at the given path and configures
// WAL mode. Call Initialize before loading records.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapStore("open", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, wrapStore("exec "+pragma, err)
		}
	}
	return &SQLite{db: db, path: path}, nil
}

// Path returns the filesystem path the store was opened with.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Close() error {
	return s.db.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS store_config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS budget_lines (
	id                INTEGER PRIMARY KEY,
	source_file       TEXT NOT NULL,
	exhibit           TEXT NOT NULL,
	fiscal_year       INTEGER NOT NULL,
	organization      TEXT NOT NULL,
	account_code      TEXT NOT NULL DEFAULT '',
	account_title     TEXT NOT NULL DEFAULT '',
	activity_title    TEXT NOT NULL DEFAULT '',
	subactivity_title TEXT NOT NULL DEFAULT '',
	line_item_code    TEXT NOT NULL DEFAULT '',
	line_item_title   TEXT NOT NULL DEFAULT '',
	element_code      TEXT NOT NULL DEFAULT '',
	amounts           TEXT NOT NULL DEFAULT '{}',
	quantities        TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS pages (
	id          INTEGER PRIMARY KEY,
	source_file TEXT NOT NULL,
	page_number INTEGER NOT NULL,
	text        TEXT NOT NULL DEFAULT '',
	has_tables  INTEGER NOT NULL DEFAULT 0,
	table_data  TEXT NOT NULL DEFAULT '',
	UNIQUE (source_file, page_number)
);

CREATE TABLE IF NOT EXISTS organizations (
	code           TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	classification TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS exhibit_categories (
	code           TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	classification TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS appropriation_titles (
	code  TEXT PRIMARY KEY,
	title TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_budget_lines_exhibit ON budget_lines(exhibit, fiscal_year);
CREATE INDEX IF NOT EXISTS idx_budget_lines_org ON budget_lines(organization);
CREATE INDEX IF NOT EXISTS idx_budget_lines_account ON budget_lines(account_code);
CREATE INDEX IF NOT EXISTS idx_pages_source ON pages(source_file);

CREATE VIRTUAL TABLE IF NOT EXISTS budget_lines_fts USING fts5(
	account_title, activity_title, subactivity_title, line_item_title,
	content='budget_lines', content_rowid='id'
);

CREATE VIRTUAL TABLE IF NOT EXISTS pages_fts USING fts5(
	text, content='pages', content_rowid='id'
);
`

// Initialize creates all tables, indexes, and full-text shadow structures if
// absent. Idempotent: re-running against an initialized store is a no-op for
// existing objects. When the persisted load mode is idle the per-row index
// maintenance triggers are created too; during a bulk load they are not.
func (s *SQLite) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return wrapStore("initialize schema", err)
	}

	mode, err := s.LoadMode(ctx)
	if err != nil {
		return err
	}
	if mode == ModeIdle {
		if err := s.createSyncTriggers(ctx); err != nil {
			return err
		}
	}
	return nil
}

// InsertBudgetLineBatch inserts a batch of lines in one transaction.
// The batch either fully commits or fully rolls back.
func (s *SQLite) InsertBudgetLineBatch(ctx context.Context, lines []model.BudgetLine) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStore("begin line batch", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO budget_lines
		(source_file, exhibit, fiscal_year, organization, account_code, account_title,
		 activity_title, subactivity_title, line_item_code, line_item_title, element_code,
		 amounts, quantities)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return wrapStore("prepare line insert", err)
	}
	defer stmt.Close()

	for i := range lines {
		l := &lines[i]
		amounts, err := encodeJSONMap(l.Amounts)
		if err != nil {
			return wrapStore("encode amounts", err)
		}
		quantities, err := encodeJSONMap(l.Quantities)
		if err != nil {
			return wrapStore("encode quantities", err)
		}
		if _, err := stmt.ExecContext(ctx,
			l.SourceFile, l.Exhibit, l.FiscalYear, l.Organization,
			l.AccountCode, l.AccountTitle, l.ActivityTitle, l.SubActivityTitle,
			l.LineItemCode, l.LineItemTitle, l.ElementCode,
			amounts, quantities,
		); err != nil {
			return wrapStore("insert budget line", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapStore("commit line batch", err)
	}
	return nil
}

// InsertPageBatch inserts a batch of page records in one transaction.
func (s *SQLite) InsertPageBatch(ctx context.Context, pages []model.PageRecord) error {
	if len(pages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStore("begin page batch", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pages
		(source_file, page_number, text, has_tables, table_data)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return wrapStore("prepare page insert", err)
	}
	defer stmt.Close()

	for i := range pages {
		p := &pages[i]
		hasTables := 0
		if p.HasTables {
			hasTables = 1
		}
		if _, err := stmt.ExecContext(ctx,
			p.SourceFile, p.PageNumber, p.Text, hasTables, p.TableData,
		); err != nil {
			return wrapStore("insert page", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapStore("commit page batch", err)
	}
	return nil
}

func encodeJSONMap[V any](m map[string]V) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CountBudgetLines returns the number of rows in the primary lines table.
func (s *SQLite) CountBudgetLines(ctx context.Context) (int, error) {
	return s.count(ctx, "budget_lines")
}

// CountPages returns the number of rows in the primary pages table.
func (s *SQLite) CountPages(ctx context.Context) (int, error) {
	return s.count(ctx, "pages")
}

func (s *SQLite) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, wrapStore("count "+table, err)
	}
	return n, nil
}
