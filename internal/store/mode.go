package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
)

// LoadMode is the bulk-load state machine: Idle -> Loading -> Rebuilding ->
// Idle. While Loading, per-row full-text index maintenance is suppressed and
// the index is rebuilt in one pass afterwards. The mode is persisted in
// store_config so a crashed loader resumes where it left off.
type LoadMode string

const (
	ModeIdle       LoadMode = "idle"
	ModeLoading    LoadMode = "loading"
	ModeRebuilding LoadMode = "rebuilding"
)

const modeKey = "bulk_load_mode"

// LoadMode reads the persisted load mode. A store that has never set a mode
// is Idle.
func (s *SQLite) LoadMode(ctx context.Context) (LoadMode, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM store_config WHERE key = ?`, modeKey,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return ModeIdle, nil
	}
	if err != nil {
		// A store that has never been initialized has no store_config table.
		if !s.tableExists(ctx, "store_config") {
			return ModeIdle, nil
		}
		return "", wrapStore("read load mode", err)
	}
	return LoadMode(value), nil
}

// SetBulkLoadMode toggles whether per-row index maintenance fires on insert.
// Enabling must happen before Initialize first creates the maintenance
// triggers: once they exist, enabling is an illegal transition and fails
// loudly rather than silently dropping them. Disabling creates the triggers
// and returns the store to Idle.
func (s *SQLite) SetBulkLoadMode(ctx context.Context, enabled bool) error {
	mode, err := s.LoadMode(ctx)
	if err != nil {
		return err
	}

	if enabled {
		if mode == ModeLoading {
			return nil // resuming an interrupted load
		}
		exist, err := s.syncTriggersExist(ctx)
		if err != nil {
			return err
		}
		if exist {
			return eris.New("store: index maintenance triggers already exist; bulk-load mode must be enabled before the schema is first initialized")
		}
		return s.setMode(ctx, ModeLoading)
	}

	if mode == ModeIdle {
		exist, err := s.syncTriggersExist(ctx)
		if err != nil {
			return err
		}
		if exist {
			return nil
		}
	}
	if err := s.createSyncTriggers(ctx); err != nil {
		return err
	}
	return s.setMode(ctx, ModeIdle)
}

func (s *SQLite) setMode(ctx context.Context, m LoadMode) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS store_config (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
	); err != nil {
		return wrapStore("ensure store_config", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO store_config (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		modeKey, string(m),
	); err != nil {
		return wrapStore("persist load mode", err)
	}
	return nil
}

const syncTriggerSQL = `
CREATE TRIGGER IF NOT EXISTS budget_lines_ai AFTER INSERT ON budget_lines BEGIN
	INSERT INTO budget_lines_fts(rowid, account_title, activity_title, subactivity_title, line_item_title)
	VALUES (new.id, new.account_title, new.activity_title, new.subactivity_title, new.line_item_title);
END;

CREATE TRIGGER IF NOT EXISTS budget_lines_ad AFTER DELETE ON budget_lines BEGIN
	INSERT INTO budget_lines_fts(budget_lines_fts, rowid, account_title, activity_title, subactivity_title, line_item_title)
	VALUES ('delete', old.id, old.account_title, old.activity_title, old.subactivity_title, old.line_item_title);
END;

CREATE TRIGGER IF NOT EXISTS pages_ai AFTER INSERT ON pages BEGIN
	INSERT INTO pages_fts(rowid, text) VALUES (new.id, new.text);
END;

CREATE TRIGGER IF NOT EXISTS pages_ad AFTER DELETE ON pages BEGIN
	INSERT INTO pages_fts(pages_fts, rowid, text) VALUES ('delete', old.id, old.text);
END;
`

func (s *SQLite) createSyncTriggers(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, syncTriggerSQL); err != nil {
		return wrapStore("create sync triggers", err)
	}
	return nil
}

func (s *SQLite) syncTriggersExist(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger'
		 AND name IN ('budget_lines_ai', 'pages_ai')`,
	).Scan(&n)
	if err != nil {
		return false, wrapStore("check sync triggers", err)
	}
	return n > 0, nil
}

func (s *SQLite) tableExists(ctx context.Context, name string) bool {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n); err != nil {
		return false
	}
	return n > 0
}
