// Package backup snapshots the store file and prunes old snapshots by a
// retention count. The copy itself is delegated to the store's consistent
// online-copy capability; writers are never blocked.
package backup

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/oversightworks/budgetdb/internal/model"
	"github.com/oversightworks/budgetdb/internal/store"
)

// timestampLayout keeps backup names lexicographically ordered by creation
// time: prefix_YYYYMMDD_HHMMSS.db.
const timestampLayout = "20060102_150405"

// OnlineCopy snapshots the store into destDir and returns the new file path.
func OnlineCopy(ctx context.Context, st *store.SQLite, destDir, prefix string) (string, error) {
	if prefix == "" {
		return "", &model.ConfigurationError{Reason: "backup prefix must not be empty"}
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "backup: create dest dir %s", destDir)
	}

	name := prefix + "_" + time.Now().UTC().Format(timestampLayout) + ".db"
	destPath := filepath.Join(destDir, name)

	if err := st.OnlineCopy(ctx, destPath); err != nil {
		return "", err
	}

	zap.L().Info("backup written",
		zap.String("component", "backup"),
		zap.String("path", destPath),
	)
	return destPath, nil
}

// PruneOldest deletes all but the keepCount most recent backups in destDir
// matching prefix, by lexicographic (= chronological) name order. It
// returns the deleted paths. keepCount < 1 is a usage error, rejected
// before any file is touched.
func PruneOldest(destDir, prefix string, keepCount int) ([]string, error) {
	if keepCount < 1 {
		return nil, &model.ConfigurationError{Reason: "keep count must be at least 1"}
	}

	matches, err := filepath.Glob(filepath.Join(destDir, prefix+"_*.db"))
	if err != nil {
		return nil, eris.Wrapf(err, "backup: glob %s", destDir)
	}
	sort.Strings(matches)

	if len(matches) <= keepCount {
		return nil, nil
	}

	var deleted []string
	for _, path := range matches[:len(matches)-keepCount] {
		if err := os.Remove(path); err != nil {
			return deleted, eris.Wrapf(err, "backup: remove %s", path)
		}
		deleted = append(deleted, path)
	}

	zap.L().Info("old backups pruned",
		zap.String("component", "backup"),
		zap.Int("deleted", len(deleted)),
		zap.Int("kept", keepCount),
	)
	return deleted, nil
}
