package store

import (
	"context"
)

// OnlineCopy writes a consistent snapshot of the store to destPath using
// VACUUM INTO. Under WAL mode the copy does not block concurrent writers
// and never sees a torn transaction. destPath must not already exist.
func (s *SQLite) OnlineCopy(ctx context.Context, destPath string) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, destPath); err != nil {
		return wrapStore("vacuum into "+destPath, err)
	}
	return nil
}
