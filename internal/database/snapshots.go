package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"local-gallery/internal/pathset"
)

// FolderSnapshot summarizes a folder's image files at the end of a scan.
// Two snapshots with the same count and summed modification time are
// treated as the same folder contents.
type FolderSnapshot struct {
	FileCount  int
	TotalMtime int64
	UpdatedAt  time.Time
}

// Matches reports whether s describes the same contents as other.
func (s FolderSnapshot) Matches(other FolderSnapshot) bool {
	return s.FileCount == other.FileCount && s.TotalMtime == other.TotalMtime
}

// GetSnapshot returns the stored snapshot for root. The boolean is false
// when none was saved.
func (d *Database) GetSnapshot(ctx context.Context, root string) (snap FolderSnapshot, ok bool, err error) {
	start := time.Now()
	defer func() { recordQuery("get_snapshot", start, err) }()

	key, err := pathset.Normalize(root)
	if err != nil {
		return FolderSnapshot{}, false, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var updated int64
	err = d.db.QueryRowContext(ctx,
		"SELECT file_count, total_mtime, updated_at FROM folder_snapshots WHERE root_key = ?",
		string(key),
	).Scan(&snap.FileCount, &snap.TotalMtime, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return FolderSnapshot{}, false, nil
	}
	if err != nil {
		return FolderSnapshot{}, false, err
	}
	snap.UpdatedAt = time.Unix(updated, 0)
	return snap, true, nil
}

// SaveSnapshot stores the snapshot for root, replacing any earlier one.
func (d *Database) SaveSnapshot(ctx context.Context, root string, snap FolderSnapshot) (err error) {
	start := time.Now()
	defer func() { recordQuery("save_snapshot", start, err) }()

	key, err := pathset.Normalize(root)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	updated := snap.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO folder_snapshots (root_key, file_count, total_mtime, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(root_key) DO UPDATE SET
			file_count = excluded.file_count,
			total_mtime = excluded.total_mtime,
			updated_at = excluded.updated_at
	`, string(key), snap.FileCount, snap.TotalMtime, updated.Unix())
	return err
}

// DeleteSnapshot forgets the snapshot for root so the next scan is a full
// one.
func (d *Database) DeleteSnapshot(ctx context.Context, root string) error {
	key, err := pathset.Normalize(root)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	_, err = d.db.ExecContext(ctx, "DELETE FROM folder_snapshots WHERE root_key = ?", string(key))
	return err
}
