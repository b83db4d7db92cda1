package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Setting keys.
const (
	SettingLastSelectedFolder = "last_selected_folder"
)

// GetSetting returns the value stored under key. The boolean is false when
// the key was never set.
func (d *Database) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	start := time.Now()
	defer func() { recordQuery("get_setting", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting stores value under key. An empty value deletes the key.
func (d *Database) SetSetting(ctx context.Context, key, value string) (err error) {
	start := time.Now()
	defer func() { recordQuery("set_setting", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if value == "" {
		_, err = d.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key)
		return err
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
