package marker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/corrreia/ccupdater/internal/modules/database"
)

// Migration creates the installed_versions table. Register it on the
// database module before Init.
var Migration = database.Migration{
	Version:     1,
	Description: "create installed_versions",
	Up: func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS installed_versions (
				group_key    TEXT    PRIMARY KEY,
				tag          TEXT    NOT NULL,
				installed_at INTEGER NOT NULL DEFAULT 0
			)
		`)
		return err
	},
}

const markersTable = "installed_versions"

// SQLiteStore keeps markers in the installed_versions table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore wraps an open database that has Migration applied.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	query, args := database.Select(markersTable, "tag").Where("group_key = ?", key).Build()

	var tag string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&tag)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading marker %q: %w", key, err)
	}
	return tag, tag != "", nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key, tag string) error {
	query, args := database.Upsert(markersTable, "group_key").
		Set("group_key", key).
		Set("tag", tag).
		Set("installed_at", s.now().Unix()).
		Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("writing marker %q: %w", key, err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	query, args := database.Select(markersTable, "group_key", "tag", "installed_at").
		OrderBy("group_key", false).
		Build()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing markers: %w", err)
	}
	defer rows.Close()

	var list []Entry
	for rows.Next() {
		var e Entry
		var installedAt int64
		if err := rows.Scan(&e.Key, &e.Tag, &installedAt); err != nil {
			return nil, fmt.Errorf("scanning marker: %w", err)
		}
		e.InstalledAt = time.Unix(installedAt, 0).UTC()
		list = append(list, e)
	}
	return list, rows.Err()
}
