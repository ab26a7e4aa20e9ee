package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestInitRunsMigrationsInOrder(t *testing.T) {
	m := New(Config{Path: ":memory:"})

	var applied []int
	m.RegisterMigration(Migration{Version: 2, Description: "second", Up: func(tx *sql.Tx) error {
		applied = append(applied, 2)
		_, err := tx.Exec("ALTER TABLE things ADD COLUMN extra TEXT")
		return err
	}})
	m.RegisterMigration(Migration{Version: 1, Description: "first", Up: func(tx *sql.Tx) error {
		applied = append(applied, 1)
		_, err := tx.Exec("CREATE TABLE things (id INTEGER PRIMARY KEY)")
		return err
	}})

	if err := m.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer m.Shutdown()

	if len(applied) != 2 || applied[0] != 1 || applied[1] != 2 {
		t.Fatalf("applied = %v, want [1 2]", applied)
	}

	version, err := m.SchemaVersion(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("SchemaVersion() = %d, want 2", version)
	}
	if !m.IsConnected() {
		t.Error("IsConnected() = false after Init")
	}
}

func TestMigrationsAppliedOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "markers.db")

	count := 0
	migration := Migration{Version: 1, Up: func(tx *sql.Tx) error {
		count++
		_, err := tx.Exec("CREATE TABLE things (id INTEGER PRIMARY KEY)")
		return err
	}}

	for i := 0; i < 2; i++ {
		m := New(Config{Path: path, MaxOpenConn: 1, MaxIdleConn: 1, MaxLifetime: 60})
		m.RegisterMigration(migration)
		if err := m.Init(); err != nil {
			t.Fatalf("Init() #%d error = %v", i+1, err)
		}
		if err := m.Shutdown(); err != nil {
			t.Fatal(err)
		}
	}

	if count != 1 {
		t.Errorf("migration ran %d times, want 1", count)
	}
}

func TestFailedMigrationRollsBack(t *testing.T) {
	m := New(Config{Path: ":memory:"})
	boom := errors.New("boom")
	m.RegisterMigration(Migration{Version: 1, Up: func(tx *sql.Tx) error {
		if _, err := tx.Exec("CREATE TABLE partial (id INTEGER)"); err != nil {
			return err
		}
		return boom
	}})

	if err := m.Init(); !errors.Is(err, boom) {
		t.Fatalf("Init() error = %v, want boom", err)
	}
	defer m.Shutdown()

	var name string
	err := m.DB().QueryRow("SELECT name FROM sqlite_master WHERE name = 'partial'").Scan(&name)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("partial table survived a failed migration (err = %v)", err)
	}
}
