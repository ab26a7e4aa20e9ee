package marker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/corrreia/ccupdater/internal/modules/database"
)

func openSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	db := database.New(database.Config{Path: ":memory:"})
	db.RegisterMigration(Migration)
	if err := db.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Shutdown() })
	return NewSQLiteStore(db.DB())
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "plugins", "ccupdater", "markers.json")),
		"sqlite": openSQLite(t),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := store.Get(ctx, "SpiralP/classicube-cef-plugin"); err != nil || ok {
				t.Fatalf("Get() on empty store = (ok=%v, err=%v), want no marker", ok, err)
			}

			if err := store.Set(ctx, "SpiralP/classicube-cef-plugin", "v1.0"); err != nil {
				t.Fatal(err)
			}
			if err := store.Set(ctx, "SpiralP/classicube-cef-loader-plugin", "v0.3"); err != nil {
				t.Fatal(err)
			}
			if err := store.Set(ctx, "SpiralP/classicube-cef-plugin", "v1.1"); err != nil {
				t.Fatal(err)
			}

			tag, ok, err := store.Get(ctx, "SpiralP/classicube-cef-plugin")
			if err != nil || !ok || tag != "v1.1" {
				t.Fatalf("Get() = (%q, %v, %v), want v1.1", tag, ok, err)
			}

			list, err := store.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 2 {
				t.Fatalf("List() returned %d entries, want 2", len(list))
			}
			if list[0].Key != "SpiralP/classicube-cef-loader-plugin" || list[1].Tag != "v1.1" {
				t.Errorf("unexpected List() = %+v", list)
			}
		})
	}
}

func TestFileStoreCorruptDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "markers.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewFileStore(path)
	if _, _, err := store.Get(ctx, "Cef"); err == nil {
		t.Fatal("expected an error reading a corrupt marker file")
	}

	if err := store.Set(ctx, "Cef", "v2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	tag, ok, err := store.Get(ctx, "Cef")
	if err != nil || !ok || tag != "v2" {
		t.Fatalf("Get() after rewrite = (%q, %v, %v)", tag, ok, err)
	}
}

func TestFileStoreRecordsInstallTime(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "markers.json"))
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	if err := store.Set(ctx, "Cef", "v1.1"); err != nil {
		t.Fatal(err)
	}
	list, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || !list[0].InstalledAt.Equal(fixed) {
		t.Errorf("List() = %+v, want InstalledAt %v", list, fixed)
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the marker file, found %d entries", len(entries))
	}
}
