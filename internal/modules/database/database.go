// Package database provides the SQLite storage module used for persisted
// updater state.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Config represents the database configuration
type Config struct {
	Path        string `json:"path"` // SQLite file, or ":memory:"
	MaxOpenConn int    `json:"max_open_conn"`
	MaxIdleConn int    `json:"max_idle_conn"`
	MaxLifetime int    `json:"max_lifetime"` // Connection lifetime in seconds
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Path:        "plugins/ccupdater/markers.db",
		MaxOpenConn: 4,
		MaxIdleConn: 2,
		MaxLifetime: 300,
	}
}

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// Module implements the database module
type Module struct {
	mu         sync.RWMutex
	db         *sql.DB
	config     Config
	connected  bool
	migrations []Migration
}

// New creates a new database module
func New(config Config) *Module {
	return &Module{config: config}
}

// Name returns the module name
func (m *Module) Name() string {
	return "Database"
}

// Version returns the module version
func (m *Module) Version() string {
	return "1.0.0"
}

// Priority returns the module load priority
func (m *Module) Priority() int {
	return 20
}

// Init opens the database and applies pending migrations
func (m *Module) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.connectLocked(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := m.runMigrationsLocked(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Shutdown closes the database
func (m *Module) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		if err := m.db.Close(); err != nil {
			return err
		}
		m.db = nil
		m.connected = false
	}

	return nil
}

// connectLocked connects to the database (must be called with lock held)
func (m *Module) connectLocked() error {
	if m.connected {
		return nil
	}

	inMemory := strings.HasPrefix(m.config.Path, ":memory:")
	dsn := m.config.Path
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(m.config.Path), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	if inMemory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(m.config.MaxOpenConn)
		db.SetMaxIdleConns(m.config.MaxIdleConn)
		db.SetConnMaxLifetime(time.Duration(m.config.MaxLifetime) * time.Second)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping db: %w", err)
	}

	m.db = db
	m.connected = true
	return nil
}

// runMigrationsLocked runs pending migrations, each in its own transaction
func (m *Module) runMigrationsLocked() error {
	createTable := `
		CREATE TABLE IF NOT EXISTS ccupdater_migrations (
			version     INTEGER PRIMARY KEY,
			description TEXT    NOT NULL DEFAULT '',
			applied_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := m.db.Exec(createTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	row := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM ccupdater_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := m.db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: begin: %w", migration.Version, err)
		}
		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if _, err := tx.Exec("INSERT INTO ccupdater_migrations (version, description) VALUES (?, ?)",
			migration.Version, migration.Description); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", migration.Version, err)
		}
	}

	return nil
}

// ============================================================
// Public API
// ============================================================

// IsConnected returns true if connected to the database
func (m *Module) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// DB returns the underlying database connection
func (m *Module) DB() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// SchemaVersion returns the highest applied migration version
func (m *Module) SchemaVersion(ctx context.Context) (int, error) {
	db := m.DB()
	if db == nil {
		return 0, fmt.Errorf("database not connected")
	}

	var version int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM ccupdater_migrations").Scan(&version)
	return version, err
}

// RegisterMigration registers a migration. Migrations must be registered
// before Init.
func (m *Module) RegisterMigration(migration Migration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.migrations = append(m.migrations, migration)
	sort.SliceStable(m.migrations, func(i, j int) bool {
		return m.migrations[i].Version < m.migrations[j].Version
	})
}

// Config returns the configuration
func (m *Module) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}
