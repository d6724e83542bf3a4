// Package sqlite implements the repository interfaces on an embedded SQLite
// database.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs
// no C toolchain. Use ":memory:" for a throwaway database in tests.
//
// The schema mirrors the four things the application asks of its store:
//   - users, projects   → documents, each row carrying a ref for conditional writes
//   - relations         → graph edges (user -member-> project)
//   - events            → append-only per-document event log (votes)
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sakif/project-showcase/internal/repository"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/showcase.db"  → file-based database
//   - ":memory:"          → in-memory database, gone on Close
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would otherwise get its own
	// empty database.
	if dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory") {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a vote is being written.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run
// on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			key           TEXT PRIMARY KEY,
			provider      TEXT NOT NULL,
			provider_id   TEXT NOT NULL DEFAULT '',
			display_name  TEXT NOT NULL DEFAULT '',
			username      TEXT NOT NULL,
			profile_url   TEXT NOT NULL DEFAULT '',
			emails        TEXT NOT NULL DEFAULT '[]',
			avatar        TEXT NOT NULL DEFAULT '',
			provider_data TEXT NOT NULL DEFAULT '{}',
			ref           TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			key          TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			link         TEXT NOT NULL DEFAULT '',
			image        TEXT NOT NULL DEFAULT '',
			description  TEXT NOT NULL DEFAULT '',
			votes        INTEGER NOT NULL DEFAULT 0,
			username     TEXT NOT NULL,
			user_key     TEXT NOT NULL DEFAULT '',
			date_created DATETIME NOT NULL,
			date_updated DATETIME NOT NULL,
			ref          TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_projects_date_updated ON projects(date_updated);
		CREATE INDEX IF NOT EXISTS idx_projects_user_key ON projects(user_key);
	`)
	if err != nil {
		return fmt.Errorf("creating projects table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS relations (
			from_collection TEXT NOT NULL,
			from_key        TEXT NOT NULL,
			kind            TEXT NOT NULL,
			to_collection   TEXT NOT NULL,
			to_key          TEXT NOT NULL,
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (from_collection, from_key, kind, to_collection, to_key)
		);
		CREATE INDEX IF NOT EXISTS idx_relations_to ON relations(to_collection, to_key);
	`)
	if err != nil {
		return fmt.Errorf("creating relations table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			collection  TEXT NOT NULL,
			key         TEXT NOT NULL,
			type        TEXT NOT NULL,
			data        TEXT NOT NULL DEFAULT '{}',
			occurred_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_doc ON events(collection, key, type);
	`)
	if err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}

	return nil
}

// newRef returns a fresh document revision.
func newRef() string {
	return uuid.NewString()
}
