package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion)); err != nil {
		return err
	}
	// The meta row mirrors user_version in a queryable form so other
	// readers of the database file can check compatibility.
	return s.SetMeta("schema_version", fmt.Sprintf("%d", currentVersion))
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		start_ts     TEXT NOT NULL,
		end_ts       TEXT NOT NULL,
		duration_sec INTEGER NOT NULL,
		process_name TEXT NOT NULL,
		exe_path     TEXT NOT NULL,
		window_title TEXT NOT NULL,
		category     TEXT NOT NULL,
		intent_tag   TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_start    ON sessions(start_ts);
	CREATE INDEX IF NOT EXISTS idx_sessions_end      ON sessions(end_ts);
	CREATE INDEX IF NOT EXISTS idx_sessions_category ON sessions(category);

	CREATE TABLE IF NOT EXISTS rules (
		rule_id         INTEGER PRIMARY KEY AUTOINCREMENT,
		enabled         INTEGER NOT NULL,
		match_type      TEXT NOT NULL,
		process_pattern TEXT,
		title_pattern   TEXT,
		category        TEXT NOT NULL,
		priority        INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/timesink/timesink.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "timesink", "timesink.db"), nil
}
