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

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS categories (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		slug        TEXT NOT NULL UNIQUE,
		icon        TEXT NOT NULL DEFAULT '',
		color       TEXT NOT NULL DEFAULT '#6C63FF',
		description TEXT NOT NULL DEFAULT '',
		built_in    INTEGER NOT NULL DEFAULT 0,
		active      INTEGER NOT NULL DEFAULT 1,
		sort_order  INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS roles (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		name         TEXT NOT NULL UNIQUE,
		description  TEXT NOT NULL DEFAULT '',
		color        TEXT NOT NULL DEFAULT '#2EC4B6',
		icon         TEXT NOT NULL DEFAULT '',
		is_default   INTEGER NOT NULL DEFAULT 0,
		user_defined INTEGER NOT NULL DEFAULT 0,
		active       INTEGER NOT NULL DEFAULT 1,
		sort_order   INTEGER NOT NULL DEFAULT 0,
		created_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS projects (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		name                TEXT NOT NULL,
		role_id             INTEGER REFERENCES roles(id),
		default_category_id INTEGER REFERENCES categories(id),
		patterns            TEXT NOT NULL DEFAULT '[]',
		source_hints        TEXT NOT NULL DEFAULT '[]',
		active              INTEGER NOT NULL DEFAULT 1,
		ai_suggested        INTEGER NOT NULL DEFAULT 0,
		user_confirmed      INTEGER NOT NULL DEFAULT 0,
		confidence          REAL NOT NULL DEFAULT 0,
		tracked_seconds     INTEGER NOT NULL DEFAULT 0,
		last_seen           TEXT,
		notes               TEXT NOT NULL DEFAULT '',
		created_at          TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id                     INTEGER PRIMARY KEY AUTOINCREMENT,
		start_time             TEXT NOT NULL,
		end_time               TEXT,
		duration               INTEGER NOT NULL DEFAULT 0,
		app_name               TEXT NOT NULL DEFAULT '',
		window_title           TEXT NOT NULL DEFAULT '',
		bundle_id              TEXT NOT NULL DEFAULT '',
		summary                TEXT NOT NULL DEFAULT '',
		key_insights           TEXT NOT NULL DEFAULT '[]',
		legacy_work_type       TEXT NOT NULL DEFAULT '',
		legacy_project_name    TEXT NOT NULL DEFAULT '',
		category_id            INTEGER REFERENCES categories(id),
		project_id             INTEGER REFERENCES projects(id),
		ai_confidence          REAL,
		ai_categorized         INTEGER NOT NULL DEFAULT 0,
		concurrent_project_ids TEXT NOT NULL DEFAULT '[]',
		active                 INTEGER NOT NULL DEFAULT 1,
		screenshot_count       INTEGER NOT NULL DEFAULT 0,
		created_at             TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		updated_at             TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_start    ON sessions(start_time);
	CREATE INDEX IF NOT EXISTS idx_sessions_project  ON sessions(project_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_category ON sessions(category_id);

	CREATE TABLE IF NOT EXISTS suggestions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  INTEGER NOT NULL REFERENCES sessions(id),
		kind        TEXT NOT NULL,
		value       TEXT NOT NULL DEFAULT '',
		confidence  REAL NOT NULL DEFAULT 0,
		reasoning   TEXT NOT NULL DEFAULT '',
		context     TEXT NOT NULL DEFAULT '{}',
		status      TEXT NOT NULL DEFAULT 'pending',
		user_value  TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		resolved_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_suggestions_status ON suggestions(status);

	CREATE TABLE IF NOT EXISTS cached_categorizations (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		app_name      TEXT NOT NULL,
		window_title  TEXT NOT NULL DEFAULT '',
		project_name  TEXT NOT NULL DEFAULT '',
		role_name     TEXT NOT NULL DEFAULT '',
		category_slug TEXT NOT NULL DEFAULT '',
		patterns      TEXT NOT NULL DEFAULT '[]',
		confidence    REAL NOT NULL DEFAULT 0,
		use_count     INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE INDEX IF NOT EXISTS idx_cache_app ON cached_categorizations(app_name);

	CREATE TABLE IF NOT EXISTS insight_feedback (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		insight_kind TEXT NOT NULL,
		insight_text TEXT NOT NULL DEFAULT '',
		action       TEXT NOT NULL,
		target_kind  TEXT NOT NULL DEFAULT 'global',
		target_id    INTEGER,
		target_name  TEXT NOT NULL DEFAULT '',
		changes      TEXT NOT NULL DEFAULT '{}',
		confidence   REAL NOT NULL DEFAULT 0,
		created_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		applied_at   TEXT
	);
	`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return s.seed()
}

// seed inserts built-in categories and default roles on first run.
func (s *Store) seed() error {
	builtins := []struct {
		name, slug, icon, color, desc string
	}{
		{"Creating", "creating", "hammer", "#6C63FF", "Building, coding, designing, writing"},
		{"Responding", "responding", "envelope", "#2EC4B6", "Email, chat, replies"},
		{"Meetings", "meetings", "person.2", "#F39C12", "Calls and meetings"},
		{"Discovery", "discovery", "magnifyingglass", "#7AA2F7", "Research, reading, browsing"},
		{"Planning", "planning", "calendar", "#2ECC71", "Planning and organizing"},
		{"Personal", "personal", "heart", "#FF6B6B", "Non-work activity"},
	}
	for i, c := range builtins {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO categories (name, slug, icon, color, description, built_in, active, sort_order)
			 VALUES (?, ?, ?, ?, ?, 1, 1, ?)`,
			c.name, c.slug, c.icon, c.color, c.desc, i,
		)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", c.slug, err)
		}
	}

	roles := []struct {
		name, desc string
		isDefault  bool
	}{
		{"Work", "General work context", true},
		{"Personal", "Personal time", false},
	}
	for i, r := range roles {
		def := 0
		if r.isDefault {
			def = 1
		}
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO roles (name, description, is_default, user_defined, active, sort_order)
			 VALUES (?, ?, ?, 0, 1, ?)`,
			r.name, r.desc, def, i,
		)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", r.name, err)
		}
	}
	return nil
}

// DefaultDBPath returns ~/.config/focal/focal.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "focal", "focal.db"), nil
}
