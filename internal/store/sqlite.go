// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Opens the database in WAL mode and creates the schema on first use

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// PRAGMAs are per connection; a single connection keeps foreign keys on
	// and serializes writers.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS servers (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL UNIQUE,
			transport    TEXT NOT NULL,
			command      TEXT,
			args_json    TEXT,
			env_json     TEXT,
			url          TEXT,
			enabled      INTEGER NOT NULL DEFAULT 1,
			status       TEXT NOT NULL DEFAULT 'unknown',
			last_error   TEXT,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL,

			CHECK (transport IN ('stdio', 'http', 'sse')),
			CHECK (status IN ('unknown', 'connected', 'error'))
		);

		CREATE TABLE IF NOT EXISTS capabilities (
			server_id   TEXT NOT NULL REFERENCES servers(id) ON DELETE CASCADE,
			kind        TEXT NOT NULL,
			name        TEXT NOT NULL,
			description TEXT,
			enabled     INTEGER NOT NULL DEFAULT 1,

			PRIMARY KEY (server_id, kind, name),
			CHECK (kind IN ('tool', 'resource', 'prompt'))
		);

		CREATE TABLE IF NOT EXISTS api_keys (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			token_hash   TEXT NOT NULL UNIQUE,
			prefix       TEXT NOT NULL,
			created_at   TEXT NOT NULL,
			last_used_at TEXT,
			revoked_at   TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_api_keys_token_hash ON api_keys(token_hash);

		CREATE TABLE IF NOT EXISTS grants (
			key_id     TEXT NOT NULL REFERENCES api_keys(id) ON DELETE CASCADE,
			pattern    TEXT NOT NULL,
			created_at TEXT NOT NULL,

			PRIMARY KEY (key_id, pattern)
		);

		CREATE TABLE IF NOT EXISTS audit_log (
			audit_id    TEXT PRIMARY KEY,
			actor       TEXT NOT NULL,
			action      TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id   TEXT NOT NULL,
			ts          TEXT NOT NULL,
			detail_json TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_target ON audit_log(target_type, target_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// runMigrations applies schema migrations for existing databases.
// These are idempotent - safe to run multiple times.
func (s *SQLiteStore) runMigrations() error {
	// SQLite doesn't support ADD COLUMN IF NOT EXISTS, so we check first
	migrations := []struct {
		table  string
		column string
		apply  string
	}{
		{
			table:  "servers",
			column: "refreshed_at",
			apply:  `ALTER TABLE servers ADD COLUMN refreshed_at TEXT`,
		},
	}

	for _, m := range migrations {
		var exists int
		err := s.db.QueryRow(`SELECT 1 FROM pragma_table_info(?) WHERE name = ?`, m.table, m.column).Scan(&exists)
		if err == nil {
			continue
		}
		if _, err := s.db.Exec(m.apply); err != nil {
			return fmt.Errorf("adding %s column to %s: %w", m.column, m.table, err)
		}
		s.logger.Info("applied migration", "column", m.column, "table", m.table)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// parseNullTime parses an optional timestamp column.
func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
