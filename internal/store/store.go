// Package store provides the transactional persisted-state layer for mcprouter:
// servers, tokens, projects, policies, approvals and audit events, all backed by
// a single SQLite database opened through modernc.org/sqlite (pure Go, no cgo).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"mcprouter/pkg/logging"
)

// Store wraps a *sql.DB with the schema and CRUD helpers every other package needs.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the SQLite database at path, applying the
// schema. path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; one conn avoids SQLITE_BUSY churn

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	logging.Info("Store", "opened database at %s", path)
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a transaction, committing on nil error and rolling back
// otherwise. Used by callers that need multi-row atomicity.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const schema = `
CREATE TABLE IF NOT EXISTS servers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	transport TEXT NOT NULL,
	command TEXT NOT NULL DEFAULT '',
	args TEXT NOT NULL DEFAULT '[]',
	env TEXT NOT NULL DEFAULT '{}',
	url TEXT NOT NULL DEFAULT '',
	headers TEXT NOT NULL DEFAULT '{}',
	timeout_seconds INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'stopped',
	tool_prefix TEXT NOT NULL DEFAULT '',
	auto_start INTEGER NOT NULL DEFAULT 0,
	project_id TEXT,
	tool_permissions TEXT NOT NULL DEFAULT '{}',
	last_error TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	root_path TEXT NOT NULL DEFAULT '',
	server_ids TEXT NOT NULL DEFAULT '[]',
	workspace_ids TEXT NOT NULL DEFAULT '[]',
	active INTEGER NOT NULL DEFAULT 1,
	settings TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tokens (
	id TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	issued_at DATETIME NOT NULL,
	expires_at DATETIME,
	last_used_at DATETIME,
	revoked INTEGER NOT NULL DEFAULT 0,
	scopes TEXT NOT NULL DEFAULT '[]',
	server_access TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_tokens_client ON tokens(client_id);

CREATE TABLE IF NOT EXISTS policies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	scope TEXT NOT NULL,
	scope_id TEXT,
	resource_type TEXT NOT NULL,
	pattern TEXT NOT NULL,
	action TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	conditions TEXT,
	enabled INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_policies_scope ON policies(scope, scope_id);
CREATE INDEX IF NOT EXISTS idx_policies_enabled ON policies(enabled);

CREATE TABLE IF NOT EXISTS approvals (
	id TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	server_id TEXT NOT NULL,
	tool_name TEXT NOT NULL,
	tool_arguments TEXT NOT NULL DEFAULT '{}',
	policy_rule_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	requested_at DATETIME NOT NULL,
	responded_at DATETIME,
	responded_by TEXT NOT NULL DEFAULT '',
	response_note TEXT NOT NULL DEFAULT '',
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	client_id TEXT NOT NULL DEFAULT '',
	server_id TEXT NOT NULL DEFAULT '',
	tool_name TEXT NOT NULL DEFAULT '',
	success INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	metadata TEXT NOT NULL DEFAULT '{}',
	timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_events(type);
CREATE INDEX IF NOT EXISTS idx_audit_client ON audit_events(client_id);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp);
`

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// now is overridden in tests to produce deterministic timestamps.
var now = time.Now
