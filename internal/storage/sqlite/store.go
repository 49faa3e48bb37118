// Package sqlite implements the production Storage backend on embedded
// SQLite with WAL mode for concurrent reads.
//
// Architecture:
//   - Database file: .spool/spool.db
//   - WAL mode: concurrent readers during writes
//   - One mutex per store handle: all operations serialize, so a mutation,
//     its audit event, and its dirty mark always commit as one transaction
//   - Timestamps: RFC3339Nano text columns, parsed on scan
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/spoolworks/spool/internal/storage"
)

// Store wraps the SQLite connection with issue-tracker functionality.
type Store struct {
	mu   sync.Mutex
	conn *sql.DB
	path string
}

var _ storage.Storage = (*Store)(nil)

// Open creates a store at the specified path, creating the database file and
// schema if they don't exist.
//
// The caller MUST call Close() when done to ensure proper cleanup.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		conn: conn,
		path: path,
	}

	// Enable WAL mode for concurrent reads
	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout to 5 seconds
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := s.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := s.initSchema(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// initSchema creates the database schema if it doesn't exist.
// Idempotent - safe to call multiple times.
func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	-- Core tables
	CREATE TABLE IF NOT EXISTS issues (
		id TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		design TEXT NOT NULL DEFAULT '',
		acceptance_criteria TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'open',
		priority INTEGER NOT NULL DEFAULT 2,
		issue_type TEXT NOT NULL DEFAULT 'task',
		assignee TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		closed_at TEXT,
		close_reason TEXT NOT NULL DEFAULT '',
		external_ref TEXT UNIQUE,
		compaction_level INTEGER NOT NULL DEFAULT 0,
		compacted_at TEXT,
		compacted_at_commit TEXT,
		original_size INTEGER NOT NULL DEFAULT 0
	);

	-- Edges may reference issues that don't exist yet, so no foreign keys here.
	CREATE TABLE IF NOT EXISTS dependencies (
		issue_id TEXT NOT NULL,
		depends_on_id TEXT NOT NULL,
		type TEXT NOT NULL,  -- blocks, related, parent-child, discovered-from
		created_at TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (issue_id, depends_on_id)
	);

	CREATE TABLE IF NOT EXISTS labels (
		issue_id TEXT NOT NULL,
		label TEXT NOT NULL,
		PRIMARY KEY (issue_id, label)
	);

	CREATE TABLE IF NOT EXISTS comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		issue_id TEXT NOT NULL,
		author TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		issue_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		actor TEXT NOT NULL,
		old_value TEXT,
		new_value TEXT,
		comment TEXT,
		created_at TEXT NOT NULL
	);

	-- Sync bookkeeping
	CREATE TABLE IF NOT EXISTS dirty_issues (
		issue_id TEXT PRIMARY KEY,
		marked_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS export_hashes (
		issue_id TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);

	-- Indexes for common queries
	CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);
	CREATE INDEX IF NOT EXISTS idx_issues_priority ON issues(priority);
	CREATE INDEX IF NOT EXISTS idx_issues_assignee ON issues(assignee);
	CREATE INDEX IF NOT EXISTS idx_issues_type ON issues(issue_type);
	CREATE INDEX IF NOT EXISTS idx_issues_updated ON issues(updated_at);
	CREATE INDEX IF NOT EXISTS idx_deps_depends_on ON dependencies(depends_on_id);
	CREATE INDEX IF NOT EXISTS idx_deps_type ON dependencies(type);
	CREATE INDEX IF NOT EXISTS idx_labels_label ON labels(label);
	CREATE INDEX IF NOT EXISTS idx_comments_issue ON comments(issue_id);
	CREATE INDEX IF NOT EXISTS idx_events_issue ON events(issue_id);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// inTx runs fn inside a transaction, committing on success.
// Caller holds s.mu.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertEvent appends one audit event inside the mutation's transaction.
func insertEvent(ctx context.Context, tx *sql.Tx, issueID, eventType, actor string, oldValue, newValue, comment *string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO events (issue_id, event_type, actor, old_value, new_value, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		issueID, eventType, actor,
		ptrToNullString(oldValue), ptrToNullString(newValue), ptrToNullString(comment),
		time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// markDirty flags an issue for the next export inside the mutation's transaction.
func markDirty(ctx context.Context, tx *sql.Tx, issueID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO dirty_issues (issue_id, marked_at)
		VALUES (?, ?)
		ON CONFLICT(issue_id) DO UPDATE SET marked_at = excluded.marked_at`,
		issueID, time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to mark issue dirty: %w", err)
	}
	return nil
}

// timeToNullString converts a time pointer to a nullable string for SQL.
func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}

// nullStringToTime converts a nullable SQL string to a time pointer.
func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// ptrToNullString converts a string pointer to a nullable SQL string.
func ptrToNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullStringToPtr converts a nullable SQL string to a string pointer.
func nullStringToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// parseTime accepts both nano and second precision timestamps.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Parse(time.RFC3339, s)
	}
	return t, nil
}
