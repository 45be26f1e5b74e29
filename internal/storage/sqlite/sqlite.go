// Package sqlite implements the storage interface using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/ahoskins/burndown/internal/debug"
	"github.com/ahoskins/burndown/internal/types"

	// Import SQLite driver
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
	closed atomic.Bool // Tracks whether Close() has been called
}

// New creates a new SQLite storage backend
func New(path string) (*SQLiteStorage, error) {
	// Convert :memory: to shared memory URL for consistent behavior across
	// connections. SQLite creates separate in-memory databases for each
	// connection to ":memory:", but "file::memory:?cache=shared" is shared.
	dbPath := path
	if path == ":memory:" {
		dbPath = "file::memory:?cache=shared"
	}

	// Ensure directory exists (skip for memory databases)
	if !strings.Contains(dbPath, ":memory:") {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency and busy timeout
	// for parallel writes. _pragma=foreign_keys(ON) makes the schema's
	// ON DELETE CASCADE clauses actually fire; _time_format=sqlite enables
	// automatic parsing of DATETIME columns to time.Time.
	connStr := dbPath
	if strings.Contains(dbPath, "?") {
		connStr += "&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_txlock=immediate&_time_format=sqlite"
	} else {
		connStr += "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_txlock=immediate&_time_format=sqlite"
	}

	debug.Logf("sqlite: opening %s\n", connStr)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if _, err := db.Exec(seedGlobalIssueTypes); err != nil {
		return nil, fmt.Errorf("failed to seed global issue types: %w", err)
	}

	// Convert to absolute path for consistency
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	if strings.Contains(path, ":memory:") {
		absPath = path
	}

	return &SQLiteStorage{db: db, dbPath: absPath}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// UnderlyingDB returns the underlying *sql.DB connection
func (s *SQLiteStorage) UnderlyingDB() *sql.DB {
	return s.db
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// the given column (as "table.column"). modernc.org/sqlite surfaces
// constraint errors as strings, so this matches on the message.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *SQLiteStorage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// appendAudit writes an audit trail row inside the caller's transaction so
// the record commits or rolls back with the mutation it describes.
func appendAudit(ctx context.Context, tx *sql.Tx, userID, issueID int64, action types.AuditAction, details string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_logs (user_id, issue_id, action, details)
		VALUES (?, ?, ?, ?)
	`, userID, issueID, action, details)
	if err != nil {
		return fmt.Errorf("failed to record audit log: %w", err)
	}
	return nil
}

// execer abstracts *sql.DB and *sql.Tx for shared query helpers.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner abstracts *sql.Row and *sql.Rows for scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}
