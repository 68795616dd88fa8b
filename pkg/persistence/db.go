// Package persistence keeps the SQLite audit trail: one session per pipeline
// run, every command the runner executed, every file written and every task run.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"codeagent/pkg/logx"
)

// DefaultFileName is the audit database created under the output directory.
const DefaultFileName = ".codeagent/audit.db"

// Store is an open audit database bound to the current session.
type Store struct {
	db        *sql.DB
	logger    *logx.Logger
	sessionID string
}

// Open opens (or creates) the database at dbPath and brings its schema up to date.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := initializeSchemaWithMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger := logx.NewLogger("persistence")
	logger.Debug("📦 Database initialized: %s", dbPath)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// SessionID returns the session new records are attached to.
func (s *Store) SessionID() string {
	return s.sessionID
}

// SetSessionID attaches new records to an existing session.
func (s *Store) SetSessionID(id string) {
	s.sessionID = id
}

// DB exposes the connection for tests and ad-hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite exec failed: %w", err)
	}
	return nil
}
