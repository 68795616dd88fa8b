package persistence

import (
	"database/sql"
	"errors"
	"fmt"
)

// CurrentSchemaVersion defines the current schema version for migration support.
const CurrentSchemaVersion = 2

// initializeSchemaWithMigrations ensures the database schema is at the current version.
func initializeSchemaWithMigrations(db *sql.DB) error {
	currentVersion, err := GetSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	if currentVersion == 0 {
		return createSchema(db)
	}
	if currentVersion == CurrentSchemaVersion {
		return nil
	}
	if currentVersion > CurrentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d",
			currentVersion, CurrentSchemaVersion)
	}
	return runMigrations(db, currentVersion, CurrentSchemaVersion)
}

// GetSchemaVersion returns the recorded schema version, 0 for an empty database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	var version int
	if err := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func setSchemaVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(`DELETE FROM schema_version`); err != nil {
		return fmt.Errorf("failed to clear schema version: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

// Version 1 tables.
var schemaV1 = []string{
	`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id   TEXT PRIMARY KEY,
		project_name TEXT NOT NULL DEFAULT '',
		project_dir  TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		provider     TEXT NOT NULL DEFAULT '',
		mode         TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL,
		started_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		ended_at     DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS commands (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id       TEXT NOT NULL REFERENCES sessions(session_id),
		command          TEXT NOT NULL,
		original_command TEXT NOT NULL DEFAULT '',
		return_code      INTEGER,
		success          INTEGER NOT NULL,
		timed_out        INTEGER NOT NULL DEFAULT 0,
		long_running     INTEGER NOT NULL DEFAULT 0,
		error            TEXT NOT NULL DEFAULT '',
		duration_ms      INTEGER NOT NULL DEFAULT 0,
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_commands_session ON commands(session_id, id)`,
	`CREATE TABLE IF NOT EXISTS task_runs (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id    TEXT NOT NULL REFERENCES sessions(session_id),
		task_id       TEXT NOT NULL,
		task_name     TEXT NOT NULL,
		branch        TEXT NOT NULL DEFAULT '',
		success       INTEGER NOT NULL,
		error         TEXT NOT NULL DEFAULT '',
		commit_hash   TEXT NOT NULL DEFAULT '',
		commands_run  INTEGER NOT NULL DEFAULT 0,
		files_written INTEGER NOT NULL DEFAULT 0,
		duration_ms   INTEGER NOT NULL DEFAULT 0,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Version 2 adds generated file records.
var schemaV2 = []string{
	`CREATE TABLE IF NOT EXISTS files (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(session_id),
		path       TEXT NOT NULL,
		language   TEXT NOT NULL DEFAULT '',
		success    INTEGER NOT NULL,
		digest     TEXT NOT NULL DEFAULT '',
		bytes      INTEGER NOT NULL DEFAULT 0,
		error      TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// createSchema creates the current schema on an empty database.
func createSchema(db *sql.DB) error {
	for _, stmts := range [][]string{schemaV1, schemaV2} {
		if err := execAll(db, stmts); err != nil {
			return err
		}
	}
	return setSchemaVersion(db, CurrentSchemaVersion)
}

// runMigrations applies database migrations from current version to target version.
func runMigrations(db *sql.DB, fromVersion, toVersion int) error {
	for version := fromVersion + 1; version <= toVersion; version++ {
		if err := runMigration(db, version); err != nil {
			return fmt.Errorf("migration to version %d failed: %w", version, err)
		}
		if err := setSchemaVersion(db, version); err != nil {
			return fmt.Errorf("failed to update schema version to %d: %w", version, err)
		}
	}
	return nil
}

func runMigration(db *sql.DB, version int) error {
	switch version {
	case 2:
		return execAll(db, schemaV2)
	default:
		return fmt.Errorf("unknown migration version: %d", version)
	}
}

func execAll(db *sql.DB, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
