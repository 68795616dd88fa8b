package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"codeagent/pkg/codegen"
	"codeagent/pkg/exec"
)

// CommandRecord is one row of the commands table.
//
//nolint:govet // struct alignment optimization not critical for this type.
type CommandRecord struct {
	ID              int64
	SessionID       string
	Command         string
	OriginalCommand string
	ReturnCode      *int
	Success         bool
	TimedOut        bool
	LongRunning     bool
	Error           string
	Duration        time.Duration
	CreatedAt       time.Time
}

// TaskRun is one executed task.
//
//nolint:govet // struct alignment optimization not critical for this type.
type TaskRun struct {
	ID           int64
	SessionID    string
	TaskID       string
	TaskName     string
	Branch       string
	Success      bool
	Error        string
	CommitHash   string
	CommandsRun  int
	FilesWritten int
	Duration     time.Duration
	CreatedAt    time.Time
}

// FileRecord is one generated or written file.
type FileRecord struct {
	SessionID string
	Path      string
	Language  string
	Digest    string
	Error     string
	Bytes     int
	Success   bool
}

// RecordCommand implements exec.ResultSink. Failures are logged, never returned,
// so auditing cannot break a run.
func (s *Store) RecordCommand(ctx context.Context, r *exec.CommandResult) {
	if s.sessionID == "" || r == nil {
		return
	}
	var rc sql.NullInt64
	if r.ReturnCode != nil {
		rc = sql.NullInt64{Int64: int64(*r.ReturnCode), Valid: true}
	}
	err := s.exec(ctx, `
		INSERT INTO commands (session_id, command, original_command, return_code, success, timed_out, long_running, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.sessionID, r.Command, r.OriginalCommand, rc, r.Success, r.TimedOut, r.LongRunning, r.Error,
		r.Duration.Milliseconds())
	if err != nil {
		s.logger.Warn("⚠️  Failed to record command %q: %v", r.Command, err)
	}
}

// RecordFile implements codegen.FileSink.
func (s *Store) RecordFile(ctx context.Context, r *codegen.FileResult) {
	if s.sessionID == "" || r == nil {
		return
	}
	err := s.exec(ctx, `
		INSERT INTO files (session_id, path, language, success, digest, bytes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.sessionID, r.FilePath, r.Language, r.Success, r.Digest, r.Bytes, r.Error)
	if err != nil {
		s.logger.Warn("⚠️  Failed to record file %s: %v", r.FilePath, err)
	}
}

// RecordTaskRun stores the outcome of one task.
func (s *Store) RecordTaskRun(ctx context.Context, run TaskRun) error {
	if s.sessionID == "" {
		return nil
	}
	return s.exec(ctx, `
		INSERT INTO task_runs (session_id, task_id, task_name, branch, success, error, commit_hash, commands_run, files_written, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.sessionID, run.TaskID, run.TaskName, run.Branch, run.Success, run.Error, run.CommitHash,
		run.CommandsRun, run.FilesWritten, run.Duration.Milliseconds())
}

// Commands returns the commands of a session in execution order.
func (s *Store) Commands(ctx context.Context, sessionID string) ([]CommandRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, command, original_command, return_code, success, timed_out, long_running, error, duration_ms, created_at
		FROM commands WHERE session_id = ? ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CommandRecord
	for rows.Next() {
		var rec CommandRecord
		var rc sql.NullInt64
		var ms int64
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Command, &rec.OriginalCommand, &rc,
			&rec.Success, &rec.TimedOut, &rec.LongRunning, &rec.Error, &ms, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		if rc.Valid {
			code := int(rc.Int64)
			rec.ReturnCode = &code
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	return out, nil
}

// TaskRuns returns the task runs of a session in execution order.
func (s *Store) TaskRuns(ctx context.Context, sessionID string) ([]TaskRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, task_id, task_name, branch, success, error, commit_hash, commands_run, files_written, duration_ms, created_at
		FROM task_runs WHERE session_id = ? ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TaskRun
	for rows.Next() {
		var run TaskRun
		var ms int64
		if err := rows.Scan(&run.ID, &run.SessionID, &run.TaskID, &run.TaskName, &run.Branch, &run.Success,
			&run.Error, &run.CommitHash, &run.CommandsRun, &run.FilesWritten, &ms, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task run: %w", err)
		}
		run.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query task runs: %w", err)
	}
	return out, nil
}

// Files returns the file records of a session in write order.
func (s *Store) Files(ctx context.Context, sessionID string) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, path, language, digest, error, bytes, success
		FROM files WHERE session_id = ? ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.SessionID, &f.Path, &f.Language, &f.Digest, &f.Error, &f.Bytes, &f.Success); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	return out, nil
}
