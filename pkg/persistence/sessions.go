package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a requested session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// Session status constants.
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusFailed    = "failed"
)

// Session is one pipeline run.
//
//nolint:govet // struct alignment optimization not critical for this type.
type Session struct {
	SessionID   string     `json:"session_id"`
	ProjectName string     `json:"project_name"`
	ProjectDir  string     `json:"project_dir"`
	Description string     `json:"description"`
	Provider    string     `json:"provider"`
	Mode        string     `json:"mode"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// StartSession creates a session with a fresh id and makes it current.
func (s *Store) StartSession(ctx context.Context, sess Session) (string, error) {
	id := uuid.New().String()
	err := s.exec(ctx, `
		INSERT INTO sessions (session_id, project_name, project_dir, description, provider, mode, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, sess.ProjectName, sess.ProjectDir, sess.Description, sess.Provider, sess.Mode,
		SessionStatusActive, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	s.sessionID = id
	return id, nil
}

// UpdateSessionProject records the project once its name and directory are known.
func (s *Store) UpdateSessionProject(ctx context.Context, name, dir string) error {
	if s.sessionID == "" {
		return nil
	}
	return s.exec(ctx, `UPDATE sessions SET project_name = ?, project_dir = ? WHERE session_id = ?`,
		name, dir, s.sessionID)
}

// EndSession marks the current session finished with status.
func (s *Store) EndSession(ctx context.Context, status string) error {
	if s.sessionID == "" {
		return nil
	}
	return s.exec(ctx, `UPDATE sessions SET status = ?, ended_at = ? WHERE session_id = ?`,
		status, time.Now().UTC(), s.sessionID)
}

const sessionColumns = `session_id, project_name, project_dir, description, provider, mode, status, started_at, ended_at`

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	var sess Session
	var ended sql.NullTime
	if err := row.Scan(&sess.SessionID, &sess.ProjectName, &sess.ProjectDir, &sess.Description,
		&sess.Provider, &sess.Mode, &sess.Status, &sess.StartedAt, &ended); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return &sess, nil
}

// GetSession returns one session.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns the most recent sessions first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return out, nil
}

// LatestSession returns the most recently started session.
func (s *Store) LatestSession(ctx context.Context) (*Session, error) {
	sessions, err := s.ListSessions(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrSessionNotFound
	}
	return &sessions[0], nil
}
