// Package state persists the project snapshot written after each pipeline phase.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codeagent/pkg/config"
	"codeagent/pkg/plan"
	"codeagent/pkg/utils"
)

// Phase names the last completed pipeline step.
type Phase string

// Pipeline phases, in order.
const (
	PhaseDescribed     Phase = "described"
	PhasePlanned       Phase = "planned"
	PhaseStructured    Phase = "structured"
	PhaseTaskExecuting Phase = "task_executing"
	PhaseReviewed      Phase = "reviewed"
	PhaseDeployed      Phase = "deployed"
	PhaseEditorOpened  Phase = "editor_opened"
)

// ProjectState is the project_state.json snapshot.
//
//nolint:govet // JSON field order mirrors the file
type ProjectState struct {
	SessionID          string                   `json:"session_id,omitempty"`
	Phase              Phase                    `json:"phase,omitempty"`
	ProjectDescription *plan.ProjectDescription `json:"project_description"`
	Plan               *plan.Plan               `json:"project_plan"`
	Tasks              []plan.Task              `json:"tasks"`
	CurrentTask        *plan.Task               `json:"current_task"`
	ProjectName        string                   `json:"project_name"`
	ProjectDir         string                   `json:"project_dir"`
	LastTimestamp      time.Time                `json:"last_timestamp"`
}

// ErrNoState is returned by Load when no snapshot exists.
var ErrNoState = errors.New("no project state found")

// Store reads and writes the snapshot of one project directory.
type Store struct {
	baseDir string
}

// NewStore creates a store for baseDir, creating the directory if needed.
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("state directory cannot be empty")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return filepath.Join(s.baseDir, config.StateFileName)
}

// Save overwrites the snapshot atomically. LastTimestamp is set when zero.
func (s *Store) Save(st *ProjectState) error {
	if st == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if st.LastTimestamp.IsZero() {
		st.LastTimestamp = time.Now().UTC()
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project state: %w", err)
	}
	if err := utils.WriteFileAtomic(s.Path(), data, 0644); err != nil {
		return fmt.Errorf("failed to write project state: %w", err)
	}
	return nil
}

// Load reads the snapshot back.
func (s *Store) Load() (*ProjectState, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project state: %w", err)
	}
	var st ProjectState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project state: %w", err)
	}
	return &st, nil
}

// Delete removes the snapshot. A missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete project state: %w", err)
	}
	return nil
}
