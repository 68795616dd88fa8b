package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeagent/pkg/plan"
)

func sampleState(dir string) *ProjectState {
	tasks := []plan.Task{
		{ID: "1", Name: "Init", Description: "setup", Complexity: "Low", Dependencies: "None", Category: "Setup"},
		{ID: "2", Name: "Routes", Description: "add routes", Complexity: "High", Dependencies: "1", Category: "Development"},
	}
	return &ProjectState{
		SessionID: "5f0c3f2e-8a43-4d6b-9a55-1c2f5d1c7e10",
		Phase:     PhaseTaskExecuting,
		ProjectDescription: &plan.ProjectDescription{
			ProjectName:    "flask-site",
			Technologies:   []string{"Python", "Flask"},
			Features:       []string{"one page"},
			RawDescription: "Create a simple Flask app with one page",
		},
		Plan: &plan.Plan{
			RawText:  "## Project Overview\nA site.",
			Sections: map[string]string{"## Project Overview": "A site."},
		},
		Tasks:         tasks,
		CurrentTask:   &tasks[1],
		ProjectName:   "flask-site",
		ProjectDir:    dir,
		LastTimestamp: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "project")
	store, err := NewStore(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, "project_state.json"), store.Path())

	_, err = NewStore("")
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	want := sampleState(dir)
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveOverwritesInPlace(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	st := sampleState(dir)
	require.NoError(t, store.Save(st))
	st.Phase = PhaseReviewed
	st.CurrentTask = nil
	require.NoError(t, store.Save(st))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, PhaseReviewed, got.Phase)
	assert.Nil(t, got.CurrentTask)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSaveUsesOriginalKeys(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleState(dir)))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"project_description", "project_plan", "tasks", "current_task", "project_name", "project_dir"} {
		assert.Contains(t, raw, key)
	}
	tasks := raw["tasks"].([]any)
	assert.Equal(t, "Init", tasks[0].(map[string]any)["task name"])
}

func TestSaveSetsTimestamp(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	st := &ProjectState{ProjectName: "x"}
	require.NoError(t, store.Save(st))
	assert.False(t, st.LastTimestamp.IsZero())

	assert.Error(t, store.Save(nil))
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoState)

	require.NoError(t, os.WriteFile(store.Path(), []byte("{broken"), 0644))
	_, err = store.Load()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoState)

	require.NoError(t, store.Delete())
	require.NoError(t, store.Delete())
	assert.NoFileExists(t, store.Path())
}
