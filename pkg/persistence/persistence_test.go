package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeagent/pkg/codegen"
	"codeagent/pkg/exec"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), DefaultFileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func intPtr(i int) *int { return &i }

func TestOpenCreatesCurrentSchema(t *testing.T) {
	store := openTestStore(t)

	version, err := GetSchemaVersion(store.DB())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	for _, table := range []string{"sessions", "commands", "task_runs", "files"} {
		var name string
		err := store.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.LatestSession(ctx)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	id, err := store.StartSession(ctx, Session{Description: "flask app", Provider: "gemini", Mode: "oneshot"})
	require.NoError(t, err)
	assert.Equal(t, id, store.SessionID())

	require.NoError(t, store.UpdateSessionProject(ctx, "flask-site", "/tmp/flask-site"))
	require.NoError(t, store.EndSession(ctx, SessionStatusCompleted))

	sess, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "flask-site", sess.ProjectName)
	assert.Equal(t, "/tmp/flask-site", sess.ProjectDir)
	assert.Equal(t, "gemini", sess.Provider)
	assert.Equal(t, SessionStatusCompleted, sess.Status)
	assert.NotNil(t, sess.EndedAt)

	_, err = store.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListSessionsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := store.StartSession(ctx, Session{Description: fmt.Sprintf("run %d", i)})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	sessions, err := store.ListSessions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, ids[2], sessions[0].SessionID)
	assert.Equal(t, ids[1], sessions[1].SessionID)

	latest, err := store.LatestSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[2], latest.SessionID)
	assert.Equal(t, SessionStatusActive, latest.Status)
	assert.Nil(t, latest.EndedAt)
}

func TestRecordWithoutSessionIsNoop(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	store.RecordCommand(ctx, &exec.CommandResult{Command: "ls", Success: true})
	store.RecordFile(ctx, &codegen.FileResult{FilePath: "app.py", Success: true})
	require.NoError(t, store.RecordTaskRun(ctx, TaskRun{TaskID: "1"}))

	var n int
	require.NoError(t, store.DB().QueryRow(`SELECT COUNT(*) FROM commands`).Scan(&n))
	assert.Zero(t, n)
}

func TestRecordCommands(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id, err := store.StartSession(ctx, Session{Mode: "interactive"})
	require.NoError(t, err)

	var sink exec.ResultSink = store
	sink.RecordCommand(ctx, &exec.CommandResult{
		Command:         "npx create-react-app .",
		OriginalCommand: "npx create-react-app my-app",
		ReturnCode:      intPtr(0),
		Success:         true,
		LongRunning:     true,
		Duration:        1500 * time.Millisecond,
	})
	sink.RecordCommand(ctx, &exec.CommandResult{
		Command:  "sleep 100",
		TimedOut: true,
		Error:    "command timed out after 1s",
	})
	sink.RecordCommand(ctx, nil)

	records, err := store.Commands(ctx, id)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "npx create-react-app .", first.Command)
	assert.Equal(t, "npx create-react-app my-app", first.OriginalCommand)
	require.NotNil(t, first.ReturnCode)
	assert.Equal(t, 0, *first.ReturnCode)
	assert.True(t, first.Success)
	assert.True(t, first.LongRunning)
	assert.Equal(t, 1500*time.Millisecond, first.Duration)

	second := records[1]
	assert.Nil(t, second.ReturnCode)
	assert.True(t, second.TimedOut)
	assert.False(t, second.Success)
	assert.Equal(t, "command timed out after 1s", second.Error)
	assert.Less(t, first.ID, second.ID)

	other, err := store.Commands(ctx, "other-session")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRecordFilesAndTaskRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id, err := store.StartSession(ctx, Session{})
	require.NoError(t, err)

	var sink codegen.FileSink = store
	sink.RecordFile(ctx, &codegen.FileResult{FilePath: "app.py", Language: "python", Success: true, Digest: "abc", Bytes: 42})
	sink.RecordFile(ctx, &codegen.FileResult{FilePath: "bad.py", Language: "python", Error: "boom"})

	files, err := store.Files(ctx, id)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, FileRecord{SessionID: id, Path: "app.py", Language: "python", Digest: "abc", Bytes: 42, Success: true}, files[0])
	assert.Equal(t, "boom", files[1].Error)
	assert.False(t, files[1].Success)

	require.NoError(t, store.RecordTaskRun(ctx, TaskRun{
		TaskID:       "1",
		TaskName:     "Project Setup",
		Branch:       "feature/project-setup",
		Success:      true,
		CommitHash:   "deadbeef",
		CommandsRun:  2,
		FilesWritten: 3,
		Duration:     2 * time.Second,
	}))
	runs, err := store.TaskRuns(ctx, id)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "Project Setup", runs[0].TaskName)
	assert.Equal(t, "feature/project-setup", runs[0].Branch)
	assert.Equal(t, "deadbeef", runs[0].CommitHash)
	assert.Equal(t, 2, runs[0].CommandsRun)
	assert.Equal(t, 3, runs[0].FilesWritten)
	assert.Equal(t, 2*time.Second, runs[0].Duration)
}

func TestMigrateFromV1(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	raw, err := sql.Open("sqlite", "file:"+dbPath)
	require.NoError(t, err)
	require.NoError(t, execAll(raw, schemaV1))
	require.NoError(t, setSchemaVersion(raw, 1))
	require.NoError(t, raw.Close())

	store, err := Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	version, err := GetSchemaVersion(store.DB())
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	ctx := context.Background()
	id, err := store.StartSession(ctx, Session{})
	require.NoError(t, err)
	store.RecordFile(ctx, &codegen.FileResult{FilePath: "main.go", Success: true})
	files, err := store.Files(ctx, id)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestRejectsNewerSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	raw, err := sql.Open("sqlite", "file:"+dbPath)
	require.NoError(t, err)
	require.NoError(t, execAll(raw, schemaV1))
	require.NoError(t, setSchemaVersion(raw, CurrentSchemaVersion+1))
	require.NoError(t, raw.Close())

	_, err = Open(dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}
