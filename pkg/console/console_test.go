package console

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"codeagent/pkg/exec"
)

func TestPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, false)

	c.Panel("Processing Project Description")
	c.Step("Generating %s...", "plan")
	c.Success("Created %d files", 3)
	c.Warn("git not initialized")
	c.Error("boom")
	c.Field("Project Name", "todo-app")
	c.List([]string{"Flask", "SQLite"})

	out := buf.String()
	assert.Contains(t, out, "=== Processing Project Description ===")
	assert.Contains(t, out, "Generating plan...")
	assert.Contains(t, out, "✅ Created 3 files")
	assert.Contains(t, out, "⚠️  git not initialized")
	assert.Contains(t, out, "❌ boom")
	assert.Contains(t, out, "Project Name: todo-app")
	assert.Contains(t, out, "  - Flask\n  - SQLite\n")
	assert.NotContains(t, out, "\x1b[")
}

func TestCommandOutput(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, false)

	c.Command(&exec.CommandResult{
		Command:         "npx create-react-app .",
		OriginalCommand: "npx create-react-app web",
		Success:         true,
		Stdout:          "done\n",
		Duration:        1500 * time.Millisecond,
	})
	c.Command(&exec.CommandResult{Command: "false", Error: "command exited with status 1", Stderr: "bad"})
	c.Command(&exec.CommandResult{Command: "sleep 9", TimedOut: true, Error: "command timed out after 1s"})
	c.Command(nil)

	out := buf.String()
	assert.Contains(t, out, "$ npx create-react-app .")
	assert.Contains(t, out, "(rewritten from: npx create-react-app web)")
	assert.Contains(t, out, "Command completed in 1.5s")
	assert.Contains(t, out, "    done")
	assert.Contains(t, out, "Command failed: command exited with status 1")
	assert.Contains(t, out, "    bad")
	assert.Contains(t, out, "Command timed out: command timed out after 1s")
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		c := Discard()
		c.Panel("x")
		c.Text("y")
	})
}
