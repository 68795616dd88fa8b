//go:build unix

package exec

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_StopKillsServer(t *testing.T) {
	p, err := Start(t.TempDir(), "echo ready; sleep 30")
	require.NoError(t, err)
	assert.Positive(t, p.PID())

	require.Eventually(t, func() bool { return strings.Contains(p.Output(), "ready") },
		5*time.Second, 20*time.Millisecond)
	assert.False(t, p.Exited())
	assert.NoError(t, p.Err())

	start := time.Now()
	p.Stop()
	assert.True(t, p.Exited())
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestStart_ProcessThatExits(t *testing.T) {
	p, err := Start(t.TempDir(), "echo boom >&2; exit 3")
	require.NoError(t, err)

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	assert.True(t, p.Exited())
	assert.Error(t, p.Err())
	assert.Contains(t, p.Output(), "boom")
	p.Stop()
}

func TestStart_MissingDir(t *testing.T) {
	_, err := Start("/definitely/not/here", "true")
	assert.Error(t, err)
}
