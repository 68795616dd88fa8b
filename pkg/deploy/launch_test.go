//go:build unix

package deploy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaunchReachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := newTestDeployer(t, t.TempDir(), &scriptedExecutor{}, WithSettleTime(50*time.Millisecond))
	prepared := &Result{Success: true, ProjectType: TypeGo, StartCommand: "sleep 30", URL: srv.URL}

	proc, res := d.Launch(context.Background(), prepared)
	require.NotNil(t, proc)
	defer proc.Stop()

	assert.True(t, res.Success, res.Message)
	assert.True(t, res.Reachable)
	assert.Positive(t, res.PID)
	assert.Same(t, res, prepared.Launch)
	assert.Contains(t, res.Message, "Application started at")
}

func TestLaunchUnreachableIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d := newTestDeployer(t, t.TempDir(), &scriptedExecutor{}, WithSettleTime(10*time.Millisecond))
	proc, res := d.Launch(context.Background(), &Result{Success: true, StartCommand: "sleep 30", URL: url})
	require.NotNil(t, proc)
	defer proc.Stop()

	assert.True(t, res.Success)
	assert.False(t, res.Reachable)
	assert.NotEmpty(t, res.ProbeError)
}

func TestLaunchProcessDies(t *testing.T) {
	d := newTestDeployer(t, t.TempDir(), &scriptedExecutor{}, WithSettleTime(5*time.Second))
	proc, res := d.Launch(context.Background(), &Result{Success: true, StartCommand: "echo port in use >&2; exit 1"})
	assert.Nil(t, proc)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "Server process terminated")
	assert.Contains(t, res.Output, "port in use")
}

func TestLaunchWithoutURL(t *testing.T) {
	d := newTestDeployer(t, t.TempDir(), &scriptedExecutor{}, WithSettleTime(10*time.Millisecond))
	proc, res := d.Launch(context.Background(), &Result{Success: true, ProjectType: TypeRust, StartCommand: "sleep 30"})
	require.NotNil(t, proc)
	defer proc.Stop()
	assert.True(t, res.Success)
	assert.Equal(t, "rust application is running", res.Message)
}

func TestLaunchNothingToStart(t *testing.T) {
	d := newTestDeployer(t, t.TempDir(), &scriptedExecutor{})
	proc, res := d.Launch(context.Background(), &Result{Success: false})
	assert.Nil(t, proc)
	assert.False(t, res.Success)
	assert.Equal(t, "Nothing to launch", res.Message)
}

func TestLaunchCancelled(t *testing.T) {
	d := newTestDeployer(t, t.TempDir(), &scriptedExecutor{}, WithSettleTime(time.Minute))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	proc, res := d.Launch(ctx, &Result{Success: true, StartCommand: "sleep 30"})
	assert.Nil(t, proc)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "Launch cancelled")
}
