package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmmetrics "codeagent/pkg/agent/middleware/metrics"
	"codeagent/pkg/exec"
)

// Compile-time interface checks.
var (
	_ llmmetrics.Recorder = (*PrometheusRecorder)(nil)
	_ exec.ResultSink     = (*PrometheusRecorder)(nil)
)

func TestObserveRequest(t *testing.T) {
	r := NewPrometheusRecorder()
	r.ObserveRequest("gemini-2.0-flash", "plan", 100, 40, true, "", 2*time.Second)
	r.ObserveRequest("gemini-2.0-flash", "plan", 50, 0, false, "rate_limit", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.requestsTotal.WithLabelValues("gemini-2.0-flash", "plan", "success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requestsTotal.WithLabelValues("gemini-2.0-flash", "plan", "error", "rate_limit")))
	assert.Equal(t, 100.0, testutil.ToFloat64(r.tokensTotal.WithLabelValues("gemini-2.0-flash", "plan", "prompt")))
	assert.Equal(t, 40.0, testutil.ToFloat64(r.tokensTotal.WithLabelValues("gemini-2.0-flash", "plan", "completion")))
}

func TestRecordCommandOutcomes(t *testing.T) {
	r := NewPrometheusRecorder()
	ctx := context.Background()
	r.RecordCommand(ctx, &exec.CommandResult{Command: "ls", Success: true})
	r.RecordCommand(ctx, &exec.CommandResult{Command: "false"})
	r.RecordCommand(ctx, &exec.CommandResult{Command: "npm install", TimedOut: true, LongRunning: true})
	r.RecordCommand(ctx, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.commandsTotal.WithLabelValues("success", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.commandsTotal.WithLabelValues("error", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.commandsTotal.WithLabelValues("timeout", "true")))
}

func TestGitAndTaskCounters(t *testing.T) {
	r := NewPrometheusRecorder()
	r.ObserveGitOp("commit", true, 10*time.Millisecond)
	r.ObserveGitOp("commit", false, 30*time.Second)
	r.ObserveTask(true, time.Minute)
	r.ObserveTask(false, time.Second)
	r.ObserveTask(true, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.gitOpsTotal.WithLabelValues("commit", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.tasksTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tasksTotal.WithLabelValues("error")))
}

func TestWriteTextfile(t *testing.T) {
	r := NewPrometheusRecorder()
	r.ObserveTask(true, time.Second)

	path := filepath.Join(t.TempDir(), TextfileName)
	require.NoError(t, WriteTextfile(r.Registry(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# TYPE codeagent_tasks_total counter")
	assert.Contains(t, text, `codeagent_tasks_total{status="success"} 1`)
}

func TestHandlerServesMetrics(t *testing.T) {
	r := NewPrometheusRecorder()
	r.ObserveGitOp("init", true, time.Millisecond)

	srv := httptest.NewServer(Handler(r.Registry()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `codeagent_git_operations_total{op="init",status="success"} 1`))
}
