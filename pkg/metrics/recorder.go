// Package metrics exposes pipeline metrics through a private Prometheus
// registry: LLM requests, shell commands, git operations and task outcomes.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"codeagent/pkg/exec"
)

// PrometheusRecorder implements the LLM recorder, exec.ResultSink and
// git.Observer on one registry.
type PrometheusRecorder struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	gitOpsTotal     *prometheus.CounterVec
	gitOpDuration   *prometheus.HistogramVec
	tasksTotal      *prometheus.CounterVec
	taskDuration    prometheus.Histogram
}

// NewPrometheusRecorder creates a recorder with its own registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeagent_llm_requests_total",
				Help: "Total number of LLM requests by model, phase and status",
			},
			[]string{"model", "phase", "status", "error_type"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeagent_llm_tokens_total",
				Help: "Total number of tokens used in LLM requests",
			},
			[]string{"model", "phase", "type"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codeagent_llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "phase"},
		),
		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeagent_commands_total",
				Help: "Shell commands executed by outcome",
			},
			[]string{"outcome", "long_running"},
		),
		commandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codeagent_command_duration_seconds",
				Help:    "Duration of shell commands in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 180, 600},
			},
			[]string{"long_running"},
		),
		gitOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeagent_git_operations_total",
				Help: "Git operations by operation and status",
			},
			[]string{"op", "status"},
		),
		gitOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codeagent_git_operation_duration_seconds",
				Help:    "Duration of git operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		tasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeagent_tasks_total",
				Help: "Executed tasks by status",
			},
			[]string{"status"},
		),
		taskDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "codeagent_task_duration_seconds",
				Help:    "Wall time per task in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
		),
	}
}

// Registry returns the registry the recorder writes to.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// ObserveRequest records metrics for a completed LLM request.
func (p *PrometheusRecorder) ObserveRequest(
	model, phase string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	p.requestsTotal.WithLabelValues(model, phase, status(success), errorType).Inc()

	// Tokens only count on success
	if success {
		p.tokensTotal.WithLabelValues(model, phase, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, phase, "completion").Add(float64(completionTokens))
	}

	p.requestDuration.WithLabelValues(model, phase).Observe(duration.Seconds())
}

// RecordCommand implements exec.ResultSink.
func (p *PrometheusRecorder) RecordCommand(_ context.Context, r *exec.CommandResult) {
	if r == nil {
		return
	}
	outcome := status(r.Success)
	if r.TimedOut {
		outcome = "timeout"
	}
	lr := "false"
	if r.LongRunning {
		lr = "true"
	}
	p.commandsTotal.WithLabelValues(outcome, lr).Inc()
	p.commandDuration.WithLabelValues(lr).Observe(r.Duration.Seconds())
}

// ObserveGitOp implements git.Observer.
func (p *PrometheusRecorder) ObserveGitOp(op string, success bool, d time.Duration) {
	p.gitOpsTotal.WithLabelValues(op, status(success)).Inc()
	p.gitOpDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveTask records one finished task.
func (p *PrometheusRecorder) ObserveTask(success bool, d time.Duration) {
	p.tasksTotal.WithLabelValues(status(success)).Inc()
	p.taskDuration.Observe(d.Seconds())
}
