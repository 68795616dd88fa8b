package exec

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"codeagent/pkg/config"
	"codeagent/pkg/logx"
)

// CommandResult is the outcome of one Runner.Run call. It is never mutated
// after Run returns.
//
//nolint:govet // JSON field order mirrors the audit log
type CommandResult struct {
	Command         string        `json:"command"`
	OriginalCommand string        `json:"original_command,omitempty"`
	ReturnCode      *int          `json:"return_code,omitempty"`
	Success         bool          `json:"success"`
	Stdout          string        `json:"stdout,omitempty"`
	Stderr          string        `json:"stderr,omitempty"`
	Error           string        `json:"error,omitempty"`
	TimedOut        bool          `json:"timed_out"`
	LongRunning     bool          `json:"long_running"`
	Streamed        bool          `json:"streamed,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// ResultSink receives every CommandResult. The audit store and the metrics
// registry implement it.
type ResultSink interface {
	RecordCommand(ctx context.Context, result *CommandResult)
}

// Runner executes shell commands in one working directory.
type Runner struct {
	executor Executor
	logger   *logx.Logger
	out      io.Writer
	sinks    []ResultSink
	workDir  string
	timeout  time.Duration

	mu      sync.Mutex
	history []string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithExecutor replaces the local executor.
func WithExecutor(e Executor) RunnerOption {
	return func(r *Runner) { r.executor = e }
}

// WithOutput sets where streamed output goes. Defaults to os.Stdout.
func WithOutput(w io.Writer) RunnerOption {
	return func(r *Runner) { r.out = w }
}

// WithSink adds a result sink.
func WithSink(s ResultSink) RunnerOption {
	return func(r *Runner) {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
}

// WithDefaultTimeout sets the timeout used when Run gets none. Long-running
// commands never get less than this.
func WithDefaultTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logx.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a Runner rooted at workDir.
func NewRunner(workDir string, opts ...RunnerOption) *Runner {
	r := &Runner{
		executor: NewLocalExec(),
		logger:   logx.NewLogger("exec"),
		out:      os.Stdout,
		workDir:  workDir,
		timeout:  config.DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WorkDir returns the directory commands run in.
func (r *Runner) WorkDir() string {
	return r.workDir
}

// SetWorkDir moves the runner, e.g. once the project directory exists.
func (r *Runner) SetWorkDir(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workDir = dir
}

// History returns every command run so far, in order, as executed.
func (r *Runner) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...)
}

// Run executes command through the shell. With captureOutput false, long-running
// commands stream to the runner's output instead of being buffered. A timeout
// of zero uses the default; long-running commands use at least the default.
// Run never returns an error: failures, including timeouts, are in the result.
func (r *Runner) Run(ctx context.Context, command string, captureOutput bool, timeout time.Duration) *CommandResult {
	r.mu.Lock()
	workDir := r.workDir
	r.mu.Unlock()

	result := &CommandResult{Command: command}

	if IsCodeGenerator(command) {
		r.logger.Warn("⚠️  Code generator command detected: %s", command)
	}
	if IsProjectCreation(command) {
		if rewritten, ok := RewriteProjectName(command, workDir); ok {
			r.logger.Info("🔧 Rewrote project name to current directory: %s -> %s", command, rewritten)
			result.OriginalCommand = command
			result.Command = rewritten
		}
	}
	result.LongRunning = IsLongRunning(result.Command)

	if timeout <= 0 || (result.LongRunning && timeout < r.timeout) {
		timeout = r.timeout
	}

	r.mu.Lock()
	r.history = append(r.history, result.Command)
	r.mu.Unlock()

	opts := &Opts{WorkDir: workDir, Timeout: timeout}
	if result.LongRunning && !captureOutput {
		result.Streamed = true
		opts.Stdout = r.out
		opts.Stderr = r.out
		r.logger.Info("⏳ Running long command (timeout %s): %s", timeout, result.Command)
	} else {
		r.logger.Info("▶️  Running: %s", result.Command)
	}

	res, err := r.executor.Run(ctx, shellCommand(result.Command), opts)
	result.Duration = res.Duration
	switch {
	case err != nil:
		result.Error = err.Error()
	case res.TimedOut:
		result.TimedOut = true
		result.Error = fmt.Sprintf("command timed out after %s", timeout)
	default:
		code := res.ExitCode
		result.ReturnCode = &code
		result.Success = code == 0
		if !result.Success {
			result.Error = fmt.Sprintf("command exited with status %d", code)
		}
	}
	if !result.Streamed {
		result.Stdout = res.Stdout
		result.Stderr = res.Stderr
	}

	if result.Success {
		logx.Debug(ctx, "exec", "command succeeded in %s: %s", result.Duration, result.Command)
	} else {
		r.logger.Warn("❌ Command failed: %s: %s", result.Command, result.Error)
	}

	for _, s := range r.sinks {
		s.RecordCommand(ctx, result)
	}
	return result
}
