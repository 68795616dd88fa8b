// Package exec runs shell commands for the pipeline. Executor is the process
// abstraction; Runner layers command classification, project-name rewriting,
// streaming for long-running steps, timeouts and the audit history on top.
package exec

import (
	"context"
	"io"
	"time"
)

// ExecutorType represents the type of executor.
type ExecutorType string

// ExecutorTypeLocal runs commands directly on the host.
const ExecutorTypeLocal ExecutorType = "local"

// Executor defines the interface for executing commands.
type Executor interface {
	// Run executes a command with the given options and returns the result.
	// A non-zero exit status is reported in Result, not as an error.
	Run(ctx context.Context, cmd []string, opts *Opts) (Result, error)

	// Name returns the executor type name for logging/debugging.
	Name() ExecutorType

	// Available returns true if this executor can be used in the current environment.
	Available() bool
}

// Opts contains options for command execution.
//
//nolint:govet // Configuration struct, logical grouping preferred
type Opts struct {
	// Env contains environment variables (KEY=VALUE format) added to the host environment.
	Env []string

	// Timeout is the maximum duration for command execution. Zero means no limit.
	Timeout time.Duration

	// WorkDir is the working directory for the command.
	WorkDir string

	// Stdout and Stderr, when set, receive output as it is produced instead of
	// it being captured into Result.
	Stdout io.Writer
	Stderr io.Writer
}

// Result contains the result of command execution.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout string

	// Stderr contains the captured standard error output.
	Stderr string

	// ExecutorUsed indicates which executor was used (for debugging)
	ExecutorUsed string

	// Duration is how long the command took to execute.
	Duration time.Duration

	// ExitCode is the exit code of the command, -1 when it was killed or never started.
	ExitCode int

	// TimedOut is set when Opts.Timeout elapsed before the command finished.
	TimedOut bool
}

// DefaultExecOpts returns default execution options.
func DefaultExecOpts() Opts {
	return Opts{
		Timeout: 5 * time.Minute,
	}
}
