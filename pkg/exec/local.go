package exec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait keeps reading pipes held open by orphaned children.
const waitDelay = 2 * time.Second

// LocalExec executes commands directly on the local system without sandboxing.
type LocalExec struct{}

// NewLocalExec creates a new LocalExec executor.
func NewLocalExec() *LocalExec {
	return &LocalExec{}
}

// Name returns the executor type name.
func (e *LocalExec) Name() ExecutorType {
	return ExecutorTypeLocal
}

// Available returns true since local execution is always available.
func (e *LocalExec) Available() bool {
	return true
}

// Run executes a command locally with the given options.
func (e *LocalExec) Run(ctx context.Context, cmd []string, opts *Opts) (Result, error) {
	if len(cmd) == 0 {
		return Result{}, fmt.Errorf("command cannot be empty")
	}
	if opts == nil {
		o := DefaultExecOpts()
		opts = &o
	}

	startTime := time.Now()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	execCmd := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	execCmd.WaitDelay = waitDelay
	setProcessGroup(execCmd)

	if opts.WorkDir != "" {
		if _, err := os.Stat(opts.WorkDir); os.IsNotExist(err) {
			return Result{}, fmt.Errorf("working directory does not exist: %s", opts.WorkDir)
		}
		execCmd.Dir = opts.WorkDir
	}

	if len(opts.Env) > 0 {
		execCmd.Env = append(os.Environ(), opts.Env...)
	}

	stdout, stderr, exitCode, err := e.executeCommand(execCmd, opts)

	result := Result{
		ExitCode:     exitCode,
		Stdout:       stdout,
		Stderr:       stderr,
		Duration:     time.Since(startTime),
		ExecutorUsed: string(e.Name()),
		TimedOut:     errors.Is(ctx.Err(), context.DeadlineExceeded),
	}
	if result.TimedOut {
		result.ExitCode = -1
		err = nil
	}

	// Non-zero exit codes are not errors; the caller checks ExitCode.
	return result, err
}

// executeCommand runs the command, capturing whichever streams opts does not redirect.
func (e *LocalExec) executeCommand(cmd *exec.Cmd, opts *Opts) (stdout, stderr string, exitCode int, err error) {
	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	}
	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	}

	err = cmd.Run()

	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	var exitError *exec.ExitError
	switch {
	case err == nil:
		return stdout, stderr, 0, nil
	case errors.As(err, &exitError):
		return stdout, stderr, exitError.ExitCode(), nil
	case errors.Is(err, exec.ErrWaitDelay):
		// The shell exited but a child kept the output pipes open.
		return stdout, stderr, cmd.ProcessState.ExitCode(), nil
	default:
		return stdout, stderr, -1, err
	}
}
