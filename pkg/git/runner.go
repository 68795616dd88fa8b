package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"codeagent/pkg/logx"
)

// Runner runs git commands. Tests substitute a fake.
type Runner interface {
	// Run executes a Git command in the specified directory and returns the
	// combined stdout and stderr.
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// DefaultRunner implements Runner using the system git command.
type DefaultRunner struct {
	logger *logx.Logger
}

// NewDefaultRunner creates a new DefaultRunner.
func NewDefaultRunner() *DefaultRunner {
	return &DefaultRunner{
		logger: logx.NewLogger("git"),
	}
}

// Run executes a Git command using exec.CommandContext. Terminal prompts are
// disabled so a missing credential fails instead of waiting for input.
func (g *DefaultRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	logDir := dir
	if logDir == "" {
		logDir = "."
	}
	g.logger.Debug("Executing Git command: cd %s && git %s", logDir, strings.Join(args, " "))

	output, err := cmd.CombinedOutput()
	if err != nil {
		g.logger.Debug("Git command output: %s", string(output))
		return output, fmt.Errorf("git %s failed in %s: %w\nOutput: %s",
			strings.Join(args, " "), dir, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}
