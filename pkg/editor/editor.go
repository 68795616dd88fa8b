// Package editor opens a finished project in VS Code or the platform's file
// opener without waiting for it.
package editor

import (
	"fmt"
	"os/exec"
	"runtime"

	"codeagent/pkg/logx"
	"codeagent/pkg/utils"
)

// Result reports which opener was used.
type Result struct {
	Success bool   `json:"success"`
	Opener  string `json:"opener,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Launcher spawns an editor process for a directory.
type Launcher struct {
	lookPath func(file string) (string, error)
	spawn    func(path, dir string) error
	logger   *logx.Logger
	goos     string
}

// NewLauncher creates a launcher for the current platform.
func NewLauncher(logger *logx.Logger) *Launcher {
	if logger == nil {
		logger = logx.NewLogger("editor")
	}
	return &Launcher{
		lookPath: exec.LookPath,
		spawn:    spawn,
		logger:   logger,
		goos:     runtime.GOOS,
	}
}

// Candidates lists the openers tried on goos, in order.
func Candidates(goos string) []string {
	switch goos {
	case "windows":
		return []string{"code", "explorer"}
	case "darwin":
		return []string{"code", "open"}
	default:
		return []string{"code", "xdg-open", "gnome-open", "kde-open"}
	}
}

// Open starts the first available opener on dir and returns immediately.
func (l *Launcher) Open(dir string) Result {
	if !utils.DirExists(dir) {
		return Result{Error: fmt.Sprintf("project directory not found: %s", dir)}
	}

	var lastErr error
	for _, name := range Candidates(l.goos) {
		path, err := l.lookPath(name)
		if err != nil {
			lastErr = err
			continue
		}
		if err := l.spawn(path, dir); err != nil {
			l.logger.Warn("⚠️  Failed to open %s with %s: %v", dir, name, err)
			lastErr = err
			continue
		}
		l.logger.Info("📝 Opened %s with %s", dir, name)
		return Result{Success: true, Opener: name}
	}

	msg := "no editor or file opener found"
	if lastErr != nil {
		msg = fmt.Sprintf("%s: %v", msg, lastErr)
	}
	l.logger.Error("Failed to open project directory with any available command")
	return Result{Error: msg}
}

func spawn(path, dir string) error {
	cmd := exec.Command(path, dir)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", path, err)
	}
	// reap the child; editors often fork and exit immediately
	go func() { _ = cmd.Wait() }()
	return nil
}
