package exec

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLocalExec_NameAndAvailable(t *testing.T) {
	exec := NewLocalExec()
	if exec.Name() != ExecutorTypeLocal {
		t.Errorf("Expected name 'local', got %s", exec.Name())
	}
	if !exec.Available() {
		t.Error("LocalExec should always be available")
	}
}

func TestLocalExec_Run_Success(t *testing.T) {
	exec := NewLocalExec()
	opts := DefaultExecOpts()
	result, err := exec.Run(context.Background(), []string{"echo", "hello world"}, &opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", result.ExitCode)
	}
	if strings.TrimSpace(result.Stdout) != "hello world" {
		t.Errorf("Expected stdout 'hello world', got %s", result.Stdout)
	}
	if result.ExecutorUsed != "local" {
		t.Errorf("Expected executor 'local', got %s", result.ExecutorUsed)
	}
	if result.Duration <= 0 {
		t.Error("Expected positive duration")
	}
}

func TestLocalExec_Run_Failure(t *testing.T) {
	exec := NewLocalExec()
	result, err := exec.Run(context.Background(), []string{"false"}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.ExitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", result.ExitCode)
	}
}

func TestLocalExec_Run_EmptyCommand(t *testing.T) {
	exec := NewLocalExec()
	opts := DefaultExecOpts()
	if _, err := exec.Run(context.Background(), []string{}, &opts); err == nil {
		t.Error("Expected error for empty command")
	}
}

func TestLocalExec_Run_MissingBinary(t *testing.T) {
	exec := NewLocalExec()
	result, err := exec.Run(context.Background(), []string{"definitely-not-a-real-binary-xyz"}, nil)
	if err == nil {
		t.Fatal("Expected error for a binary that does not exist")
	}
	if result.ExitCode != -1 {
		t.Errorf("Expected exit code -1, got %d", result.ExitCode)
	}
}

func TestLocalExec_Run_WorkingDirectory(t *testing.T) {
	exec := NewLocalExec()
	tempDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tempDir, "test.txt"), []byte("test content"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	opts := DefaultExecOpts()
	opts.WorkDir = tempDir
	result, err := exec.Run(context.Background(), []string{"ls", "test.txt"}, &opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(result.Stdout, "test.txt") {
		t.Errorf("Expected stdout to contain 'test.txt', got %s", result.Stdout)
	}
}

func TestLocalExec_Run_NonExistentWorkingDirectory(t *testing.T) {
	exec := NewLocalExec()
	opts := DefaultExecOpts()
	opts.WorkDir = "/nonexistent/directory"

	_, err := exec.Run(context.Background(), []string{"echo", "test"}, &opts)
	if err == nil {
		t.Fatal("Expected error for non-existent working directory")
	}
	if !strings.Contains(err.Error(), "working directory does not exist") {
		t.Errorf("Expected working directory error, got: %v", err)
	}
}

func TestLocalExec_Run_Environment(t *testing.T) {
	exec := NewLocalExec()
	opts := DefaultExecOpts()
	opts.Env = []string{"TEST_VAR=hello world"}

	result, err := exec.Run(context.Background(), []string{"sh", "-c", "echo $TEST_VAR"}, &opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "hello world" {
		t.Errorf("Expected stdout 'hello world', got %s", result.Stdout)
	}
}

func TestLocalExec_Run_Timeout(t *testing.T) {
	exec := NewLocalExec()
	opts := DefaultExecOpts()
	opts.Timeout = 100 * time.Millisecond

	result, err := exec.Run(context.Background(), []string{"sleep", "5"}, &opts)
	if err != nil {
		t.Fatalf("Timeouts are reported in the result, got error: %v", err)
	}
	if !result.TimedOut {
		t.Error("Expected TimedOut to be set")
	}
	if result.ExitCode != -1 {
		t.Errorf("Expected exit code -1, got %d", result.ExitCode)
	}
	if result.Duration > 2*time.Second {
		t.Errorf("Expected duration to be around %v, got %v", opts.Timeout, result.Duration)
	}
}

func TestLocalExec_Run_TimeoutKillsChildren(t *testing.T) {
	exec := NewLocalExec()
	opts := DefaultExecOpts()
	opts.Timeout = 100 * time.Millisecond

	start := time.Now()
	result, err := exec.Run(context.Background(), []string{"sh", "-c", "sleep 10; echo done"}, &opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.TimedOut {
		t.Error("Expected TimedOut to be set")
	}
	if elapsed := time.Since(start); elapsed > waitDelay+time.Second {
		t.Errorf("Run blocked for %v after the timeout", elapsed)
	}
}

func TestLocalExec_Run_Stderr(t *testing.T) {
	exec := NewLocalExec()
	opts := DefaultExecOpts()
	result, err := exec.Run(context.Background(), []string{"sh", "-c", "echo 'error message' >&2"}, &opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(result.Stderr, "error message") {
		t.Errorf("Expected stderr to contain 'error message', got %s", result.Stderr)
	}
}

func TestLocalExec_Run_StreamsToWriters(t *testing.T) {
	exec := NewLocalExec()
	var out bytes.Buffer
	opts := DefaultExecOpts()
	opts.Stdout = &out

	result, err := exec.Run(context.Background(), []string{"echo", "streamed"}, &opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Stdout != "" {
		t.Errorf("Expected no captured stdout when streaming, got %q", result.Stdout)
	}
	if strings.TrimSpace(out.String()) != "streamed" {
		t.Errorf("Expected streamed output, got %q", out.String())
	}
}

func TestDefaultExecOpts(t *testing.T) {
	opts := DefaultExecOpts()
	if opts.Timeout != 5*time.Minute {
		t.Errorf("Expected timeout 5m, got %v", opts.Timeout)
	}
	if opts.Stdout != nil || opts.Stderr != nil {
		t.Error("Expected output to be captured by default")
	}
}
