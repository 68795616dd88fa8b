package exec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
)

// Process is a shell command left running in the background, such as a
// development server. Its combined output is buffered.
type Process struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	out    *syncBuffer
	err    error
}

// Start launches command through the shell in dir without waiting for it.
func Start(dir, command string) (*Process, error) {
	ctx, cancel := context.WithCancel(context.Background())
	argv := shellCommand(command)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	out := &syncBuffer{}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start %q: %w", command, err)
	}

	p := &Process{cmd: cmd, cancel: cancel, done: make(chan struct{}), out: out}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// PID returns the process id of the shell.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Exited reports whether the process has already terminated.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Done is closed when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns the wait error once the process has exited.
func (p *Process) Err() error {
	if !p.Exited() {
		return nil
	}
	return p.err
}

// Output returns everything written so far.
func (p *Process) Output() string {
	return p.out.String()
}

// Stop kills the process group and waits for it to exit.
func (p *Process) Stop() {
	p.cancel()
	<-p.done
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p) //nolint:wrapcheck // bytes.Buffer never fails
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
