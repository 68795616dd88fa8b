// Package console renders operator-facing progress output. Styling is applied
// only when the destination is a terminal; otherwise every line is plain text
// so piped runs and tests see stable output.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"codeagent/pkg/exec"
)

// Console writes progress output for one run.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	styled bool

	panel   lipgloss.Style
	step    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	label   lipgloss.Style
	code    lipgloss.Style
}

// New creates a console writing to out. With styled false nothing is colored.
func New(out io.Writer, styled bool) *Console {
	c := &Console{out: out, styled: styled}
	r := lipgloss.NewRenderer(out)
	c.panel = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("12")).
		Foreground(lipgloss.Color("12")).
		Bold(true).
		Padding(0, 1)
	c.step = r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	c.success = r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	c.warn = r.NewStyle().Foreground(lipgloss.Color("3"))
	c.fail = r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	c.label = r.NewStyle().Foreground(lipgloss.Color("8"))
	c.code = r.NewStyle().Foreground(lipgloss.Color("6"))
	return c
}

// NewStdout creates a console on stdout, styled when stdout is a terminal.
func NewStdout() *Console {
	return New(os.Stdout, IsTerminal(os.Stdout))
}

// Discard returns a console that drops everything.
func Discard() *Console {
	return New(io.Discard, false)
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (c *Console) render(s lipgloss.Style, text string) string {
	if !c.styled {
		return text
	}
	return s.Render(text)
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out, line)
}

// Panel prints a boxed phase title.
func (c *Console) Panel(title string) {
	if !c.styled {
		c.println("\n=== " + title + " ===")
		return
	}
	c.println("\n" + c.panel.Render(title))
}

// Step announces the next action of a phase.
func (c *Console) Step(format string, args ...any) {
	c.println("\n" + c.render(c.step, fmt.Sprintf(format, args...)))
}

// Success prints a completed action.
func (c *Console) Success(format string, args ...any) {
	c.println(c.render(c.success, "✅ "+fmt.Sprintf(format, args...)))
}

// Warn prints a non-fatal problem.
func (c *Console) Warn(format string, args ...any) {
	c.println(c.render(c.warn, "⚠️  "+fmt.Sprintf(format, args...)))
}

// Error prints a failure.
func (c *Console) Error(format string, args ...any) {
	c.println(c.render(c.fail, "❌ "+fmt.Sprintf(format, args...)))
}

// Field prints a "label: value" line.
func (c *Console) Field(label, value string) {
	c.println(c.render(c.label, label+":") + " " + value)
}

// Text prints raw text, e.g. a generated plan.
func (c *Console) Text(text string) {
	c.println(text)
}

// List prints items as an indented bullet list.
func (c *Console) List(items []string) {
	for _, item := range items {
		c.println("  - " + item)
	}
}

// Command prints the outcome of one runner command.
func (c *Console) Command(r *exec.CommandResult) {
	if r == nil {
		return
	}
	c.println(c.render(c.code, "$ "+r.Command))
	if r.OriginalCommand != "" {
		c.println(c.render(c.label, "  (rewritten from: "+r.OriginalCommand+")"))
	}
	switch {
	case r.Success:
		c.Success("Command completed in %s", r.Duration.Round(time.Millisecond))
	case r.TimedOut:
		c.Error("Command timed out: %s", r.Error)
	default:
		c.Error("Command failed: %s", r.Error)
	}
	if out := strings.TrimSpace(r.Stdout); out != "" {
		c.block(out)
	}
	if errOut := strings.TrimSpace(r.Stderr); errOut != "" && !r.Success {
		c.block(errOut)
	}
}

func (c *Console) block(text string) {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	c.println(c.render(c.label, strings.Join(lines, "\n")))
}
