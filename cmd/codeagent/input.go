package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
)

var errNoDescription = errors.New("no project description provided: pass it as an argument, use --file, pipe it on stdin or use --interactive")

// prompter asks the operator for input.
type prompter interface {
	Select(title string, options []string) (int, error)
	Text(title string) (string, error)
}

type huhPrompter struct{}

func (huhPrompter) Select(title string, options []string) (int, error) {
	opts := make([]huh.Option[int], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, i)
	}
	var choice int
	sel := huh.NewSelect[int]().
		Title(title).
		Options(opts...).
		Value(&choice)
	if err := huh.NewForm(huh.NewGroup(sel)).Run(); err != nil {
		return 0, fmt.Errorf("prompt failed: %w", err)
	}
	return choice, nil
}

func (huhPrompter) Text(title string) (string, error) {
	var value string
	text := huh.NewText().
		Title(title).
		Value(&value)
	if err := huh.NewForm(huh.NewGroup(text)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return value, nil
}

// linePrompter reads numbered choices and END-terminated text from a plain
// reader. It is used when stdin is not a terminal.
type linePrompter struct {
	in  *lineReader
	out io.Writer
}

func (p linePrompter) Select(title string, options []string) (int, error) {
	fmt.Fprintf(p.out, "\n%s\n", title)
	for i, o := range options {
		fmt.Fprintf(p.out, "%d. %s\n", i+1, o)
	}
	fmt.Fprintf(p.out, "\nEnter your choice (1-%d): ", len(options))
	line, err := p.in.ReadLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(options) {
		return 0, fmt.Errorf("invalid choice %q: enter a number between 1 and %d", strings.TrimSpace(line), len(options))
	}
	return n - 1, nil
}

func (p linePrompter) Text(title string) (string, error) {
	fmt.Fprintf(p.out, "\n%s (type 'END' on a new line when finished):\n", title)
	var lines []string
	for {
		line, err := p.in.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if line == "END" {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// lineReader reads one line at a time without buffering past it, so several
// prompts can share one reader.
type lineReader struct {
	r io.Reader
}

func (l *lineReader) ReadLine() (string, error) {
	var b strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := l.r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				return strings.TrimSuffix(b.String(), "\r"), nil
			}
			b.WriteByte(buf[0])
		}
		if err != nil {
			if errors.Is(err, io.EOF) && b.Len() > 0 {
				return b.String(), nil
			}
			return "", err //nolint:wrapcheck // io.EOF must stay comparable
		}
	}
}

func (a *app) prompter() prompter {
	if a.isTerminal() {
		return huhPrompter{}
	}
	return linePrompter{in: &lineReader{r: a.stdin}, out: a.stdout}
}

// readDescription resolves the project description from --file or the
// arguments. Otherwise, with ask set the operator is prompted, and without it
// piped stdin is read whole.
func (a *app) readDescription(args []string, file string, ask bool) (string, error) {
	var desc string
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("error reading file: %w", err)
		}
		desc = string(data)
	case len(args) > 0:
		desc = strings.Join(args, " ")
	case ask:
		text, err := a.prompter().Text("Enter your project description")
		if err != nil {
			return "", err
		}
		desc = text
	case !a.isTerminal():
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", fmt.Errorf("error reading stdin: %w", err)
		}
		desc = string(data)
	}
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "", errNoDescription
	}
	return desc, nil
}

func isEndOfInput(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, huh.ErrUserAborted)
}
