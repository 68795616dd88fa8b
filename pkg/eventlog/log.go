package eventlog

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"codeagent/pkg/codegen"
	"codeagent/pkg/exec"
	"codeagent/pkg/logx"
	"codeagent/pkg/plan"
	"codeagent/pkg/utils"
)

// FileName is the Markdown log saved in the project directory.
const FileName = "project_log.md"

// maxOutput bounds command output copied into the log.
const maxOutput = 4000

// Log accumulates entries for one session and renders them as Markdown.
// Entries are also forwarded to an optional JSONL Writer as they arrive.
type Log struct {
	mu          sync.Mutex
	entries     []Entry
	projectName string
	projectDir  string
	stream      *Writer
	logger      *logx.Logger
	now         func() time.Time
}

// NewLog creates an empty log. stream may be nil.
func NewLog(stream *Writer) *Log {
	return &Log{
		projectName: "AI Code Agent",
		stream:      stream,
		logger:      logx.NewLogger("eventlog"),
		now:         time.Now,
	}
}

// SetProject sets where Save writes and the log title. Entries recorded before
// the project existed are kept.
func (l *Log) SetProject(dir, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.projectDir = dir
	if name != "" {
		l.projectName = name
	}
}

// Path returns the Markdown file location, or "" before SetProject.
func (l *Log) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.projectDir == "" {
		return ""
	}
	return filepath.Join(l.projectDir, FileName)
}

func (l *Log) add(e Entry) {
	l.mu.Lock()
	e.Timestamp = l.now()
	l.entries = append(l.entries, e)
	stream := l.stream
	l.mu.Unlock()

	if stream != nil {
		if err := stream.WriteEntry(&e); err != nil {
			l.logger.Warn("⚠️  Failed to stream log entry: %v", err)
		}
	}
}

// Section starts a top-level section.
func (l *Log) Section(title string) { l.add(Entry{Kind: KindSection, Title: title}) }

// Subsection starts a nested section.
func (l *Log) Subsection(title string) { l.add(Entry{Kind: KindSubsection, Title: title}) }

// Text adds a paragraph.
func (l *Log) Text(text string) { l.add(Entry{Kind: KindText, Content: text}) }

// Code adds a fenced code block.
func (l *Log) Code(code, language string) {
	l.add(Entry{Kind: KindCode, Content: code, Language: language})
}

// Command records a command and its (truncated) output.
func (l *Log) Command(command, output string, success bool) {
	l.add(Entry{Kind: KindCommand, Command: command, Output: utils.Truncate(output, maxOutput), Success: success})
}

// FileCreated records a written file.
func (l *Log) FileCreated(path, preview string) {
	l.add(Entry{Kind: KindFile, FilePath: path, Preview: preview})
}

// Plan records the development plan.
func (l *Log) Plan(p *plan.Plan) { l.add(Entry{Kind: KindPlan, Plan: p}) }

// Tasks records the task list.
func (l *Log) Tasks(tasks []plan.Task) {
	l.add(Entry{Kind: KindTasks, Tasks: append([]plan.Task(nil), tasks...)})
}

// RecordCommand implements exec.ResultSink.
func (l *Log) RecordCommand(_ context.Context, r *exec.CommandResult) {
	if r == nil {
		return
	}
	output := r.Stdout
	if r.Stderr != "" {
		output = strings.TrimRight(output, "\n") + "\n" + r.Stderr
	}
	if r.Error != "" && !r.Success {
		output = strings.TrimSpace(output + "\n" + r.Error)
	}
	l.Command(r.Command, strings.TrimSpace(output), r.Success)
}

// RecordFile implements codegen.FileSink.
func (l *Log) RecordFile(_ context.Context, r *codegen.FileResult) {
	if r == nil || !r.Success {
		return
	}
	l.FileCreated(r.FilePath, r.ContentPreview)
}

// Entries returns a copy of everything recorded so far.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Markdown renders the log.
func (l *Log) Markdown() string {
	l.mu.Lock()
	entries := append([]Entry(nil), l.entries...)
	name := l.projectName
	l.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s Development Log\n\n", name)
	fmt.Fprintf(&b, "Generated on %s\n\n", l.now().Format("2006-01-02 15:04:05"))
	for i := range entries {
		writeEntry(&b, &entries[i])
	}
	return b.String()
}

// Save writes the Markdown log into the project directory. It is a no-op
// before SetProject.
func (l *Log) Save() (string, error) {
	path := l.Path()
	if path == "" {
		return "", nil
	}
	if err := utils.WriteFileAtomic(path, []byte(l.Markdown()), 0644); err != nil {
		return "", fmt.Errorf("failed to save project log: %w", err)
	}
	return path, nil
}

func writeEntry(b *strings.Builder, e *Entry) {
	stamp := e.Timestamp.Format("15:04:05")
	switch e.Kind {
	case KindSection:
		fmt.Fprintf(b, "\n## %s\n\n*%s*\n\n", e.Title, stamp)
	case KindSubsection:
		fmt.Fprintf(b, "\n### %s\n\n*%s*\n\n", e.Title, stamp)
	case KindText:
		fmt.Fprintf(b, "%s\n\n", e.Content)
	case KindCode:
		fmt.Fprintf(b, "```%s\n%s\n```\n\n", e.Language, e.Content)
	case KindCommand:
		fmt.Fprintf(b, "**Command:** `%s`\n\n", e.Command)
		if e.Success {
			b.WriteString("✅ Command executed successfully\n\n")
		} else {
			b.WriteString("❌ Command failed\n\n")
		}
		if e.Output != "" {
			fmt.Fprintf(b, "**Output:**\n\n```\n%s\n```\n\n", e.Output)
		}
	case KindFile:
		fmt.Fprintf(b, "**Created file:** `%s`\n\n", e.FilePath)
		if e.Preview != "" {
			fmt.Fprintf(b, "**Preview:**\n\n```\n%s\n```\n\n", e.Preview)
		}
	case KindPlan:
		b.WriteString("**Project Plan:**\n\n")
		if e.Plan != nil && e.Plan.RawText != "" {
			fmt.Fprintf(b, "%s\n\n", strings.TrimRight(e.Plan.RawText, "\n"))
		} else {
			b.WriteString("*Plan details not available*\n\n")
		}
	case KindTasks:
		b.WriteString("**Development Tasks:**\n\n")
		for i, t := range e.Tasks {
			fmt.Fprintf(b, "%d. **%s**\n", i+1, orDefault(t.Name, fmt.Sprintf("Task %d", i+1)))
			fmt.Fprintf(b, "   - Description: %s\n", orDefault(t.Description, "No description"))
			fmt.Fprintf(b, "   - Complexity: %s\n", orDefault(t.Complexity, plan.ComplexityUnknown))
			fmt.Fprintf(b, "   - Category: %s\n\n", orDefault(t.Category, "Uncategorized"))
		}
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
