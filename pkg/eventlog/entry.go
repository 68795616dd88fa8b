package eventlog

import (
	"time"

	"codeagent/pkg/plan"
)

// Kind is the type of a log entry.
type Kind string

// Entry kinds.
const (
	KindSection    Kind = "section"
	KindSubsection Kind = "subsection"
	KindText       Kind = "text"
	KindCode       Kind = "code"
	KindCommand    Kind = "command"
	KindFile       Kind = "file_creation"
	KindPlan       Kind = "plan"
	KindTasks      Kind = "tasks"
)

// Entry is one event of a session. Only the fields of its Kind are set.
//
//nolint:govet // JSON field order mirrors the stream format
type Entry struct {
	Kind      Kind        `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Title     string      `json:"title,omitempty"`
	Content   string      `json:"content,omitempty"`
	Language  string      `json:"language,omitempty"`
	Command   string      `json:"command,omitempty"`
	Output    string      `json:"output,omitempty"`
	Success   bool        `json:"success,omitempty"`
	FilePath  string      `json:"file_path,omitempty"`
	Preview   string      `json:"content_preview,omitempty"`
	Plan      *plan.Plan  `json:"plan,omitempty"`
	Tasks     []plan.Task `json:"tasks,omitempty"`
}
