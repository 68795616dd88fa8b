// Package plan turns free-form model output into plans and ordered tasks.
package plan

// Complexity values a task may carry.
const (
	ComplexityLow     = "Low"
	ComplexityMedium  = "Medium"
	ComplexityHigh    = "High"
	ComplexityUnknown = "Unknown"
)

// NoDependencies is the dependency value for tasks that depend on nothing.
const NoDependencies = "None"

// Canonical plan section headers.
const (
	SectionOverview     = "Project Overview"
	SectionArchitecture = "Technical Architecture"
	SectionPhases       = "Development Phases"
	SectionDetails      = "Implementation Details"
	SectionTasks        = "Development Tasks"
	SectionTesting      = "Testing Strategy"
	SectionDeployment   = "Deployment Considerations"
)

// CanonicalSections are the headers recognized by ParsePlanSections.
//
//nolint:gochecknoglobals // Static allow-list
var CanonicalSections = []string{
	SectionOverview,
	SectionArchitecture,
	SectionPhases,
	SectionDetails,
	SectionTasks,
	SectionTesting,
	SectionDeployment,
}

// ProjectDescription is extracted once from the operator's text and never modified.
type ProjectDescription struct {
	ProjectName    string   `json:"project_name"`
	Technologies   []string `json:"technologies"`
	Features       []string `json:"features"`
	RawDescription string   `json:"raw_description"`
}

// Plan is the development plan for one project. Sections is keyed by the
// header line as it appeared in the model output.
type Plan struct {
	RawText  string            `json:"raw_plan"`
	Sections map[string]string `json:"structured_plan"`
	// TasksText holds the task half of a combined plan-and-tasks response.
	TasksText string `json:"tasks_text,omitempty"`
}

// Section returns the content of the first section whose header contains
// name (case-insensitive), and whether one was found.
func (p *Plan) Section(name string) (string, bool) {
	if p == nil {
		return "", false
	}
	for header, content := range p.Sections {
		if containsFold(header, name) {
			return content, true
		}
	}
	return "", false
}

// Task is one unit of planned work. Order in the enclosing slice is execution order.
type Task struct {
	ID           string `json:"id"`
	Name         string `json:"task name"`
	Description  string `json:"description"`
	Complexity   string `json:"complexity,omitempty"`
	Dependencies string `json:"dependencies,omitempty"`
	Category     string `json:"category,omitempty"`
}

// PlannedCommand is one shell command in an ExecutionPlan.
type PlannedCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// CodeChange describes one file to generate in an ExecutionPlan.
type CodeChange struct {
	FilePath    string `json:"file_path"`
	Description string `json:"description"`
}

// ExecutionPlan is the per-task list of commands and file changes.
type ExecutionPlan struct {
	Commands    []PlannedCommand `json:"commands"`
	CodeChanges []CodeChange     `json:"code_changes"`
}
