package plan

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"codeagent/pkg/agent/llm"
	"codeagent/pkg/agent/middleware/metrics"
	"codeagent/pkg/logx"
)

// MinTaskResponseChars is the shortest task response worth parsing.
const MinTaskResponseChars = 10

// DefaultPhases are used for fallback tasks when the plan has no phase list.
//
//nolint:gochecknoglobals // Static defaults
var DefaultPhases = []string{
	"Setup and foundation",
	"Core functionality",
	"Additional features",
	"Testing and refinement",
}

//nolint:gochecknoglobals // Compiled once
var phasesSectionRe = regexp.MustCompile(`(?is)(?:##\s*Development\s*Phases|Development\s*Phases:)(.*?)(?:##|$)`)

const planPromptTemplate = `Create a comprehensive software development plan for the following project:

PROJECT DESCRIPTION:
%s

Your plan should include:

1. Project Overview:
   - Main objectives
   - Key features
   - Target users/audience

2. Technical Architecture:
   - Recommended technologies and frameworks
   - System architecture diagram (describe in text)
   - Data models and relationships

3. Development Phases:
   - Phase 1: Setup and foundation
   - Phase 2: Core functionality
   - Phase 3: Additional features
   - Phase 4: Testing and refinement

4. Implementation Details:
   - Directory structure
   - Key files and their purposes
   - External dependencies

5. Development Tasks:
   - Ordered list of specific tasks
   - Estimated complexity for each task (Low/Medium/High)

6. Testing Strategy:
   - Unit testing approach
   - Integration testing approach
   - Manual testing requirements

7. Deployment Considerations:
   - Recommended deployment platform
   - Configuration requirements
   - CI/CD pipeline suggestions

Format your response as a structured plan that can be followed step by step.`

const taskFormat = `For each task, provide:
1. Task ID
2. Task name
3. Description
4. Estimated complexity (Low/Medium/High)
5. Dependencies (IDs of tasks that must be completed first)
6. Category (Setup, Backend, Frontend, Testing, Deployment, etc.)

Format your response as a list of tasks with clear separation between tasks.
Use the following format for each task:

Task ID: 1
Task name: Example task name
Description: Detailed description of the task
Estimated complexity: Low/Medium/High
Dependencies: None or comma-separated IDs
Category: Category name`

const tasksPromptTemplate = `Based on the following project plan, generate a list of specific, actionable development tasks:

%s

` + taskFormat

const combinedPromptSuffix = `

After the plan, write a line containing exactly "PART 2: DEVELOPMENT TASKS" and then
list the development tasks.

` + taskFormat

// Config tunes the planner.
type Config struct {
	PlanningTemperature float32
	MaxFallbackTasks    int
}

// Planner generates plans and tasks through a TextGenerator.
type Planner struct {
	gen    llm.TextGenerator
	cfg    Config
	logger *logx.Logger
}

// NewPlanner creates a planner. Zero config values take the package defaults.
func NewPlanner(gen llm.TextGenerator, cfg Config, logger *logx.Logger) *Planner {
	if cfg.PlanningTemperature == 0 {
		cfg.PlanningTemperature = llm.TemperaturePlanning
	}
	if cfg.MaxFallbackTasks <= 0 {
		cfg.MaxFallbackTasks = 10
	}
	if logger == nil {
		logger = logx.NewLogger("planner")
	}
	return &Planner{gen: gen, cfg: cfg, logger: logger}
}

// Result is the fail-soft outcome of GeneratePlanAndTasks.
type Result struct {
	Plan         *Plan  `json:"plan,omitempty"`
	Tasks        []Task `json:"tasks"`
	UsedFallback bool   `json:"used_fallback"`
	Error        string `json:"error,omitempty"`
}

// GeneratePlan asks for a development plan and parses its sections.
func (p *Planner) GeneratePlan(ctx context.Context, description string) (*Plan, error) {
	p.logger.Info("📝 Generating project plan")
	ctx = metrics.WithPhase(ctx, "plan")

	text, err := p.gen.GenerateText(ctx, fmt.Sprintf(planPromptTemplate, description),
		llm.WithTemperature(p.cfg.PlanningTemperature))
	if err != nil {
		p.logger.Error("Error generating plan: %v", err)
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}

	plan := &Plan{RawText: text, Sections: ParsePlanSections(text)}
	logx.Debug(ctx, "planner", "parsed %d plan sections", len(plan.Sections))
	return plan, nil
}

// GenerateTasks asks for the task list of plan. It never fails: any
// generation or parse failure yields FallbackTasks.
func (p *Planner) GenerateTasks(ctx context.Context, plan *Plan) []Task {
	ctx = metrics.WithPhase(ctx, "tasks")
	raw := ""
	if plan != nil {
		raw = plan.RawText
	}

	text, err := p.gen.GenerateText(ctx, fmt.Sprintf(tasksPromptTemplate, raw))
	if err != nil {
		p.logger.Error("Error generating tasks: %v", err)
		return p.FallbackTasks(plan)
	}
	if len(strings.TrimSpace(text)) < MinTaskResponseChars {
		p.logger.Error("Empty or very short response from API: %q", text)
		return p.FallbackTasks(plan)
	}

	tasks := ParseTasks(text)
	if len(tasks) == 0 {
		p.logger.Warn("⚠️  Could not parse any tasks from the API response")
		return p.FallbackTasks(plan)
	}
	p.logger.Info("✅ Successfully generated %d tasks", len(tasks))
	p.warnDependencies(tasks)
	return tasks
}

// GeneratePlanAndTasks requests plan and tasks in one call and splits the
// response. Generation failures are returned in Result.Error alongside
// fallback tasks, so the result always carries at least one task.
func (p *Planner) GeneratePlanAndTasks(ctx context.Context, description string) Result {
	p.logger.Info("📝 Generating project plan and tasks")
	ctx = metrics.WithPhase(ctx, "plan")

	prompt := fmt.Sprintf(planPromptTemplate, description) + combinedPromptSuffix
	text, err := p.gen.GenerateText(ctx, prompt, llm.WithTemperature(p.cfg.PlanningTemperature))
	if err != nil {
		p.logger.Error("Error generating plan and tasks: %v", err)
		return Result{Error: err.Error(), Tasks: p.FallbackTasks(nil), UsedFallback: true}
	}

	planText, tasksText := SplitCombined(text)
	plan := &Plan{RawText: planText, Sections: ParsePlanSections(planText), TasksText: tasksText}

	tasks := ParseTasks(tasksText)
	if len(tasks) == 0 {
		tasks = ParseTasks(text)
	}
	if len(tasks) == 0 {
		p.logger.Warn("⚠️  Could not parse any tasks from the combined response")
		return Result{Plan: plan, Tasks: p.FallbackTasks(plan), UsedFallback: true}
	}
	p.warnDependencies(tasks)
	return Result{Plan: plan, Tasks: tasks}
}

func (p *Planner) warnDependencies(tasks []Task) {
	for _, w := range CheckDependencies(tasks) {
		p.logger.Warn("⚠️  %s", w)
	}
}

// FallbackTasks derives tasks from the plan's "Development Phases" list, or
// from DefaultPhases when there is none. The result is never empty.
func (p *Planner) FallbackTasks(plan *Plan) []Task {
	p.logger.Info("🔄 Generating fallback tasks")
	raw := ""
	if plan != nil {
		raw = plan.RawText
	}
	tasks := FallbackTasks(raw, p.cfg.MaxFallbackTasks)
	p.logger.Info("Generated %d fallback tasks", len(tasks))
	return tasks
}

// FallbackTasks builds up to maxTasks tasks from the phases found in rawPlan.
// Phase i depends on phase i-1; the first is Low complexity, the last Medium
// and the rest High.
func FallbackTasks(rawPlan string, maxTasks int) []Task {
	var phases []string
	if m := phasesSectionRe.FindStringSubmatch(rawPlan); m != nil {
		phases = listItems(m[1])
	}
	if len(phases) == 0 {
		phases = DefaultPhases
	}
	if maxTasks > 0 && len(phases) > maxTasks {
		phases = phases[:maxTasks]
	}

	tasks := make([]Task, 0, len(phases))
	for i, phase := range phases {
		lower := strings.ToLower(phase)

		var description string
		switch {
		case strings.Contains(lower, "setup") || strings.Contains(lower, "foundation"):
			description = "Set up the project structure and install dependencies"
		case strings.Contains(lower, "core") || strings.Contains(lower, "functionality"):
			description = "Implement the core functionality of the application"
		case strings.Contains(lower, "additional") || strings.Contains(lower, "feature"):
			description = "Add additional features and enhancements"
		case strings.Contains(lower, "test") || strings.Contains(lower, "refine"):
			description = "Test the application and refine based on results"
		default:
			description = "Implement " + phase
		}

		complexity := ComplexityHigh
		switch i {
		case 0:
			complexity = ComplexityLow
		case len(phases) - 1:
			complexity = ComplexityMedium
		}

		dependencies := NoDependencies
		if i > 0 {
			dependencies = strconv.Itoa(i)
		}

		category := "Development"
		switch {
		case strings.Contains(lower, "setup"):
			category = "Setup"
		case strings.Contains(lower, "test"):
			category = "Testing"
		}

		tasks = append(tasks, Task{
			ID:           strconv.Itoa(i + 1),
			Name:         phase,
			Description:  description,
			Complexity:   complexity,
			Dependencies: dependencies,
			Category:     category,
		})
	}
	return tasks
}
