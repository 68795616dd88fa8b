package coder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	llmmetrics "codeagent/pkg/agent/middleware/metrics"
	"codeagent/pkg/plan"
	"codeagent/pkg/state"
	"codeagent/pkg/utils"
)

const namePromptTemplate = `Generate a creative, memorable, and relevant project name for the following project description:

%s

The name should be short (1-3 words), catchy, and reflect the purpose or main features of the project.
Return ONLY the name without any explanation or additional text.`

// DescribeResult is the outcome of ProcessDescription.
//
//nolint:govet // JSON field order mirrors the event log
type DescribeResult struct {
	Success     bool        `json:"success"`
	ProjectName string      `json:"project_name,omitempty"`
	ProjectDir  string      `json:"project_dir,omitempty"`
	Plan        *plan.Plan  `json:"plan,omitempty"`
	Tasks       []plan.Task `json:"tasks,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// ProcessDescription names the project, creates its directory under the
// output directory and generates the plan and tasks.
func (a *CodeAgent) ProcessDescription(ctx context.Context, description string) DescribeResult {
	a.out.Panel("Processing Project Description")

	desc := plan.ParseProjectDescription(description)
	a.mu.Lock()
	a.description = &desc
	a.mu.Unlock()

	a.out.Step("Generating AI project name...")
	name := a.generateProjectName(ctx, description, desc.ProjectName)
	dir := filepath.Join(a.outputDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		a.out.Error("Failed to create project directory: %v", err)
		return DescribeResult{Error: fmt.Sprintf("failed to create project directory: %v", err)}
	}
	if err := a.bindProject(name, dir); err != nil {
		return DescribeResult{Error: err.Error()}
	}
	if a.audit != nil {
		if err := a.audit.UpdateSessionProject(ctx, name, dir); err != nil {
			a.logger.Warn("⚠️  Failed to record project in audit session: %v", err)
		}
	}

	a.log.Section("Project Initialization")
	a.log.Text("Project Name: " + name)
	a.log.Text("Project Directory: " + dir)
	a.out.Field("Project Name", name)
	a.out.Field("Project Directory", dir)
	if len(desc.Technologies) > 0 {
		a.out.Text("Technologies:")
		a.out.List(desc.Technologies)
		a.log.Text("**Technologies:**")
		a.log.Text(bulletList(desc.Technologies))
	}
	if len(desc.Features) > 0 {
		a.out.Text("Features:")
		a.out.List(desc.Features)
		a.log.Text("**Features:**")
		a.log.Text(bulletList(desc.Features))
	}

	p, tasks, err := a.planAndTasks(llmmetrics.WithPhase(ctx, "planning"), description)
	if err != nil {
		a.out.Error("Error generating plan: %v", err)
		a.log.Text("❌ Error generating plan: " + err.Error())
		a.saveState(state.PhaseDescribed)
		return DescribeResult{ProjectName: name, ProjectDir: dir, Error: err.Error()}
	}
	if len(tasks) == 0 {
		a.out.Error("Error generating tasks: No tasks were returned")
		return DescribeResult{ProjectName: name, ProjectDir: dir, Plan: p,
			Error: "Failed to generate tasks: No tasks were returned"}
	}
	a.mu.Lock()
	a.plan = p
	a.tasks = tasks
	a.mu.Unlock()

	a.out.Success("Generated %d tasks", len(tasks))
	for i, t := range tasks {
		a.out.Text(fmt.Sprintf("%d. %s", i+1, taskTitle(t, i)))
		if t.Description != "" {
			a.out.Text("   " + t.Description)
		}
	}
	a.log.Section("Development Tasks")
	a.log.Tasks(tasks)

	a.saveState(state.PhasePlanned)
	return DescribeResult{Success: true, ProjectName: name, ProjectDir: dir, Plan: p, Tasks: tasks}
}

// planAndTasks generates the plan and task list, in one call when the planner
// is configured for combined mode and in two otherwise.
func (a *CodeAgent) planAndTasks(ctx context.Context, description string) (*plan.Plan, []plan.Task, error) {
	if !a.cfg.Planner.Combined {
		a.out.Step("Generating project plan...")
		p, err := a.planner.GeneratePlan(ctx, description)
		if err != nil {
			return nil, nil, err
		}
		a.showPlan(p)
		a.out.Step("Generating development tasks...")
		return p, a.planner.GenerateTasks(ctx, p), nil
	}

	a.out.Step("Generating project plan and tasks...")
	res := a.planner.GeneratePlanAndTasks(ctx, description)
	p := res.Plan
	if res.Error != "" {
		a.out.Warn("Plan generation failed, continuing with fallback tasks: %s", res.Error)
		a.log.Text("⚠️ Plan generation failed: " + res.Error)
	}
	if p == nil {
		p = &plan.Plan{}
	}
	a.showPlan(p)
	if p.TasksText != "" {
		a.log.Section("Task Breakdown")
		a.log.Text(p.TasksText)
	}
	if res.UsedFallback {
		a.out.Warn("Using fallback tasks derived from the plan")
	}
	return p, res.Tasks, nil
}

func (a *CodeAgent) showPlan(p *plan.Plan) {
	a.out.Success("Project Plan Generated")
	a.out.Text(p.RawText)
	a.log.Section("Project Plan")
	a.log.Plan(p)
}

// generateProjectName asks for a short name and falls back to fallback when
// the call fails or nothing usable remains after sanitizing.
func (a *CodeAgent) generateProjectName(ctx context.Context, description, fallback string) string {
	text, err := a.gen.GenerateText(llmmetrics.WithPhase(ctx, "naming"), fmt.Sprintf(namePromptTemplate, description))
	if err != nil {
		a.logger.Warn("⚠️  Error generating AI project name: %v", err)
		return fallbackName(fallback)
	}
	if name := utils.SanitizeProjectName(text); name != "" {
		return name
	}
	return fallbackName(fallback)
}

func fallbackName(name string) string {
	if clean := utils.SanitizeProjectName(name); clean != "" {
		return clean
	}
	return "unnamed-project"
}

func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// taskTitle is the display name of t, which sits at index i.
func taskTitle(t plan.Task, i int) string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("Task %d", i+1)
}
