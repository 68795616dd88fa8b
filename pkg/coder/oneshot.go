package coder

import (
	"context"
	"fmt"

	"codeagent/pkg/deploy"
	"codeagent/pkg/review"
)

// OneShotOptions selects the optional tail of a one-shot run.
type OneShotOptions struct {
	Deploy     bool
	Launch     bool
	OpenEditor bool
}

// OneShotResult summarizes a one-shot run. Success only requires the
// description and setup phases to succeed; task, review and deploy failures
// are recorded but never stop the run.
//
//nolint:govet // JSON field order mirrors the event log
type OneShotResult struct {
	Success     bool                    `json:"success"`
	ProjectName string                  `json:"project_name,omitempty"`
	ProjectDir  string                  `json:"project_dir,omitempty"`
	Tasks       []TaskResult            `json:"tasks,omitempty"`
	Review      *review.DirectoryReview `json:"review,omitempty"`
	Fix         *review.DirectoryReview `json:"fix,omitempty"`
	Deploy      *deploy.Result          `json:"deploy,omitempty"`
	Error       string                  `json:"error,omitempty"`
}

// FailedTasks returns how many tasks reported failure.
func (r *OneShotResult) FailedTasks() int {
	n := 0
	for _, t := range r.Tasks {
		if !t.Success {
			n++
		}
	}
	return n
}

// OneShot generates, implements, reviews, fixes and optionally deploys a
// project in one go.
func (a *CodeAgent) OneShot(ctx context.Context, description string, opts OneShotOptions) *OneShotResult {
	a.out.Panel("AI Code Agent - One-Shot Mode")
	a.out.Text("This will generate, implement, review, fix, and deploy a project in one go.")

	result := &OneShotResult{}

	a.out.Step("Step 1: Processing project description...")
	desc := a.ProcessDescription(ctx, description)
	result.ProjectName, result.ProjectDir = desc.ProjectName, desc.ProjectDir
	if !desc.Success {
		a.out.Error("Error processing project description: %s", firstNonEmpty(desc.Error, "Unknown error"))
		result.Error = desc.Error
		return result
	}

	a.out.Step("Step 2: Setting up project structure...")
	if setup := a.SetupProject(ctx); !setup.Success {
		a.out.Error("Error setting up project: %s", firstNonEmpty(setup.Error, "Unknown error"))
		result.Error = setup.Error
		return result
	}

	a.out.Step("Step 3: Implementing all tasks...")
	tasks := a.Tasks()
	for i, t := range tasks {
		if err := ctx.Err(); err != nil {
			result.Error = err.Error()
			return result
		}
		a.out.Text(fmt.Sprintf("Implementing task %d/%d: %s", i+1, len(tasks), taskTitle(t, i)))
		tr := a.ExecuteTask(ctx, i)
		if !tr.Success {
			a.out.Error("Error executing task %d: %s", i+1, firstNonEmpty(tr.Error, "Unknown error"))
		}
		result.Tasks = append(result.Tasks, tr)
	}

	a.out.Step("Step 4: Reviewing code...")
	rev := a.ReviewCode(ctx, false)
	result.Review = &rev

	a.out.Step("Step 5: Fixing code issues...")
	fix := a.ReviewCode(ctx, true)
	result.Fix = &fix

	if opts.Deploy {
		a.out.Step("Step 6: Deploying project locally...")
		dep := a.Deploy(ctx, opts.Launch)
		result.Deploy = dep
		if dep.Success {
			a.out.Success("Deployment successful!")
			if dep.StartCommand != "" {
				a.out.Field("To start the application, run", dep.StartCommand)
			}
			if dep.URL != "" {
				a.out.Field("Application will be available at", dep.URL)
			}
		}
	}

	if opts.OpenEditor {
		a.out.Step("Step 7: Opening project in code editor...")
		a.OpenEditor()
	}

	a.out.Success("Project generation complete!")
	a.out.Field("Project name", result.ProjectName)
	a.out.Field("Project directory", result.ProjectDir)
	if n := result.FailedTasks(); n > 0 {
		a.out.Warn("%d of %d tasks failed", n, len(result.Tasks))
	}
	result.Success = true
	return result
}
