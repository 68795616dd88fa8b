package coder

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	llmmetrics "codeagent/pkg/agent/middleware/metrics"
	"codeagent/pkg/codegen"
	"codeagent/pkg/persistence"
	"codeagent/pkg/plan"
	"codeagent/pkg/state"
	"codeagent/pkg/utils"
)

const executionPromptTemplate = `I need to implement the following task in a software project:

Task: %s
Description: %s

Project context:
%s

Generate a list of specific commands and code changes needed to implement this task.
Provide your response in the following JSON format:
{
    "commands": [
        {
            "command": "command to execute",
            "description": "what this command does"
        },
        ...
    ],
    "code_changes": [
        {
            "file_path": "path/to/file",
            "description": "detailed description of what code to write in this file"
        },
        ...
    ]
}

Include only the JSON output without any additional text.`

const readmeTemplate = `# %s

This project was generated by AI Code Agent.

## Project Description

%s

## Project Structure

Generated on %s
`

// TaskResult is the outcome of ExecuteTask.
//
//nolint:govet // JSON field order mirrors the event log
type TaskResult struct {
	Success          bool   `json:"success"`
	TaskIndex        int    `json:"task_index"`
	Branch           string `json:"branch,omitempty"`
	CommandsExecuted int    `json:"commands_executed"`
	CodeChanges      int    `json:"code_changes"`
	CommitHash       string `json:"commit_hash,omitempty"`
	Error            string `json:"error,omitempty"`
}

// ExecuteTask runs the task at index in the project directory.
func (a *CodeAgent) ExecuteTask(ctx context.Context, index int) TaskResult {
	a.mu.Lock()
	tasks := a.tasks
	a.mu.Unlock()

	if len(tasks) == 0 {
		return TaskResult{TaskIndex: index, Error: "No tasks available"}
	}
	if index < 0 || index >= len(tasks) {
		return TaskResult{TaskIndex: index, Error: fmt.Sprintf("Invalid task index: %d", index)}
	}

	task := tasks[index]
	title := taskTitle(task, index)
	a.mu.Lock()
	a.currentTask = &task
	dir, p := a.projectDir, a.plan
	a.mu.Unlock()

	a.out.Panel("Executing Task: " + title)
	a.out.Field("Description", firstNonEmpty(task.Description, "No description"))

	if dir == "" || !utils.DirExists(dir) {
		a.out.Error("Error: Project directory not found")
		return TaskResult{TaskIndex: index, Error: "Project directory not found"}
	}

	start := time.Now()
	result := a.executeTask(ctx, index, task, title, p)
	a.finishTask(ctx, task, title, result, time.Since(start))
	return result
}

func (a *CodeAgent) executeTask(ctx context.Context, index int, task plan.Task, title string, p *plan.Plan) TaskResult {
	a.mu.Lock()
	repo := a.repo
	a.mu.Unlock()

	a.log.Section("Task: " + title)
	a.log.Text(firstNonEmpty(task.Description, "No description"))

	if !repo.Exists() {
		a.out.Step("Initializing Git repository in project directory...")
		if res := repo.Init(ctx); res.Success {
			a.out.Success("%s", res.Message)
		} else {
			a.out.Warn("Note: %s", firstNonEmpty(res.Message, res.Error))
		}
	}

	branch := utils.FeatureBranchName(firstNonEmpty(task.Name, fmt.Sprintf("task-%d", index+1)))
	a.out.Step("Creating branch: %s", branch)
	if res := repo.CreateBranch(ctx, branch, true); res.Success {
		a.out.Success("%s", res.Message)
	} else {
		a.out.Error("Error creating branch: %s", firstNonEmpty(res.Error, "Unknown error"))
		a.log.Text("⚠️ Could not create branch " + branch + ": " + res.Error)
	}

	result := TaskResult{TaskIndex: index, Branch: branch}

	rawPlan := ""
	if p != nil {
		rawPlan = p.RawText
	}
	a.out.Step("Generating implementation plan...")
	prompt := fmt.Sprintf(executionPromptTemplate, title, firstNonEmpty(task.Description, "No description"), rawPlan)
	text, err := a.gen.GenerateText(llmmetrics.WithPhase(ctx, "execution"), prompt)
	if err != nil {
		a.out.Error("Error executing task: %v", err)
		result.Error = err.Error()
		return result
	}
	ep, err := plan.ParseExecutionPlan(text)
	if err != nil {
		a.out.Error("Error executing task: %v", err)
		result.Error = err.Error()
		return result
	}

	if len(ep.Commands) > 0 {
		a.out.Success("Executing commands:")
		a.log.Subsection("Commands")
	}
	for _, c := range ep.Commands {
		if err := ctx.Err(); err != nil {
			result.Error = err.Error()
			return result
		}
		a.out.Field("Command", c.Command)
		a.out.Text(firstNonEmpty(c.Description, "No description"))
		a.out.Command(a.runner.Run(ctx, c.Command, false, 0))
		result.CommandsExecuted++
	}

	if len(ep.CodeChanges) > 0 {
		a.out.Success("Implementing code changes:")
		a.log.Subsection("Code Changes")
	}
	for _, change := range ep.CodeChanges {
		if err := ctx.Err(); err != nil {
			result.Error = err.Error()
			return result
		}
		a.out.Field("File", change.FilePath)
		a.out.Text(firstNonEmpty(change.Description, "No description"))
		fr := a.materializer.GenerateFile(llmmetrics.WithPhase(ctx, "codegen"), change.FilePath, change.Description, "")
		if fr.Success {
			a.out.Success("Generated file: %s", fr.FilePath)
			a.out.Field("Preview", fr.ContentPreview)
		} else {
			a.out.Error("Error generating file: %s", firstNonEmpty(fr.Error, "Unknown error"))
		}
		result.CodeChanges++
	}

	a.out.Step("Committing changes...")
	commit := repo.CommitWithTimeout(ctx, "Implement "+title, true, a.cfg.Git.CommitTimeout)
	if commit.Success {
		a.out.Success("%s", commit.Message)
		result.CommitHash = commit.CommitHash
	} else {
		a.out.Error("Error committing changes: %s", firstNonEmpty(commit.Error, "Unknown error"))
		a.log.Text("❌ Error committing changes: " + firstNonEmpty(commit.Error, "Unknown error"))
	}

	a.saveState(state.PhaseTaskExecuting)
	a.ensureReadme(ctx)

	result.Success = true
	return result
}

// ensureReadme writes and commits a README once, when the project has none.
func (a *CodeAgent) ensureReadme(ctx context.Context) {
	a.mu.Lock()
	dir, name, repo, desc := a.projectDir, a.projectName, a.repo, a.description
	a.mu.Unlock()

	path := filepath.Join(dir, "README.md")
	if utils.FileExists(path) {
		return
	}
	a.out.Step("Creating README.md...")
	raw := "No description available."
	if desc != nil && desc.RawDescription != "" {
		raw = desc.RawDescription
	}
	content := fmt.Sprintf(readmeTemplate, utils.TitleFromSlug(name), raw, time.Now().Format("2006-01-02 15:04:05"))
	if err := utils.WriteFileAtomic(path, []byte(content), 0644); err != nil {
		a.out.Error("Error creating README: %v", err)
		return
	}
	a.out.Success("Created README.md")
	a.log.FileCreated("README.md", codegen.Preview(content))

	if res := repo.AddFiles(ctx, "README.md"); !res.Success {
		a.logger.Warn("⚠️  Failed to stage README.md: %s", res.Error)
		return
	}
	if res := repo.Commit(ctx, "Add README.md", false); !res.Success {
		a.logger.Warn("⚠️  Failed to commit README.md: %s", res.Error)
	}
}

func (a *CodeAgent) finishTask(ctx context.Context, task plan.Task, title string, r TaskResult, d time.Duration) {
	if r.Success {
		a.out.Success("Task completed: %s", title)
	} else {
		a.log.Text("❌ Task failed: " + r.Error)
	}
	if a.metrics != nil {
		a.metrics.ObserveTask(r.Success, d)
	}
	if a.audit == nil {
		return
	}
	run := persistence.TaskRun{
		TaskID:       task.ID,
		TaskName:     title,
		Branch:       r.Branch,
		Success:      r.Success,
		Error:        r.Error,
		CommitHash:   r.CommitHash,
		CommandsRun:  r.CommandsExecuted,
		FilesWritten: r.CodeChanges,
		Duration:     d,
	}
	if err := a.audit.RecordTaskRun(ctx, run); err != nil {
		a.logger.Warn("⚠️  Failed to record task run: %v", err)
	}
}
