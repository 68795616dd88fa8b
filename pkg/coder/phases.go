package coder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	llmmetrics "codeagent/pkg/agent/middleware/metrics"
	"codeagent/pkg/deploy"
	"codeagent/pkg/editor"
	"codeagent/pkg/exec"
	"codeagent/pkg/git"
	"codeagent/pkg/review"
	"codeagent/pkg/state"
	"codeagent/pkg/utils"
)

// ReviewCode reviews every source file of the project, or of the working
// directory when no project exists, and saves code_review_report.md there.
func (a *CodeAgent) ReviewCode(ctx context.Context, autoFix bool) review.DirectoryReview {
	a.out.Panel("Reviewing Code")

	a.mu.Lock()
	dir, repo := a.projectDir, a.repo
	a.mu.Unlock()
	if dir == "" || !utils.DirExists(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return review.DirectoryReview{Error: fmt.Sprintf("failed to resolve working directory: %v", err)}
		}
		dir, repo = cwd, nil
		if git.IsRepo(cwd) {
			repo = a.openRepo(cwd)
		}
	}
	a.out.Field("Reviewing code in", dir)
	a.log.Section("Code Review")

	result := a.reviewer.ReviewDirectory(llmmetrics.WithPhase(ctx, "review"), dir, nil, autoFix)
	if !result.Success {
		a.out.Error("Error reviewing code: %s", firstNonEmpty(result.Error, "Unknown error"))
		a.log.Text("❌ Error reviewing code: " + firstNonEmpty(result.Error, "Unknown error"))
		return result
	}

	report := review.GenerateReport(result)
	a.out.Success("Code Review Report:")
	a.out.Text(report)
	a.log.Text(fmt.Sprintf("Reviewed %d files, %d with issues, %d fixed",
		result.FilesReviewed, result.FilesWithIssues, result.FilesFixed))

	reportPath := filepath.Join(dir, review.ReportFileName)
	if err := utils.WriteFileAtomic(reportPath, []byte(report), 0644); err != nil {
		a.out.Error("Error saving review report: %v", err)
		return result
	}
	a.out.Success("Saved review report to: %s", reportPath)

	if repo != nil && repo.Exists() {
		commit := repo.Commit(ctx, "Add code review report", true)
		if commit.Success {
			a.out.Success("Committed code review report")
		} else {
			a.logger.Warn("⚠️  Error committing review report: %s", commit.Error)
		}
	}

	a.saveState(state.PhaseReviewed)
	return result
}

// Deploy prepares the project to run locally. With launch set the start
// command is also run in the background and probed once; the server keeps
// running until Shutdown.
func (a *CodeAgent) Deploy(ctx context.Context, launch bool) *deploy.Result {
	dir := a.ProjectDir()
	if dir == "" || !utils.DirExists(dir) {
		a.out.Error("Error: Project directory not found")
		return &deploy.Result{Message: "Project directory not found"}
	}

	a.out.Step("Deploying project locally: %s", dir)
	a.log.Section("Local Deployment")
	a.log.Text("Deploying project locally: " + dir)

	opts := []deploy.Option{
		deploy.WithSettleTime(a.cfg.Deploy.SettleTime),
		deploy.WithLogger(a.logger.With("deploy")),
	}
	if a.toolCheck != nil {
		opts = append(opts, deploy.WithToolCheck(a.toolCheck))
	}
	deployer, err := deploy.NewDeployer(dir, a.runner, opts...)
	if err != nil {
		a.out.Error("Error deploying project: %v", err)
		return &deploy.Result{Message: err.Error()}
	}

	result := deployer.Prepare(ctx)
	a.out.Field("Detected project type", string(result.ProjectType))
	a.log.Text("Detected project type: " + string(result.ProjectType))
	if !result.Success {
		a.out.Error("%s", result.Message)
		a.log.Text("❌ " + result.Message)
		return result
	}

	a.out.Success("%s", result.Message)
	a.log.Text("✅ " + result.Message)
	if result.StartCommand != "" {
		a.out.Field("Start command", result.StartCommand)
		a.log.Text("Start command: " + result.StartCommand)
	}
	if result.URL != "" {
		a.out.Field("URL", result.URL)
		a.log.Text("URL: " + result.URL)
	}

	if launch {
		proc, lr := deployer.Launch(ctx, result)
		if proc != nil {
			a.Shutdown()
			a.mu.Lock()
			a.server = proc
			a.mu.Unlock()
			a.out.Field("Process ID", fmt.Sprintf("%d", lr.PID))
		}
		if lr.Success {
			a.out.Success("%s", lr.Message)
			a.log.Text("✅ " + lr.Message)
		} else {
			a.out.Error("%s", lr.Message)
			a.log.Text("❌ " + lr.Message)
		}
		if lr.ProbeError != "" {
			a.out.Warn("Application not reachable yet: %s", lr.ProbeError)
		}
	}

	a.saveState(state.PhaseDeployed)
	return result
}

// OpenEditor opens the project in VS Code or the platform file opener.
func (a *CodeAgent) OpenEditor() editor.Result {
	dir := a.ProjectDir()
	if dir == "" || !utils.DirExists(dir) {
		a.out.Error("Error: Project directory not found")
		return editor.Result{Error: "Project directory not found"}
	}

	a.out.Step("Opening project in code editor: %s", dir)
	a.log.Text("Opening project in code editor: " + dir)

	res := a.editor.Open(dir)
	if res.Success {
		a.out.Success("Successfully opened project in code editor")
		a.log.Text("✅ Successfully opened project in code editor")
		a.saveState(state.PhaseEditorOpened)
	} else {
		a.out.Error("Failed to open project in code editor: %s", res.Error)
		a.log.Text("❌ Failed to open project in code editor")
	}
	return res
}

// Server returns the process started by Deploy, or nil.
func (a *CodeAgent) Server() *exec.Process {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server
}
