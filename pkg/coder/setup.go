package coder

import (
	"context"
	"fmt"

	llmmetrics "codeagent/pkg/agent/middleware/metrics"
	"codeagent/pkg/codegen"
	"codeagent/pkg/state"
)

const structurePromptTemplate = `Based on the following project plan, generate a detailed directory structure and initial files to create:

%s

Provide your response in the following JSON format:
{
    "directories": [
        "path/to/directory1",
        "path/to/directory2",
        ...
    ],
    "files": [
        {
            "path": "path/to/file1",
            "description": "Detailed description of what this file should contain",
            "language": "programming language"
        },
        ...
    ]
}

Include only the JSON output without any additional text.`

// SetupResult is the outcome of SetupProject.
type SetupResult struct {
	Success            bool     `json:"success"`
	DirectoriesCreated int      `json:"directories_created"`
	FilesCreated       int      `json:"files_created"`
	Errors             []string `json:"errors,omitempty"`
	CommitHash         string   `json:"commit_hash,omitempty"`
	Error              string   `json:"error,omitempty"`
}

// SetupProject initializes the repository and materializes the directory and
// file layout the generator derives from the plan.
func (a *CodeAgent) SetupProject(ctx context.Context) SetupResult {
	a.mu.Lock()
	p, repo := a.plan, a.repo
	a.mu.Unlock()
	if p == nil || repo == nil {
		return SetupResult{Error: "No project plan available"}
	}

	a.out.Panel("Setting Up Project Structure")
	a.log.Section("Project Setup")

	a.out.Step("Initializing Git repository in project directory...")
	if res := repo.Init(ctx); res.Success {
		a.out.Success("%s", res.Message)
		a.log.Text("✅ " + res.Message)
	} else {
		note := firstNonEmpty(res.Message, res.Error)
		a.out.Warn("Note: %s", note)
		a.log.Text("⚠️ " + note)
	}

	a.out.Step("Creating project structure...")
	text, err := a.gen.GenerateText(llmmetrics.WithPhase(ctx, "structure"), fmt.Sprintf(structurePromptTemplate, p.RawText))
	if err != nil {
		a.out.Error("Error setting up project structure: %v", err)
		return SetupResult{Error: err.Error()}
	}
	structure, err := codegen.ParseStructure(text)
	if err != nil {
		a.out.Error("Error setting up project structure: %v", err)
		return SetupResult{Error: err.Error()}
	}

	created := a.materializer.SetupStructure(ctx, structure)
	if len(created.CreatedDirectories) > 0 {
		a.out.Success("Created directories:")
		a.out.List(created.CreatedDirectories)
		a.log.Subsection("Created Directories")
		a.log.Text(bulletList(created.CreatedDirectories))
	}
	if len(created.CreatedFiles) > 0 {
		a.out.Success("Created files:")
		a.out.List(created.CreatedFiles)
		a.log.Subsection("Created Files")
		a.log.Text(bulletList(created.CreatedFiles))
	}
	if len(created.Errors) > 0 {
		a.out.Error("Errors:")
		a.out.List(created.Errors)
		a.log.Subsection("Errors")
		for _, e := range created.Errors {
			a.log.Text("- ❌ " + e)
		}
	}

	a.out.Step("Committing initial project structure...")
	commit := repo.Commit(ctx, "Initial project structure", true)
	if commit.Success {
		a.out.Success("%s", commit.Message)
		a.log.Text("✅ " + commit.Message)
	} else {
		a.out.Error("Error committing changes: %s", firstNonEmpty(commit.Error, "Unknown error"))
		a.log.Text("❌ Error committing changes: " + firstNonEmpty(commit.Error, "Unknown error"))
	}

	a.saveState(state.PhaseStructured)
	return SetupResult{
		Success:            true,
		DirectoriesCreated: len(created.CreatedDirectories),
		FilesCreated:       len(created.CreatedFiles),
		Errors:             created.Errors,
		CommitHash:         commit.CommitHash,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
