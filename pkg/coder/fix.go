package coder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bitfield/script"
	"github.com/pmezard/go-difflib/difflib"

	llmmetrics "codeagent/pkg/agent/middleware/metrics"
	"codeagent/pkg/agent/llm"
	"codeagent/pkg/deploy"
	"codeagent/pkg/exec"
	"codeagent/pkg/utils"
)

const (
	// maxInventoryFileSize skips large files from the inventory.
	maxInventoryFileSize = 1_000_000
	// maxPromptFiles bounds how many file contents go into the fix prompt.
	maxPromptFiles = 50
	// fileContentTokenBudget bounds the file contents sent with the fix prompt.
	fileContentTokenBudget = 24000
	// perFileTokenLimit truncates any single file in the fix prompt.
	perFileTokenLimit = 4000

	// Close matching scans windows of len(old)+closeMatchSlack characters every
	// closeMatchStride characters and accepts similarity >= closeMatchCutoff.
	closeMatchCutoff = 0.7
	closeMatchStride = 10
	closeMatchSlack  = 20
	// closeMatchBudget caps windows*width; larger searches are skipped.
	closeMatchBudget = 4_000_000
)

var inventorySkipParts = map[string]bool{
	"node_modules": true, "venv": true, "__pycache__": true, "dist": true, "build": true,
}

const analysisPromptTemplate = `Analyze the following project structure and provide a detailed understanding of the project.

Project Type: %s
Technologies: %s

Directories:
%s

Files:
%s

Based on this information, provide:
1. A brief description of what this project does
2. The main components and their purposes
3. The project architecture
4. Any potential issues or areas for improvement you can identify

Format your response as a structured analysis that can be used to understand the project.`

const issuesPromptTemplate = `I need to fix issues in a project based on the following problem description:

PROBLEM DESCRIPTION:
%s

PROJECT ANALYSIS:
%s

Project Type: %s
Technologies: %s

Based on this information, identify:
1. The specific issues that need to be fixed
2. The files that need to be modified
3. The changes that need to be made to each file
4. Any additional files that need to be created
5. Any dependencies that need to be installed

Format your response as a structured plan with the following sections:

IDENTIFIED ISSUES:
- List each issue with a brief description

FILES TO MODIFY:
- For each file, list the specific changes needed

FILES TO CREATE:
- For each new file, provide the file path and purpose

DEPENDENCIES TO INSTALL:
- List any dependencies that need to be installed

IMPLEMENTATION PLAN:
- Step-by-step plan for fixing the issues`

const fixesPromptTemplate = `I need to fix issues in a project based on the following problem description and identified issues:

PROBLEM DESCRIPTION:
%s

PROJECT ANALYSIS:
%s

IDENTIFIED ISSUES:
%s

CURRENT FILE CONTENTS:
%s

For each file that needs to be modified, provide the exact changes that need to be made.
For each new file that needs to be created, provide the complete file content.

Format your response as a JSON object with the following structure:

{
    "files_to_modify": [
        {
            "file_path": "path/to/file",
            "changes": [
                {
                    "type": "replace",
                    "old_code": "code to replace",
                    "new_code": "replacement code"
                }
            ]
        }
    ],
    "files_to_create": [
        {
            "file_path": "path/to/new/file",
            "content": "complete file content"
        }
    ],
    "dependencies_to_install": [
        {
            "name": "dependency-name",
            "version": "version-spec",
            "type": "npm/pip/etc"
        }
    ]
}

Include only the JSON output without any additional text.`

// Replacement swaps one exact snippet of a file.
type Replacement struct {
	Type    string `json:"type"`
	OldCode string `json:"old_code"`
	NewCode string `json:"new_code"`
}

// FileModification lists the replacements for one existing file.
type FileModification struct {
	FilePath string        `json:"file_path"`
	Changes  []Replacement `json:"changes"`
}

// FileCreation is a new file with its full content.
type FileCreation struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// Dependency is a package to install with the project's package manager.
type Dependency struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Type    string `json:"type"`
}

// FixPlan is the JSON change set requested from the generator.
type FixPlan struct {
	FilesToModify []FileModification `json:"files_to_modify"`
	FilesToCreate []FileCreation     `json:"files_to_create"`
	Dependencies  []Dependency       `json:"dependencies_to_install"`
}

// ParseFixPlan decodes the JSON object embedded in a fix response.
func ParseFixPlan(text string) (FixPlan, error) {
	var fp FixPlan
	payload, ok := llm.ExtractJSON(text)
	if !ok {
		return fp, fmt.Errorf("could not find JSON in the response")
	}
	if err := json.Unmarshal([]byte(payload), &fp); err != nil {
		return fp, fmt.Errorf("error parsing JSON: %w", err)
	}
	return fp, nil
}

// ProjectInventory is what fix mode knows about an existing project.
type ProjectInventory struct {
	ProjectType  deploy.ProjectType `json:"project_type"`
	Technologies []string           `json:"technologies"`
	Directories  []string           `json:"directories"`
	Files        []string           `json:"files"`
}

// FixResult is the outcome of FixProject.
//
//nolint:govet // JSON field order mirrors the event log
type FixResult struct {
	Success       bool                  `json:"success"`
	Inventory     ProjectInventory      `json:"inventory"`
	Analysis      string                `json:"analysis,omitempty"`
	Issues        string                `json:"issues,omitempty"`
	ModifiedFiles []string              `json:"modified_files,omitempty"`
	CreatedFiles  []string              `json:"created_files,omitempty"`
	Commands      []*exec.CommandResult `json:"commands,omitempty"`
	Errors        []string              `json:"errors,omitempty"`
	CommitHash    string                `json:"commit_hash,omitempty"`
	Error         string                `json:"error,omitempty"`
}

// FixProject repairs an existing project directory according to problem:
// it inventories the project, asks for an analysis and the issues behind the
// problem, requests a JSON change set and applies it. Changes are committed
// when dir is a git repository.
func (a *CodeAgent) FixProject(ctx context.Context, dir, problem string) *FixResult {
	a.out.Panel("AI Code Agent - Fix Project Mode")
	result := &FixResult{}
	if err := a.UseProject(dir); err != nil {
		a.out.Error("%v", err)
		result.Error = err.Error()
		return result
	}
	dir = a.ProjectDir()
	a.out.Field("Project directory", dir)
	a.out.Field("Problem description", problem)
	a.log.Section("Fix Project")
	a.log.Text("Problem: " + problem)

	ctx = llmmetrics.WithPhase(ctx, "fix")

	a.out.Step("Step 1: Analyzing project...")
	inv, err := Inventory(dir)
	if err != nil {
		a.out.Error("Error analyzing project: %v", err)
		result.Error = err.Error()
		return result
	}
	result.Inventory = inv
	analysis, err := a.gen.GenerateText(ctx, fmt.Sprintf(analysisPromptTemplate,
		inv.ProjectType, strings.Join(inv.Technologies, ", "),
		strings.Join(headOf(inv.Directories, 20), ", "),
		strings.Join(headOf(inv.Files, maxPromptFiles), ", ")))
	if err != nil {
		a.out.Error("Error analyzing project: %v", err)
		result.Error = err.Error()
		return result
	}
	result.Analysis = analysis
	a.out.Success("Project analysis complete")
	a.out.Field("Project type", string(inv.ProjectType))
	a.out.Field("Technologies", strings.Join(inv.Technologies, ", "))
	a.out.Text(analysis)

	a.out.Step("Step 2: Identifying issues...")
	issues, err := a.gen.GenerateText(ctx, fmt.Sprintf(issuesPromptTemplate,
		problem, analysis, inv.ProjectType, strings.Join(inv.Technologies, ", ")))
	if err != nil {
		a.out.Error("Error identifying issues: %v", err)
		result.Error = err.Error()
		return result
	}
	result.Issues = issues
	a.out.Success("Issues identified")
	a.out.Text(issues)
	a.log.Subsection("Identified Issues")
	a.log.Text(issues)

	a.out.Step("Step 3: Generating fixes...")
	fixesText, err := a.gen.GenerateText(ctx, fmt.Sprintf(fixesPromptTemplate,
		problem, analysis, issues, a.fileContents(dir, inv.Files)))
	if err != nil {
		a.out.Error("Error generating fixes: %v", err)
		result.Error = err.Error()
		return result
	}
	fp, err := ParseFixPlan(fixesText)
	if err != nil {
		a.out.Error("Error generating fixes: %v", err)
		result.Error = err.Error()
		return result
	}
	a.out.Success("Fixes generated")

	a.out.Step("Step 4: Applying fixes...")
	a.applyFixes(ctx, dir, fp, result)
	if len(result.Errors) > 0 {
		a.out.Error("Errors occurred while applying fixes:")
		a.out.List(result.Errors)
	}
	a.out.Success("Fixes applied")
	a.out.Field("Modified files", fmt.Sprintf("%d", len(result.ModifiedFiles)))
	a.out.Field("Created files", fmt.Sprintf("%d", len(result.CreatedFiles)))

	a.mu.Lock()
	repo := a.repo
	a.mu.Unlock()
	if repo.Exists() && len(result.ModifiedFiles)+len(result.CreatedFiles) > 0 {
		commit := repo.Commit(ctx, "Fix: "+utils.Truncate(problem, 60), true)
		if commit.Success {
			result.CommitHash = commit.CommitHash
			a.out.Success("%s", commit.Message)
		} else {
			a.out.Warn("Error committing fixes: %s", commit.Error)
		}
	}
	if _, err := a.log.Save(); err != nil {
		a.logger.Warn("⚠️  %v", err)
	}

	result.Success = true
	return result
}

func (a *CodeAgent) applyFixes(ctx context.Context, dir string, fp FixPlan, result *FixResult) {
	for _, mod := range fp.FilesToModify {
		if mod.FilePath == "" || len(mod.Changes) == 0 {
			continue
		}
		current, err := os.ReadFile(filepath.Join(dir, mod.FilePath))
		if err != nil && !os.IsNotExist(err) {
			result.Errors = append(result.Errors, fmt.Sprintf("Error modifying file %s: %v", mod.FilePath, err))
			continue
		}
		content, missed := applyReplacements(string(current), mod.Changes)
		for range missed {
			result.Errors = append(result.Errors, "Could not find code to replace in "+mod.FilePath)
		}
		fr := a.materializer.WriteFile(ctx, mod.FilePath, content)
		if !fr.Success {
			result.Errors = append(result.Errors, fmt.Sprintf("Error modifying file %s: %s", mod.FilePath, fr.Error))
			continue
		}
		result.ModifiedFiles = append(result.ModifiedFiles, mod.FilePath)
		a.out.Success("Modified file: %s", mod.FilePath)
	}

	for _, c := range fp.FilesToCreate {
		if c.FilePath == "" {
			continue
		}
		fr := a.materializer.WriteFile(ctx, c.FilePath, c.Content)
		if !fr.Success {
			result.Errors = append(result.Errors, fmt.Sprintf("Error creating file %s: %s", c.FilePath, fr.Error))
			continue
		}
		result.CreatedFiles = append(result.CreatedFiles, c.FilePath)
		a.out.Success("Created file: %s", c.FilePath)
	}

	for _, cmd := range DependencyCommands(fp.Dependencies) {
		a.out.Step("Installing dependencies...")
		res := a.runner.Run(ctx, cmd, true, 0)
		a.out.Command(res)
		result.Commands = append(result.Commands, res)
		if !res.Success {
			result.Errors = append(result.Errors, fmt.Sprintf("Error installing dependencies: %s",
				firstNonEmpty(strings.TrimSpace(res.Stderr), res.Error)))
		}
	}
}

// applyReplacements applies each replace change in order and returns the
// changes whose old code was not found. Old code without an exact match is
// replaced at its closest match when one is similar enough.
func applyReplacements(content string, changes []Replacement) (string, []Replacement) {
	var missed []Replacement
	for _, ch := range changes {
		if ch.Type != "" && ch.Type != "replace" {
			continue
		}
		if ch.OldCode == "" {
			missed = append(missed, ch)
			continue
		}
		target := ch.OldCode
		if !strings.Contains(content, target) {
			match, ok := closeMatch(content, target)
			if !ok {
				missed = append(missed, ch)
				continue
			}
			target = match
		}
		content = strings.ReplaceAll(content, target, ch.NewCode)
	}
	return content, missed
}

// closeMatch finds the window of content most similar to old and returns the
// part of it spanned by matching characters. ok is false when no window
// reaches closeMatchCutoff.
func closeMatch(content, old string) (match string, ok bool) {
	chars := strings.Split(content, "")
	want := strings.Split(old, "")
	width := len(want) + closeMatchSlack
	if len(chars) == 0 || (len(chars)/closeMatchStride+1)*width > closeMatchBudget {
		return "", false
	}

	m := difflib.NewMatcher(nil, want)
	var best []string
	bestScore := 0.0
	for i := 0; i < len(chars); i += closeMatchStride {
		window := chars[i:min(i+width, len(chars))]
		m.SetSeq1(window)
		if m.RealQuickRatio() < closeMatchCutoff || m.QuickRatio() < closeMatchCutoff {
			continue
		}
		if score := m.Ratio(); score >= closeMatchCutoff && score > bestScore {
			best, bestScore = window, score
		}
	}
	if best == nil {
		return "", false
	}

	m.SetSeq1(best)
	blocks := m.GetMatchingBlocks()
	// The last block is a zero-size sentinel.
	first, last := blocks[0], blocks[len(blocks)-2]
	return strings.Join(best[first.A:last.A+last.Size], ""), true
}

// DependencyCommands groups deps into one npm and one pip install command.
// Other package types are ignored.
func DependencyCommands(deps []Dependency) []string {
	var npm, pip []string
	for _, d := range deps {
		if d.Name == "" {
			continue
		}
		switch strings.ToLower(d.Type) {
		case "npm", "yarn":
			spec := d.Name
			if d.Version != "" {
				spec += "@" + d.Version
			}
			npm = append(npm, shellQuote(spec))
		case "pip", "python":
			spec := d.Name
			if d.Version != "" {
				spec += "==" + d.Version
			}
			pip = append(pip, shellQuote(spec))
		}
	}
	var cmds []string
	if len(npm) > 0 {
		cmds = append(cmds, "npm install --save "+strings.Join(npm, " "))
	}
	if len(pip) > 0 {
		cmds = append(cmds, "pip install "+strings.Join(pip, " "))
	}
	return cmds
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Inventory lists the project's files and directories, skipping hidden and
// dependency directories and files over 1MB, and detects the project type.
func Inventory(dir string) (ProjectInventory, error) {
	inv := ProjectInventory{ProjectType: deploy.Detect(dir)}
	inv.Technologies = technologiesFor(inv.ProjectType)

	paths, err := script.FindFiles(dir).Slice()
	if err != nil {
		return inv, fmt.Errorf("failed to list project files: %w", err)
	}
	dirs := map[string]bool{}
	for _, p := range paths {
		rel, err := filepath.Rel(dir, p)
		if err != nil || skipInventoryPath(rel) {
			continue
		}
		info, err := os.Stat(p)
		if err != nil || info.Size() > maxInventoryFileSize {
			continue
		}
		inv.Files = append(inv.Files, filepath.ToSlash(rel))
		for d := filepath.Dir(rel); d != "."; d = filepath.Dir(d) {
			dirs[filepath.ToSlash(d)] = true
		}
	}
	sort.Strings(inv.Files)
	for d := range dirs {
		inv.Directories = append(inv.Directories, d)
	}
	sort.Strings(inv.Directories)
	return inv, nil
}

func skipInventoryPath(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") || inventorySkipParts[part] {
			return true
		}
	}
	return false
}

func technologiesFor(t deploy.ProjectType) []string {
	switch t {
	case deploy.TypeAngular:
		return []string{"nodejs", "angular"}
	case deploy.TypeNextJS:
		return []string{"nodejs", "nextjs", "react"}
	case deploy.TypeVite:
		return []string{"nodejs", "vite"}
	case deploy.TypeReact:
		return []string{"nodejs", "react"}
	case deploy.TypeNodeJS:
		return []string{"nodejs"}
	case deploy.TypeDjango:
		return []string{"python", "django"}
	case deploy.TypeFlask:
		return []string{"python", "flask"}
	case deploy.TypeFastAPI:
		return []string{"python", "fastapi"}
	case deploy.TypePython:
		return []string{"python"}
	case deploy.TypeMaven:
		return []string{"java", "maven"}
	case deploy.TypeGradle:
		return []string{"java", "gradle"}
	case deploy.TypeRust:
		return []string{"rust"}
	case deploy.TypeGo:
		return []string{"go"}
	default:
		return nil
	}
}

// fileContents renders the first project files for the fix prompt, within a
// token budget.
func (a *CodeAgent) fileContents(dir string, files []string) string {
	tc, err := utils.NewTokenCounter()
	if err != nil {
		// a nil counter estimates four characters per token
		a.logger.Debug("Tokenizer unavailable, using estimate: %v", err)
	}

	var b strings.Builder
	used := 0
	for _, f := range headOf(files, maxPromptFiles) {
		data, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			continue
		}
		content := tc.TruncateToTokenLimit(string(data), perFileTokenLimit)
		n := tc.CountTokens(content)
		if used+n > fileContentTokenBudget {
			break
		}
		used += n
		fmt.Fprintf(&b, "--- %s ---\n%s\n\n", f, content)
	}
	return b.String()
}

func headOf(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
