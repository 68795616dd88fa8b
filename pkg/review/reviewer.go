// Package review runs best-effort quality analysis over generated code and can
// rewrite files with improved versions.
package review

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitfield/script"

	"codeagent/pkg/agent/llm"
	"codeagent/pkg/agent/middleware/metrics"
	"codeagent/pkg/codegen"
	"codeagent/pkg/logx"
	"codeagent/pkg/utils"
)

// BackupSuffix is appended to a file's path before auto-fix overwrites it.
const BackupSuffix = ".bak"

// DefaultExtensions are reviewed when ReviewDirectory is given none.
var DefaultExtensions = []string{
	".py", ".js", ".ts", ".html", ".css", ".java", ".c", ".cpp", ".go", ".rs", ".rb", ".php",
}

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	".codeagent":   true,
	"node_modules": true,
	"venv":         true,
	".venv":        true,
	"__pycache__":  true,
	"target":       true,
}

// Change describes one automatic fix.
type Change struct {
	File        string `json:"file"`
	Backup      string `json:"backup"`
	IssuesFixed int    `json:"issues_fixed"`
}

// FileReview is the outcome of reviewing one file.
//
//nolint:govet // JSON field order mirrors the report
type FileReview struct {
	FilePath string       `json:"file_path"`
	Success  bool         `json:"success"`
	Analysis llm.Analysis `json:"analysis"`
	Fixed    bool         `json:"fixed"`
	Changes  []Change     `json:"changes,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// HasIssues reports whether the analysis found anything.
func (r FileReview) HasIssues() bool {
	return len(r.Analysis.Issues) > 0
}

// DirectoryReview aggregates the reviews of a directory tree.
//
//nolint:govet // JSON field order mirrors the report
type DirectoryReview struct {
	Success         bool         `json:"success"`
	DirectoryPath   string       `json:"directory_path"`
	FilesReviewed   int          `json:"files_reviewed"`
	FilesWithIssues int          `json:"files_with_issues"`
	FilesFixed      int          `json:"files_fixed"`
	Reviews         []FileReview `json:"reviews"`
	Error           string       `json:"error,omitempty"`
}

// Suggestions is the free-form improvement advice for a snippet.
type Suggestions struct {
	Success     bool   `json:"success"`
	Language    string `json:"language,omitempty"`
	Suggestions string `json:"suggestions,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Reviewer analyzes files through a text generator.
type Reviewer struct {
	gen    llm.TextGenerator
	logger *logx.Logger
}

// NewReviewer creates a reviewer.
func NewReviewer(gen llm.TextGenerator, logger *logx.Logger) *Reviewer {
	if logger == nil {
		logger = logx.NewLogger("review")
	}
	return &Reviewer{gen: gen, logger: logger}
}

// ReviewFile analyzes path. With autoFix, a file that has issues is replaced by
// an improved version when the generator returns different content; the
// original is kept next to it with BackupSuffix.
func (r *Reviewer) ReviewFile(ctx context.Context, path string, autoFix bool) FileReview {
	ctx = metrics.WithPhase(ctx, "review")
	result := FileReview{FilePath: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			result.Error = fmt.Sprintf("File not found: %s", path)
		} else {
			result.Error = fmt.Sprintf("failed to read %s: %v", path, err)
		}
		r.logger.Error("Error reviewing file %s: %s", path, result.Error)
		return result
	}
	code := string(data)

	result.Analysis = r.gen.AnalyzeCode(ctx, code)
	result.Success = true
	if result.Analysis.Failed() {
		r.logger.Warn("⚠️  Analysis of %s failed: %s", path, result.Analysis.Error)
	}

	if !autoFix || !result.HasIssues() {
		return result
	}

	language := codegen.LanguageFor(path)
	improved, err := r.improve(ctx, code, result.Analysis.Issues, language)
	if err != nil {
		r.logger.Error("Error generating improved code for %s: %v", path, err)
		return result
	}
	if improved == "" || codegen.Digest([]byte(improved)) == codegen.Digest(data) {
		return result
	}

	backup := path + BackupSuffix
	if err := utils.WriteFileAtomic(backup, data, 0644); err != nil {
		result.Success = false
		result.Error = fmt.Sprintf("failed to write backup %s: %v", backup, err)
		return result
	}
	if err := utils.WriteFileAtomic(path, []byte(improved), 0644); err != nil {
		result.Success = false
		result.Error = fmt.Sprintf("failed to write improved code to %s: %v", path, err)
		return result
	}

	result.Fixed = true
	result.Changes = append(result.Changes, Change{
		File:        path,
		Backup:      backup,
		IssuesFixed: len(result.Analysis.Issues),
	})
	r.logger.Info("🔧 Fixed %d issues in %s", len(result.Analysis.Issues), path)
	return result
}

func (r *Reviewer) improve(ctx context.Context, code string, issues []llm.Issue, language string) (string, error) {
	var b strings.Builder
	for _, issue := range issues {
		severity := issue.Severity
		if severity == "" {
			severity = "unknown"
		}
		description := issue.Description
		if description == "" {
			description = "No description"
		}
		fmt.Fprintf(&b, "- %s issue: %s\n", severity, description)
	}

	text, err := r.gen.GenerateText(ctx, fmt.Sprintf(improvePromptTemplate, language, b.String(), language, code))
	if err != nil {
		return "", fmt.Errorf("failed to generate improved code: %w", err)
	}
	return codegen.ExtractCode(text), nil
}

// ReviewDirectory reviews every file under dir whose extension is in exts
// (DefaultExtensions when empty). Dependency and VCS directories are skipped.
func (r *Reviewer) ReviewDirectory(ctx context.Context, dir string, exts []string, autoFix bool) DirectoryReview {
	result := DirectoryReview{DirectoryPath: dir}
	if !utils.DirExists(dir) {
		result.Error = fmt.Sprintf("Directory not found: %s", dir)
		return result
	}

	files, err := ListSourceFiles(dir, exts)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	for _, path := range files {
		if ctx.Err() != nil {
			result.Error = ctx.Err().Error()
			break
		}
		review := r.ReviewFile(ctx, path, autoFix)
		result.FilesReviewed++
		if !review.Success {
			continue
		}
		if review.HasIssues() {
			result.FilesWithIssues++
		}
		if review.Fixed {
			result.FilesFixed++
		}
		result.Reviews = append(result.Reviews, review)
	}
	r.logger.Info("🔍 Reviewed %d files in %s, %d with issues", result.FilesReviewed, dir, result.FilesWithIssues)
	return result
}

// ListSourceFiles returns the files under dir with one of exts, in lexical order.
func ListSourceFiles(dir string, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	wanted := make(map[string]bool, len(exts))
	for _, ext := range exts {
		wanted[strings.ToLower(ext)] = true
	}

	paths, err := script.FindFiles(dir).Reject(BackupSuffix).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to list files in %s: %w", dir, err)
	}

	var out []string
	for _, path := range paths {
		if !wanted[strings.ToLower(filepath.Ext(path))] || inSkippedDir(dir, path) {
			continue
		}
		out = append(out, path)
	}
	return out, nil
}

func inSkippedDir(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
		if skipDirs[part] {
			return true
		}
	}
	return false
}

// SuggestImprovements asks for actionable advice on code.
func (r *Reviewer) SuggestImprovements(ctx context.Context, code, language string) Suggestions {
	if language == "" {
		language = "python"
	}
	text, err := r.gen.GenerateText(metrics.WithPhase(ctx, "review"),
		fmt.Sprintf(suggestPromptTemplate, language, language, code, language))
	if err != nil {
		r.logger.Error("Error generating improvement suggestions: %v", err)
		return Suggestions{Error: err.Error()}
	}
	return Suggestions{Success: true, Language: language, Suggestions: text}
}

const improvePromptTemplate = `I need you to improve the following %s code by fixing these issues:

ISSUES TO FIX:
%s
ORIGINAL CODE:
` + "```%s\n%s\n```" + `

Please provide ONLY the improved code without any explanations or markdown formatting.
Maintain the same overall structure and functionality while fixing the issues.
Make sure the code is complete and properly formatted.`

const suggestPromptTemplate = `Suggest improvements for the following %s code:

` + "```%s\n%s\n```" + `

Focus on:
1. Code quality and readability
2. Performance optimizations
3. Security considerations
4. Best practices for %s
5. Potential bugs or edge cases

Provide specific, actionable suggestions with code examples where appropriate.`
