package review

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeagent/pkg/agent"
	"codeagent/pkg/agent/llm"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func issuesAnalysis(_ string) llm.Analysis {
	return llm.Analysis{
		Issues: []llm.Issue{
			{Severity: "high", Description: "unused import", Line: "1", Suggestion: "remove it"},
			{Severity: "low", Description: "missing docstring"},
		},
		QualityScore: "6",
	}
}

func TestReviewFileMissing(t *testing.T) {
	r := NewReviewer(agent.NewMockGenerator(), nil)
	res := r.ReviewFile(context.Background(), filepath.Join(t.TempDir(), "nope.py"), false)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "File not found")
}

func TestReviewFileWithoutIssuesNeverRewrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "print('hi')\n")

	gen := agent.NewMockGenerator()
	res := NewReviewer(gen, nil).ReviewFile(context.Background(), path, true)
	require.True(t, res.Success)
	assert.False(t, res.HasIssues())
	assert.False(t, res.Fixed)
	assert.NoFileExists(t, path+BackupSuffix)
	assert.Len(t, gen.Prompts(), 1, "only the analysis call")
}

func TestReviewFileAutoFix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "import os\nprint('hi')\n")

	gen := agent.NewMockGenerator("```python\nprint('hi')\n```")
	gen.AnalysisFunc = issuesAnalysis

	res := NewReviewer(gen, nil).ReviewFile(context.Background(), path, true)
	require.True(t, res.Success)
	assert.True(t, res.Fixed)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, Change{File: path, Backup: path + BackupSuffix, IssuesFixed: 2}, res.Changes[0])

	fixed, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", string(fixed))

	backup, err := os.ReadFile(path + BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, "import os\nprint('hi')\n", string(backup))

	assert.Equal(t, 1, gen.PromptsContaining("high issue: unused import"))
	assert.Equal(t, 1, gen.PromptsContaining("low issue: missing docstring"))
}

func TestReviewFileAutoFixWithoutReview(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "import os")

	gen := agent.NewMockGenerator("reviewed only")
	gen.AnalysisFunc = issuesAnalysis
	res := NewReviewer(gen, nil).ReviewFile(context.Background(), path, false)
	assert.True(t, res.HasIssues())
	assert.False(t, res.Fixed)
	assert.Equal(t, 0, gen.PromptsContaining("ISSUES TO FIX"))
}

func TestReviewFileAutoFixUnchangedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "print('hi')")

	gen := agent.NewMockGenerator("print('hi')")
	gen.AnalysisFunc = issuesAnalysis
	res := NewReviewer(gen, nil).ReviewFile(context.Background(), path, true)
	assert.True(t, res.Success)
	assert.False(t, res.Fixed)
	assert.NoFileExists(t, path+BackupSuffix)
}

func TestReviewFileAutoFixGeneratorError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.py")
	writeFile(t, path, "print('hi')")

	gen := agent.NewMockGenerator()
	gen.AnalysisFunc = issuesAnalysis
	gen.TextFunc = func(string) (string, error) { return "", errors.New("quota exceeded") }

	res := NewReviewer(gen, nil).ReviewFile(context.Background(), path, true)
	assert.True(t, res.Success, "review is best-effort")
	assert.False(t, res.Fixed)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", string(data))
}

func TestListSourceFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.py"), "x")
	writeFile(t, filepath.Join(dir, "static", "main.JS"), "x")
	writeFile(t, filepath.Join(dir, "node_modules", "lib", "index.js"), "x")
	writeFile(t, filepath.Join(dir, ".git", "hooks", "pre-commit.py"), "x")
	writeFile(t, filepath.Join(dir, "README.md"), "x")
	writeFile(t, filepath.Join(dir, "app.py.bak"), "x")

	files, err := ListSourceFiles(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "app.py"),
		filepath.Join(dir, "static", "main.JS"),
	}, files)

	files, err = ListSourceFiles(dir, []string{".md"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "README.md")}, files)
}

func TestReviewDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "clean.py"), "print('ok')")
	writeFile(t, filepath.Join(dir, "dirty.py"), "import os")

	gen := agent.NewMockGenerator()
	gen.AnalysisFunc = func(code string) llm.Analysis {
		if strings.Contains(code, "import os") {
			return issuesAnalysis(code)
		}
		return llm.Analysis{QualityScore: "9"}
	}

	res := NewReviewer(gen, nil).ReviewDirectory(context.Background(), dir, []string{".py"}, false)
	require.True(t, res.Success)
	assert.Equal(t, 2, res.FilesReviewed)
	assert.Equal(t, 1, res.FilesWithIssues)
	assert.Zero(t, res.FilesFixed)
	assert.Len(t, res.Reviews, 2)

	missing := NewReviewer(gen, nil).ReviewDirectory(context.Background(), filepath.Join(dir, "nope"), nil, false)
	assert.False(t, missing.Success)
	assert.Contains(t, missing.Error, "Directory not found")
}

func TestSuggestImprovements(t *testing.T) {
	gen := agent.NewMockGenerator("Use f-strings.")
	res := NewReviewer(gen, nil).SuggestImprovements(context.Background(), "print('a' + b)", "")
	assert.True(t, res.Success)
	assert.Equal(t, "python", res.Language)
	assert.Equal(t, "Use f-strings.", res.Suggestions)
	assert.Equal(t, 1, gen.PromptsContaining("Best practices for python"))

	failing := agent.NewMockGenerator()
	res = NewReviewer(failing, nil).SuggestImprovements(context.Background(), "x", "go")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}
