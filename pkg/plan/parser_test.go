package plan

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseTasksSingleBlock(t *testing.T) {
	text := "Task ID: 1\nTask name: Init\nDescription: setup\nEstimated complexity: Low\nDependencies: None\nCategory: Setup"

	tasks := ParseTasks(text)
	require.Len(t, tasks, 1)
	assert.Equal(t, Task{
		ID:           "1",
		Name:         "Init",
		Description:  "setup",
		Complexity:   ComplexityLow,
		Dependencies: "None",
		Category:     "Setup",
	}, tasks[0])
}

func TestParseTasks(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantIDs []string
		check   func(t *testing.T, tasks []Task)
	}{
		{
			name:    "blank-line separated blocks",
			text:    "Task ID: 1\nTask name: A\n\nTask ID: 2\nTask name: B\n\nTask ID: 3\nDescription: only a description",
			wantIDs: []string{"1", "2", "3"},
			check: func(t *testing.T, tasks []Task) {
				assert.Equal(t, "Task 3", tasks[2].Name)
				assert.Equal(t, "only a description", tasks[2].Description)
			},
		},
		{
			name:    "key synonyms",
			text:    "ID: 7\nName: Seven\nComplexity: high",
			wantIDs: []string{"7"},
			check: func(t *testing.T, tasks []Task) {
				assert.Equal(t, "Seven", tasks[0].Name)
				assert.Equal(t, "Seven", tasks[0].Description)
				assert.Equal(t, ComplexityHigh, tasks[0].Complexity)
			},
		},
		{
			name:    "duplicate ids kept",
			text:    "Task ID: 1\nTask name: A\n\nTask ID: 1\nTask name: B",
			wantIDs: []string{"1", "1"},
		},
		{
			name:    "malformed blocks skipped",
			text:    "Here are your tasks\n\nTask ID: 1\nTask name: A\n\nTask name: orphan\n\nrandom text",
			wantIDs: []string{"1"},
		},
		{
			name:    "value keeps later colons",
			text:    "Task ID: 1\nTask name: Configure: database",
			wantIDs: []string{"1"},
			check: func(t *testing.T, tasks []Task) {
				assert.Equal(t, "Configure: database", tasks[0].Name)
			},
		},
		{
			name:    "line scan when no block has an id key",
			text:    "Task 1 id\nTask name: Setup\nTask 2 id\nTask name: Build",
			wantIDs: []string{"1", "2"},
			check: func(t *testing.T, tasks []Task) {
				assert.Equal(t, "Setup", tasks[0].Name)
				assert.Equal(t, "Build", tasks[1].Name)
			},
		},
		{
			name:    "line scan numeric id without colon",
			text:    "Task 4 id marker\nDescription: four",
			wantIDs: []string{"4"},
		},
		{
			name:    "line scan numbered first line",
			text:    "1. Set up repo\nDescription: init git",
			wantIDs: []string{"1"},
			check: func(t *testing.T, tasks []Task) {
				assert.Equal(t, "Task 1", tasks[0].Name)
				assert.Equal(t, "init git", tasks[0].Description)
			},
		},
		{
			name:    "empty name value is synthesized",
			text:    "Task ID: 9\nTask name:",
			wantIDs: []string{"9"},
			check: func(t *testing.T, tasks []Task) {
				assert.Equal(t, "Task 9", tasks[0].Name)
				assert.Equal(t, "Task 9", tasks[0].Description)
			},
		},
		{
			name:    "crlf input",
			text:    "Task ID: 1\r\nTask name: A\r\n\r\nTask ID: 2\r\nTask name: B",
			wantIDs: []string{"1", "2"},
		},
		{
			name: "nothing parseable",
			text: "I could not come up with tasks.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := ParseTasks(tt.text)
			ids := make([]string, 0, len(tasks))
			for _, task := range tasks {
				ids = append(ids, task.ID)
			}
			if len(tt.wantIDs) == 0 {
				assert.Empty(t, tasks)
			} else {
				assert.Equal(t, tt.wantIDs, ids)
			}
			if tt.check != nil {
				tt.check(t, tasks)
			}
		})
	}
}

func TestNormalizeComplexity(t *testing.T) {
	assert.Equal(t, ComplexityLow, NormalizeComplexity("low"))
	assert.Equal(t, ComplexityMedium, NormalizeComplexity(" MEDIUM "))
	assert.Equal(t, ComplexityUnknown, NormalizeComplexity(""))
	assert.Equal(t, "Low/Medium", NormalizeComplexity("Low/Medium"))
}

func TestParsePlanSections(t *testing.T) {
	text := `Intro line that is dropped
## 1. Project Overview
- Build a todo app

## 2. Technical Architecture
- Flask
- SQLite
3. Development Phases:
- Setup and foundation
- Core functionality`

	sections := ParsePlanSections(text)
	require.Len(t, sections, 3)
	assert.Equal(t, "- Build a todo app", sections["## 1. Project Overview"])
	assert.Equal(t, "- Flask\n- SQLite", sections["## 2. Technical Architecture"])
	assert.Equal(t, "- Setup and foundation\n- Core functionality", sections["3. Development Phases:"])

	p := &Plan{Sections: sections}
	content, ok := p.Section("technical architecture")
	assert.True(t, ok)
	assert.Contains(t, content, "Flask")
	_, ok = p.Section(SectionTesting)
	assert.False(t, ok)
}

func TestSplitCombined(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantPlan  string
		wantTasks string
	}{
		{"empty", "", "", ""},
		{"part marker", "plan body\nPART 2: DEVELOPMENT TASKS\nTask ID: 1", "plan body\n", "PART 2: DEVELOPMENT TASKS\nTask ID: 1"},
		{"marker case-insensitive", "plan\ndevelopment tasks:\nTask ID: 3", "plan\n", "development tasks:\nTask ID: 3"},
		{"first task marker", "plan body\nTask ID: 1\nTask name: A", "plan body\n", "Task ID: 1\nTask name: A"},
		{"positional", "0123456789", "0123456", "789"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, tasks := SplitCombined(tt.text)
			assert.Equal(t, tt.wantPlan, plan)
			assert.Equal(t, tt.wantTasks, tasks)
		})
	}
}

func TestParseExecutionPlan(t *testing.T) {
	text := "Sure!\n```json\n{\"commands\": [{\"command\": \"pip install flask\", \"description\": \"deps\"}], " +
		"\"code_changes\": [{\"file_path\": \"app.py\", \"description\": \"Flask app\"}]}\n```"
	ep, err := ParseExecutionPlan(text)
	require.NoError(t, err)
	require.Len(t, ep.Commands, 1)
	assert.Equal(t, "pip install flask", ep.Commands[0].Command)
	require.Len(t, ep.CodeChanges, 1)
	assert.Equal(t, "app.py", ep.CodeChanges[0].FilePath)

	_, err = ParseExecutionPlan("no json here")
	require.Error(t, err)
	_, err = ParseExecutionPlan("{not json}")
	require.Error(t, err)
}

func TestParseTasksNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		tasks := ParseTasks(text)
		for _, task := range tasks {
			if task.Name == "" || task.Description == "" {
				t.Fatalf("task without name or description: %+v", task)
			}
		}
	})
}

func TestParseTasksCountsWellFormedBlocks(t *testing.T) {
	word := rapid.StringMatching(`[A-Za-z]{1,10}( [A-Za-z]{1,10}){0,3}`)
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "n")
		ids := make([]string, n)
		blocks := make([]string, n)
		for i := 0; i < n; i++ {
			ids[i] = fmt.Sprint(rapid.IntRange(1, 999).Draw(t, "id"))
			blocks[i] = fmt.Sprintf("Task ID: %s\nTask name: %s\nDescription: %s\nEstimated complexity: %s\nDependencies: None\nCategory: Setup",
				ids[i], word.Draw(t, "name"), word.Draw(t, "desc"),
				rapid.SampledFrom([]string{"Low", "Medium", "High"}).Draw(t, "complexity"))
		}
		tasks := ParseTasks(strings.Join(blocks, "\n\n"))
		if len(tasks) != n {
			t.Fatalf("expected %d tasks, got %d", n, len(tasks))
		}
		for i := range tasks {
			if tasks[i].ID != ids[i] {
				t.Fatalf("task %d: expected id %s, got %s", i, ids[i], tasks[i].ID)
			}
		}
	})
}

func TestSplitCombinedPartitions(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		plan, tasks := SplitCombined(text)
		if plan+tasks != text {
			t.Fatalf("split does not partition input")
		}
		if len(text) > 0 && tasks == "" {
			t.Fatalf("empty task half for non-empty input")
		}
	})
}
