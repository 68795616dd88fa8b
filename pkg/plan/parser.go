package plan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"codeagent/pkg/agent/llm"
)

// CombinedSplitRatio is where SplitCombined cuts a response that carries no marker.
const CombinedSplitRatio = 0.7

//nolint:gochecknoglobals // Static lookup tables
var (
	combinedMarkers = []string{
		"PART 2:",
		"DEVELOPMENT TASKS:",
		"## Development Tasks",
		"# Development Tasks",
		"**Development Tasks**",
	}
	firstTaskMarker = "Task ID: 1"
	digitsRe        = regexp.MustCompile(`\d+`)
)

type taskField int

const (
	fieldNone taskField = iota
	fieldID
	fieldName
	fieldDescription
	fieldComplexity
	fieldDependencies
	fieldCategory
)

// classifyKey maps a lower-cased key to a task field. Order matters:
// "task id" is checked before "task name" and the free-form keys.
func classifyKey(key string) taskField {
	switch {
	case strings.Contains(key, "task id") || key == "id":
		return fieldID
	case strings.Contains(key, "task name") || key == "name":
		return fieldName
	case strings.Contains(key, "description"):
		return fieldDescription
	case strings.Contains(key, "complexity"):
		return fieldComplexity
	case strings.Contains(key, "dependencies"):
		return fieldDependencies
	case strings.Contains(key, "category"):
		return fieldCategory
	default:
		return fieldNone
	}
}

// splitKeyValue splits on the first colon.
func splitKeyValue(line string) (key, value string, ok bool) {
	k, v, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	return strings.ToLower(strings.TrimSpace(k)), strings.TrimSpace(v), true
}

type taskDraft struct {
	Task
	hasID, hasName, hasDescription bool
}

func (d *taskDraft) set(f taskField, value string) {
	switch f {
	case fieldID:
		d.ID, d.hasID = value, true
	case fieldName:
		d.Name, d.hasName = value, true
	case fieldDescription:
		d.Description, d.hasDescription = value, true
	case fieldComplexity:
		d.Complexity = value
	case fieldDependencies:
		d.Dependencies = value
	case fieldCategory:
		d.Category = value
	case fieldNone:
	}
}

// ParseTasks extracts task records from model output. Blank-line separated
// "key: value" blocks are tried first; when none qualify, a line scan treats
// "Task ID:" (or "1.") lines as task starts. It never fails; the result is
// empty when nothing could be parsed.
func ParseTasks(text string) []Task {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	drafts := parseTaskBlocks(text)
	if len(drafts) == 0 {
		drafts = scanTaskLines(text)
	}

	tasks := make([]Task, 0, len(drafts))
	for i := range drafts {
		tasks = append(tasks, drafts[i].finish())
	}
	return tasks
}

func parseTaskBlocks(text string) []taskDraft {
	var drafts []taskDraft
	for _, block := range strings.Split(text, "\n\n") {
		var d taskDraft
		for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if key, value, ok := splitKeyValue(line); ok {
				d.set(classifyKey(key), value)
			}
		}
		if d.hasID && (d.hasName || d.hasDescription) {
			drafts = append(drafts, d)
		}
	}
	return drafts
}

func isTaskStart(line string) bool {
	if strings.HasPrefix(line, "Task ID:") || strings.HasPrefix(line, "1.") {
		return true
	}
	lower := strings.ToLower(line)
	return strings.HasPrefix(lower, "task") && strings.Contains(lower, "id")
}

func scanTaskLines(text string) []taskDraft {
	var drafts []taskDraft
	var current *taskDraft

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isTaskStart(line) {
			if current != nil && current.hasID {
				drafts = append(drafts, *current)
			}
			current = &taskDraft{}
			switch {
			case strings.Contains(line, ":"):
				_, value, _ := strings.Cut(line, ":")
				current.set(fieldID, strings.TrimSpace(value))
			case digitsRe.MatchString(line):
				current.set(fieldID, digitsRe.FindString(line))
			default:
				current.set(fieldID, line)
			}
			continue
		}

		if current == nil {
			continue
		}
		if key, value, ok := splitKeyValue(line); ok {
			if f := classifyKey(key); f != fieldID {
				current.set(f, value)
			}
		}
	}
	if current != nil && current.hasID {
		drafts = append(drafts, *current)
	}
	return drafts
}

func (d *taskDraft) finish() Task {
	t := d.Task
	if t.Name == "" {
		t.Name = "Task " + t.ID
	}
	if t.Description == "" {
		t.Description = t.Name
	}
	t.Complexity = NormalizeComplexity(t.Complexity)
	return t
}

// NormalizeComplexity maps case variants of Low/Medium/High to their canonical
// spelling and empty values to Unknown. Anything else is kept as written.
func NormalizeComplexity(s string) string {
	s = strings.TrimSpace(s)
	for _, c := range []string{ComplexityLow, ComplexityMedium, ComplexityHigh, ComplexityUnknown} {
		if strings.EqualFold(s, c) {
			return c
		}
	}
	if s == "" {
		return ComplexityUnknown
	}
	return s
}

// ParsePlanSections splits plan text on lines that mention a canonical
// section header. Lines before the first header are dropped.
func ParsePlanSections(text string) map[string]string {
	sections := make(map[string]string)
	var current string
	var content []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isSectionHeader(line) {
			if current != "" {
				sections[current] = strings.Join(content, "\n")
			}
			current = line
			content = nil
			continue
		}
		if current != "" {
			content = append(content, line)
		}
	}
	if current != "" && len(content) > 0 {
		sections[current] = strings.Join(content, "\n")
	}
	return sections
}

func isSectionHeader(line string) bool {
	for _, header := range CanonicalSections {
		if containsFold(line, header) {
			return true
		}
	}
	return false
}

// SplitCombined cuts a combined plan-and-tasks response in two. The cut is
// placed at the first known part marker, else at "Task ID: 1", else at 70% of
// the text. plan+tasks always equals text.
func SplitCombined(text string) (planText, tasksText string) {
	if text == "" {
		return "", ""
	}
	for _, marker := range combinedMarkers {
		if idx := indexFold(text, marker); idx > 0 {
			return text[:idx], text[idx:]
		}
	}
	if idx := strings.Index(text, firstTaskMarker); idx > 0 {
		return text[:idx], text[idx:]
	}

	idx := int(float64(len(text)) * CombinedSplitRatio)
	for idx > 0 && !utf8.RuneStart(text[idx]) {
		idx--
	}
	if idx == 0 {
		// Single-rune input: advance past the first rune when there is more.
		_, size := utf8.DecodeRuneInString(text)
		if size < len(text) {
			idx = size
		}
	}
	return text[:idx], text[idx:]
}

// ParseExecutionPlan decodes the JSON object embedded in a task-scoped response.
func ParseExecutionPlan(text string) (ExecutionPlan, error) {
	var ep ExecutionPlan
	payload, ok := llm.ExtractJSON(text)
	if !ok {
		return ep, fmt.Errorf("no JSON object found in response")
	}
	if err := json.Unmarshal([]byte(payload), &ep); err != nil {
		return ep, fmt.Errorf("failed to decode execution plan: %w", err)
	}
	return ep, nil
}

func containsFold(s, substr string) bool {
	return indexFold(s, substr) >= 0
}

// indexFold is a case-insensitive strings.Index for ASCII needles.
func indexFold(s, substr string) int {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}
