package plan

import (
	"fmt"
	"strings"

	"github.com/gammazero/toposort"
)

// DependencyIDs returns the task ids named in t.Dependencies. "None", "N/A"
// and "-" mean no dependencies; a "Task " prefix on an id is dropped.
func DependencyIDs(t Task) []string {
	var ids []string
	for _, part := range strings.Split(t.Dependencies, ",") {
		part = strings.TrimSpace(part)
		switch strings.ToLower(part) {
		case "", "none", "n/a", "-":
			continue
		}
		if len(part) > 5 && strings.EqualFold(part[:5], "task ") {
			part = strings.TrimSpace(part[5:])
		}
		ids = append(ids, part)
	}
	return ids
}

// CheckDependencies reports unknown dependency ids, forward references and
// cycles. Tasks always run in list order; the report is informational.
func CheckDependencies(tasks []Task) []string {
	var warnings []string
	position := make(map[string]int, len(tasks))
	for i := range tasks {
		if _, seen := position[tasks[i].ID]; !seen {
			position[tasks[i].ID] = i
		}
	}

	var edges []toposort.Edge
	for i := range tasks {
		for _, dep := range DependencyIDs(tasks[i]) {
			pos, known := position[dep]
			switch {
			case !known:
				warnings = append(warnings, fmt.Sprintf("task %s depends on unknown task %s", tasks[i].ID, dep))
				continue
			case pos > i:
				warnings = append(warnings, fmt.Sprintf("task %s depends on task %s which runs later", tasks[i].ID, dep))
			}
			edges = append(edges, toposort.Edge{dep, tasks[i].ID})
		}
	}

	if len(edges) > 0 {
		if _, err := toposort.Toposort(edges); err != nil {
			warnings = append(warnings, fmt.Sprintf("task dependencies contain a cycle: %v", err))
		}
	}
	return warnings
}
