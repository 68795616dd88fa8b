package plan

import (
	"regexp"
	"strings"
)

// DefaultProjectName is used when the description has no "project name:" line.
const DefaultProjectName = "unnamed-project"

//nolint:gochecknoglobals // Compiled once
var (
	projectNameRe = regexp.MustCompile(`(?i)project name:?\s*([^\n]+)`)
	technologyRe  = regexp.MustCompile(`(?i)technologies?:?\s*([^\n]+)`)
	featuresRe    = regexp.MustCompile(`(?is)features?:?\s*(.+?)(?:\n\n|\n[a-z]|$)`)
	listItemRe    = regexp.MustCompile(`(?:^|\n)(?:[-*]|\d+\.)\s*([^\n]+)`)
	listSplitRe   = regexp.MustCompile(`[,;]`)
)

// ParseProjectDescription extracts the project name, technologies and features
// by scanning for labelled fields. It never fails.
func ParseProjectDescription(description string) ProjectDescription {
	pd := ProjectDescription{
		ProjectName:    DefaultProjectName,
		Technologies:   []string{},
		Features:       []string{},
		RawDescription: description,
	}

	if m := projectNameRe.FindStringSubmatch(description); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			pd.ProjectName = name
		}
	}

	if m := technologyRe.FindStringSubmatch(description); m != nil {
		for _, tech := range listSplitRe.Split(strings.TrimSpace(m[1]), -1) {
			pd.Technologies = append(pd.Technologies, strings.TrimSpace(tech))
		}
	}

	if m := featuresRe.FindStringSubmatch(description); m != nil {
		text := strings.TrimSpace(m[1])
		pd.Features = listItems(text)
		if len(pd.Features) == 0 {
			for _, line := range strings.Split(text, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					pd.Features = append(pd.Features, line)
				}
			}
		}
	}

	return pd
}

// listItems returns the text of bullet ("-", "*") and numbered ("1.") list lines.
func listItems(text string) []string {
	var items []string
	for _, m := range listItemRe.FindAllStringSubmatch(text, -1) {
		items = append(items, strings.TrimSpace(m[1]))
	}
	return items
}
