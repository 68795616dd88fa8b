package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProjectDescription(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantName     string
		wantTech     []string
		wantFeatures []string
	}{
		{
			name:         "free text",
			text:         "Create a simple Flask app with one page",
			wantName:     DefaultProjectName,
			wantTech:     []string{},
			wantFeatures: []string{},
		},
		{
			name:         "labelled fields with bullets",
			text:         "Project name: todo-api\nTechnologies: Go, SQLite; Docker\nFeatures:\n- create todos\n- list todos\n\nExtra notes",
			wantName:     "todo-api",
			wantTech:     []string{"Go", "SQLite", "Docker"},
			wantFeatures: []string{"create todos", "list todos"},
		},
		{
			name:         "numbered features",
			text:         "Features:\n1. login\n2. signup",
			wantName:     DefaultProjectName,
			wantTech:     []string{},
			wantFeatures: []string{"login", "signup"},
		},
		{
			name:         "inline features without bullets",
			text:         "Features: search and export",
			wantName:     DefaultProjectName,
			wantTech:     []string{},
			wantFeatures: []string{"search and export"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pd := ParseProjectDescription(tt.text)
			assert.Equal(t, tt.wantName, pd.ProjectName)
			assert.Equal(t, tt.wantTech, pd.Technologies)
			assert.Equal(t, tt.wantFeatures, pd.Features)
			assert.Equal(t, tt.text, pd.RawDescription)
		})
	}
}
