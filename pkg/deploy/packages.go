package deploy

import (
	"fmt"
	"path/filepath"
	"strings"

	"codeagent/pkg/utils"
)

// defaultRequirements seeds requirements.txt for Python projects that lack one.
var defaultRequirements = map[ProjectType][]string{
	TypeFlask:   {"Flask>=2.3.2", "Werkzeug>=2.3.6", "Jinja2>=3.1.2"},
	TypeDjango:  {"Django>=4.2.3", "djangorestframework>=3.14.0"},
	TypeFastAPI: {"fastapi>=0.100.0", "uvicorn>=0.22.0", "pydantic>=2.0.3"},
	TypePython:  {"requests>=2.31.0", "python-dotenv>=1.0.0"},
}

// ensureRequirements writes a basic requirements.txt when the project has none.
func ensureRequirements(dir string, t ProjectType) error {
	path := filepath.Join(dir, "requirements.txt")
	if utils.FileExists(path) {
		return nil
	}
	reqs, ok := defaultRequirements[t]
	if !ok {
		return nil
	}
	if err := utils.WriteFileAtomic(path, []byte(strings.Join(reqs, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to create requirements.txt: %w", err)
	}
	return nil
}
