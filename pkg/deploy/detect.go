package deploy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"codeagent/pkg/utils"
)

// ProjectType identifies how a project is installed and started.
type ProjectType string

// Detected project types.
const (
	TypeAngular ProjectType = "angular"
	TypeNextJS  ProjectType = "nextjs"
	TypeVite    ProjectType = "vite"
	TypeReact   ProjectType = "react"
	TypeNodeJS  ProjectType = "nodejs"
	TypeDjango  ProjectType = "django"
	TypeFlask   ProjectType = "flask"
	TypeFastAPI ProjectType = "fastapi"
	TypePython  ProjectType = "python"
	TypeMaven   ProjectType = "java-maven"
	TypeGradle  ProjectType = "java-gradle"
	TypeRust    ProjectType = "rust"
	TypeGo      ProjectType = "go"
	TypeUnknown ProjectType = "unknown"
)

// IsNode reports whether t is installed with npm.
func (t ProjectType) IsNode() bool {
	switch t {
	case TypeAngular, TypeNextJS, TypeVite, TypeReact, TypeNodeJS:
		return true
	}
	return false
}

// IsPython reports whether t runs from a virtual environment.
func (t ProjectType) IsPython() bool {
	switch t {
	case TypeDjango, TypeFlask, TypeFastAPI, TypePython:
		return true
	}
	return false
}

// Detect inspects the files at the top of dir. Node markers win over Python,
// Python over JVM, Rust and Go.
func Detect(dir string) ProjectType {
	has := func(name string) bool { return utils.FileExists(filepath.Join(dir, name)) }

	if has("package.json") {
		switch {
		case has("angular.json"):
			return TypeAngular
		case has("next.config.js") || has("next.config.ts") || has("next.config.mjs"):
			return TypeNextJS
		case has("vite.config.js") || has("vite.config.ts"):
			return TypeVite
		case has("react-scripts") || hasNodeDependency(dir, "react-scripts"):
			return TypeReact
		default:
			return TypeNodeJS
		}
	}

	if has("requirements.txt") || len(globFiles(dir, "*.py")) > 0 {
		switch {
		case has("manage.py"):
			return TypeDjango
		case findFileContaining(dir, "*.py", "flask", true) != "":
			return TypeFlask
		case findFileContaining(dir, "*.py", "fastapi", true) != "":
			return TypeFastAPI
		default:
			return TypePython
		}
	}

	switch {
	case has("pom.xml"):
		return TypeMaven
	case has("build.gradle") || has("build.gradle.kts"):
		return TypeGradle
	case has("Cargo.toml"):
		return TypeRust
	case has("go.mod"):
		return TypeGo
	}
	return TypeUnknown
}

func hasNodeDependency(dir, name string) bool {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return false
	}
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return false
	}
	_, dep := pkg.Dependencies[name]
	_, dev := pkg.DevDependencies[name]
	return dep || dev
}

func globFiles(dir, pattern string) []string {
	matches, _ := filepath.Glob(filepath.Join(dir, pattern))
	var files []string
	for _, m := range matches {
		if utils.FileExists(m) {
			files = append(files, m)
		}
	}
	return files
}

// findFileContaining returns the base name of the first file matching pattern
// whose content contains needle, or "".
func findFileContaining(dir, pattern, needle string, foldCase bool) string {
	if foldCase {
		needle = strings.ToLower(needle)
	}
	for _, path := range globFiles(dir, pattern) {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		content := string(data)
		if foldCase {
			content = strings.ToLower(content)
		}
		if strings.Contains(content, needle) {
			return filepath.Base(path)
		}
	}
	return ""
}
