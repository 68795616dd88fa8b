package exec

import (
	"path/filepath"
	"strings"
)

// Scaffolding CLIs that generate a whole project tree.
var codeGeneratorKeywords = []string{
	"create-react-app",
	"npx create-",
	"npm create ",
	"yarn create ",
	"pnpm create ",
	"vue create",
	"ng new",
	"django-admin startproject",
	"startproject",
	"rails new",
	"cargo new",
	"cargo generate",
	"dotnet new",
	"archetype:generate",
	"cookiecutter",
}

// Package-manager init commands. Together with the generators they form the
// project-creation class.
var projectInitKeywords = []string{
	"npm init",
	"yarn init",
	"pnpm init",
	"poetry new",
	"poetry init",
	"go mod init",
	"cargo init",
	"gradle init",
	"bundle init",
	"composer init",
	"uv init",
}

// Install and build steps. Together with project creation they form the
// long-running class.
var buildKeywords = []string{
	"npm install",
	"npm i ",
	"npm ci",
	"npm run build",
	"yarn install",
	"yarn add",
	"yarn build",
	"pnpm install",
	"pnpm add",
	"pip install",
	"pip3 install",
	"poetry install",
	"pipenv install",
	"mvn ",
	"gradle ",
	"./gradlew",
	"cargo build",
	"cargo install",
	"go build",
	"go mod download",
	"go install",
	"bundle install",
	"composer install",
}

func containsAny(command string, keywords []string) bool {
	lower := strings.ToLower(command)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// IsCodeGenerator reports whether command runs a project scaffolding tool.
func IsCodeGenerator(command string) bool {
	return containsAny(command, codeGeneratorKeywords)
}

// IsProjectCreation reports whether command creates a project: every code
// generator plus the package-manager init commands.
func IsProjectCreation(command string) bool {
	return IsCodeGenerator(command) || containsAny(command, projectInitKeywords)
}

// IsLongRunning reports whether command is expected to take a while: installs,
// builds and every project-creation command.
func IsLongRunning(command string) bool {
	return IsProjectCreation(command) || containsAny(command, buildKeywords)
}

func isCreateFamily(command string) bool {
	lower := strings.ToLower(command)
	return strings.Contains(lower, "create-react-app") || strings.Contains(lower, "npx create-")
}

// ExtractProjectName returns the project name a creation command would create,
// or "" when none can be found.
//
//   - create-react-app / npx create-*: the last token that is not a flag and not
//     the generator itself
//   - startproject: the token right after it
//   - init: the token right after it unless it is a long flag
func ExtractProjectName(command string) string {
	fields := strings.Fields(command)
	switch {
	case isCreateFamily(command):
		for i := len(fields) - 1; i >= 0; i-- {
			f := fields[i]
			if strings.HasPrefix(f, "-") || isGeneratorToken(f) || f == "npx" {
				continue
			}
			return f
		}
	case strings.Contains(command, "startproject"):
		if v := tokenAfter(fields, "startproject"); v != "" {
			return v
		}
	case strings.Contains(command, " init"):
		if v := tokenAfter(fields, "init"); v != "" && !strings.HasPrefix(v, "--") {
			return v
		}
	}
	return ""
}

func isGeneratorToken(f string) bool {
	return strings.HasPrefix(strings.ToLower(f), "create-")
}

func tokenAfter(fields []string, word string) string {
	for i, f := range fields {
		if f == word && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}

// RewriteProjectName points create-react-app style generators at the working
// directory: when the command names a project other than the directory's own
// name, that token is replaced with ".". It returns the command unchanged
// otherwise, and reports whether a rewrite happened.
func RewriteProjectName(command, workDir string) (string, bool) {
	if !isCreateFamily(command) {
		return command, false
	}
	name := ExtractProjectName(command)
	if name == "" || name == "." || name == filepath.Base(workDir) {
		return command, false
	}
	fields := strings.Fields(command)
	for i := len(fields) - 1; i >= 0; i-- {
		if fields[i] == name {
			fields[i] = "."
			break
		}
	}
	return strings.Join(fields, " "), true
}
