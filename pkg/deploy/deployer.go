// Package deploy prepares a generated project for local use: it detects the
// project type, checks the toolchain, installs dependencies through the
// command runner and works out how to start the server.
package deploy

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"codeagent/pkg/exec"
	"codeagent/pkg/logx"
	"codeagent/pkg/preflight"
	"codeagent/pkg/utils"
)

// Result is the outcome of preparing a project.
//
//nolint:govet // JSON field order mirrors the event log
type Result struct {
	Success      bool                  `json:"success"`
	Message      string                `json:"message"`
	ProjectType  ProjectType           `json:"project_type"`
	URL          string                `json:"url,omitempty"`
	StartCommand string                `json:"start_command,omitempty"`
	Stderr       string                `json:"stderr,omitempty"`
	Commands     []*exec.CommandResult `json:"commands,omitempty"`
	Launch       *LaunchResult         `json:"launch,omitempty"`
}

// ToolCheck verifies toolchains before anything is installed.
type ToolCheck func(ctx context.Context, tools ...string) *preflight.Results

// Option configures a Deployer.
type Option func(*Deployer)

// WithToolCheck replaces preflight.RequireTools.
func WithToolCheck(check ToolCheck) Option {
	return func(d *Deployer) { d.checkTools = check }
}

// WithSettleTime sets how long Launch waits before probing the server.
func WithSettleTime(d time.Duration) Option {
	return func(dep *Deployer) { dep.settle = d }
}

// WithLogger sets the logger.
func WithLogger(l *logx.Logger) Option {
	return func(d *Deployer) { d.logger = l }
}

// Deployer prepares and optionally launches one project directory.
type Deployer struct {
	runner     *exec.Runner
	checkTools ToolCheck
	logger     *logx.Logger
	dir        string
	settle     time.Duration
}

// NewDeployer creates a deployer for dir. Commands run through runner, whose
// working directory is moved to dir.
func NewDeployer(dir string, runner *exec.Runner, opts ...Option) (*Deployer, error) {
	if !utils.DirExists(dir) {
		return nil, fmt.Errorf("project directory not found: %s", dir)
	}
	runner.SetWorkDir(dir)
	d := &Deployer{
		runner:     runner,
		checkTools: preflight.RequireTools,
		logger:     logx.NewLogger("deploy"),
		dir:        dir,
		settle:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// requiredTools maps a project type to the toolchains its install step needs.
func requiredTools(t ProjectType) []string {
	switch {
	case t.IsNode():
		return []string{preflight.ToolNPM}
	case t.IsPython():
		return []string{preflight.ToolPython}
	}
	switch t {
	case TypeMaven:
		return []string{preflight.ToolJava, preflight.ToolMaven}
	case TypeGradle:
		return []string{preflight.ToolJava, preflight.ToolGradle}
	case TypeRust:
		return []string{preflight.ToolCargo}
	case TypeGo:
		return []string{preflight.ToolGo}
	}
	return nil
}

// Prepare installs dependencies (or builds) and reports the start command.
// It does not start the server; see Launch.
func (d *Deployer) Prepare(ctx context.Context) *Result {
	projectType := Detect(d.dir)
	d.logger.Info("🔎 Detected project type: %s", projectType)
	result := &Result{ProjectType: projectType}

	if projectType == TypeUnknown {
		result.Message = "Unknown project type. Could not determine how to deploy."
		return result
	}

	if checks := d.checkTools(ctx, requiredTools(projectType)...); !checks.Passed {
		var missing []string
		for _, c := range checks.Failed() {
			missing = append(missing, c.Message)
		}
		result.Message = "Missing toolchain: " + strings.Join(missing, "; ")
		return result
	}

	if projectType.IsPython() {
		if err := ensureRequirements(d.dir, projectType); err != nil {
			result.Message = err.Error()
			return result
		}
	}

	switch {
	case projectType.IsNode():
		d.prepareNode(ctx, result)
	case projectType.IsPython():
		d.preparePython(ctx, result)
	case projectType == TypeMaven || projectType == TypeGradle:
		d.prepareJava(ctx, result)
	case projectType == TypeRust:
		d.prepareRust(ctx, result)
	case projectType == TypeGo:
		d.prepareGo(ctx, result)
	}

	if result.Success {
		d.logger.Info("✅ %s", result.Message)
	} else {
		d.logger.Warn("❌ Deployment failed: %s", result.Message)
	}
	return result
}

// run executes one step and records it; it returns false when the step failed.
func (d *Deployer) run(ctx context.Context, result *Result, command, failure string) bool {
	res := d.runner.Run(ctx, command, true, 0)
	result.Commands = append(result.Commands, res)
	if res.Success {
		return true
	}
	detail := strings.TrimSpace(res.Stderr)
	if detail == "" {
		detail = res.Error
	}
	result.Stderr = res.Stderr
	result.Message = fmt.Sprintf("%s: %s", failure, detail)
	return false
}

func (d *Deployer) prepareNode(ctx context.Context, result *Result) {
	if !d.run(ctx, result, "npm install", "Failed to install dependencies") {
		return
	}
	switch result.ProjectType {
	case TypeNextJS:
		result.StartCommand, result.URL = "npm run dev", "http://localhost:3000"
	case TypeVite:
		result.StartCommand, result.URL = "npm run dev", "http://localhost:5173"
	case TypeAngular:
		result.StartCommand, result.URL = "npx ng serve", "http://localhost:4200"
	default:
		result.StartCommand, result.URL = "npm start", "http://localhost:3000"
	}
	result.Success = true
	result.Message = fmt.Sprintf("Dependencies installed successfully. To start the server, run: '%s' in the project directory.", result.StartCommand)
}

func venvBinary(name string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join("venv", "Scripts", name)
	}
	return filepath.Join("venv", "bin", name)
}

func (d *Deployer) preparePython(ctx context.Context, result *Result) {
	python, pip := venvBinary("python"), venvBinary("pip")

	if !utils.DirExists(filepath.Join(d.dir, "venv")) {
		if !d.run(ctx, result, "python3 -m venv venv || python -m venv venv", "Failed to create virtual environment") {
			return
		}
	}
	if !d.run(ctx, result, pip+" install -r requirements.txt", "Failed to install dependencies") {
		return
	}

	switch result.ProjectType {
	case TypeFlask:
		app := findFileContaining(d.dir, "*.py", "Flask(__name__)", false)
		if app == "" {
			app = "app.py"
		}
		if runtime.GOOS == "windows" {
			result.StartCommand = fmt.Sprintf("set FLASK_APP=%s && %s -m flask run", app, python)
		} else {
			result.StartCommand = fmt.Sprintf("FLASK_APP=%s %s -m flask run", app, python)
		}
		result.URL = "http://localhost:5000"
	case TypeFastAPI:
		app := findFileContaining(d.dir, "*.py", "FastAPI(", false)
		if app == "" {
			app = "main.py"
		}
		if !d.run(ctx, result, pip+" install uvicorn", "Failed to install uvicorn") {
			return
		}
		result.StartCommand = fmt.Sprintf("%s -m uvicorn %s:app --reload", python, strings.TrimSuffix(app, ".py"))
		result.URL = "http://localhost:8000"
	case TypeDjango:
		result.StartCommand = python + " manage.py runserver"
		result.URL = "http://localhost:8000"
	default:
		mainFile := findFileContaining(d.dir, "*.py", `if __name__ == "__main__"`, false)
		if mainFile == "" {
			mainFile = findFileContaining(d.dir, "*.py", "def main(", false)
		}
		if mainFile == "" {
			result.Message = "Could not find a main Python file to run."
			return
		}
		result.StartCommand = python + " " + mainFile
	}
	result.Success = true
	result.Message = fmt.Sprintf("Virtual environment created and dependencies installed successfully. To start the server, run: '%s' in the project directory.", result.StartCommand)
}

func (d *Deployer) prepareJava(ctx context.Context, result *Result) {
	build, jarDir := "mvn clean package", "target"
	if result.ProjectType == TypeGradle {
		build, jarDir = "gradle build", filepath.Join("build", "libs")
	}
	if !d.run(ctx, result, build, "Failed to build the project") {
		return
	}
	jars := globFiles(filepath.Join(d.dir, jarDir), "*.jar")
	if len(jars) == 0 {
		result.Message = "No JAR files found after building the project."
		return
	}
	rel, err := filepath.Rel(d.dir, jars[0])
	if err != nil {
		rel = jars[0]
	}
	result.StartCommand = "java -jar " + rel
	result.URL = "http://localhost:8080"
	result.Success = true
	result.Message = fmt.Sprintf("Project built successfully. To start the server, run: '%s' in the project directory.", result.StartCommand)
}

func (d *Deployer) prepareRust(ctx context.Context, result *Result) {
	if !d.run(ctx, result, "cargo build --release", "Failed to build the project") {
		return
	}
	result.StartCommand = "cargo run --release"
	for _, framework := range []string{"actix-web", "rocket", "warp", "axum"} {
		if findFileContaining(d.dir, "Cargo.toml", framework, true) != "" {
			result.URL = "http://localhost:8080"
			break
		}
	}
	result.Success = true
	result.Message = fmt.Sprintf("Project built successfully. To start it, run: '%s' in the project directory.", result.StartCommand)
}

func (d *Deployer) prepareGo(ctx context.Context, result *Result) {
	binary := "app"
	if runtime.GOOS == "windows" {
		binary = "app.exe"
	}
	if !d.run(ctx, result, "go build -o "+binary, "Failed to build the project") {
		return
	}
	if !utils.FileExists(filepath.Join(d.dir, binary)) {
		result.Message = "Built application not found."
		return
	}
	result.StartCommand = "." + string(filepath.Separator) + binary
	for _, marker := range []string{"http.ListenAndServe", "gin.New", "gin.Default", "echo.New"} {
		if findFileContaining(d.dir, "*.go", marker, false) != "" {
			result.URL = "http://localhost:8080"
			break
		}
	}
	result.Success = true
	result.Message = fmt.Sprintf("Project built successfully. To start it, run: '%s' in the project directory.", result.StartCommand)
}
