package deploy

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeagent/pkg/exec"
	"codeagent/pkg/preflight"
)

// scriptedExecutor records shell commands and returns canned results.
type scriptedExecutor struct {
	commands []string
	exitCode map[string]int
	stderr   map[string]string
	effects  map[string]func(dir string)
}

func (s *scriptedExecutor) Run(_ context.Context, cmd []string, opts *exec.Opts) (exec.Result, error) {
	command := cmd[len(cmd)-1]
	s.commands = append(s.commands, command)
	if fn, ok := s.effects[command]; ok {
		fn(opts.WorkDir)
	}
	return exec.Result{ExitCode: s.exitCode[command], Stderr: s.stderr[command]}, nil
}

func (s *scriptedExecutor) Name() exec.ExecutorType { return "scripted" }
func (s *scriptedExecutor) Available() bool         { return true }

func allToolsPresent(_ context.Context, tools ...string) *preflight.Results {
	res := &preflight.Results{Passed: true}
	for _, tool := range tools {
		res.Checks = append(res.Checks, preflight.CheckResult{Name: tool, Kind: preflight.KindTool, Passed: true})
	}
	return res
}

func newTestDeployer(t *testing.T, dir string, fake *scriptedExecutor, opts ...Option) *Deployer {
	t.Helper()
	runner := exec.NewRunner(t.TempDir(), exec.WithExecutor(fake), exec.WithOutput(&bytes.Buffer{}))
	opts = append([]Option{WithToolCheck(allToolsPresent)}, opts...)
	d, err := NewDeployer(dir, runner, opts...)
	require.NoError(t, err)
	assert.Equal(t, dir, runner.WorkDir())
	return d
}

func TestNewDeployerMissingDir(t *testing.T) {
	_, err := NewDeployer(filepath.Join(t.TempDir(), "nope"), exec.NewRunner(""))
	assert.Error(t, err)
}

func TestPrepareUnknown(t *testing.T) {
	fake := &scriptedExecutor{}
	res := newTestDeployer(t, t.TempDir(), fake).Prepare(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, TypeUnknown, res.ProjectType)
	assert.Contains(t, res.Message, "Unknown project type")
	assert.Empty(t, fake.commands)
}

func TestPrepareMissingToolchain(t *testing.T) {
	dir := makeProject(t, map[string]string{"package.json": "{}"})
	fake := &scriptedExecutor{}
	var asked []string
	check := func(_ context.Context, tools ...string) *preflight.Results {
		asked = tools
		return &preflight.Results{Checks: []preflight.CheckResult{
			{Name: "npm", Kind: preflight.KindTool, Message: "npm is not installed or not on PATH"},
		}}
	}
	res := newTestDeployer(t, dir, fake, WithToolCheck(check)).Prepare(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, []string{preflight.ToolNPM}, asked)
	assert.Contains(t, res.Message, "Missing toolchain")
	assert.Contains(t, res.Message, "npm")
	assert.Empty(t, fake.commands)
}

func TestPrepareNode(t *testing.T) {
	tests := []struct {
		files map[string]string
		start string
		url   string
	}{
		{map[string]string{"package.json": "{}"}, "npm start", "http://localhost:3000"},
		{map[string]string{"package.json": "{}", "vite.config.js": ""}, "npm run dev", "http://localhost:5173"},
		{map[string]string{"package.json": "{}", "next.config.js": ""}, "npm run dev", "http://localhost:3000"},
		{map[string]string{"package.json": "{}", "angular.json": ""}, "npx ng serve", "http://localhost:4200"},
	}
	for _, tt := range tests {
		fake := &scriptedExecutor{}
		res := newTestDeployer(t, makeProject(t, tt.files), fake).Prepare(context.Background())
		require.True(t, res.Success, res.Message)
		assert.Equal(t, []string{"npm install"}, fake.commands)
		assert.Equal(t, tt.start, res.StartCommand)
		assert.Equal(t, tt.url, res.URL)
		assert.Len(t, res.Commands, 1)
	}
}

func TestPrepareNodeInstallFails(t *testing.T) {
	fake := &scriptedExecutor{
		exitCode: map[string]int{"npm install": 1},
		stderr:   map[string]string{"npm install": "ERESOLVE unable to resolve dependency tree\n"},
	}
	res := newTestDeployer(t, makeProject(t, map[string]string{"package.json": "{}"}), fake).Prepare(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "Failed to install dependencies: ERESOLVE unable to resolve dependency tree", res.Message)
	assert.Contains(t, res.Stderr, "ERESOLVE")
}

func TestPrepareFlaskCreatesRequirements(t *testing.T) {
	dir := makeProject(t, map[string]string{"server.py": "from flask import Flask\napp = Flask(__name__)\n"})
	fake := &scriptedExecutor{}
	res := newTestDeployer(t, dir, fake).Prepare(context.Background())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, TypeFlask, res.ProjectType)

	reqs, err := os.ReadFile(filepath.Join(dir, "requirements.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(reqs), "Flask>=2.3.2")

	pip := venvBinary("pip")
	assert.Equal(t, []string{"python3 -m venv venv || python -m venv venv", pip + " install -r requirements.txt"}, fake.commands)
	assert.Contains(t, res.StartCommand, "FLASK_APP=server.py")
	assert.Contains(t, res.StartCommand, "-m flask run")
	assert.Equal(t, "http://localhost:5000", res.URL)
}

func TestPrepareExistingVenvIsReused(t *testing.T) {
	dir := makeProject(t, map[string]string{
		"manage.py":        "import django",
		"requirements.txt": "Django",
		"venv/pyvenv.cfg":  "home = /usr/bin",
	})
	fake := &scriptedExecutor{}
	res := newTestDeployer(t, dir, fake).Prepare(context.Background())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, []string{venvBinary("pip") + " install -r requirements.txt"}, fake.commands)
	assert.Equal(t, venvBinary("python")+" manage.py runserver", res.StartCommand)
	assert.Equal(t, "http://localhost:8000", res.URL)
}

func TestPrepareFastAPI(t *testing.T) {
	dir := makeProject(t, map[string]string{"api.py": "from fastapi import FastAPI\napp = FastAPI()\n"})
	fake := &scriptedExecutor{}
	res := newTestDeployer(t, dir, fake).Prepare(context.Background())
	require.True(t, res.Success, res.Message)
	assert.Contains(t, fake.commands, venvBinary("pip")+" install uvicorn")
	assert.Equal(t, venvBinary("python")+" -m uvicorn api:app --reload", res.StartCommand)
}

func TestPreparePlainPython(t *testing.T) {
	dir := makeProject(t, map[string]string{"tool.py": "def main():\n    pass\n"})
	res := newTestDeployer(t, dir, &scriptedExecutor{}).Prepare(context.Background())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, venvBinary("python")+" tool.py", res.StartCommand)
	assert.Empty(t, res.URL)

	noMain := makeProject(t, map[string]string{"lib.py": "X = 1\n"})
	res = newTestDeployer(t, noMain, &scriptedExecutor{}).Prepare(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "Could not find a main Python file to run.", res.Message)
}

func TestPrepareGo(t *testing.T) {
	binary := "app"
	if runtime.GOOS == "windows" {
		binary = "app.exe"
	}
	dir := makeProject(t, map[string]string{
		"go.mod":  "module demo",
		"main.go": "package main\nfunc main() { http.ListenAndServe(\":8080\", nil) }\n",
	})
	fake := &scriptedExecutor{effects: map[string]func(string){
		"go build -o " + binary: func(wd string) {
			_ = os.WriteFile(filepath.Join(wd, binary), []byte("bin"), 0755)
		},
	}}
	res := newTestDeployer(t, dir, fake).Prepare(context.Background())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "."+string(filepath.Separator)+binary, res.StartCommand)
	assert.Equal(t, "http://localhost:8080", res.URL)

	missing := makeProject(t, map[string]string{"go.mod": "module demo"})
	res = newTestDeployer(t, missing, &scriptedExecutor{}).Prepare(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "Built application not found.", res.Message)
}

func TestPrepareMaven(t *testing.T) {
	dir := makeProject(t, map[string]string{"pom.xml": "<project/>"})
	fake := &scriptedExecutor{effects: map[string]func(string){
		"mvn clean package": func(wd string) {
			_ = os.MkdirAll(filepath.Join(wd, "target"), 0755)
			_ = os.WriteFile(filepath.Join(wd, "target", "demo-1.0.jar"), []byte("jar"), 0644)
		},
	}}
	res := newTestDeployer(t, dir, fake).Prepare(context.Background())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "java -jar "+filepath.Join("target", "demo-1.0.jar"), res.StartCommand)
	assert.Equal(t, "http://localhost:8080", res.URL)

	res = newTestDeployer(t, makeProject(t, map[string]string{"build.gradle": ""}), &scriptedExecutor{}).Prepare(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "No JAR files found after building the project.", res.Message)
}

func TestPrepareRust(t *testing.T) {
	dir := makeProject(t, map[string]string{"Cargo.toml": "[dependencies]\nactix-web = \"4\"\n"})
	fake := &scriptedExecutor{}
	res := newTestDeployer(t, dir, fake).Prepare(context.Background())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, []string{"cargo build --release"}, fake.commands)
	assert.Equal(t, "cargo run --release", res.StartCommand)
	assert.Equal(t, "http://localhost:8080", res.URL)
}
