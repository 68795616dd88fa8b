package coder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"codeagent/pkg/agent/llm"
	"codeagent/pkg/codegen"
	"codeagent/pkg/config"
	"codeagent/pkg/console"
	"codeagent/pkg/deploy"
	"codeagent/pkg/editor"
	"codeagent/pkg/eventlog"
	"codeagent/pkg/exec"
	"codeagent/pkg/git"
	"codeagent/pkg/logx"
	"codeagent/pkg/metrics"
	"codeagent/pkg/persistence"
	"codeagent/pkg/plan"
	"codeagent/pkg/review"
	"codeagent/pkg/state"
)

// Option configures a CodeAgent.
type Option func(*CodeAgent)

// WithConsole sets where operator output goes. Defaults to console.Discard().
func WithConsole(c *console.Console) Option {
	return func(a *CodeAgent) { a.out = c }
}

// WithAudit attaches the sqlite audit store. Its current session receives
// every command, file and task run.
func WithAudit(store *persistence.Store) Option {
	return func(a *CodeAgent) { a.audit = store }
}

// WithMetrics attaches the Prometheus recorder for command, git and task
// counters.
func WithMetrics(rec *metrics.PrometheusRecorder) Option {
	return func(a *CodeAgent) { a.metrics = rec }
}

// WithEventStream mirrors the session log to a JSONL file.
func WithEventStream(w *eventlog.Writer) Option {
	return func(a *CodeAgent) { a.stream = w }
}

// WithExecutor replaces the local shell executor.
func WithExecutor(e exec.Executor) Option {
	return func(a *CodeAgent) { a.executor = e }
}

// WithGitRunner replaces the git CLI runner.
func WithGitRunner(r git.Runner) Option {
	return func(a *CodeAgent) { a.gitRunner = r }
}

// WithToolCheck replaces the deploy toolchain preflight.
func WithToolCheck(check deploy.ToolCheck) Option {
	return func(a *CodeAgent) { a.toolCheck = check }
}

// WithEditor replaces the editor launcher.
func WithEditor(l *editor.Launcher) Option {
	return func(a *CodeAgent) { a.editor = l }
}

// CodeAgent drives one project from description to deployment. Each phase is
// an explicit method call; callers may invoke them in any order, and phases
// that need an earlier one report it in their result.
type CodeAgent struct {
	gen    llm.TextGenerator
	cfg    *config.Config
	logger *logx.Logger
	out    *console.Console

	planner      *plan.Planner
	runner       *exec.Runner
	materializer *codegen.Materializer
	reviewer     *review.Reviewer
	editor       *editor.Launcher
	log          *eventlog.Log

	audit     *persistence.Store
	metrics   *metrics.PrometheusRecorder
	stream    *eventlog.Writer
	executor  exec.Executor
	gitRunner git.Runner
	toolCheck deploy.ToolCheck

	outputDir string

	mu          sync.Mutex
	description *plan.ProjectDescription
	plan        *plan.Plan
	tasks       []plan.Task
	currentTask *plan.Task
	projectName string
	projectDir  string
	phase       state.Phase
	repo        *git.Repo
	store       *state.Store
	server      *exec.Process
}

// New creates an agent generating into cfg.OutputDir.
func New(gen llm.TextGenerator, cfg *config.Config, opts ...Option) (*CodeAgent, error) {
	if gen == nil {
		return nil, fmt.Errorf("text generator is required")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	outputDir, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	a := &CodeAgent{
		gen:       gen,
		cfg:       cfg,
		logger:    logx.NewLogger("coder"),
		out:       console.Discard(),
		outputDir: outputDir,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.log = eventlog.NewLog(a.stream)
	if a.editor == nil {
		a.editor = editor.NewLauncher(a.logger.With("editor"))
	}
	a.planner = plan.NewPlanner(gen, plan.Config{
		PlanningTemperature: cfg.LLM.PlanningTemperature,
		MaxFallbackTasks:    cfg.Planner.MaxFallbackTasks,
	}, a.logger.With("planner"))
	a.reviewer = review.NewReviewer(gen, a.logger.With("review"))

	runnerOpts := []exec.RunnerOption{
		exec.WithDefaultTimeout(cfg.Exec.CommandTimeout),
		exec.WithLogger(a.logger.With("exec")),
		exec.WithSink(a.log),
	}
	fileSinks := []codegen.FileSink{a.log}
	if a.audit != nil {
		runnerOpts = append(runnerOpts, exec.WithSink(a.audit))
		fileSinks = append(fileSinks, a.audit)
	}
	if a.metrics != nil {
		runnerOpts = append(runnerOpts, exec.WithSink(a.metrics))
	}
	if a.executor != nil {
		runnerOpts = append(runnerOpts, exec.WithExecutor(a.executor))
	}
	a.runner = exec.NewRunner(outputDir, runnerOpts...)
	a.materializer = codegen.NewMaterializer(gen, outputDir, a.logger.With("codegen"), fileSinks...)
	return a, nil
}

// openRepo returns a handle for dir configured like every other repo the
// agent touches.
func (a *CodeAgent) openRepo(dir string) *git.Repo {
	opts := git.Options{
		CommitPrefix:  a.cfg.Git.CommitPrefix,
		DefaultBranch: a.cfg.Git.DefaultBranch,
		CommitTimeout: a.cfg.Git.CommitTimeout,
		Runner:        a.gitRunner,
		Logger:        a.logger.With("git"),
	}
	if a.metrics != nil {
		opts.Observer = a.metrics
	}
	return git.Open(dir, opts)
}

// bindProject points every component at dir.
func (a *CodeAgent) bindProject(name, dir string) error {
	store, err := state.NewStore(dir)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.projectName = name
	a.projectDir = dir
	a.store = store
	a.repo = a.openRepo(dir)
	a.mu.Unlock()

	a.runner.SetWorkDir(dir)
	a.materializer.SetRoot(dir)
	a.log.SetProject(dir, name)
	return nil
}

// UseProject binds the agent to an existing project directory, e.g. to review
// or deploy something generated in an earlier run. A saved snapshot, when
// present, restores the plan and tasks.
func (a *CodeAgent) UseProject(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve project directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("project directory not found: %s", abs)
	}
	if err := a.bindProject(filepath.Base(abs), abs); err != nil {
		return err
	}

	snap, err := a.store.Load()
	if err != nil {
		a.logger.Debug("No snapshot restored from %s: %v", abs, err)
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.description = snap.ProjectDescription
	a.plan = snap.Plan
	a.tasks = snap.Tasks
	a.currentTask = snap.CurrentTask
	a.phase = snap.Phase
	if snap.ProjectName != "" {
		a.projectName = snap.ProjectName
	}
	return nil
}

// ProjectDir returns the bound project directory, or "" before a project exists.
func (a *CodeAgent) ProjectDir() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.projectDir
}

// ProjectName returns the project name.
func (a *CodeAgent) ProjectName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.projectName
}

// Plan returns the current plan, nil before ProcessDescription.
func (a *CodeAgent) Plan() *plan.Plan {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.plan
}

// Tasks returns a copy of the task list.
func (a *CodeAgent) Tasks() []plan.Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]plan.Task(nil), a.tasks...)
}

// Phase returns the last completed phase.
func (a *CodeAgent) Phase() state.Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// CommandHistory returns every command run so far, as executed.
func (a *CodeAgent) CommandHistory() []string {
	return a.runner.History()
}

// Log returns the session log.
func (a *CodeAgent) Log() *eventlog.Log {
	return a.log
}

// saveState records phase and writes the project snapshot. Failures are
// reported but never fail the phase.
func (a *CodeAgent) saveState(phase state.Phase) {
	a.mu.Lock()
	a.phase = phase
	store := a.store
	snap := &state.ProjectState{
		Phase:              phase,
		ProjectDescription: a.description,
		Plan:               a.plan,
		Tasks:              a.tasks,
		CurrentTask:        a.currentTask,
		ProjectName:        a.projectName,
		ProjectDir:         a.projectDir,
	}
	a.mu.Unlock()

	if store == nil {
		return
	}
	if a.audit != nil {
		snap.SessionID = a.audit.SessionID()
	}
	if err := store.Save(snap); err != nil {
		a.logger.Warn("⚠️  Failed to save project state: %v", err)
		a.out.Warn("Failed to save project state: %v", err)
	}
	if _, err := a.log.Save(); err != nil {
		a.logger.Warn("⚠️  %v", err)
	}
}

// Shutdown stops a server started by Deploy, if any.
func (a *CodeAgent) Shutdown() {
	a.mu.Lock()
	proc := a.server
	a.server = nil
	a.mu.Unlock()
	if proc != nil {
		a.logger.Info("🛑 Stopping application (pid %d)", proc.PID())
		proc.Stop()
	}
}
