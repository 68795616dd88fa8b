// Package git coordinates the project repository: init, branches, commits
// bounded by a timeout, status parsing, push and pull. Every operation returns
// a Result; none of them return errors.
package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeagent/pkg/config"
	"codeagent/pkg/logx"
)

// Fallback identity used when the host has no git user configured.
const (
	fallbackUserName  = "codeagent"
	fallbackUserEmail = "codeagent@localhost"
)

// Result is the outcome of a repository operation.
type Result struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	CommitHash string `json:"commit_hash,omitempty"`
	TimedOut   bool   `json:"timed_out,omitempty"`
}

func failure(err error) Result {
	return Result{Error: err.Error()}
}

// Observer is told about every completed operation.
type Observer interface {
	ObserveGitOp(op string, success bool, d time.Duration)
}

// Options configures a Repo.
type Options struct {
	CommitPrefix  string
	DefaultBranch string
	CommitTimeout time.Duration
	Runner        Runner
	Observer      Observer
	Logger        *logx.Logger
}

// Repo is the handle for one project directory. It starts without a
// repository unless one already exists on disk.
type Repo struct {
	path string
	opts Options
	git  Runner
	log  *logx.Logger
}

// Open returns a handle for path, filling option defaults from config.
func Open(path string, opts Options) *Repo {
	if opts.CommitPrefix == "" {
		opts.CommitPrefix = config.DefaultCommitPrefix
	}
	if opts.DefaultBranch == "" {
		opts.DefaultBranch = config.DefaultBranch
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = config.DefaultCommitTimeout
	}
	if opts.Runner == nil {
		opts.Runner = NewDefaultRunner()
	}
	if opts.Logger == nil {
		opts.Logger = logx.NewLogger("git")
	}
	return &Repo{path: path, opts: opts, git: opts.Runner, log: opts.Logger}
}

// Path returns the working directory.
func (r *Repo) Path() string {
	return r.path
}

// Exists reports whether path holds a repository.
func (r *Repo) Exists() bool {
	return IsRepo(r.path)
}

// IsRepo reports whether dir has a .git entry.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

var errNoRepo = fmt.Errorf("no git repository found")

func (r *Repo) observe(op string, start time.Time, res Result) Result {
	if r.opts.Observer != nil {
		r.opts.Observer.ObserveGitOp(op, res.Success, time.Since(start))
	}
	return res
}

// Init creates a repository with the default branch checked out. It fails if
// one already exists.
func (r *Repo) Init(ctx context.Context) Result {
	start := time.Now()
	if r.Exists() {
		return r.observe("init", start, Result{Message: fmt.Sprintf("Repository already exists at %s", r.path)})
	}
	if err := os.MkdirAll(r.path, 0755); err != nil {
		return r.observe("init", start, failure(err))
	}
	if _, err := r.git.Run(ctx, r.path, "init"); err != nil {
		r.log.Error("Error initializing repository: %v", err)
		return r.observe("init", start, failure(err))
	}
	if _, err := r.git.Run(ctx, r.path, "symbolic-ref", "HEAD", "refs/heads/"+r.opts.DefaultBranch); err != nil {
		return r.observe("init", start, failure(err))
	}
	r.log.Info("📁 Initialized new Git repository at %s", r.path)
	return r.observe("init", start, Result{Success: true, Message: fmt.Sprintf("Initialized new Git repository at %s", r.path)})
}

// AddFiles stages paths, or everything when none are given.
func (r *Repo) AddFiles(ctx context.Context, paths ...string) Result {
	start := time.Now()
	if !r.Exists() {
		return r.observe("add", start, failure(errNoRepo))
	}
	args := []string{"add", "-A"}
	if len(paths) > 0 {
		args = append([]string{"add", "--"}, paths...)
	}
	if _, err := r.git.Run(ctx, r.path, args...); err != nil {
		return r.observe("add", start, failure(err))
	}
	msg := "Added all files"
	if len(paths) > 0 {
		msg = fmt.Sprintf("Added %d files", len(paths))
	}
	return r.observe("add", start, Result{Success: true, Message: msg})
}

// Commit records the working tree with the configured prefix, giving up after
// the configured commit timeout.
func (r *Repo) Commit(ctx context.Context, message string, addAll bool) Result {
	return r.CommitWithTimeout(ctx, message, addAll, r.opts.CommitTimeout)
}

// CommitWithTimeout runs the commit in the background and waits at most
// timeout for it. On timeout the commit is abandoned, not killed: it keeps
// running detached from ctx and its result is dropped.
func (r *Repo) CommitWithTimeout(ctx context.Context, message string, addAll bool, timeout time.Duration) Result {
	start := time.Now()
	if !r.Exists() {
		return r.observe("commit", start, failure(errNoRepo))
	}

	done := make(chan Result, 1)
	bodyCtx := context.WithoutCancel(ctx)
	go func() {
		done <- r.commitBody(bodyCtx, message, addAll)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return r.observe("commit", start, res)
	case <-timer.C:
		r.log.Warn("⚠️  Git commit operation timed out after %s", timeout)
		return r.observe("commit", start, Result{
			Error:    fmt.Sprintf("git commit operation timed out after %s", timeout),
			TimedOut: true,
		})
	case <-ctx.Done():
		return r.observe("commit", start, failure(ctx.Err()))
	}
}

func (r *Repo) commitBody(ctx context.Context, message string, addAll bool) Result {
	if addAll {
		if _, err := r.git.Run(ctx, r.path, "add", "-A"); err != nil {
			return failure(err)
		}
	}
	full := fmt.Sprintf("%s %s", r.opts.CommitPrefix, message)

	args := r.identityArgs(ctx)
	args = append(args, "commit", "--allow-empty", "-m", full)
	if _, err := r.git.Run(ctx, r.path, args...); err != nil {
		r.log.Error("Error committing changes: %v", err)
		return failure(err)
	}

	hash := ""
	if out, err := r.git.Run(ctx, r.path, "rev-parse", "HEAD"); err == nil {
		hash = strings.TrimSpace(string(out))
	}
	r.log.Info("✅ Committed changes with message: %s", full)
	return Result{Success: true, Message: fmt.Sprintf("Committed changes with message: %s", full), CommitHash: hash}
}

// identityArgs supplies a committer identity only when git has none configured.
func (r *Repo) identityArgs(ctx context.Context) []string {
	if out, err := r.git.Run(ctx, r.path, "config", "user.email"); err == nil && strings.TrimSpace(string(out)) != "" {
		return nil
	}
	return []string{"-c", "user.name=" + fallbackUserName, "-c", "user.email=" + fallbackUserEmail}
}

// CreateBranch creates name, checking it out when requested.
func (r *Repo) CreateBranch(ctx context.Context, name string, checkout bool) Result {
	start := time.Now()
	if !r.Exists() {
		return r.observe("branch", start, failure(errNoRepo))
	}
	args := []string{"branch", name}
	if checkout {
		args = []string{"checkout", "-b", name}
	}
	if _, err := r.git.Run(ctx, r.path, args...); err != nil {
		r.log.Error("Error creating branch: %v", err)
		return r.observe("branch", start, failure(err))
	}
	msg := fmt.Sprintf("Created branch: %s", name)
	if checkout {
		msg += " and checked it out"
	}
	r.log.Info("🌿 %s", msg)
	return r.observe("branch", start, Result{Success: true, Message: msg})
}

// CheckoutBranch switches to an existing branch.
func (r *Repo) CheckoutBranch(ctx context.Context, name string) Result {
	start := time.Now()
	if !r.Exists() {
		return r.observe("checkout", start, failure(errNoRepo))
	}
	if _, err := r.git.Run(ctx, r.path, "rev-parse", "--verify", "--quiet", "refs/heads/"+name); err != nil {
		return r.observe("checkout", start, Result{Error: fmt.Sprintf("branch %s does not exist", name)})
	}
	if _, err := r.git.Run(ctx, r.path, "checkout", name); err != nil {
		return r.observe("checkout", start, failure(err))
	}
	return r.observe("checkout", start, Result{Success: true, Message: fmt.Sprintf("Checked out branch: %s", name)})
}

// CurrentBranch returns the checked-out branch, including an unborn one.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.git.Run(ctx, r.path, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Push pushes branch (default: current) to remote (default: origin).
func (r *Repo) Push(ctx context.Context, remote, branch string) Result {
	return r.sync(ctx, "push", remote, branch)
}

// Pull pulls branch (default: current) from remote (default: origin).
func (r *Repo) Pull(ctx context.Context, remote, branch string) Result {
	return r.sync(ctx, "pull", remote, branch)
}

func (r *Repo) sync(ctx context.Context, op, remote, branch string) Result {
	start := time.Now()
	if !r.Exists() {
		return r.observe(op, start, failure(errNoRepo))
	}
	if remote == "" {
		remote = "origin"
	}
	if branch == "" {
		b, err := r.CurrentBranch(ctx)
		if err != nil {
			return r.observe(op, start, failure(err))
		}
		branch = b
	}
	if _, err := r.git.Run(ctx, r.path, "remote", "get-url", remote); err != nil {
		return r.observe(op, start, Result{Error: fmt.Sprintf("remote %s does not exist", remote)})
	}
	out, err := r.git.Run(ctx, r.path, op, remote, branch)
	if err != nil {
		return r.observe(op, start, failure(err))
	}
	verb := map[string]string{"push": "Pushed to", "pull": "Pulled from"}[op]
	return r.observe(op, start, Result{
		Success: true,
		Message: fmt.Sprintf("%s %s/%s: %s", verb, remote, branch, strings.TrimSpace(string(out))),
	})
}
