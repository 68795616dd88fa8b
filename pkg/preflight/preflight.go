// Package preflight checks that the host can run what the pipeline is about to
// ask of it: an LLM provider with credentials, git, and the language toolchains
// a project needs. Missing pieces are reported as failed checks, never as crashes.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codeagent/pkg/config"
)

// Kind tells provider checks apart from toolchain checks.
type Kind string

// Check kinds.
const (
	KindProvider Kind = "provider"
	KindTool     Kind = "tool"
)

// CheckResult represents the outcome of a single preflight check.
type CheckResult struct {
	Error   error
	Name    string
	Kind    Kind
	Message string
	Version string
	Passed  bool
}

// Results contains all preflight check results.
type Results struct {
	Summary string
	Checks  []CheckResult
	Passed  bool
}

// Failed returns the checks that did not pass.
func (r *Results) Failed() []CheckResult {
	var out []CheckResult
	for i := range r.Checks {
		if !r.Checks[i].Passed {
			out = append(out, r.Checks[i])
		}
	}
	return out
}

// Run checks the configured provider (or its fallback), git, and every
// toolchain named in tools.
func Run(ctx context.Context, cfg *config.Config, tools ...string) *Results {
	checks := []CheckResult{CheckProvider(ctx, cfg), CheckTool(ctx, ToolGit)}
	for _, t := range tools {
		if t == ToolGit {
			continue
		}
		checks = append(checks, CheckTool(ctx, t))
	}
	return collect(checks)
}

// RequireTools checks only toolchains. The deployer calls it before installing.
func RequireTools(ctx context.Context, tools ...string) *Results {
	checks := make([]CheckResult, 0, len(tools))
	for _, t := range tools {
		checks = append(checks, CheckTool(ctx, t))
	}
	return collect(checks)
}

func collect(checks []CheckResult) *Results {
	results := &Results{Checks: checks, Passed: true}
	failed := 0
	for i := range checks {
		if !checks[i].Passed {
			results.Passed = false
			failed++
		}
	}
	if results.Passed {
		results.Summary = fmt.Sprintf("All %d preflight checks passed", len(checks))
	} else {
		results.Summary = fmt.Sprintf("%d of %d preflight checks failed", failed, len(checks))
	}
	return results
}

// Validate is a convenience function that runs preflight checks and returns
// an error if any checks fail.
func Validate(ctx context.Context, cfg *config.Config, tools ...string) error {
	results := Run(ctx, cfg, tools...)
	if results.Passed {
		return nil
	}
	var failedChecks []string
	for _, c := range results.Failed() {
		failedChecks = append(failedChecks, FormatCheckError(c))
	}
	return errors.New(strings.Join(failedChecks, "\n"))
}
