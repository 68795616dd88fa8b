package git

import (
	"context"
	"strings"
	"time"
)

// Status summarizes `git status --porcelain`.
type Status struct {
	Success        bool     `json:"success"`
	Error          string   `json:"error,omitempty"`
	CurrentBranch  string   `json:"current_branch"`
	UntrackedFiles []string `json:"untracked_files"`
	ModifiedFiles  []string `json:"modified_files"`
	StagedFiles    []string `json:"staged_files"`
	IsClean        bool     `json:"is_clean"`
}

// ParsePorcelain classifies porcelain v1 lines by their two-character code:
// "??" is untracked, an 'A' in the index column is staged, and an 'M' in
// either column is modified. Other codes are ignored.
func ParsePorcelain(output string) (untracked, modified, staged []string) {
	untracked, modified, staged = []string{}, []string{}, []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) < 4 || strings.TrimSpace(line) == "" {
			continue
		}
		code, path := line[:2], line[3:]
		switch {
		case code == "??":
			untracked = append(untracked, path)
		case code[0] == 'A':
			staged = append(staged, path)
		case code[0] == 'M' || code[1] == 'M':
			modified = append(modified, path)
		}
	}
	return untracked, modified, staged
}

// Status reports the current branch and the working tree state.
func (r *Repo) Status(ctx context.Context) Status {
	start := time.Now()
	if !r.Exists() {
		r.observe("status", start, Result{})
		return Status{Error: errNoRepo.Error()}
	}
	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		r.observe("status", start, Result{})
		return Status{Error: err.Error()}
	}
	out, err := r.git.Run(ctx, r.path, "status", "--porcelain")
	if err != nil {
		r.observe("status", start, Result{})
		return Status{Error: err.Error()}
	}
	r.observe("status", start, Result{Success: true})

	untracked, modified, staged := ParsePorcelain(string(out))
	return Status{
		Success:        true,
		CurrentBranch:  branch,
		UntrackedFiles: untracked,
		ModifiedFiles:  modified,
		StagedFiles:    staged,
		IsClean:        strings.TrimSpace(string(out)) == "",
	}
}
