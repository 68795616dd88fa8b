package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"codeagent/pkg/utils"
)

func newFixCmd(a *app) *cobra.Command {
	var noEditor, noDeploy, inPlace bool
	cmd := &cobra.Command{
		Use:   "fix <project-dir> <problem>",
		Short: "Fix issues in an existing project",
		Long: `Analyze an existing project, identify the issues behind the problem
description and apply the generated fixes.

Projects outside the output directory are copied into it first unless
--in-place is given.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			problem := strings.TrimSpace(strings.Join(args[1:], " "))
			if problem == "" {
				return fmt.Errorf("problem description is empty")
			}
			ctx := cmd.Context()
			ca, err := a.start(ctx, "fix", problem)
			if err != nil {
				return err
			}
			defer ca.Shutdown()

			dir := args[0]
			if !inPlace {
				if dir, err = a.workingCopy(args[0]); err != nil {
					a.finish(ctx, false)
					return err
				}
			}

			res := ca.FixProject(ctx, dir, problem)
			if !res.Success {
				a.out.Error("Error fixing project: %s", orUnknown(res.Error))
				a.finish(ctx, false)
				return errFailed
			}
			if !noDeploy {
				if dep := ca.Deploy(ctx, false); !dep.Success {
					a.out.Warn("Deployment failed: %s", dep.Message)
				}
			}
			if !noEditor {
				ca.OpenEditor()
			}
			a.out.Success("Project fixes complete!")
			a.out.Field("Project directory", ca.ProjectDir())
			a.finish(ctx, true)
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&noEditor, "no-editor", false, "don't open the project in a code editor")
	f.BoolVar(&noDeploy, "no-deploy", false, "don't deploy the project locally")
	f.BoolVar(&inPlace, "in-place", false, "fix the project where it is instead of a copy in the output directory")
	return cmd
}

// workingCopy returns src when it already lives in the output directory and
// otherwise copies it to <output>/<name>, reusing an earlier copy.
func (a *app) workingCopy(src string) (string, error) {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	if !utils.DirExists(absSrc) {
		return "", fmt.Errorf("project directory not found: %s", absSrc)
	}
	absOut, err := filepath.Abs(a.cfg.OutputDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if rel, err := filepath.Rel(absOut, absSrc); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return absSrc, nil
	}

	dst := filepath.Join(absOut, filepath.Base(absSrc))
	if utils.DirExists(dst) {
		return dst, nil
	}
	a.out.Step("Copying project to output directory: %s", dst)
	if err := os.CopyFS(dst, os.DirFS(absSrc)); err != nil {
		return "", fmt.Errorf("failed to copy project: %w", err)
	}
	return dst, nil
}
