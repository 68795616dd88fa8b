package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"codeagent/pkg/coder"
)

//nolint:govet // flag grouping
type runOptions struct {
	file        string
	interactive bool
	noEditor    bool
	noDeploy    bool
	launch      bool
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run [description]",
		Short: "Plan and implement a project, or drive it step by step with -i",
		Long: `Plan a project from a description, set up its structure, implement every
task on its own branch and review the result. The description comes from the
arguments, --file, or stdin.

With --interactive a menu lets you run each phase yourself.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := a.readDescription(args, opts.file, opts.interactive)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			mode := "run"
			if opts.interactive {
				mode = "interactive"
			}
			ca, err := a.start(ctx, mode, desc)
			if err != nil {
				return err
			}
			defer ca.Shutdown()

			if opts.interactive {
				err = a.runInteractive(ctx, ca, desc)
			} else {
				err = a.runPipeline(ctx, ca, desc, opts)
			}
			a.finish(ctx, err == nil)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "read the project description from a file")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "run in interactive mode")
	f.BoolVar(&opts.noEditor, "no-editor", false, "don't open the project in a code editor")
	f.BoolVar(&opts.noDeploy, "no-deploy", false, "don't deploy the project locally")
	f.BoolVar(&opts.launch, "launch", false, "start the deployed application and keep it running until Ctrl+C")
	return cmd
}

// runPipeline runs describe, setup, every task and review. A failed task does
// not stop the run, but the run reports failure when any task failed.
func (a *app) runPipeline(ctx context.Context, ca *coder.CodeAgent, desc string, opts runOptions) error {
	a.out.Panel("AI Code Agent")

	res := ca.ProcessDescription(ctx, desc)
	if !res.Success {
		a.out.Error("Error processing project description: %s", orUnknown(res.Error))
		return errFailed
	}
	if setup := ca.SetupProject(ctx); !setup.Success {
		a.out.Error("Error setting up project: %s", orUnknown(setup.Error))
		return errFailed
	}

	var failed error
	for i := range ca.Tasks() {
		if ctx.Err() != nil {
			break
		}
		tr := ca.ExecuteTask(ctx, i)
		if !tr.Success {
			a.out.Error("Error executing task %d: %s", i+1, orUnknown(tr.Error))
			failed = errFailed
		}
	}

	ca.ReviewCode(ctx, false)
	if ctx.Err() != nil {
		return ctx.Err() //nolint:wrapcheck // cancellation is reported by run
	}

	if !opts.noDeploy {
		if dep := ca.Deploy(ctx, opts.launch); !dep.Success {
			a.out.Warn("Deployment failed: %s", dep.Message)
		}
	}
	if !opts.noEditor {
		ca.OpenEditor()
	}

	a.out.Success("Project generation complete!")
	a.out.Field("Project directory", ca.ProjectDir())
	a.waitForServer(ctx, ca)
	return failed
}

const (
	menuSetup = iota
	menuTask
	menuReview
	menuReviewFix
	menuEditor
	menuDeploy
	menuHistory
	menuExit
)

var menuItems = []string{
	menuSetup:     "Set up project structure",
	menuTask:      "Execute a task",
	menuReview:    "Review code",
	menuReviewFix: "Review and auto-fix code",
	menuEditor:    "Open in code editor",
	menuDeploy:    "Deploy locally",
	menuHistory:   "Show command history",
	menuExit:      "Exit",
}

// runInteractive processes the description and then loops over the phase
// menu until the operator exits or stdin ends.
func (a *app) runInteractive(ctx context.Context, ca *coder.CodeAgent, desc string) error {
	a.out.Panel("AI Code Agent - Interactive Mode")

	if res := ca.ProcessDescription(ctx, desc); !res.Success {
		a.out.Error("Error processing project description: %s", orUnknown(res.Error))
		return errFailed
	}

	p := a.prompter()
	for {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // cancellation is reported by run
		}
		choice, err := p.Select("What would you like to do?", menuItems)
		if err != nil {
			if isEndOfInput(err) {
				return nil
			}
			a.out.Error("%v", err)
			continue
		}

		switch choice {
		case menuSetup:
			ca.SetupProject(ctx)
		case menuTask:
			a.pickAndExecuteTask(ctx, ca, p)
		case menuReview:
			ca.ReviewCode(ctx, false)
		case menuReviewFix:
			ca.ReviewCode(ctx, true)
		case menuEditor:
			ca.OpenEditor()
		case menuDeploy:
			ca.Deploy(ctx, false)
		case menuHistory:
			a.printHistory(ca.CommandHistory())
		case menuExit:
			a.out.Success("Exiting...")
			return nil
		}
	}
}

func (a *app) pickAndExecuteTask(ctx context.Context, ca *coder.CodeAgent, p prompter) {
	tasks := ca.Tasks()
	if len(tasks) == 0 {
		a.out.Warn("No tasks available. Process a project description first.")
		return
	}
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.Name
		if names[i] == "" {
			names[i] = fmt.Sprintf("Task %d", i+1)
		}
	}
	idx, err := p.Select("Available tasks:", names)
	if err != nil {
		a.out.Error("%v", err)
		return
	}
	if res := ca.ExecuteTask(ctx, idx); !res.Success {
		a.out.Error("Error executing task: %s", orUnknown(res.Error))
	}
}

func (a *app) printHistory(history []string) {
	if len(history) == 0 {
		a.out.Text("No commands executed yet.")
		return
	}
	a.out.Step("Command history:")
	for i, c := range history {
		a.out.Text(fmt.Sprintf("%3d  %s", i+1, c))
	}
}

// waitForServer blocks until Ctrl+C or the launched server exits.
func (a *app) waitForServer(ctx context.Context, ca *coder.CodeAgent) {
	proc := ca.Server()
	if proc == nil {
		return
	}
	a.out.Text("Application is running. Press Ctrl+C to stop it.")
	select {
	case <-ctx.Done():
	case <-proc.Done():
		a.out.Warn("Application exited")
		if out := strings.TrimSpace(proc.Output()); out != "" {
			a.out.Text(out)
		}
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown error"
	}
	return s
}
