package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codeagent/pkg/logx"
)

// Version information - set by goreleaser via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errFailed marks a run whose failure was already reported on the console.
var errFailed = errors.New("codeagent run failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	exitCode := run(ctx, newApp(os.Stdin, os.Stdout, os.Stderr), os.Args[1:])

	stop()
	if closeErr := logx.CloseLogFile(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", closeErr)
	}
	os.Exit(exitCode)
}

// run executes one CLI invocation and returns the process exit code.
// This allows defers in main() to execute before os.Exit is called.
func run(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(a.stderr, "\nOperation cancelled by user")
			return 1
		}
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "codeagent",
		Short: "Generate and implement software projects from descriptions",
		Long: `codeagent drives an LLM to plan a project, split it into tasks, implement
each task on its own git branch, review the result and run it locally.

API keys are read from GOOGLE_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY,
AZURE_OPENAI_API_KEY/AZURE_OPENAI_ENDPOINT or OLLAMA_HOST.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: ./codeagent.yaml or ~/.codeagent/codeagent.yaml)")
	flags.StringVarP(&a.outputDir, "output", "o", "", "output directory for generated projects")
	flags.StringVar(&a.provider, "provider", "", "preferred LLM provider (gemini, openai, anthropic, azure, ollama)")
	flags.BoolVar(&a.tee, "tee", false, "write logs to stderr as well as the log file")

	root.AddCommand(
		newRunCmd(a),
		newOneShotCmd(a),
		newFixCmd(a),
		newHistoryCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			printVersion(a.stdout)
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "codeagent %s\n", version)
	fmt.Fprintf(w, "  commit: %s\n", commit)
	fmt.Fprintf(w, "  built:  %s\n", date)
}
