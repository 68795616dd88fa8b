package main

import (
	"github.com/spf13/cobra"

	"codeagent/pkg/coder"
)

func newOneShotCmd(a *app) *cobra.Command {
	var noEditor, noDeploy, launch bool
	cmd := &cobra.Command{
		Use:   "oneshot <description>",
		Short: "Generate, implement, review, fix and deploy a project in one go",
		Long: `Run every phase without stopping: describe, set up, implement all tasks
(continuing past failed ones), review, review with auto-fix, deploy locally and
open the editor.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := a.readDescription(args, "", false)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			ca, err := a.start(ctx, "oneshot", desc)
			if err != nil {
				return err
			}
			defer ca.Shutdown()

			res := ca.OneShot(ctx, desc, coder.OneShotOptions{
				Deploy:     !noDeploy,
				Launch:     launch && !noDeploy,
				OpenEditor: !noEditor,
			})
			a.finish(ctx, res.Success)
			if !res.Success {
				a.out.Error("One-shot generation failed: %s", orUnknown(res.Error))
				return errFailed
			}
			a.waitForServer(ctx, ca)
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&noEditor, "no-editor", false, "don't open the project in a code editor")
	f.BoolVar(&noDeploy, "no-deploy", false, "don't deploy the project locally")
	f.BoolVar(&launch, "launch", false, "start the deployed application and keep it running until Ctrl+C")
	return cmd
}
