package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codeagent/pkg/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the codeagent configuration file",
	}

	var path string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default codeagent.yaml",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := config.WriteDefault(path); err != nil {
				return err //nolint:wrapcheck // config errors are already descriptive
			}
			fmt.Fprintf(a.stdout, "✅ Wrote default configuration to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "path", config.ConfigName+"."+config.ConfigType, "where to write the file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			c := a.cfg
			a.out.Field("Config file", orDefault(c.Source, "(defaults)"))
			a.out.Field("Provider", c.Provider)
			a.out.Field("Model", c.ModelFor(c.Provider))
			a.out.Field("Output directory", c.OutputDir)
			a.out.Field("Commit prefix", c.Git.CommitPrefix)
			a.out.Field("Command timeout", c.Exec.CommandTimeout.String())
			a.out.Field("Combined planning", fmt.Sprintf("%t", c.Planner.Combined))
			a.out.Field("Audit", fmt.Sprintf("%t", c.Audit))
			a.out.Field("Metrics endpoint", orDefault(c.MetricsAddr, "(disabled)"))
			for _, p := range config.ProviderFallbackOrder {
				a.out.Field("Credentials for "+p, fmt.Sprintf("%t", c.HasCredentials(p)))
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
