package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"codeagent/pkg/persistence"
	"codeagent/pkg/utils"
)

func newHistoryCmd(a *app) *cobra.Command {
	var sessionID string
	var listSessions bool
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the commands and task runs recorded in the audit trail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			path := filepath.Join(a.cfg.OutputDir, persistence.DefaultFileName)
			if !utils.FileExists(path) {
				a.out.Text("No audit trail found at " + path)
				return nil
			}
			store, err := persistence.Open(path)
			if err != nil {
				return err //nolint:wrapcheck // persistence errors are already descriptive
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			if listSessions {
				sessions, err := store.ListSessions(ctx, limit)
				if err != nil {
					return err //nolint:wrapcheck // persistence errors are already descriptive
				}
				a.printSessions(sessions)
				return nil
			}

			var sess *persistence.Session
			if sessionID != "" {
				sess, err = store.GetSession(ctx, sessionID)
			} else {
				sess, err = store.LatestSession(ctx)
			}
			if errors.Is(err, persistence.ErrSessionNotFound) {
				a.out.Text("No sessions recorded yet.")
				return nil
			}
			if err != nil {
				return err //nolint:wrapcheck // persistence errors are already descriptive
			}
			return a.printSession(cmd, store, sess)
		},
	}
	f := cmd.Flags()
	f.StringVar(&sessionID, "session", "", "show this session instead of the latest")
	f.BoolVar(&listSessions, "sessions", false, "list recent sessions")
	f.IntVar(&limit, "limit", 20, "number of sessions listed with --sessions")
	return cmd
}

func (a *app) printSessions(sessions []persistence.Session) {
	if len(sessions) == 0 {
		a.out.Text("No sessions recorded yet.")
		return
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTARTED\tMODE\tSTATUS\tPROJECT")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.SessionID, s.StartedAt.Local().Format(time.DateTime),
			s.Mode, s.Status, s.ProjectName)
	}
	_ = tw.Flush()
}

func (a *app) printSession(cmd *cobra.Command, store *persistence.Store, sess *persistence.Session) error {
	ctx := cmd.Context()
	a.out.Panel("Session " + sess.SessionID)
	a.out.Field("Started", sess.StartedAt.Local().Format(time.DateTime))
	a.out.Field("Mode", sess.Mode)
	a.out.Field("Status", sess.Status)
	if sess.ProjectName != "" {
		a.out.Field("Project", sess.ProjectName+" ("+sess.ProjectDir+")")
	}

	runs, err := store.TaskRuns(ctx, sess.SessionID)
	if err != nil {
		return err //nolint:wrapcheck // persistence errors are already descriptive
	}
	if len(runs) > 0 {
		a.out.Step("Tasks:")
		for _, r := range runs {
			mark := "✅"
			if !r.Success {
				mark = "❌"
			}
			a.out.Text(fmt.Sprintf("%s %s [%s] %s", mark, r.TaskName, r.Branch, r.Duration.Round(time.Millisecond)))
		}
	}

	cmds, err := store.Commands(ctx, sess.SessionID)
	if err != nil {
		return err //nolint:wrapcheck // persistence errors are already descriptive
	}
	if len(cmds) == 0 {
		a.out.Text("No commands recorded.")
		return nil
	}
	a.out.Step("Commands:")
	for i, c := range cmds {
		status := "ok"
		switch {
		case c.TimedOut:
			status = "timeout"
		case !c.Success:
			status = "failed"
		}
		a.out.Text(fmt.Sprintf("%3d  %-7s %s", i+1, status, c.Command))
	}
	return nil
}
