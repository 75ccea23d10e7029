package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var root, path string
	var limit int
	var allSessions bool

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent relay history",
		Long:  "Prints recent forwarded prompts and operator messages from the history database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(cmd, root, path, limit, allSessions)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "state root directory (default ~/.heliograph)")
	cmd.Flags().StringVar(&path, "path", "", "project path (default current directory)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries per section")
	cmd.Flags().BoolVar(&allSessions, "all", false, "include every session, not just this project")
	return cmd
}

func runLog(cmd *cobra.Command, root, path string, limit int, allSessions bool) error {
	a, err := buildApp(appOpts{root: root, contextPath: path, withHistory: true})
	if err != nil {
		return err
	}
	if a.recorder == nil {
		return fmt.Errorf("history is disabled in config")
	}

	sessionID := a.sess.ID
	if allSessions {
		sessionID = ""
	}
	out := cmd.OutOrStdout()

	prompts, err := a.recorder.RecentPrompts(sessionID, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Prompts:")
	if len(prompts) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, p := range prompts {
		status := "pending"
		if p.Answered {
			status = fmt.Sprintf("answered %q", p.Response)
		}
		fmt.Fprintf(out, "  %s  %-14s %-20s %s\n",
			p.CreatedAt.Format("2006-01-02 15:04"), p.Kind, p.ToolName, status)
	}

	msgs, err := a.recorder.RecentInbox(sessionID, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Messages:")
	if len(msgs) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, m := range msgs {
		fmt.Fprintf(out, "  %s  %s: %s\n",
			m.CreatedAt.Format("2006-01-02 15:04"), m.Sender, m.Text)
	}
	return nil
}
