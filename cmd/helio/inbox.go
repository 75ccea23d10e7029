package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/heliograph/internal/state"
)

func newInboxCmd() *cobra.Command {
	var root, path string
	var drain bool

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Show queued operator messages",
		Long:  "Lists messages waiting for the next session turn. --drain clears them after printing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInbox(cmd, root, path, drain)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "state root directory (default ~/.heliograph)")
	cmd.Flags().StringVar(&path, "path", "", "project path (default current directory)")
	cmd.Flags().BoolVar(&drain, "drain", false, "clear the inbox after printing")
	return cmd
}

func runInbox(cmd *cobra.Command, root, path string, drain bool) error {
	a, err := buildApp(appOpts{root: root, contextPath: path})
	if err != nil {
		return err
	}

	var entries []state.InboxEntry
	if drain {
		entries = a.relay.DrainInbox()
	} else {
		entries = state.NewInbox(a.sess).Peek()
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Inbox empty.")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("[%s] %s: %s", e.ReceivedAt.Format("15:04:05"), e.From, e.Text)
		if e.Attachment != "" {
			line += fmt.Sprintf(" (image: %s)", e.Attachment)
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
