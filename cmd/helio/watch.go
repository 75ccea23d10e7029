package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/heliograph/internal/session"
	"github.com/zulandar/heliograph/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var root, path string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the keystroke-injection watcher",
		Long: "Polls session state for answered prompts and wake triggers and types\n" +
			"them into the session's tmux pane. Normally spawned by `hook prompt`;\n" +
			"run directly for debugging.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, root, path)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "state root directory (default ~/.heliograph)")
	cmd.Flags().StringVar(&path, "path", "", "project path (default current directory)")
	return cmd
}

func runWatch(cmd *cobra.Command, root, path string) error {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		path = wd
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if root == "" {
		root = session.DefaultRoot()
	}
	sess := session.Resolve(root, path)

	resolver := watch.NewResolver(hostProcessName)
	lease := watch.NewLeaseManager(sess, resolver.Resolve)

	// Pick up the target the acquiring hook captured; resolve fresh when
	// run standalone.
	var target watch.Target
	if rec, ok := lease.Peek(); ok {
		target = rec.Target
	}
	if !target.Known() {
		target = resolver.Resolve(cmd.Context())
	}

	w, err := watch.NewWatcher(watch.WatcherOpts{
		Session:  sess,
		Lease:    lease,
		Injector: watch.NewTmuxInjector(hostProcessName),
		Target:   target,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return w.Run(ctx)
}
