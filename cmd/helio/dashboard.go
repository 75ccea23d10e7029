package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zulandar/heliograph/internal/dashboard"
)

func newDashboardCmd() *cobra.Command {
	var root, path, addr string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the local status dashboard",
		Long:  "Runs a local HTTP dashboard showing session state and relay history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, root, path, addr)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "state root directory (default ~/.heliograph)")
	cmd.Flags().StringVar(&path, "path", "", "project path (default current directory)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:7667)")
	return cmd
}

func runDashboard(cmd *cobra.Command, root, path, addr string) error {
	a, err := buildApp(appOpts{root: root, contextPath: path, withHistory: true})
	if err != nil {
		return err
	}
	if addr == "" {
		addr = a.cfg.Dashboard.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return dashboard.Start(ctx, dashboard.StartOpts{
		StateRoot: a.stateRoot,
		Recorder:  a.recorder,
		Addr:      addr,
		Out:       cmd.OutOrStdout(),
	})
}
