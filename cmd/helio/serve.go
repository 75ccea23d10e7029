package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/heliograph/internal/history"
	"github.com/zulandar/heliograph/internal/relay"
)

func newServeCmd() *cobra.Command {
	var root, path string
	var notices bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay daemon",
		Long: "Connects to the configured chat platform, relays inbound operator\n" +
			"replies into session state, and sends the daily digest. Runs until\n" +
			"interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, path, notices)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "state root directory (default ~/.heliograph)")
	cmd.Flags().StringVar(&path, "path", "", "project path (default current directory)")
	cmd.Flags().BoolVar(&notices, "notices", true, "send online/offline notices to the operator")
	return cmd
}

func runServe(cmd *cobra.Command, root, path string, notices bool) error {
	a, err := buildApp(appOpts{root: root, contextPath: path, withHistory: true})
	if err != nil {
		return err
	}
	if !a.cfg.Forwarding() {
		return fmt.Errorf("no operator configured — run `helio pair` first")
	}

	var digest relay.DigestBuilder
	if a.cfg.Digest.Enabled && a.recorder != nil {
		d, err := history.NewDigest(a.recorder)
		if err != nil {
			return err
		}
		digest = d
	}

	daemon, err := relay.NewDaemon(relay.DaemonOpts{
		Relay:       a.relay,
		Digest:      digest,
		DigestCron:  a.cfg.Digest.Cron,
		Out:         cmd.OutOrStdout(),
		SendNotices: notices,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return daemon.Run(ctx)
}
