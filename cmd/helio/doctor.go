package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zulandar/heliograph/internal/config"
	"github.com/zulandar/heliograph/internal/history"
	"github.com/zulandar/heliograph/internal/session"
)

func newDoctorCmd() *cobra.Command {
	var root, path string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the local setup",
		Long:  "Verifies config, credentials, tmux availability and state storage.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, root, path)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "state root directory (default ~/.heliograph)")
	cmd.Flags().StringVar(&path, "path", "", "project path (default current directory)")
	return cmd
}

func runDoctor(cmd *cobra.Command, root, path string) error {
	out := cmd.OutOrStdout()
	failed := 0
	check := func(name string, err error) {
		if err != nil {
			failed++
			fmt.Fprintf(out, "✗ %s: %v\n", name, err)
			return
		}
		fmt.Fprintf(out, "✓ %s\n", name)
	}

	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		path = wd
	}
	if root == "" {
		root = session.DefaultRoot()
	}

	cfg, err := config.LoadDefault(path, root)
	check("config loads", err)
	if err != nil {
		cfg = &config.Config{}
	}
	if cfg.StateDir != "" {
		root = cfg.StateDir
	}

	check("forwarding configured", checkForwarding(cfg))
	check("tmux on PATH", checkTmux())
	check("state root writable", checkStateRoot(root))
	if cfg.HistoryEnabled() {
		check("history database opens", checkHistory(cfg.HistoryPath(root)))
	} else {
		fmt.Fprintln(out, "- history disabled in config")
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	fmt.Fprintln(out, "All checks passed.")
	return nil
}

func checkForwarding(cfg *config.Config) error {
	if !cfg.Forwarding() {
		return fmt.Errorf("no %s credentials or operator ID — run `helio pair`", cfg.Platform)
	}
	return nil
}

func checkTmux() error {
	if _, err := exec.LookPath("tmux"); err != nil {
		return fmt.Errorf("not found — answer injection needs tmux")
	}
	return nil
}

func checkStateRoot(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(root, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}

func checkHistory(path string) error {
	db, err := history.Open(path)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
