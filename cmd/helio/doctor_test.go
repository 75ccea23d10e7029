package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/heliograph/internal/config"
)

func TestDoctorCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"doctor", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("doctor --help failed: %v", err)
	}
	if !strings.Contains(buf.String(), "tmux") {
		t.Errorf("expected help to mention tmux, got: %s", buf.String())
	}
}

func TestCheckForwarding(t *testing.T) {
	cfg := &config.Config{Platform: "telegram"}
	if err := checkForwarding(cfg); err == nil {
		t.Error("expected failure without credentials")
	}

	cfg.Telegram.BotToken = "tok"
	cfg.Telegram.OperatorID = "42"
	if err := checkForwarding(cfg); err != nil {
		t.Errorf("expected pass with credentials, got: %v", err)
	}
}

func TestCheckStateRoot(t *testing.T) {
	if err := checkStateRoot(t.TempDir()); err != nil {
		t.Errorf("temp dir should be writable: %v", err)
	}
	// A root path occupied by a regular file must fail.
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := checkStateRoot(blocker); err == nil {
		t.Error("expected failure when root is a file")
	}
}

func TestCheckHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	if err := checkHistory(path); err != nil {
		t.Errorf("fresh database should open: %v", err)
	}
}

func TestDoctorCmd_ReportsFailures(t *testing.T) {
	// Empty root has no credentials, so at least the forwarding check fails.
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"doctor", "--root", t.TempDir(), "--path", t.TempDir()})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected doctor to fail without credentials")
	}
	if !strings.Contains(buf.String(), "✗ forwarding configured") {
		t.Errorf("expected forwarding check failure in output: %s", buf.String())
	}
}
