package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestServeCmd_RequiresOperator(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"serve", "--root", t.TempDir(), "--path", t.TempDir()})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "helio pair") {
		t.Errorf("expected pairing hint, got: %v", err)
	}
}

func TestServeCmd_NoticesFlagDefault(t *testing.T) {
	cmd := newServeCmd()
	flag := cmd.Flags().Lookup("notices")
	if flag == nil {
		t.Fatal("expected --notices flag")
	}
	if flag.DefValue != "true" {
		t.Errorf("--notices default = %q, want true", flag.DefValue)
	}
}
