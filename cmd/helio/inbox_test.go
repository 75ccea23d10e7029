package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/heliograph/internal/session"
	"github.com/zulandar/heliograph/internal/state"
)

func TestInboxCmd_PeekKeepsEntries(t *testing.T) {
	root := t.TempDir()
	proj := t.TempDir()
	sess := session.Resolve(root, proj)

	inbox := state.NewInbox(sess)
	inbox.Enqueue(state.InboxEntry{
		From:       "operator",
		Text:       "hold off on the deploy",
		ReceivedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"inbox", "--root", root, "--path", proj})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("inbox failed: %v", err)
	}
	if !strings.Contains(buf.String(), "operator: hold off on the deploy") {
		t.Errorf("unexpected output: %s", buf.String())
	}
	if inbox.Len() != 1 {
		t.Errorf("peek must not drain, %d left", inbox.Len())
	}
}

func TestInboxCmd_DrainClears(t *testing.T) {
	root := t.TempDir()
	proj := t.TempDir()
	sess := session.Resolve(root, proj)

	inbox := state.NewInbox(sess)
	inbox.Enqueue(state.InboxEntry{From: "operator", Text: "ok", ReceivedAt: time.Now()})

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"inbox", "--drain", "--root", root, "--path", proj})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("inbox --drain failed: %v", err)
	}
	if !strings.Contains(buf.String(), "operator: ok") {
		t.Errorf("unexpected output: %s", buf.String())
	}
	if inbox.Len() != 0 {
		t.Errorf("drain should clear the inbox, %d left", inbox.Len())
	}
}

func TestInboxCmd_Empty(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"inbox", "--root", t.TempDir(), "--path", t.TempDir()})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("inbox failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Inbox empty.") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
