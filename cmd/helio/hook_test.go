package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/heliograph/internal/session"
	"github.com/zulandar/heliograph/internal/state"
)

func TestPromptKindFor(t *testing.T) {
	tests := []struct {
		tool string
		want state.PromptKind
	}{
		{"AskUserQuestion", state.KindQuestion},
		{"ExitPlanMode", state.KindPlanApproval},
		{"EnterPlanMode", state.KindPlanEntry},
		{"Bash", state.KindPermission},
		{"Edit", state.KindPermission},
		{"", state.KindPermission},
	}
	for _, tt := range tests {
		if got := promptKindFor(tt.tool); got != tt.want {
			t.Errorf("promptKindFor(%q) = %q, want %q", tt.tool, got, tt.want)
		}
	}
}

func TestHookPrompt_NoConfigDegradesToAsk(t *testing.T) {
	root := t.TempDir()
	proj := t.TempDir()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader(`{"tool_name":"Bash","tool_input":{"command":"ls"}}`))
	cmd.SetArgs([]string{"hook", "prompt", "--root", root, "--path", proj})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("hook prompt must never fail, got: %v", err)
	}

	var dec hookDecision
	if err := json.Unmarshal(buf.Bytes(), &dec); err != nil {
		t.Fatalf("output is not a decision: %v (%s)", err, buf.String())
	}
	if dec.Decision.Behavior != "ask" {
		t.Errorf("behavior = %q, want %q", dec.Decision.Behavior, "ask")
	}
}

func TestHookPrompt_GarbageInputStillDecides(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader("not json"))
	cmd.SetArgs([]string{"hook", "prompt", "--root", t.TempDir(), "--path", t.TempDir()})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("hook prompt must never fail, got: %v", err)
	}
	if !strings.Contains(buf.String(), `"behavior":"ask"`) {
		t.Errorf("expected ask decision, got: %s", buf.String())
	}
}

func TestHookContext_DrainsInbox(t *testing.T) {
	root := t.TempDir()
	proj := t.TempDir()
	sess := session.Resolve(root, proj)

	inbox := state.NewInbox(sess)
	inbox.Enqueue(state.InboxEntry{
		From:       "operator",
		Text:       "ship it",
		ReceivedAt: time.Date(2026, 3, 1, 14, 30, 5, 0, time.UTC),
	})
	inbox.Enqueue(state.InboxEntry{
		From:       "operator",
		Attachment: "/tmp/shot.png",
		ReceivedAt: time.Date(2026, 3, 1, 14, 31, 0, 0, time.UTC),
	})

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"hook", "context", "--root", root, "--path", proj})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("hook context failed: %v", err)
	}

	var out contextOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not context JSON: %v (%s)", err, buf.String())
	}
	if out.HookSpecificOutput.HookEventName != "UserPromptSubmit" {
		t.Errorf("hookEventName = %q", out.HookSpecificOutput.HookEventName)
	}
	ctx := out.HookSpecificOutput.AdditionalContext
	for _, want := range []string{
		"[Remote Messages Received]",
		"[14:30:05] operator: ship it",
		"[Image: /tmp/shot.png]",
		"[End Remote Messages]",
	} {
		if !strings.Contains(ctx, want) {
			t.Errorf("context missing %q:\n%s", want, ctx)
		}
	}

	if inbox.Len() != 0 {
		t.Errorf("inbox should be drained, %d left", inbox.Len())
	}
}

func TestHookContext_EmptyInboxPrintsNothing(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"hook", "context", "--root", t.TempDir(), "--path", t.TempDir()})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("hook context failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty inbox, got: %s", buf.String())
	}
}
