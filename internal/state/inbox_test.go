package state

import (
	"fmt"
	"testing"
	"time"
)

func entry(text string) InboxEntry {
	return InboxEntry{From: "alice", Text: text, ReceivedAt: time.Now()}
}

func TestInbox_EnqueueDrain(t *testing.T) {
	in := NewInbox(testSession(t))

	in.Enqueue(entry("first"))
	in.Enqueue(entry("second"))

	got := in.Drain()
	if len(got) != 2 {
		t.Fatalf("Drain returned %d entries, want 2", len(got))
	}
	if got[0].Text != "first" || got[1].Text != "second" {
		t.Errorf("order not preserved: %q, %q", got[0].Text, got[1].Text)
	}

	// Drain clears the queue.
	if again := in.Drain(); again != nil {
		t.Fatalf("second Drain returned %d entries, want none", len(again))
	}
}

func TestInbox_DrainEmpty(t *testing.T) {
	in := NewInbox(testSession(t))
	if got := in.Drain(); got != nil {
		t.Fatalf("Drain on empty inbox returned %d entries", len(got))
	}
}

func TestInbox_Bounded(t *testing.T) {
	in := NewInbox(testSession(t))

	for i := range 60 {
		in.Enqueue(entry(fmt.Sprintf("msg-%d", i)))
	}

	got := in.Drain()
	if len(got) != DefaultInboxCapacity {
		t.Fatalf("Drain returned %d entries, want %d", len(got), DefaultInboxCapacity)
	}
	// The survivors are the newest 50, oldest-first.
	if got[0].Text != "msg-10" {
		t.Errorf("first survivor = %q, want %q", got[0].Text, "msg-10")
	}
	if got[len(got)-1].Text != "msg-59" {
		t.Errorf("last survivor = %q, want %q", got[len(got)-1].Text, "msg-59")
	}
}

func TestInbox_Len(t *testing.T) {
	in := NewInbox(testSession(t))
	if in.Len() != 0 {
		t.Fatalf("Len on empty inbox = %d", in.Len())
	}
	in.Enqueue(entry("one"))
	if in.Len() != 1 {
		t.Fatalf("Len = %d, want 1", in.Len())
	}
	// Len does not drain.
	if in.Len() != 1 {
		t.Fatal("Len mutated the queue")
	}
}

func TestInbox_AttachmentPreserved(t *testing.T) {
	in := NewInbox(testSession(t))
	in.Enqueue(InboxEntry{From: "alice", Text: "see this", Attachment: "/tmp/photo.jpg", ReceivedAt: time.Now()})

	got := in.Drain()
	if len(got) != 1 || got[0].Attachment != "/tmp/photo.jpg" {
		t.Fatalf("attachment not preserved: %+v", got)
	}
}
