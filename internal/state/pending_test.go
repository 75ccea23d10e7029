package state

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/zulandar/heliograph/internal/session"
)

func testSession(t *testing.T) session.Session {
	t.Helper()
	return session.Resolve(t.TempDir(), "/home/alice/project")
}

func TestPending_PutPeek(t *testing.T) {
	s := NewPendingStore(testSession(t))

	s.Put(KindPermission, json.RawMessage(`{"tool":"Bash"}`))

	rec, ok := s.Peek()
	if !ok {
		t.Fatal("Peek after Put returned absent")
	}
	if rec.Kind != KindPermission {
		t.Errorf("Kind = %q, want %q", rec.Kind, KindPermission)
	}
	if string(rec.Payload) != `{"tool":"Bash"}` {
		t.Errorf("Payload = %s", rec.Payload)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}

func TestPending_PeekAbsent(t *testing.T) {
	s := NewPendingStore(testSession(t))
	if _, ok := s.Peek(); ok {
		t.Fatal("Peek on empty store returned a record")
	}
}

func TestPending_SingleSlot(t *testing.T) {
	s := NewPendingStore(testSession(t))

	s.Put(KindPermission, nil)
	s.Put(KindQuestion, json.RawMessage(`{"questions":[]}`))

	rec, ok := s.Peek()
	if !ok {
		t.Fatal("Peek returned absent")
	}
	if rec.Kind != KindQuestion {
		t.Errorf("Kind = %q, want most recent put %q", rec.Kind, KindQuestion)
	}
}

func TestPending_TTLExpiry(t *testing.T) {
	s := NewPendingStore(testSession(t))

	base := time.Now()
	s.SetClock(func() time.Time { return base })
	s.Put(KindPermission, nil)

	// Just under the TTL: still live.
	s.SetClock(func() time.Time { return base.Add(PendingTTL - time.Second) })
	if _, ok := s.Peek(); !ok {
		t.Fatal("record expired before TTL")
	}

	// At the TTL: absent, even though the file still exists.
	s.SetClock(func() time.Time { return base.Add(PendingTTL) })
	if _, ok := s.Peek(); ok {
		t.Fatal("record still live at TTL")
	}
}

func TestPending_ClearIdempotent(t *testing.T) {
	s := NewPendingStore(testSession(t))

	s.Put(KindPermission, nil)
	s.Clear()
	if _, ok := s.Peek(); ok {
		t.Fatal("Peek after Clear returned a record")
	}
	// Clearing an absent record is a no-op.
	s.Clear()
}

func TestPending_CorruptFileTreatedAsAbsent(t *testing.T) {
	sess := testSession(t)
	s := NewPendingStore(sess)

	if err := sess.EnsureDir(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(sess.Path("pending.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Peek(); ok {
		t.Fatal("Peek of corrupt record returned a record")
	}
}

func TestPending_UnknownKindIgnored(t *testing.T) {
	s := NewPendingStore(testSession(t))
	s.Put(PromptKind("mystery"), nil)
	if _, ok := s.Peek(); ok {
		t.Fatal("unknown kind should not be stored")
	}
}
