package state

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestTrigger_SignalConsume(t *testing.T) {
	tr := NewTrigger(testSession(t))

	if tr.Pending() {
		t.Fatal("fresh trigger should not be pending")
	}
	if tr.Consume() {
		t.Fatal("Consume with no signal returned true")
	}

	tr.Signal()
	if !tr.Pending() {
		t.Fatal("Pending = false after Signal")
	}
	if !tr.Consume() {
		t.Fatal("Consume after Signal returned false")
	}
	if tr.Consume() {
		t.Fatal("second Consume returned true")
	}
}

func TestTrigger_ResignalIsIdempotent(t *testing.T) {
	tr := NewTrigger(testSession(t))

	tr.Signal()
	tr.Signal()
	tr.Signal()

	if !tr.Consume() {
		t.Fatal("Consume returned false")
	}
	// Three signals before a consume collapse into one wake.
	if tr.Consume() {
		t.Fatal("re-signaling produced more than one consumable wake")
	}
}

func TestTrigger_SignaledAt(t *testing.T) {
	tr := NewTrigger(testSession(t))

	before := time.Now().Add(-time.Second)
	tr.Signal()

	ts, ok := tr.SignaledAt()
	if !ok {
		t.Fatal("SignaledAt returned absent after Signal")
	}
	if ts.Before(before) {
		t.Errorf("signal timestamp %v is before the Signal call", ts)
	}
}

func TestResponseSlot_WriteTake(t *testing.T) {
	r := NewResponseSlot(testSession(t))

	if err := r.Write("y", KindPermission); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rec, ok := r.Take()
	if !ok {
		t.Fatal("Take after Write returned absent")
	}
	if rec.Response != "y" {
		t.Errorf("Response = %q, want %q", rec.Response, "y")
	}
	if rec.PromptType != KindPermission {
		t.Errorf("PromptType = %q, want %q", rec.PromptType, KindPermission)
	}

	// Take is destructive.
	if _, ok := r.Take(); ok {
		t.Fatal("second Take returned a record")
	}
}

func TestResponseSlot_TakeEmpty(t *testing.T) {
	r := NewResponseSlot(testSession(t))
	if _, ok := r.Take(); ok {
		t.Fatal("Take on empty slot returned a record")
	}
}

func TestResponseSlot_LastWriterWins(t *testing.T) {
	r := NewResponseSlot(testSession(t))

	r.Write("y", KindPermission)
	r.Write("2", KindQuestion)

	rec, ok := r.Take()
	if !ok {
		t.Fatal("Take returned absent")
	}
	if rec.Response != "2" || rec.PromptType != KindQuestion {
		t.Errorf("got %+v, want the most recent write", rec)
	}
}

func TestResponseSlot_TornRecordNotConsumed(t *testing.T) {
	sess := testSession(t)
	r := NewResponseSlot(sess)

	if err := r.Write("y", KindPermission); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Truncate the record mid-way, as a reader racing an in-place rewrite
	// would see it.
	path := sess.Path(responseFile)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)/2], 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := r.Take(); ok {
		t.Fatal("Take returned a record for a torn file")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("torn record was deleted: %v", err)
	}

	// Once the record is whole again the answer goes through.
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	rec, ok := r.Take()
	if !ok {
		t.Fatal("Take after repair returned absent")
	}
	if rec.Response != "y" {
		t.Errorf("Response = %q, want %q", rec.Response, "y")
	}
}

func TestResponseSlot_WriteLeavesNoTempFiles(t *testing.T) {
	sess := testSession(t)
	r := NewResponseSlot(sess)

	if err := r.Write("n", KindPermission); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entries, err := os.ReadDir(sess.Dir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}
