package state

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/zulandar/heliograph/internal/session"
)

const (
	// triggerFile is the wake marker consumed by the input watcher.
	triggerFile = "trigger.txt"
	// responseFile is the single-slot correlated answer record.
	responseFile = "response.json"
)

// Trigger is the idempotent "re-check local state now" signal between the
// relay and the input watcher. Re-writing it before it is consumed is a
// no-op from the watcher's point of view; consuming it is destructive.
type Trigger struct {
	sess session.Session
}

// NewTrigger creates a Trigger for the session.
func NewTrigger(sess session.Session) *Trigger {
	return &Trigger{sess: sess}
}

// Signal writes a fresh timestamp marker. I/O failure is logged and
// ignored — a missed wake degrades to the watcher's next heuristic poll.
func (t *Trigger) Signal() {
	if err := t.sess.EnsureDir(); err != nil {
		log.Printf("state: trigger: ensure dir: %v", err)
		return
	}
	stamp := time.Now().UTC().Format(time.RFC3339Nano) + "\n"
	if err := os.WriteFile(t.sess.Path(triggerFile), []byte(stamp), 0o644); err != nil {
		log.Printf("state: trigger: write: %v", err)
	}
}

// Pending reports whether an unconsumed signal exists.
func (t *Trigger) Pending() bool {
	_, err := os.Stat(t.sess.Path(triggerFile))
	return err == nil
}

// Consume removes the marker and reports whether one existed. At most one
// caller observes true per Signal.
func (t *Trigger) Consume() bool {
	err := os.Remove(t.sess.Path(triggerFile))
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		log.Printf("state: trigger: consume: %v", err)
	}
	return false
}

// SignaledAt returns the timestamp of the pending signal, if any.
func (t *Trigger) SignaledAt() (time.Time, bool) {
	data, err := os.ReadFile(t.sess.Path(triggerFile))
	if err != nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// ResponseRecord is a validated remote answer handed off for local keystroke
// injection, written once per correlated reply.
type ResponseRecord struct {
	Response   string     `json:"response"`
	PromptType PromptKind `json:"prompt_type"`
	WrittenAt  time.Time  `json:"written_at"`
}

// ResponseSlot is the single-slot, consume-and-delete channel carrying a
// ResponseRecord from the relay to the watcher.
type ResponseSlot struct {
	sess session.Session
}

// NewResponseSlot creates a ResponseSlot for the session.
func NewResponseSlot(sess session.Session) *ResponseSlot {
	return &ResponseSlot{sess: sess}
}

// Write stores the correlated answer. Idempotent trigger semantics are the
// Trigger's job; the slot itself is last-writer-wins.
func (r *ResponseSlot) Write(response string, kind PromptKind) error {
	rec := ResponseRecord{
		Response:   response,
		PromptType: kind,
		WrittenAt:  time.Now().UTC(),
	}
	return writeJSON(r.sess, responseFile, rec)
}

// Take reads and deletes the record. Returns false when the slot is empty
// or the record is unreadable; an unreadable record is left in place so an
// in-flight write is not destroyed between two polls.
func (r *ResponseSlot) Take() (ResponseRecord, bool) {
	path := r.sess.Path(responseFile)
	var rec ResponseRecord
	if !readJSON(path, &rec) {
		return ResponseRecord{}, false
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("state: response: remove: %v", err)
	}
	if rec.Response == "" {
		return ResponseRecord{}, false
	}
	return rec, true
}
