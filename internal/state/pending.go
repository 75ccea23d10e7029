package state

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/zulandar/heliograph/internal/session"
)

// pendingFile is the single-slot pending prompt record.
const pendingFile = "pending.json"

// PendingTTL is how long a pending prompt remains answerable from the remote
// side. After this the local default prompt behavior has long since taken
// over, so a reply must be treated as a generic message instead.
const PendingTTL = 5 * time.Minute

// PromptKind is the taxonomy of prompt shapes, each with its own reply grammar.
type PromptKind string

const (
	KindPermission   PromptKind = "permission"
	KindQuestion     PromptKind = "question"
	KindPlanApproval PromptKind = "plan_approval"
	KindPlanEntry    PromptKind = "plan_entry"
)

// Valid reports whether k is a known prompt kind.
func (k PromptKind) Valid() bool {
	switch k {
	case KindPermission, KindQuestion, KindPlanApproval, KindPlanEntry:
		return true
	}
	return false
}

// PendingRequest is a locally-raised prompt awaiting a remote answer.
// Payload is kind-specific and opaque to the store (tool name and input for
// permission prompts, the question list for question prompts).
type PendingRequest struct {
	Kind      PromptKind      `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// PendingStore is the single-slot, TTL-bounded record of "a prompt is
// currently awaiting a remote answer" for one session. There is at most one
// pending prompt per session; writing a new one supersedes any previous one.
type PendingStore struct {
	sess session.Session
	now  func() time.Time
}

// NewPendingStore creates a PendingStore for the session.
func NewPendingStore(sess session.Session) *PendingStore {
	return &PendingStore{sess: sess, now: time.Now}
}

// SetClock overrides the store's time source. Used by tests to advance
// virtual time past the TTL.
func (s *PendingStore) SetClock(now func() time.Time) { s.now = now }

// Put overwrites the pending slot unconditionally, stamping the current
// time. A storage failure is logged and swallowed — the prompt simply won't
// be remotely answerable.
func (s *PendingStore) Put(kind PromptKind, payload json.RawMessage) {
	if !kind.Valid() {
		log.Printf("state: pending: ignoring unknown kind %q", kind)
		return
	}
	rec := PendingRequest{
		Kind:      kind,
		Payload:   payload,
		CreatedAt: s.now(),
	}
	if err := writeJSON(s.sess, pendingFile, rec); err != nil {
		log.Printf("state: pending: write: %v", err)
	}
}

// Peek returns the pending request if one exists and is still live.
// An expired-but-not-yet-deleted record is reported as absent. Peek never
// mutates state.
func (s *PendingStore) Peek() (PendingRequest, bool) {
	var rec PendingRequest
	if !readJSON(s.sess.Path(pendingFile), &rec) {
		return PendingRequest{}, false
	}
	if !rec.Kind.Valid() {
		return PendingRequest{}, false
	}
	if s.now().Sub(rec.CreatedAt) >= PendingTTL {
		return PendingRequest{}, false
	}
	return rec, true
}

// Clear removes the pending record. Clearing an absent record is a no-op.
func (s *PendingStore) Clear() {
	if err := os.Remove(s.sess.Path(pendingFile)); err != nil && !os.IsNotExist(err) {
		log.Printf("state: pending: clear: %v", err)
	}
}

// String describes the store's file for diagnostics.
func (s *PendingStore) String() string {
	return fmt.Sprintf("pending[%s]", s.sess.ID)
}
