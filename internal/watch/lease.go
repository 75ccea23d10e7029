// Package watch owns the keystroke-injection side of the relay: a single
// leased watcher process per session polls for answered prompts and wake
// triggers, and types the answer into the target pane.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/zulandar/heliograph/internal/session"
)

const (
	lockFile  = "acquire.lock"
	leaseFile = "watcher.json"
)

// Staleness is how old a lock or lease may be before a new acquirer is
// allowed to reclaim it. Both the acquisition lock and the lease record
// share the same window.
const Staleness = 30 * time.Second

// ErrContended reports that another acquirer holds a fresh lock or lease.
// Not an error condition for the caller beyond "do not spawn a watcher".
var ErrContended = errors.New("watch: another acquirer is active")

// LeaseRecord is the persisted claim of the single watcher process.
type LeaseRecord struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquiredAt"`
	Target     Target    `json:"target"`
}

// LeaseManager arbitrates the single-watcher lease for one session.
type LeaseManager struct {
	sess    session.Session
	now     func() time.Time
	resolve func(ctx context.Context) Target
}

// NewLeaseManager creates a LeaseManager. The resolver captures the
// injection target at acquisition time; nil means no target resolution.
func NewLeaseManager(sess session.Session, resolve func(ctx context.Context) Target) *LeaseManager {
	if resolve == nil {
		resolve = func(context.Context) Target { return Target{} }
	}
	return &LeaseManager{sess: sess, now: time.Now, resolve: resolve}
}

// SetClock overrides the time source. For tests.
func (m *LeaseManager) SetClock(now func() time.Time) { m.now = now }

// Acquire claims the watcher lease for pid. Exactly one of several
// concurrent acquirers wins; losers get ErrContended and must not spawn.
// A lock or lease older than Staleness is presumed dead and reclaimed.
// The acquisition lock is removed in every path so a crashed acquirer
// cannot wedge future attempts.
func (m *LeaseManager) Acquire(ctx context.Context, pid int) (LeaseRecord, error) {
	if err := m.sess.EnsureDir(); err != nil {
		return LeaseRecord{}, fmt.Errorf("watch: ensure session dir: %w", err)
	}

	lockPath := m.sess.Path(lockFile)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if !os.IsExist(err) {
			return LeaseRecord{}, fmt.Errorf("watch: create lock: %w", err)
		}
		// Lock exists. Reclaim only if it has gone stale.
		info, statErr := os.Stat(lockPath)
		if statErr == nil && m.now().Sub(info.ModTime()) < Staleness {
			return LeaseRecord{}, ErrContended
		}
		os.Remove(lockPath)
		f, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			// Lost the reclaim race.
			return LeaseRecord{}, ErrContended
		}
	}
	fmt.Fprintf(f, "%d\n", pid)
	f.Close()
	defer os.Remove(lockPath)

	// Under the lock: honor a fresh lease held by a live watcher.
	if _, ok := m.Peek(); ok {
		return LeaseRecord{}, ErrContended
	}

	// Capture the injection target before declaring success, persisting
	// it alongside the lease for diagnosability.
	rec := LeaseRecord{
		PID:        pid,
		AcquiredAt: m.now(),
		Target:     m.resolve(ctx),
	}
	if err := m.write(rec); err != nil {
		return LeaseRecord{}, err
	}
	return rec, nil
}

// Refresh re-stamps the lease so it stays fresh while the watcher runs.
// The recorded target is preserved.
func (m *LeaseManager) Refresh(pid int) error {
	rec, ok := m.read()
	if !ok {
		rec = LeaseRecord{PID: pid}
	}
	// The spawned watcher takes over the record the acquiring hook wrote;
	// the target captured at acquisition stays with the lease.
	rec.PID = pid
	rec.AcquiredAt = m.now()
	return m.write(rec)
}

// Peek returns the lease record if one exists and is still fresh.
func (m *LeaseManager) Peek() (LeaseRecord, bool) {
	rec, ok := m.read()
	if !ok {
		return LeaseRecord{}, false
	}
	if m.now().Sub(rec.AcquiredAt) >= Staleness {
		return LeaseRecord{}, false
	}
	return rec, true
}

// Release removes the lease record. Only the holding pid may release.
func (m *LeaseManager) Release(pid int) {
	if rec, ok := m.read(); ok && rec.PID != pid {
		return
	}
	os.Remove(m.sess.Path(leaseFile))
}

func (m *LeaseManager) read() (LeaseRecord, bool) {
	data, err := os.ReadFile(m.sess.Path(leaseFile))
	if err != nil {
		return LeaseRecord{}, false
	}
	var rec LeaseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// Corrupt lease records are treated as absent.
		return LeaseRecord{}, false
	}
	return rec, true
}

func (m *LeaseManager) write(rec LeaseRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("watch: marshal lease: %w", err)
	}
	if err := os.WriteFile(m.sess.Path(leaseFile), data, 0o644); err != nil {
		return fmt.Errorf("watch: write lease: %w", err)
	}
	return nil
}
