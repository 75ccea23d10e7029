package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/zulandar/heliograph/internal/session"
	"github.com/zulandar/heliograph/internal/state"
)

// mockInjector records injected keystrokes.
type mockInjector struct {
	mu     sync.Mutex
	keys   []string
	enters int
}

func (m *mockInjector) SendKeys(_ context.Context, _ Target, keys string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, keys)
	return nil
}

func (m *mockInjector) SendEnter(context.Context, Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enters++
	return nil
}

func (m *mockInjector) sentKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}

func (m *mockInjector) enterCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enters
}

func testWatcher(t *testing.T) (*Watcher, *mockInjector, session.Session) {
	t.Helper()
	sess := session.Resolve(t.TempDir(), "/home/dev/projects/api")
	inj := &mockInjector{}
	w, err := NewWatcher(WatcherOpts{
		Session:  sess,
		Lease:    NewLeaseManager(sess, nil),
		Injector: inj,
		PID:      100,
		Interval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	return w, inj, sess
}

func TestNewWatcherValidation(t *testing.T) {
	sess := session.Resolve(t.TempDir(), "/home/dev/projects/api")
	if _, err := NewWatcher(WatcherOpts{Lease: NewLeaseManager(sess, nil), Injector: &mockInjector{}}); err == nil {
		t.Error("expected error without a session")
	}
	if _, err := NewWatcher(WatcherOpts{Session: sess, Injector: &mockInjector{}}); err == nil {
		t.Error("expected error without a lease manager")
	}
	if _, err := NewWatcher(WatcherOpts{Session: sess, Lease: NewLeaseManager(sess, nil)}); err == nil {
		t.Error("expected error without an injector")
	}
}

func TestPollInjectsAnswer(t *testing.T) {
	w, inj, sess := testWatcher(t)

	slot := state.NewResponseSlot(sess)
	if err := slot.Write("y", state.KindPermission); err != nil {
		t.Fatalf("Write: %v", err)
	}
	state.NewTrigger(sess).Signal()

	w.poll(context.Background())

	if keys := inj.sentKeys(); len(keys) != 1 || keys[0] != "y" {
		t.Errorf("sent keys %v, want [y]", keys)
	}
	// The answer's trigger is consumed with it: no stray wake afterwards.
	w.poll(context.Background())
	if inj.enterCount() != 0 {
		t.Errorf("enter count = %d, want 0", inj.enterCount())
	}
	if _, ok := slot.Take(); ok {
		t.Error("response record not consumed")
	}
}

func TestPollInjectsQuestionSelection(t *testing.T) {
	w, inj, sess := testWatcher(t)

	slot := state.NewResponseSlot(sess)
	if err := slot.Write("3", state.KindQuestion); err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.poll(context.Background())

	if keys := inj.sentKeys(); len(keys) != 1 || keys[0] != "3" {
		t.Errorf("sent keys %v, want [3]", keys)
	}
}

func TestPollWakesOnTrigger(t *testing.T) {
	w, inj, sess := testWatcher(t)

	state.NewTrigger(sess).Signal()
	w.poll(context.Background())

	if inj.enterCount() != 1 {
		t.Errorf("enter count = %d, want 1", inj.enterCount())
	}
	if len(inj.sentKeys()) != 0 {
		t.Errorf("sent keys %v, want none", inj.sentKeys())
	}

	// Trigger is consumed: the next poll is a no-op.
	w.poll(context.Background())
	if inj.enterCount() != 1 {
		t.Errorf("enter count after second poll = %d, want 1", inj.enterCount())
	}
}

func TestPollIdleDoesNothing(t *testing.T) {
	w, inj, _ := testWatcher(t)
	w.poll(context.Background())
	if len(inj.sentKeys()) != 0 || inj.enterCount() != 0 {
		t.Error("idle poll must not inject anything")
	}
}

func TestRunRefreshesLeaseAndReleasesOnExit(t *testing.T) {
	w, _, sess := testWatcher(t)
	lease := NewLeaseManager(sess, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if rec, ok := lease.Peek(); ok && rec.PID == 100 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("watcher never refreshed the lease")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}

	if _, ok := lease.Peek(); ok {
		t.Error("lease not released on exit")
	}
}
