package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/zulandar/heliograph/internal/session"
	"github.com/zulandar/heliograph/internal/state"
)

// DefaultPollInterval is how often the watcher checks for new state.
const DefaultPollInterval = time.Second

// Watcher is the long-lived injection process. Each poll it takes a
// ResponseRecord if one exists and types the answer; otherwise it consumes
// a pending trigger and types a bare Enter to wake the session.
type Watcher struct {
	sess     session.Session
	lease    *LeaseManager
	injector Injector
	response *state.ResponseSlot
	trigger  *state.Trigger

	pid      int
	target   Target
	interval time.Duration
}

// WatcherOpts holds parameters for creating a Watcher.
type WatcherOpts struct {
	Session  session.Session
	Lease    *LeaseManager
	Injector Injector
	Target   Target        // injection target captured at lease acquisition
	PID      int           // defaults to os.Getpid()
	Interval time.Duration // defaults to DefaultPollInterval
}

// NewWatcher creates a Watcher.
func NewWatcher(opts WatcherOpts) (*Watcher, error) {
	if opts.Session.ID == "" {
		return nil, fmt.Errorf("watch: session is required")
	}
	if opts.Lease == nil {
		return nil, fmt.Errorf("watch: lease manager is required")
	}
	if opts.Injector == nil {
		return nil, fmt.Errorf("watch: injector is required")
	}
	pid := opts.PID
	if pid == 0 {
		pid = os.Getpid()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		sess:     opts.Session,
		lease:    opts.Lease,
		injector: opts.Injector,
		response: state.NewResponseSlot(opts.Session),
		trigger:  state.NewTrigger(opts.Session),
		pid:      pid,
		target:   opts.Target,
		interval: interval,
	}, nil
}

// Run polls until the context is cancelled. The lease is re-stamped every
// poll so contenders see a live watcher; it is released on exit.
func (w *Watcher) Run(ctx context.Context) error {
	log.Printf("watch: watcher %d online for session %s", w.pid, w.sess.ID)
	defer w.lease.Release(w.pid)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("watch: watcher %d stopping", w.pid)
			return nil
		case <-ticker.C:
			if err := w.lease.Refresh(w.pid); err != nil {
				log.Printf("watch: refresh lease: %v", err)
			}
			w.poll(ctx)
		}
	}
}

// poll handles one tick: answer injection wins over a bare wake.
func (w *Watcher) poll(ctx context.Context) {
	if rec, ok := w.response.Take(); ok {
		// The trigger for this answer is consumed too so the next tick
		// does not send a stray Enter.
		w.trigger.Consume()
		w.inject(ctx, rec)
		return
	}

	if w.trigger.Consume() {
		if err := w.injector.SendEnter(ctx, w.target); err != nil {
			log.Printf("watch: wake keypress: %v", err)
		}
	}
}

// inject types the answer for one ResponseRecord. The keystrokes are the
// normalized response itself: y/n/a for permissions and plans, the option
// number for questions.
func (w *Watcher) inject(ctx context.Context, rec state.ResponseRecord) {
	log.Printf("watch: injecting %s answer %q", rec.PromptType, rec.Response)
	if err := w.injector.SendKeys(ctx, w.target, rec.Response); err != nil {
		log.Printf("watch: inject answer: %v", err)
	}
}
