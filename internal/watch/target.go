package watch

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// queryTimeout bounds each external query made during target resolution.
const queryTimeout = 3 * time.Second

// Target identifies where answer keystrokes should be delivered. A zero
// Target means "no specific target": the injector falls back to a
// heuristic search at delivery time.
type Target struct {
	PaneID string `json:"paneId,omitempty"` // tmux pane holding the session
	PID    int    `json:"pid,omitempty"`    // owning process, when known
	Method string `json:"method,omitempty"` // which tier resolved it
}

// Known reports whether resolution found a concrete target.
func (t Target) Known() bool { return t.PaneID != "" }

// runner executes an external command and returns its trimmed stdout.
// Injectable for tests.
type runner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return strings.TrimSpace(string(out)), err
}

// Resolver finds the pane hosting the interactive session. Resolution is
// best-effort and tiered; every failure degrades to the next tier rather
// than propagating an error.
type Resolver struct {
	run      runner
	hostName string // process name identifying the host session
	selfPID  int
}

// NewResolver creates a Resolver that looks for hostName (e.g. "claude")
// in the process ancestry of the current process.
func NewResolver(hostName string) *Resolver {
	return &Resolver{run: execRunner, hostName: hostName, selfPID: os.Getpid()}
}

// Resolve attempts each tier in order:
//  1. walk the process ancestry for the host process and match its pane,
//  2. fall back to the pane this process is attached to (TMUX env),
//  3. give up and return a zero Target for heuristic delivery.
func (r *Resolver) Resolve(ctx context.Context) Target {
	if t, ok := r.resolveByAncestry(ctx); ok {
		return t
	}
	if t, ok := r.resolveCurrentPane(ctx); ok {
		return t
	}
	return Target{}
}

// resolveByAncestry walks up the process tree looking for the host
// process, then matches it against tmux pane ownership. The pane handle is
// more reliable than a bare PID where nested shells exist.
func (r *Resolver) resolveByAncestry(ctx context.Context) (Target, bool) {
	hostPID, ok := r.findHostAncestor(ctx)
	if !ok {
		return Target{}, false
	}

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	out, err := r.run(qctx, "tmux", "list-panes", "-a", "-F", "#{pane_id} #{pane_pid}")
	if err != nil {
		return Target{}, false
	}

	// A pane owns the host if its shell pid is an ancestor of the host.
	ancestors := r.ancestorSet(ctx, hostPID)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		panePID, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		if panePID == hostPID || ancestors[panePID] {
			return Target{PaneID: fields[0], PID: hostPID, Method: "ancestry"}, true
		}
	}
	return Target{}, false
}

// findHostAncestor walks parent pids from this process looking for the
// host process name. Bounded to a reasonable tree depth.
func (r *Resolver) findHostAncestor(ctx context.Context) (int, bool) {
	pid := r.selfPID
	for depth := 0; depth < 20 && pid > 1; depth++ {
		qctx, cancel := context.WithTimeout(ctx, queryTimeout)
		comm, err := r.run(qctx, "ps", "-o", "comm=", "-p", strconv.Itoa(pid))
		cancel()
		if err != nil {
			return 0, false
		}
		if strings.Contains(comm, r.hostName) {
			return pid, true
		}

		qctx, cancel = context.WithTimeout(ctx, queryTimeout)
		ppid, err := r.run(qctx, "ps", "-o", "ppid=", "-p", strconv.Itoa(pid))
		cancel()
		if err != nil {
			return 0, false
		}
		next, err := strconv.Atoi(strings.TrimSpace(ppid))
		if err != nil || next == pid {
			return 0, false
		}
		pid = next
	}
	return 0, false
}

// ancestorSet collects the ancestor pids of pid, for pane ownership checks.
func (r *Resolver) ancestorSet(ctx context.Context, pid int) map[int]bool {
	set := make(map[int]bool)
	for depth := 0; depth < 20 && pid > 1; depth++ {
		qctx, cancel := context.WithTimeout(ctx, queryTimeout)
		ppid, err := r.run(qctx, "ps", "-o", "ppid=", "-p", strconv.Itoa(pid))
		cancel()
		if err != nil {
			break
		}
		next, err := strconv.Atoi(strings.TrimSpace(ppid))
		if err != nil || next == pid {
			break
		}
		set[next] = true
		pid = next
	}
	return set
}

// resolveCurrentPane resolves the pane this process runs in, when inside
// tmux. Useful when the watcher is spawned from the session's own pane.
func (r *Resolver) resolveCurrentPane(ctx context.Context) (Target, bool) {
	if os.Getenv("TMUX") == "" {
		return Target{}, false
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	pane, err := r.run(qctx, "tmux", "display-message", "-p", "#{pane_id}")
	if err != nil || pane == "" {
		return Target{}, false
	}
	return Target{PaneID: pane, Method: "current-pane"}, true
}
