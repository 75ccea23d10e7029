package watch

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// fakeRunner answers external queries from a canned table keyed by the
// joined command line.
type fakeRunner struct {
	responses map[string]string
	calls     []string
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) (string, error) {
	cmdline := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, cmdline)
	if out, ok := f.responses[cmdline]; ok {
		return out, nil
	}
	return "", fmt.Errorf("fake: no response for %q", cmdline)
}

func TestResolveByAncestry(t *testing.T) {
	// Process tree: self(500) <- shell(400) <- claude(300) <- pane shell(200).
	fake := &fakeRunner{responses: map[string]string{
		"ps -o comm= -p 500": "helio",
		"ps -o ppid= -p 500": "400",
		"ps -o comm= -p 400": "zsh",
		"ps -o ppid= -p 400": "300",
		"ps -o comm= -p 300": "claude",
		"ps -o ppid= -p 300": "200",
		"ps -o ppid= -p 200": "1",
		"tmux list-panes -a -F #{pane_id} #{pane_pid}": "%1 9999\n%2 200",
	}}
	r := &Resolver{run: fake.run, hostName: "claude", selfPID: 500}

	target := r.Resolve(context.Background())
	if target.PaneID != "%2" {
		t.Errorf("PaneID = %q, want %%2", target.PaneID)
	}
	if target.PID != 300 {
		t.Errorf("PID = %d, want 300", target.PID)
	}
	if target.Method != "ancestry" {
		t.Errorf("Method = %q, want ancestry", target.Method)
	}
}

func TestResolveFallsBackToCurrentPane(t *testing.T) {
	t.Setenv("TMUX", "/tmp/tmux-1000/default,123,0")
	// No host process anywhere in the ancestry.
	fake := &fakeRunner{responses: map[string]string{
		"ps -o comm= -p 500":             "helio",
		"ps -o ppid= -p 500":             "1",
		"tmux display-message -p #{pane_id}": "%5",
	}}
	r := &Resolver{run: fake.run, hostName: "claude", selfPID: 500}

	target := r.Resolve(context.Background())
	if target.PaneID != "%5" {
		t.Errorf("PaneID = %q, want %%5", target.PaneID)
	}
	if target.Method != "current-pane" {
		t.Errorf("Method = %q, want current-pane", target.Method)
	}
}

func TestResolveDegradesToUnknown(t *testing.T) {
	t.Setenv("TMUX", "")
	// Every external query fails.
	fake := &fakeRunner{responses: map[string]string{}}
	r := &Resolver{run: fake.run, hostName: "claude", selfPID: 500}

	target := r.Resolve(context.Background())
	if target.Known() {
		t.Errorf("target = %+v, want unknown", target)
	}
}

func TestResolveStopsOnPpidCycle(t *testing.T) {
	t.Setenv("TMUX", "")
	fake := &fakeRunner{responses: map[string]string{
		"ps -o comm= -p 500": "helio",
		"ps -o ppid= -p 500": "500", // degenerate ps output
	}}
	r := &Resolver{run: fake.run, hostName: "claude", selfPID: 500}

	if target := r.Resolve(context.Background()); target.Known() {
		t.Errorf("target = %+v, want unknown", target)
	}
}
