package watch

import (
	"context"
	"fmt"
	"strings"
)

// Injector delivers keystrokes to the interactive session.
type Injector interface {
	// SendKeys types keys literally, followed by Enter.
	SendKeys(ctx context.Context, target Target, keys string) error
	// SendEnter types a bare Enter, used as a generic wake keypress.
	SendEnter(ctx context.Context, target Target) error
}

// TmuxInjector injects keystrokes via tmux send-keys. When the target has
// no pane it searches all panes for one running the host process.
type TmuxInjector struct {
	run      runner
	hostName string
}

// NewTmuxInjector creates a TmuxInjector. hostName is used for the
// delivery-time heuristic when no pane was resolved at acquisition.
func NewTmuxInjector(hostName string) *TmuxInjector {
	return &TmuxInjector{run: execRunner, hostName: hostName}
}

func (inj *TmuxInjector) SendKeys(ctx context.Context, target Target, keys string) error {
	pane, err := inj.pane(ctx, target)
	if err != nil {
		return err
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	// -l sends the keys literally so "y" is never interpreted as a key name.
	if _, err := inj.run(qctx, "tmux", "send-keys", "-t", pane, "-l", keys); err != nil {
		return fmt.Errorf("watch: send keys to %s: %w", pane, err)
	}
	return inj.enter(ctx, pane)
}

func (inj *TmuxInjector) SendEnter(ctx context.Context, target Target) error {
	pane, err := inj.pane(ctx, target)
	if err != nil {
		return err
	}
	return inj.enter(ctx, pane)
}

func (inj *TmuxInjector) enter(ctx context.Context, pane string) error {
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if _, err := inj.run(qctx, "tmux", "send-keys", "-t", pane, "Enter"); err != nil {
		return fmt.Errorf("watch: send enter to %s: %w", pane, err)
	}
	return nil
}

// pane returns the resolved pane, or heuristically searches for the host
// process across all panes when none was captured.
func (inj *TmuxInjector) pane(ctx context.Context, target Target) (string, error) {
	if target.Known() {
		return target.PaneID, nil
	}

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	out, err := inj.run(qctx, "tmux", "list-panes", "-a", "-F", "#{pane_id} #{pane_current_command}")
	if err != nil {
		return "", fmt.Errorf("watch: list panes: %w", err)
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && strings.Contains(fields[1], inj.hostName) {
			return fields[0], nil
		}
	}
	return "", fmt.Errorf("watch: no pane running %q", inj.hostName)
}
