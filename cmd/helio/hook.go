package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/heliograph/internal/relay"
	"github.com/zulandar/heliograph/internal/state"
	"github.com/zulandar/heliograph/internal/watch"
)

// hostProcessName is the process the watcher looks for when resolving the
// injection target.
const hostProcessName = "claude"

// hookInput is the JSON the host session pipes to permission hooks.
type hookInput struct {
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input"`
}

// hookDecision is the JSON handed back to the host session.
type hookDecision struct {
	Decision struct {
		Behavior string `json:"behavior"`
	} `json:"decision"`
}

// contextOutput injects queued operator messages into the next turn.
type contextOutput struct {
	HookSpecificOutput struct {
		HookEventName     string `json:"hookEventName"`
		AdditionalContext string `json:"additionalContext"`
	} `json:"hookSpecificOutput"`
}

func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Hook entry points called by the host session",
		Long: "Subcommands wired into the host session's hook configuration:\n" +
			"`hook prompt` forwards a permission prompt, `hook context` injects\n" +
			"queued operator messages into the next turn.",
	}
	cmd.AddCommand(newHookPromptCmd())
	cmd.AddCommand(newHookContextCmd())
	return cmd
}

func newHookPromptCmd() *cobra.Command {
	var root, path string

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Forward a permission prompt to the operator",
		Long: "Reads the hook payload from stdin, forwards the prompt to the remote\n" +
			"operator, ensures a watcher is running, and prints the hook decision.\n" +
			"Never fails the hosting prompt: every error degrades to {behavior: ask}.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHookPrompt(cmd, root, path)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "state root directory (default ~/.heliograph)")
	cmd.Flags().StringVar(&path, "path", "", "project path (default current directory)")
	return cmd
}

func runHookPrompt(cmd *cobra.Command, root, path string) error {
	// Whatever happens, the host gets a valid decision.
	behavior := relay.BehaviorAsk
	defer func() {
		var out hookDecision
		out.Decision.Behavior = string(behavior)
		json.NewEncoder(cmd.OutOrStdout()).Encode(out)
	}()

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		log.Printf("hook: read stdin: %v", err)
		return nil
	}
	var input hookInput
	if err := json.Unmarshal(data, &input); err != nil {
		log.Printf("hook: parse input: %v", err)
		return nil
	}

	a, err := buildApp(appOpts{root: root, contextPath: path, withHistory: true})
	if err != nil {
		log.Printf("hook: %v", err)
		return nil
	}

	ctx := cmd.Context()
	if a.adapter != nil {
		if err := a.adapter.Connect(ctx); err != nil {
			log.Printf("hook: connect: %v", err)
			return nil
		}
		defer a.adapter.Close()
	}

	decision := a.relay.RaisePrompt(ctx, promptKindFor(input.ToolName), relay.PromptPayload{
		ToolName:  input.ToolName,
		ToolInput: input.ToolInput,
	})
	behavior = decision.Behavior

	if decision.Forwarded {
		ensureWatcher(ctx, a, path)
	}
	return nil
}

// promptKindFor maps a tool name to its prompt kind.
func promptKindFor(toolName string) state.PromptKind {
	switch toolName {
	case "AskUserQuestion":
		return state.KindQuestion
	case "ExitPlanMode":
		return state.KindPlanApproval
	case "EnterPlanMode":
		return state.KindPlanEntry
	default:
		return state.KindPermission
	}
}

// ensureWatcher acquires the watcher lease and spawns a detached watcher.
// Contention means a watcher is already running, which is the common case.
func ensureWatcher(ctx context.Context, a *app, contextPath string) {
	resolver := watch.NewResolver(hostProcessName)
	lease := watch.NewLeaseManager(a.sess, resolver.Resolve)

	if _, err := lease.Acquire(ctx, os.Getpid()); err != nil {
		if !errors.Is(err, watch.ErrContended) {
			log.Printf("hook: acquire lease: %v", err)
		}
		return
	}

	pid, err := watch.Spawn(a.sess, contextPath, "")
	if err != nil {
		log.Printf("hook: spawn watcher: %v", err)
		lease.Release(os.Getpid())
		return
	}
	log.Printf("hook: spawned watcher %d for session %s", pid, a.sess.ID)
}

func newHookContextCmd() *cobra.Command {
	var root, path string

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Inject queued operator messages into the next turn",
		Long: "Drains the session inbox and prints queued operator messages as\n" +
			"additional context. Prints nothing when the inbox is empty.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHookContext(cmd, root, path)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "state root directory (default ~/.heliograph)")
	cmd.Flags().StringVar(&path, "path", "", "project path (default current directory)")
	return cmd
}

func runHookContext(cmd *cobra.Command, root, path string) error {
	a, err := buildApp(appOpts{root: root, contextPath: path})
	if err != nil {
		// Silent: context injection must never break the turn.
		log.Printf("hook: %v", err)
		return nil
	}

	entries := a.relay.DrainInbox()
	if len(entries) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("[Remote Messages Received]\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "[%s] %s: ", e.ReceivedAt.Format("15:04:05"), e.From)
		if e.Attachment != "" {
			fmt.Fprintf(&b, "[Image: %s]", e.Attachment)
			if e.Text != "" {
				b.WriteString(" ")
			}
		}
		b.WriteString(e.Text)
		b.WriteString("\n")
	}
	b.WriteString("[End Remote Messages]")

	var out contextOutput
	out.HookSpecificOutput.HookEventName = "UserPromptSubmit"
	out.HookSpecificOutput.AdditionalContext = b.String()
	return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
}
