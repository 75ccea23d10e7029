// Package relay correlates locally-raised approval prompts with replies
// from a remote operator, and queues uncorrelated replies for the next
// session turn.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/zulandar/heliograph/internal/channel"
	"github.com/zulandar/heliograph/internal/session"
	"github.com/zulandar/heliograph/internal/state"
)

// Behavior is the decision handed back to the prompt hook.
type Behavior string

const (
	// BehaviorAsk surfaces the local prompt UI and waits.
	BehaviorAsk Behavior = "ask"
	// BehaviorAllow approves immediately so the option UI renders; the
	// operator's numeric reply is injected as a keystroke afterwards.
	BehaviorAllow Behavior = "allow"
)

// PromptDecision is the outcome of RaisePrompt.
type PromptDecision struct {
	// Forwarded is false when no operator is configured: the caller must
	// fall back to local-only prompting.
	Forwarded bool
	Behavior  Behavior
}

// Recorder persists prompt and reply records for history and the daily
// digest. A nil Recorder disables recording.
type Recorder interface {
	RecordPrompt(sessionID string, kind state.PromptKind, toolName string) error
	RecordAnswer(sessionID string, kind state.PromptKind, response string) error
	RecordInbox(sessionID, sender, text string) error
}

// Relay owns the per-session prompt/reply state machine.
type Relay struct {
	sess       session.Session
	adapter    channel.Adapter
	operatorID string
	recorder   Recorder

	pending  *state.PendingStore
	dedup    *state.DedupSet
	inbox    *state.Inbox
	trigger  *state.Trigger
	response *state.ResponseSlot
}

// Opts holds parameters for creating a Relay.
type Opts struct {
	Session session.Session
	Adapter channel.Adapter
	// OperatorID is the authorized remote sender. Empty disables
	// forwarding entirely; RaisePrompt then reports local-only fallback.
	OperatorID string
	Recorder   Recorder // optional
}

// New creates a Relay bound to one session's state directory.
func New(opts Opts) (*Relay, error) {
	if opts.Session.ID == "" {
		return nil, fmt.Errorf("relay: session is required")
	}
	if opts.OperatorID != "" && opts.Adapter == nil {
		return nil, fmt.Errorf("relay: adapter is required when an operator is configured")
	}

	return &Relay{
		sess:       opts.Session,
		adapter:    opts.Adapter,
		operatorID: opts.OperatorID,
		recorder:   opts.Recorder,
		pending:    state.NewPendingStore(opts.Session),
		dedup:      state.NewDedupSet(opts.Session),
		inbox:      state.NewInbox(opts.Session),
		trigger:    state.NewTrigger(opts.Session),
		response:   state.NewResponseSlot(opts.Session),
	}, nil
}

// Forwarding reports whether remote forwarding is enabled.
func (r *Relay) Forwarding() bool { return r.operatorID != "" }

// Pending exposes the pending store, for callers that need clock injection.
func (r *Relay) Pending() *state.PendingStore { return r.pending }

// RaisePrompt records a locally-raised prompt and forwards it to the
// operator. It is called before any local UI surfaces. Send failures are
// logged and swallowed: the local prompt must never be blocked by the
// remote channel.
func (r *Relay) RaisePrompt(ctx context.Context, kind state.PromptKind, payload PromptPayload) PromptDecision {
	if !r.Forwarding() {
		return PromptDecision{Forwarded: false, Behavior: BehaviorAsk}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("relay: marshal prompt payload: %v", err)
		return PromptDecision{Forwarded: false, Behavior: BehaviorAsk}
	}
	r.pending.Put(kind, raw)

	if err := r.adapter.Send(ctx, channel.OutboundMessage{
		Text: FormatPrompt(kind, payload),
		HTML: true,
	}); err != nil {
		log.Printf("relay: forward prompt: %v", err)
	}

	if r.recorder != nil {
		if err := r.recorder.RecordPrompt(r.sess.ID, kind, payload.ToolName); err != nil {
			log.Printf("relay: record prompt: %v", err)
		}
	}

	// Questions are approved immediately so the option UI renders; the
	// operator's numeric reply is injected as a keystroke.
	behavior := BehaviorAsk
	if kind == state.KindQuestion {
		behavior = BehaviorAllow
	}
	return PromptDecision{Forwarded: true, Behavior: behavior}
}

// OnInboundMessage processes one delivered message from the channel
// client. Duplicates are dropped before any other side effect. Messages
// from anyone but the operator are dropped silently, with no reply.
func (r *Relay) OnInboundMessage(ctx context.Context, msg channel.InboundMessage) {
	if !r.dedup.Admit(msg.Platform + ":" + msg.MessageID) {
		return
	}
	if msg.SenderID != r.operatorID {
		log.Printf("relay: dropped message from unauthorized sender %s", msg.SenderID)
		return
	}

	pending, hasPending := r.pending.Peek()
	c := classify(pending, hasPending, msg.Text)

	switch c.Action {
	case ActionAnswer:
		if err := r.response.Write(c.Response, c.Kind); err != nil {
			// Degrade to the inbox rather than losing the reply.
			log.Printf("relay: write response: %v", err)
			r.enqueue(msg)
			break
		}
		r.pending.Clear()
		r.confirm(ctx, c)
		if r.recorder != nil {
			if err := r.recorder.RecordAnswer(r.sess.ID, c.Kind, c.Response); err != nil {
				log.Printf("relay: record answer: %v", err)
			}
		}

	case ActionEnqueue:
		r.enqueue(msg)
	}

	// Wake the watcher exactly once per admitted message.
	r.trigger.Signal()
}

// DrainInbox returns and clears the queued uncorrelated replies.
func (r *Relay) DrainInbox() []state.InboxEntry {
	return r.inbox.Drain()
}

func (r *Relay) enqueue(msg channel.InboundMessage) {
	r.inbox.Enqueue(state.InboxEntry{
		From:       msg.SenderName,
		Text:       msg.Text,
		Attachment: msg.Attachment,
		ReceivedAt: msg.ReceivedAt,
	})
	if r.recorder != nil {
		if err := r.recorder.RecordInbox(r.sess.ID, msg.SenderName, msg.Text); err != nil {
			log.Printf("relay: record inbox entry: %v", err)
		}
	}
}

func outboundHTML(text string) channel.OutboundMessage {
	return channel.OutboundMessage{Text: text, HTML: true}
}

// confirm acknowledges a correlated answer to the operator.
func (r *Relay) confirm(ctx context.Context, c Classification) {
	text := fmt.Sprintf("✅ Answered <b>%s</b> with <b>%s</b>", c.Kind, escapeHTML(c.Response))
	if err := r.adapter.Send(ctx, channel.OutboundMessage{Text: text, HTML: true}); err != nil {
		log.Printf("relay: send confirmation: %v", err)
	}
}
