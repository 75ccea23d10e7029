package relay

import (
	"regexp"
	"strings"

	"github.com/zulandar/heliograph/internal/state"
)

// Action describes what an inbound reply should do.
type Action int

const (
	// ActionEnqueue routes the message to the inbox for the next turn.
	ActionEnqueue Action = iota
	// ActionAnswer correlates the message with the live pending prompt.
	ActionAnswer
)

// Classification is the outcome of classifying one inbound reply.
type Classification struct {
	Action   Action
	Response string          // normalized response, set when Action == ActionAnswer
	Kind     state.PromptKind // kind of the answered prompt
}

var questionIndexRe = regexp.MustCompile(`^\d+$`)

// classify decides whether text answers the live pending prompt. The grammar
// is kind-aware: "1" selects an option under a question prompt but means
// nothing under a permission prompt. Anything that does not match the live
// kind's grammar falls through to the inbox.
func classify(pending state.PendingRequest, hasPending bool, text string) Classification {
	if !hasPending {
		return Classification{Action: ActionEnqueue}
	}

	trimmed := strings.TrimSpace(text)

	switch pending.Kind {
	case state.KindPermission:
		if resp, ok := permissionResponse(trimmed); ok {
			return Classification{Action: ActionAnswer, Response: resp, Kind: pending.Kind}
		}
	case state.KindQuestion:
		// A bare integer selects an option 1-based; options.length+1 means
		// "other". Out-of-range values are forwarded verbatim, the injection
		// side owns range handling.
		if questionIndexRe.MatchString(trimmed) {
			return Classification{Action: ActionAnswer, Response: trimmed, Kind: pending.Kind}
		}
	case state.KindPlanApproval, state.KindPlanEntry:
		// Plans only accept y/n. "always" has no meaning here.
		if resp, ok := permissionResponse(trimmed); ok && resp != "a" {
			return Classification{Action: ActionAnswer, Response: resp, Kind: pending.Kind}
		}
	}

	return Classification{Action: ActionEnqueue}
}

// permissionResponse normalizes a permission-style reply.
func permissionResponse(text string) (string, bool) {
	switch strings.ToLower(text) {
	case "y", "yes":
		return "y", true
	case "n", "no":
		return "n", true
	case "a", "always":
		return "a", true
	}
	return "", false
}
