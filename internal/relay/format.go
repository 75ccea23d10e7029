package relay

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/zulandar/heliograph/internal/state"
)

// PromptPayload is the persisted shape of a raised prompt.
type PromptPayload struct {
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
}

// questionInput mirrors the AskUserQuestion tool input we care about.
type questionInput struct {
	Questions []struct {
		Question string `json:"question"`
		Options  []struct {
			Label       string `json:"label"`
			Description string `json:"description"`
		} `json:"options"`
		MultiSelect bool `json:"multiSelect"`
	} `json:"questions"`
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }

// FormatPrompt renders a prompt as an HTML message for the operator,
// with a reply-grammar footer matching the prompt kind.
func FormatPrompt(kind state.PromptKind, payload PromptPayload) string {
	switch kind {
	case state.KindQuestion:
		if msg := formatQuestion(payload); msg != "" {
			return msg
		}
		return formatPermission(payload)
	case state.KindPlanApproval:
		var b strings.Builder
		b.WriteString("📋 <b>Plan Ready for Review</b>\n")
		b.WriteString("\nThe session has finished planning and wants approval to proceed.")
		b.WriteString("\n\nReply: <b>y</b> (approve) / <b>n</b> (reject)")
		return b.String()
	case state.KindPlanEntry:
		var b strings.Builder
		b.WriteString("📝 <b>Enter Plan Mode?</b>\n")
		b.WriteString("\nThe session wants to design an approach before implementing.")
		b.WriteString("\n\nReply: <b>y</b> (approve) / <b>n</b> (reject)")
		return b.String()
	default:
		return formatPermission(payload)
	}
}

// formatQuestion renders an AskUserQuestion payload with numbered options.
// Returns "" when the payload carries no questions.
func formatQuestion(payload PromptPayload) string {
	var input questionInput
	if err := json.Unmarshal(payload.ToolInput, &input); err != nil || len(input.Questions) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("❓ <b>The session has a question</b>\n")

	for _, q := range input.Questions {
		fmt.Fprintf(&b, "\n<b>%s</b>\n", escapeHTML(q.Question))
		for i, opt := range q.Options {
			fmt.Fprintf(&b, "\n<b>%d.</b> %s", i+1, escapeHTML(opt.Label))
			if opt.Description != "" {
				fmt.Fprintf(&b, "\n    <i>%s</i>", escapeHTML(opt.Description))
			}
		}
		// "Other" is always offered as the final slot.
		fmt.Fprintf(&b, "\n<b>%d.</b> Other (custom text)", len(q.Options)+1)
		if q.MultiSelect {
			b.WriteString("\n\n<i>(Multi-select: reply with comma-separated numbers)</i>")
		}
	}

	b.WriteString("\n\nReply with <b>number</b> to select, or <b>y</b> to approve")
	return b.String()
}

// formatPermission renders a tool permission request with tool-specific
// detail lines for the common tools.
func formatPermission(payload PromptPayload) string {
	details := permissionDetails(payload)

	var b strings.Builder
	b.WriteString("🔐 <b>Permission Request</b>\n")
	fmt.Fprintf(&b, "\n<b>Tool:</b> %s", escapeHTML(payload.ToolName))
	if details != "" {
		b.WriteString("\n" + details)
	}
	b.WriteString("\n\nReply: <b>y</b> (yes) / <b>n</b> (no) / <b>a</b> (always)")
	return b.String()
}

func permissionDetails(payload PromptPayload) string {
	var input map[string]json.RawMessage
	if err := json.Unmarshal(payload.ToolInput, &input); err != nil || len(input) == 0 {
		return ""
	}

	switch payload.ToolName {
	case "Bash":
		if cmd := rawString(input["command"]); cmd != "" {
			return fmt.Sprintf("<code>%s</code>", escapeHTML(cmd))
		}
	case "Edit", "Write", "Read":
		if path := rawString(input["file_path"]); path != "" {
			return fmt.Sprintf("File: <code>%s</code>", escapeHTML(path))
		}
	}

	// Generic fallback: the first few fields, values truncated.
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 3 {
		keys = keys[:3]
	}

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", escapeHTML(k), escapeHTML(truncate(string(input[k]), 80))))
	}
	return strings.Join(lines, "\n")
}

// truncate cuts s to at most max runes, keeping it valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// rawString unmarshals a raw JSON value as a string, or returns "".
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
