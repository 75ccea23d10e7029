package relay

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/zulandar/heliograph/internal/state"
)

func TestFormatPermissionBashCommand(t *testing.T) {
	msg := FormatPrompt(state.KindPermission, PromptPayload{
		ToolName:  "Bash",
		ToolInput: json.RawMessage(`{"command":"rm -rf /tmp/scratch"}`),
	})

	for _, want := range []string{
		"Permission Request",
		"<b>Tool:</b> Bash",
		"<code>rm -rf /tmp/scratch</code>",
		"<b>y</b> (yes) / <b>n</b> (no) / <b>a</b> (always)",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatPermissionEscapesHTML(t *testing.T) {
	msg := FormatPrompt(state.KindPermission, PromptPayload{
		ToolName:  "Bash",
		ToolInput: json.RawMessage(`{"command":"echo '<b>&</b>'"}`),
	})
	if !strings.Contains(msg, "&lt;b&gt;&amp;&lt;/b&gt;") {
		t.Errorf("command not escaped:\n%s", msg)
	}
}

func TestFormatPermissionFilePath(t *testing.T) {
	msg := FormatPrompt(state.KindPermission, PromptPayload{
		ToolName:  "Edit",
		ToolInput: json.RawMessage(`{"file_path":"/etc/hosts","old_string":"x"}`),
	})
	if !strings.Contains(msg, "File: <code>/etc/hosts</code>") {
		t.Errorf("file path detail missing:\n%s", msg)
	}
}

func TestFormatQuestionNumbersOptions(t *testing.T) {
	input := `{"questions":[{"question":"Which database?","options":[
		{"label":"Postgres","description":"relational"},
		{"label":"Redis"}
	]}]}`
	msg := FormatPrompt(state.KindQuestion, PromptPayload{
		ToolName:  "AskUserQuestion",
		ToolInput: json.RawMessage(input),
	})

	for _, want := range []string{
		"<b>Which database?</b>",
		"<b>1.</b> Postgres",
		"<i>relational</i>",
		"<b>2.</b> Redis",
		"<b>3.</b> Other (custom text)",
		"Reply with <b>number</b> to select",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatQuestionWithoutQuestionsFallsBack(t *testing.T) {
	msg := FormatPrompt(state.KindQuestion, PromptPayload{
		ToolName:  "AskUserQuestion",
		ToolInput: json.RawMessage(`{}`),
	})
	if !strings.Contains(msg, "Permission Request") {
		t.Errorf("expected permission fallback:\n%s", msg)
	}
}

func TestFormatPlanKinds(t *testing.T) {
	approval := FormatPrompt(state.KindPlanApproval, PromptPayload{})
	if !strings.Contains(approval, "Plan Ready for Review") {
		t.Errorf("plan approval message wrong:\n%s", approval)
	}
	entry := FormatPrompt(state.KindPlanEntry, PromptPayload{})
	if !strings.Contains(entry, "Enter Plan Mode?") {
		t.Errorf("plan entry message wrong:\n%s", entry)
	}
	for _, msg := range []string{approval, entry} {
		if !strings.Contains(msg, "<b>y</b> (approve) / <b>n</b> (reject)") {
			t.Errorf("plan footer missing:\n%s", msg)
		}
		if strings.Contains(msg, "always") {
			t.Errorf("plan message must not offer always:\n%s", msg)
		}
	}
}

func TestFormatPermissionGenericDetails(t *testing.T) {
	msg := FormatPrompt(state.KindPermission, PromptPayload{
		ToolName:  "WebFetch",
		ToolInput: json.RawMessage(`{"url":"https://example.com","prompt":"summarize"}`),
	})
	if !strings.Contains(msg, "url") || !strings.Contains(msg, "example.com") {
		t.Errorf("generic details missing:\n%s", msg)
	}
}

func TestFormatPermissionTruncatesOnRuneBoundary(t *testing.T) {
	// 100 three-byte runes: a byte-indexed cut at 80 would split one.
	long := strings.Repeat("世", 100)
	input, err := json.Marshal(map[string]string{"prompt": long})
	if err != nil {
		t.Fatal(err)
	}
	msg := FormatPrompt(state.KindPermission, PromptPayload{
		ToolName:  "WebFetch",
		ToolInput: input,
	})

	if !utf8.ValidString(msg) {
		t.Fatalf("formatted message is not valid UTF-8:\n%s", msg)
	}
	if strings.Contains(msg, long) {
		t.Error("long value was not truncated")
	}
	if !strings.Contains(msg, "世") {
		t.Errorf("truncation dropped the value entirely:\n%s", msg)
	}
}
