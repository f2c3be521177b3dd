package hookio

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	payload := `{
		"session_id": "sess-1",
		"hook_event_name": "PreToolUse",
		"tool_name": "Bash",
		"tool_input": {"command": "git merge feature"},
		"cwd": "/work/repo"
	}`

	in := Read(strings.NewReader(payload))
	if in == nil {
		t.Fatal("Read returned nil for valid payload")
	}
	if in.SessionID != "sess-1" {
		t.Errorf("SessionID = %q", in.SessionID)
	}
	if in.HookEventName != "PreToolUse" {
		t.Errorf("HookEventName = %q", in.HookEventName)
	}
	if in.ToolName != "Bash" {
		t.Errorf("ToolName = %q", in.ToolName)
	}
	if got := in.Command(); got != "git merge feature" {
		t.Errorf("Command() = %q", got)
	}
}

func TestReadMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "empty", payload: ""},
		{name: "not json", payload: "session_id=sess-1"},
		{name: "truncated", payload: `{"session_id": "sess`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if in := Read(strings.NewReader(tt.payload)); in != nil {
				t.Errorf("Read(%q) = %+v, want nil", tt.payload, in)
			}
		})
	}
}

func TestReadOversizedPayload(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"session_id": "sess-1", "transcript_path": "`)
	for b.Len() < MaxPayloadBytes {
		b.WriteString("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	}
	b.WriteString(`"}`)

	if in := Read(strings.NewReader(b.String())); in != nil {
		t.Error("oversized payload should read as nil")
	}
}

func TestCommandShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "command field", input: `{"tool_input": {"command": "go test ./..."}}`, want: "go test ./..."},
		{name: "no command field", input: `{"tool_input": {"file_path": "/a/b"}}`, want: ""},
		{name: "non-object tool input", input: `{"tool_input": "plain"}`, want: ""},
		{name: "no tool input", input: `{"session_id": "s"}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Read(strings.NewReader(tt.input))
			if in == nil {
				t.Fatal("Read returned nil")
			}
			if got := in.Command(); got != tt.want {
				t.Errorf("Command() = %q, want %q", got, tt.want)
			}
		})
	}

	var nilInput *Input
	if got := nilInput.Command(); got != "" {
		t.Errorf("nil input Command() = %q", got)
	}
}

func TestResponseWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Block("incomplete required flows").Write(&buf); err != nil {
		t.Fatal(err)
	}

	var got Response
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got.Decision != DecisionBlock {
		t.Errorf("Decision = %q", got.Decision)
	}
	if got.Reason != "incomplete required flows" {
		t.Errorf("Reason = %q", got.Reason)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("response should end with a newline")
	}
}

func TestApproveOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	if err := Approve("").Write(&buf); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if strings.Contains(out, "reason") {
		t.Errorf("empty reason should be omitted: %s", out)
	}
	if strings.Contains(out, "systemMessage") {
		t.Errorf("empty systemMessage should be omitted: %s", out)
	}
}
