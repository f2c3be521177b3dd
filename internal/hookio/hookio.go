// Package hookio reads and writes the agent hook wire format: the JSON
// payload the agent pipes to a hook's stdin, and the decision JSON the
// hook prints on stdout.
//
// Stdout is reserved for decision JSON. Anything else a handler wants to
// say goes to stderr via the debug package, or the agent will choke on
// the mixed output.
package hookio

import (
	"encoding/json"
	"io"
	"os"
)

// MaxPayloadBytes caps how much stdin a hook reads. Oversized payloads
// decode as malformed and are treated as absent (fail open).
const MaxPayloadBytes = 1 << 20

// Decision values understood by the agent. An empty decision means approve.
const (
	DecisionApprove = "approve"
	DecisionBlock   = "block"
)

// Input is the hook payload the agent sends on stdin.
type Input struct {
	SessionID      string          `json:"session_id"`
	HookEventName  string          `json:"hook_event_name,omitempty"`
	ToolName       string          `json:"tool_name,omitempty"`
	ToolInput      json.RawMessage `json:"tool_input,omitempty"`
	TranscriptPath string          `json:"transcript_path,omitempty"`
	Cwd            string          `json:"cwd,omitempty"`
}

// Command extracts the command string from a tool input payload, for
// tool invocations shaped like {"command": "git merge ..."}. Returns ""
// when the tool input has some other shape.
func (in *Input) Command() string {
	if in == nil || len(in.ToolInput) == 0 {
		return ""
	}
	var t struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(in.ToolInput, &t); err != nil {
		return ""
	}
	return t.Command
}

// Read parses a hook payload from r. Absent or malformed input yields
// nil, never an error: a broken payload must not block the agent.
func Read(r io.Reader) *Input {
	var in Input
	dec := json.NewDecoder(io.LimitReader(r, MaxPayloadBytes))
	if err := dec.Decode(&in); err != nil {
		return nil
	}
	return &in
}

// ReadStdin reads the hook payload from stdin. Returns nil when stdin
// is a terminal (nothing piped) or the payload doesn't parse.
func ReadStdin() *Input {
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return nil
	}
	return Read(os.Stdin)
}

// Response is the decision JSON a hook prints on stdout.
type Response struct {
	Decision      string `json:"decision,omitempty"`
	Reason        string `json:"reason,omitempty"`
	SystemMessage string `json:"systemMessage,omitempty"`
}

// Approve builds an approving response. The reason is optional and
// shown to the user, not the agent.
func Approve(reason string) *Response {
	return &Response{Decision: DecisionApprove, Reason: reason}
}

// Block builds a blocking response. The reason is fed back to the agent
// so it can act on it.
func Block(reason string) *Response {
	return &Response{Decision: DecisionBlock, Reason: reason}
}

// Write emits the response as a single JSON line on w.
func (resp *Response) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	return enc.Encode(resp)
}
