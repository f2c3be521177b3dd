// Package eventlog stores per-session event logs as append-only JSON-lines
// files. Two independent logs exist per session: the flow-progress log and
// the hook-execution log. State is never stored mutable; callers reconstruct
// it by replaying a session's log. Session isolation is structural: each
// (kind, session) pair owns its own file, so a read for one session can
// never surface another session's events.
package eventlog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind names one of the per-session logs.
type Kind string

const (
	// KindFlowProgress holds flow lifecycle events.
	KindFlowProgress Kind = "flow-progress"
	// KindHookExecution holds hook execution events.
	KindHookExecution Kind = "hook-execution"
)

// FlowEventType identifies a flow lifecycle event.
type FlowEventType string

const (
	FlowStarted   FlowEventType = "flow_started"
	StepCompleted FlowEventType = "step_completed"
	FlowCompleted FlowEventType = "flow_completed"
)

// Context is the key→value mapping attached to a flow instance, used for
// duplicate-start detection. Values are stored as strings; the decoder
// coerces scalar JSON values so a numeric issue number written by another
// tool doesn't poison the line.
type Context map[string]string

// UnmarshalJSON accepts string, number, and bool values.
func (c *Context) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Context, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		case nil:
			out[k] = ""
		default:
			return fmt.Errorf("context value for %q is not a scalar", k)
		}
	}
	*c = out
	return nil
}

// Equal reports whether two contexts hold exactly the same pairs.
func (c Context) Equal(other Context) bool {
	if len(c) != len(other) {
		return false
	}
	for k, v := range c {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// FlowEvent is one line in the flow-progress log.
type FlowEvent struct {
	Timestamp      string        `json:"timestamp"`
	SessionID      string        `json:"session_id"`
	Event          FlowEventType `json:"event"`
	FlowInstanceID string        `json:"flow_instance_id"`
	FlowID         string        `json:"flow_id,omitempty"`
	FlowName       string        `json:"flow_name,omitempty"`
	ExpectedSteps  []string      `json:"expected_steps,omitempty"`
	Context        Context       `json:"context,omitempty"`
	StepID         string        `json:"step_id,omitempty"`
}

// HookEvent is one line in the hook-execution log.
type HookEvent struct {
	Timestamp string                 `json:"timestamp"`
	SessionID string                 `json:"session_id"`
	Hook      string                 `json:"hook"`
	Decision  string                 `json:"decision"`
	Reason    string                 `json:"reason,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Timestamp formats t the way log events store it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTimestamp parses a log event timestamp. Callers decide what a parse
// failure means; expiry filtering keeps the flow, windowed verification
// drops the event.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// SanitizeSessionID strips characters that could escape the log directory.
// Anything outside [A-Za-z0-9._-] becomes "-", and leading dots are folded
// so ".." can never form a path component.
func SanitizeSessionID(sessionID string) string {
	if sessionID == "" {
		return "unknown"
	}
	var b strings.Builder
	b.Grow(len(sessionID))
	for _, r := range sessionID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	s := strings.TrimLeft(b.String(), ".")
	if s == "" {
		return "unknown"
	}
	return s
}
