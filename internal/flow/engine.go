// Package flow implements the flow instance engine: starting and deduping
// instances, recording step completions, and reconstructing status by
// replaying the session's flow-progress log. The log is the single source
// of truth; nothing here caches derived state between calls.
package flow

import (
	"errors"
	"fmt"
	"time"

	"github.com/flowgate/flowgate/internal/debug"
	"github.com/flowgate/flowgate/internal/eventlog"
	"github.com/flowgate/flowgate/internal/flowdef"
)

var (
	// ErrUnknownFlow means the flow id is not in the definition catalog.
	ErrUnknownFlow = errors.New("unknown flow id")
	// ErrLogUnavailable means the event log could not be written.
	// Callers treat this as "fail open", never as fatal.
	ErrLogUnavailable = errors.New("event log unavailable")
	// ErrNoSuchInstance means no flow_started event exists for the id.
	ErrNoSuchInstance = errors.New("no such flow instance")
)

// Status is the reconstructed state of one flow instance.
type Status struct {
	FlowInstanceID string           `json:"flow_instance_id"`
	FlowID         string           `json:"flow_id"`
	FlowName       string           `json:"flow_name,omitempty"`
	SessionID      string           `json:"session_id"`
	Context        eventlog.Context `json:"context,omitempty"`
	StartedAt      string           `json:"started_at,omitempty"`
	ExpectedSteps  []string         `json:"expected_steps"`
	CompletedSteps []string         `json:"completed_steps"`
	PendingSteps   []string         `json:"pending_steps"`
	StepCounts     map[string]int   `json:"step_counts"`
	Complete       bool             `json:"is_complete"`
}

// Engine starts flows and replays their state. Session identity is always
// an explicit parameter; the engine holds no ambient session state.
type Engine struct {
	log  eventlog.Log
	defs flowdef.Registry
	now  func() time.Time
}

// NewEngine creates an engine over the given log and definition catalog.
func NewEngine(log eventlog.Log, defs flowdef.Registry) *Engine {
	return &Engine{log: log, defs: defs, now: time.Now}
}

// WithClock returns a copy of the engine using a fixed clock. For tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	out := *e
	out.now = now
	return &out
}

// newInstanceID derives an instance id from a timestamp plus a truncated
// session id. Collisions across concurrent processes are accepted the same
// way the duplicate-start race is.
func newInstanceID(now time.Time, sessionID string) string {
	sid := eventlog.SanitizeSessionID(sessionID)
	if len(sid) > 8 {
		sid = sid[:8]
	}
	return fmt.Sprintf("flow-%d-%s", now.UnixNano(), sid)
}

// Start begins a flow instance for the session. With a non-empty context,
// an active instance with the same flow id and context is returned instead
// of starting a duplicate. The duplicate check is check-then-act, not
// atomic: two processes racing the same start can both win. Accepted for
// the one-agent-per-workspace deployment this serves.
func (e *Engine) Start(flowID string, fctx eventlog.Context, sessionID string) (string, error) {
	def := e.defs.FlowDefinition(flowID)
	if def == nil {
		debug.Logf("flow: start requested for unknown flow %q\n", flowID)
		debug.LogEvent("unknown_flow", sessionID, "flow="+flowID)
		return "", ErrUnknownFlow
	}

	if len(fctx) > 0 {
		if existing := e.ActiveFlowForContext(flowID, fctx, sessionID); existing != "" {
			return existing, nil
		}
	}

	now := e.now()
	instanceID := newInstanceID(now, sessionID)
	ok := e.log.AppendFlow(sessionID, eventlog.FlowEvent{
		Timestamp:      eventlog.Timestamp(now),
		SessionID:      sessionID,
		Event:          eventlog.FlowStarted,
		FlowInstanceID: instanceID,
		FlowID:         flowID,
		FlowName:       def.Name,
		ExpectedSteps:  def.ExpectedStepIDs(),
		Context:        fctx,
	})
	if !ok {
		return "", ErrLogUnavailable
	}
	return instanceID, nil
}

// CompleteStep records one step completion. Repeated completions of the
// same step are recorded and counted, but count once toward completion.
// When the completion rule is now satisfied and no flow_completed event
// exists yet, one is appended automatically.
func (e *Engine) CompleteStep(instanceID, stepID, flowID, sessionID string) error {
	ok := e.log.AppendFlow(sessionID, eventlog.FlowEvent{
		Timestamp:      eventlog.Timestamp(e.now()),
		SessionID:      sessionID,
		Event:          eventlog.StepCompleted,
		FlowInstanceID: instanceID,
		FlowID:         flowID,
		StepID:         stepID,
	})
	if !ok {
		return ErrLogUnavailable
	}

	instances := e.replay(sessionID)
	inst := instances.byID[instanceID]
	if inst == nil {
		// Step for an instance never started here. The appended event is
		// ignored by replays; nothing to evaluate.
		return nil
	}

	if !inst.explicitComplete && e.isComplete(inst) {
		if err := e.CompleteFlow(instanceID, flowID, sessionID); err != nil {
			return err
		}
	}
	return nil
}

// CompleteFlow appends an explicit flow_completed event. Safe to call on
// an already-complete instance; readers treat repeated completion events
// as a boolean OR.
func (e *Engine) CompleteFlow(instanceID, flowID, sessionID string) error {
	ok := e.log.AppendFlow(sessionID, eventlog.FlowEvent{
		Timestamp:      eventlog.Timestamp(e.now()),
		SessionID:      sessionID,
		Event:          eventlog.FlowCompleted,
		FlowInstanceID: instanceID,
		FlowID:         flowID,
	})
	if !ok {
		return ErrLogUnavailable
	}
	return nil
}

// Status reconstructs one instance's state from the session log.
func (e *Engine) Status(instanceID, sessionID string) (*Status, error) {
	instances := e.replay(sessionID)
	inst := instances.byID[instanceID]
	if inst == nil {
		debug.Logf("flow: status requested for unknown instance %q\n", instanceID)
		return nil, ErrNoSuchInstance
	}
	return e.status(inst), nil
}

// Incomplete returns the status of every incomplete instance in the
// session, in start order.
func (e *Engine) Incomplete(sessionID string) []*Status {
	var out []*Status
	for _, st := range e.AllStatuses(sessionID) {
		if !st.Complete {
			out = append(out, st)
		}
	}
	return out
}

// AllStatuses returns the status of every instance in the session, in
// start order.
func (e *Engine) AllStatuses(sessionID string) []*Status {
	instances := e.replay(sessionID)
	out := make([]*Status, 0, len(instances.order))
	for _, id := range instances.order {
		out = append(out, e.status(instances.byID[id]))
	}
	return out
}

// ActiveFlowForContext finds an incomplete instance with matching flow id
// and context that still has pending steps. Returns "" when none exists.
// This is the duplicate-start check used by Start.
func (e *Engine) ActiveFlowForContext(flowID string, fctx eventlog.Context, sessionID string) string {
	instances := e.replay(sessionID)
	for _, id := range instances.order {
		inst := instances.byID[id]
		if inst.started.FlowID != flowID {
			continue
		}
		if !inst.started.Context.Equal(fctx) {
			continue
		}
		st := e.status(inst)
		if !st.Complete && len(st.PendingSteps) > 0 {
			return id
		}
	}
	return ""
}

// instance is the replay fold state for one flow instance.
type instance struct {
	started          eventlog.FlowEvent
	completedOrder   []string
	completedSet     map[string]bool
	counts           map[string]int
	explicitComplete bool
}

type instanceSet struct {
	byID  map[string]*instance
	order []string
}

// replay folds the session's flow-progress log into per-instance state.
// Out-of-order events (steps or completions for an instance never
// started) are silently ignored; the log is append-only and ordering is
// assumed, not verified.
func (e *Engine) replay(sessionID string) *instanceSet {
	set := &instanceSet{byID: make(map[string]*instance)}

	for _, ev := range e.log.ReadFlow(sessionID) {
		switch ev.Event {
		case eventlog.FlowStarted:
			if _, exists := set.byID[ev.FlowInstanceID]; exists {
				continue
			}
			set.byID[ev.FlowInstanceID] = &instance{
				started:      ev,
				completedSet: make(map[string]bool),
				counts:       make(map[string]int),
			}
			set.order = append(set.order, ev.FlowInstanceID)

		case eventlog.StepCompleted:
			inst, ok := set.byID[ev.FlowInstanceID]
			if !ok || ev.StepID == "" {
				continue
			}
			inst.counts[ev.StepID]++
			if !inst.completedSet[ev.StepID] {
				inst.completedSet[ev.StepID] = true
				inst.completedOrder = append(inst.completedOrder, ev.StepID)
			}

		case eventlog.FlowCompleted:
			inst, ok := set.byID[ev.FlowInstanceID]
			if !ok {
				continue
			}
			inst.explicitComplete = true
		}
	}
	return set
}

// isComplete applies the completion rule: an explicit flow_completed
// event, or the definition's completion step done, or every expected
// step done.
func (e *Engine) isComplete(inst *instance) bool {
	if inst.explicitComplete {
		return true
	}

	if def := e.defs.FlowDefinition(inst.started.FlowID); def != nil && def.CompletionStep != "" {
		if inst.completedSet[def.CompletionStep] {
			return true
		}
		// A completion step defined but not reached keeps the flow open
		// even when every snapshot step is done.
		return false
	}

	for _, step := range inst.started.ExpectedSteps {
		if !inst.completedSet[step] {
			return false
		}
	}
	return true
}

func (e *Engine) status(inst *instance) *Status {
	expected := inst.started.ExpectedSteps

	var pending []string
	for _, step := range expected {
		if !inst.completedSet[step] {
			pending = append(pending, step)
		}
	}

	counts := make(map[string]int, len(inst.counts))
	for k, v := range inst.counts {
		counts[k] = v
	}
	completed := make([]string, len(inst.completedOrder))
	copy(completed, inst.completedOrder)

	return &Status{
		FlowInstanceID: inst.started.FlowInstanceID,
		FlowID:         inst.started.FlowID,
		FlowName:       inst.started.FlowName,
		SessionID:      inst.started.SessionID,
		Context:        inst.started.Context,
		StartedAt:      inst.started.Timestamp,
		ExpectedSteps:  expected,
		CompletedSteps: completed,
		PendingSteps:   pending,
		StepCounts:     counts,
		Complete:       e.isComplete(inst),
	}
}
