// Package flowdef provides the flow definition catalog: named multi-step
// checklists with phase tags, required/skippable flags, and completion
// criteria. Definitions come from built-ins plus .flow.toml files.
//
// Example .flow.toml:
//
//	flow = "ai-review"
//	name = "AI Fix Review"
//	blocking_on_session_end = true
//	completion_step = "approve"
//
//	[[steps]]
//	id = "reproduce"
//	name = "Reproduce the reported failure"
//	phase = "ai-review"
//	required = true
//
//	[[steps]]
//	id = "approve"
//	name = "Approve the fix"
//	phase = "ai-review"
//	required = true
package flowdef

import (
	"fmt"
	"strings"

	"github.com/flowgate/flowgate/internal/debug"
)

// DefaultPhase is the display bucket for steps whose phase tag is unknown.
const DefaultPhase = "other"

// Phase is one entry in the canonical ordered phase catalog.
type Phase struct {
	ID    string `toml:"id" json:"id"`
	Name  string `toml:"name" json:"name"`
	Order int    `toml:"order" json:"order"`
}

// StepDefinition is one step of a flow.
type StepDefinition struct {
	// ID is the unique identifier within the flow. Steps without an id
	// are dropped from instance snapshots with a diagnostic.
	ID string `toml:"id" json:"id"`

	// Name is the human-readable step label.
	Name string `toml:"name,omitempty" json:"name,omitempty"`

	// Phase groups the step for display. Unknown phases fall back to
	// the default bucket.
	Phase string `toml:"phase,omitempty" json:"phase,omitempty"`

	// Order positions the step within the flow.
	Order int `toml:"order,omitempty" json:"order,omitempty"`

	// Required marks the step non-skippable unless SkipCondition holds.
	Required bool `toml:"required,omitempty" json:"required,omitempty"`

	// SkipCondition makes the step skippable when it evaluates true.
	// Format: "context.key", "!context.key", "context.key == value",
	// "env.NAME == value", or "file.exists('path')".
	SkipCondition string `toml:"skip_condition,omitempty" json:"skip_condition,omitempty"`
}

// FlowDefinition is the root structure for .flow.toml files.
type FlowDefinition struct {
	// Flow is the unique identifier for this flow.
	Flow string `toml:"flow" json:"flow"`

	// Name is the display name.
	Name string `toml:"name,omitempty" json:"name,omitempty"`

	// Description explains what the flow tracks.
	Description string `toml:"description,omitempty" json:"description,omitempty"`

	// BlockingOnSessionEnd makes incomplete instances of this flow
	// candidates for blocking session termination.
	BlockingOnSessionEnd bool `toml:"blocking_on_session_end,omitempty" json:"blocking_on_session_end,omitempty"`

	// CompletionStep, when set, marks the whole flow complete as soon
	// as this step completes, bypassing the all-steps rule.
	CompletionStep string `toml:"completion_step,omitempty" json:"completion_step,omitempty"`

	// Steps are the flow's steps in definition order.
	Steps []*StepDefinition `toml:"steps" json:"steps"`

	// Source tracks where this definition was loaded from (set by loader).
	Source string `toml:"-" json:"source,omitempty"`
}

// Validate checks the definition for structural errors. Steps without an
// id pass validation; they are dropped later, at snapshot time.
func (d *FlowDefinition) Validate() error {
	var errs []string

	if d.Flow == "" {
		errs = append(errs, "flow: identifier is required")
	}

	stepIDs := make(map[string]bool)
	for i, step := range d.Steps {
		if step.ID == "" {
			continue
		}
		if stepIDs[step.ID] {
			errs = append(errs, fmt.Sprintf("steps[%d]: duplicate id %q", i, step.ID))
		}
		stepIDs[step.ID] = true
	}

	if d.CompletionStep != "" && !stepIDs[d.CompletionStep] {
		errs = append(errs, fmt.Sprintf("completion_step: references unknown step %q", d.CompletionStep))
	}

	if len(errs) > 0 {
		return fmt.Errorf("flow validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// StepByID finds a step by its id. Returns nil if absent.
func (d *FlowDefinition) StepByID(id string) *StepDefinition {
	for _, step := range d.Steps {
		if step.ID == id {
			return step
		}
	}
	return nil
}

// ExpectedStepIDs returns the ordered step ids an instance snapshot
// captures. Steps lacking an id are dropped with a diagnostic.
func (d *FlowDefinition) ExpectedStepIDs() []string {
	ids := make([]string, 0, len(d.Steps))
	for i, step := range d.Steps {
		if step.ID == "" {
			debug.Logf("flowdef: flow %q step %d has no id, dropping from snapshot\n", d.Flow, i)
			debug.LogEvent("step_dropped", "", fmt.Sprintf("flow=%s index=%d", d.Flow, i))
			continue
		}
		ids = append(ids, step.ID)
	}
	return ids
}

// PhaseByID finds a phase in a catalog slice. Returns the default bucket
// when the id is unknown.
func PhaseByID(phases []Phase, id string) Phase {
	for _, p := range phases {
		if p.ID == id {
			return p
		}
	}
	return Phase{ID: DefaultPhase, Name: "Other", Order: len(phases) + 1}
}

// PhaseIndex returns the ordinal position of a phase id in the canonical
// ordering, or -1 when unknown.
func PhaseIndex(phases []Phase, id string) int {
	for i, p := range phases {
		if p.ID == id {
			return i
		}
	}
	return -1
}
