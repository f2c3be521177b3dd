package workflowstate

import (
	"github.com/flowgate/flowgate/internal/flow"
	"github.com/flowgate/flowgate/internal/flowdef"
)

// WorkflowNameFor derives the workflow a flow instance belongs to:
// issue-scoped instances map to "issue-<n>", everything else to the
// flow id. Siblings of the same issue share one workflow.
func WorkflowNameFor(st *flow.Status) string {
	if st == nil {
		return ""
	}
	if n := st.Context["issue_number"]; n != "" {
		return "issue-" + n
	}
	return st.FlowID
}

// SyncFlow projects a flow instance's step progress onto a workflow's
// phase map. Phases whose defined steps are all completed are marked
// completed; the earliest canonical phase with a pending step becomes
// current. Steps without a phase tag are invisible here, they only
// appear in flow progress reports.
func SyncFlow(w *Workflow, st *flow.Status, def *flowdef.FlowDefinition, phases []flowdef.Phase) {
	if w == nil || st == nil || def == nil {
		return
	}

	completed := make(map[string]bool, len(st.CompletedSteps))
	for _, id := range st.CompletedSteps {
		completed[id] = true
	}

	seen := make(map[string]bool)
	pending := make(map[string]bool)
	for _, step := range def.Steps {
		if step.ID == "" || step.Phase == "" {
			continue
		}
		seen[step.Phase] = true
		if !completed[step.ID] {
			pending[step.Phase] = true
		}
	}

	for phase := range seen {
		if !pending[phase] {
			w.CompletePhase(phase)
		}
	}
	for _, p := range phases {
		if pending[p.ID] {
			w.EnterPhase(p.ID)
			return
		}
	}
}
