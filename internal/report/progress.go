package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowgate/flowgate/internal/flow"
	"github.com/flowgate/flowgate/internal/flowdef"
)

// phaseGroup buckets a flow definition's steps under one phase.
type phaseGroup struct {
	phase flowdef.Phase
	steps []*flowdef.StepDefinition
}

// groupSteps orders a definition's steps by canonical phase. Steps with
// an unknown phase land in the trailing default bucket; id-less steps
// are display noise and skipped.
func groupSteps(def *flowdef.FlowDefinition, phases []flowdef.Phase) []phaseGroup {
	buckets := make(map[string][]*flowdef.StepDefinition)
	for _, step := range def.Steps {
		if step.ID == "" {
			continue
		}
		phaseID := step.Phase
		if phaseID == "" || flowdef.PhaseIndex(phases, phaseID) < 0 {
			phaseID = flowdef.DefaultPhase
		}
		buckets[phaseID] = append(buckets[phaseID], step)
	}

	ids := make([]string, 0, len(buckets))
	for id := range buckets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := phaseRank(phases, ids[i]), phaseRank(phases, ids[j])
		if pi == pj {
			return ids[i] < ids[j]
		}
		return pi < pj
	})

	out := make([]phaseGroup, 0, len(ids))
	for _, id := range ids {
		out = append(out, phaseGroup{
			phase: flowdef.PhaseByID(phases, id),
			steps: buckets[id],
		})
	}
	return out
}

func phaseRank(phases []flowdef.Phase, id string) int {
	if idx := flowdef.PhaseIndex(phases, id); idx >= 0 {
		return idx
	}
	return len(phases) + 1
}

// FlowProgress renders one flow instance as a boxed progress block:
// completed phases collapse to a summary line, the first unfinished
// phase expands to its individual steps, later phases stay collapsed.
func FlowProgress(st *flow.Status, def *flowdef.FlowDefinition, phases []flowdef.Phase) string {
	completed := make(map[string]bool, len(st.CompletedSteps))
	for _, s := range st.CompletedSteps {
		completed[s] = true
	}

	var b strings.Builder
	title := st.FlowName
	if title == "" {
		title = st.FlowID
	}
	b.WriteString(HeaderStyle.Render(title))
	if issue := st.Context["issue_number"]; issue != "" {
		b.WriteString(MutedStyle.Render(" · issue #" + issue))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("%d/%d steps", len(st.CompletedSteps), len(st.ExpectedSteps)))
	if st.Complete {
		b.WriteString(" " + RenderPass("complete"))
	}
	b.WriteString("\n")

	if def == nil {
		// Definition gone from the catalog; fall back to the snapshot.
		for _, id := range st.ExpectedSteps {
			b.WriteString("\n" + stepLine(id, id, completed[id], true))
		}
		return BoxStyle.Render(b.String())
	}

	currentSeen := false
	for _, g := range groupSteps(def, phases) {
		done := 0
		for _, step := range g.steps {
			if completed[step.ID] {
				done++
			}
		}
		total := len(g.steps)
		allDone := total > 0 && done == total
		isCurrent := !currentSeen && !allDone && !st.Complete
		if isCurrent {
			currentSeen = true
		}

		b.WriteString("\n")
		b.WriteString(phaseIcon(allDone, isCurrent))
		b.WriteString(" " + g.phase.Name)
		if isCurrent {
			for _, step := range g.steps {
				label := step.Name
				if label == "" {
					label = step.ID
				}
				b.WriteString("\n   " + stepLine(step.ID, label, completed[step.ID], step.Required))
			}
			continue
		}
		if allDone || done == 0 {
			b.WriteString(RenderMuted(fmt.Sprintf(" (%d steps)", total)))
		} else {
			b.WriteString(RenderMuted(fmt.Sprintf(" (%d/%d)", done, total)))
		}
	}

	return BoxStyle.Render(b.String())
}

func stepLine(id, label string, done, required bool) string {
	switch {
	case done:
		return RenderPass(IconPass) + " " + label
	case !required:
		return MutedStyle.Render(IconTodo + " " + label + " (skippable)")
	default:
		return IconTodo + " " + label
	}
}
