package report

import (
	"fmt"
	"strings"

	"github.com/flowgate/flowgate/internal/flowdef"
	"github.com/flowgate/flowgate/internal/verify"
	"github.com/flowgate/flowgate/internal/workflowstate"
)

// MaxDisplayIssues bounds the issue list in the verification block;
// anything past it collapses into a "N more" line.
const MaxDisplayIssues = 5

// VerificationBlock renders the session verification report: a header
// with the current phase and hook counts, the vertical phase checklist,
// and a bounded issue list.
//
// Checklist icons come from the selected workflow's own phase map when
// one is given; sibling workflows never contribute, so a phase finished
// in another workflow still renders as pending here. Without workflow
// state the hook-firing rollup drives the icons instead.
func VerificationBlock(workflowName string, wf *workflowstate.Workflow, sum *verify.Summary, phases []flowdef.Phase) string {
	var b strings.Builder

	headline := "Workflow verification"
	if workflowName != "" {
		headline = "Workflow " + workflowName
	}
	b.WriteString(HeaderStyle.Render(headline))
	b.WriteString("\n")

	if wf != nil && wf.CurrentPhase != "" {
		name := flowdef.PhaseByID(phases, wf.CurrentPhase).Name
		b.WriteString(fmt.Sprintf("phase %s · %d/%d hooks fired\n", RenderAccent(name), sum.FiredHooks, sum.TotalHooks))
	} else {
		b.WriteString(fmt.Sprintf("%d/%d hooks fired\n", sum.FiredHooks, sum.TotalHooks))
	}
	b.WriteString(RenderSeparator())
	b.WriteString("\n")

	for _, pr := range sum.Phases {
		var done, active bool
		if wf != nil {
			switch wf.PhaseStatus(pr.Phase) {
			case workflowstate.StatusCompleted:
				done = true
			case workflowstate.StatusInProgress:
				active = true
			}
		} else {
			switch pr.Status {
			case verify.PhaseComplete:
				done = true
			case verify.PhasePartial:
				active = true
			}
		}

		name := pr.Name
		if name == "" {
			name = pr.Phase
		}
		b.WriteString(fmt.Sprintf("%s %-16s %s\n",
			phaseIcon(done, active), name,
			RenderMuted(fmt.Sprintf("%d/%d", pr.Fired, pr.Total))))
	}

	if sum.IssuesTotal > 0 {
		b.WriteString("\n")
		b.WriteString(RenderFail(fmt.Sprintf("%d issue(s):", sum.IssuesTotal)))
		b.WriteString("\n")

		shown := sum.Issues
		if len(shown) > MaxDisplayIssues {
			shown = shown[:MaxDisplayIssues]
		}
		for _, issue := range shown {
			b.WriteString(fmt.Sprintf("%s %s: %s\n", RenderWarn(IconWarn), issue.Hook, issue.Message))
		}
		if more := sum.IssuesTotal - len(shown); more > 0 {
			b.WriteString(RenderMuted(fmt.Sprintf("  … %d more\n", more)))
		}
	}

	return b.String()
}
