package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowgate/flowgate/internal/config"
	"github.com/flowgate/flowgate/internal/debug"
	"github.com/flowgate/flowgate/internal/eventlog"
	"github.com/flowgate/flowgate/internal/flow"
	"github.com/flowgate/flowgate/internal/flowdef"
	"github.com/flowgate/flowgate/internal/hookio"
	"github.com/flowgate/flowgate/internal/report"
	"github.com/flowgate/flowgate/internal/verify"
	"github.com/flowgate/flowgate/internal/workflowstate"
)

var hookNameFlag string

var hookCmd = &cobra.Command{
	Use:     "hook <event>",
	GroupID: GroupSession,
	Short:   "Hook entry point for the agent runtime",
	Long: `Handle one agent hook invocation: read the payload from stdin, record
a hook-execution event, and print the decision JSON on stdout.

Events: session-start, user-prompt-submit, pre-tool-use, post-tool-use,
stop.

The hook name defaults to the expectation catalog entry whose trigger
matches the event and tool command; --hook overrides it. This command
always exits 0: a gate that cannot determine state must not break the
agent, so infrastructure failures degrade to an approve decision.

Examples:
  echo '{}' | flowgate hook session-start
  flowgate hook pre-tool-use --hook merge-check < payload.json
  flowgate hook stop < payload.json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runHook(args[0])
	},
}

func init() {
	hookCmd.Flags().StringVar(&hookNameFlag, "hook", "", "Hook name to record (default: match catalog triggers)")
	rootCmd.AddCommand(hookCmd)
}

func runHook(event string) {
	in := hookio.ReadStdin()

	sid := ""
	if in != nil {
		sid = in.SessionID
	}
	if sid == "" {
		sid = resolveSessionID()
	}
	if sid == "" {
		// No session identity means nothing to record against: allow.
		debug.Logf("hook %s: no session id, allowing\n", event)
		emitDecision(hookio.Approve(""))
		return
	}

	var toolName, command string
	if in != nil {
		toolName = in.ToolName
		command = in.Command()
	}

	name := hookNameFlag
	var expected *verify.ExpectedHook
	if name != "" {
		expected = hookCatalog.Hook(name)
	} else if expected = matchHook(event, toolName, command); expected != nil {
		name = expected.Hook
	} else {
		name = event
	}

	resp := decideHook(event, expected, sid)

	ev := eventlog.HookEvent{
		Timestamp: eventlog.Timestamp(time.Now()),
		SessionID: sid,
		Hook:      name,
		Decision:  resp.Decision,
		Reason:    resp.Reason,
	}
	if toolName != "" {
		ev.Details = map[string]interface{}{"tool": toolName}
		if command != "" {
			ev.Details["command"] = report.TruncateSimple(command, 120)
		}
	}
	if !eventLog.AppendHook(sid, ev) {
		debug.Logf("hook %s: append failed\n", name)
	}

	emitDecision(resp)
}

func emitDecision(resp *hookio.Response) {
	if err := resp.Write(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

// decideHook computes the gate decision. Stop consults the session-end
// aggregator; tool events gate on required steps in phases before the
// hook's own phase; everything else approves.
func decideHook(event string, expected *verify.ExpectedHook, sid string) *hookio.Response {
	switch event {
	case "stop":
		if reason := stopReason(rootCtx, sid); reason != "" {
			return hookio.Block(reason)
		}
		return hookio.Approve("")
	case "session-start":
		return sessionStartResponse(sid)
	}

	if expected == nil || expected.Expect != hookio.DecisionBlock {
		return hookio.Approve("")
	}
	if reason := gateReason(expected, newEngine().Incomplete(sid)); reason != "" {
		return hookio.Block(reason)
	}
	return hookio.Approve("")
}

// sessionStartResponse approves and seeds the session's workflow state
// file, surfacing a resume note when the session already has flows.
func sessionStartResponse(sid string) *hookio.Response {
	resp := hookio.Approve("")
	if n := len(newEngine().Incomplete(sid)); n > 0 {
		resp.SystemMessage = fmt.Sprintf("flowgate: %d incomplete flow(s) in this session", n)
	}
	wfDir := config.WorkflowDir(flowgateDir)
	workflowstate.Load(wfDir, sid).Save(wfDir)
	return resp
}

// stopReason returns a blocking reason when incomplete flows should
// hold the session open, after expiry and closed-issue filtering.
func stopReason(ctx context.Context, sid string) string {
	if ctx == nil {
		ctx = context.Background()
	}
	blocking := newAggregator().BlockingFlows(ctx, newEngine().Incomplete(sid), time.Now())
	if len(blocking) == 0 {
		return ""
	}
	parts := make([]string, 0, len(blocking))
	for _, st := range blocking {
		name := st.FlowName
		if name == "" {
			name = st.FlowID
		}
		parts = append(parts, fmt.Sprintf("%s (%d steps pending)", name, len(st.PendingSteps)))
	}
	return "incomplete flows: " + strings.Join(parts, ", ")
}

// gateReason blocks a gate hook while required, non-skippable steps in
// phases before the hook's phase are still pending in any incomplete
// flow. An unknown gate phase approves.
func gateReason(h *verify.ExpectedHook, statuses []*flow.Status) string {
	phases := flowCatalog.Phases()
	gateIdx := flowdef.PhaseIndex(phases, h.Phase)
	if gateIdx < 0 {
		return ""
	}

	var pending []string
	for _, st := range statuses {
		def := flowCatalog.FlowDefinition(st.FlowID)
		if def == nil {
			continue
		}
		for _, stepID := range st.PendingSteps {
			step := def.StepByID(stepID)
			if step == nil || !step.Required {
				continue
			}
			if flowCatalog.CanSkipStep(st.FlowID, stepID, st.Context) {
				continue
			}
			idx := flowdef.PhaseIndex(phases, step.Phase)
			if idx >= 0 && idx < gateIdx {
				pending = append(pending, st.FlowID+"/"+stepID)
			}
		}
	}
	if len(pending) == 0 {
		return ""
	}
	phaseName := flowdef.PhaseByID(phases, h.Phase).Name
	return fmt.Sprintf("required steps before %s: %s", phaseName, strings.Join(pending, ", "))
}

// matchHook finds the expectation entry whose trigger matches this
// event and tool invocation. Triggers are "<Event>" or
// "<Event>:<prefix>", where the prefix matches the tool command or the
// tool name; the longest prefix wins.
func matchHook(event, toolName, command string) *verify.ExpectedHook {
	eventName := canonicalEvent(event)
	if eventName == "" {
		return nil
	}

	var best *verify.ExpectedHook
	bestLen := -1
	for _, h := range hookCatalog.Hooks() {
		name, prefix, hasPrefix := strings.Cut(h.Trigger, ":")
		if name != eventName {
			continue
		}
		if !hasPrefix {
			if bestLen < 0 {
				best, bestLen = h, 0
			}
			continue
		}
		if n := triggerStrength(prefix, toolName, command); n > bestLen {
			best, bestLen = h, n
		}
	}
	return best
}

// triggerStrength scores a trigger prefix against the invocation, or
// -1 for no match.
func triggerStrength(prefix, toolName, command string) int {
	if prefix == "" {
		return -1
	}
	if command != "" && strings.HasPrefix(command, prefix) {
		return len(prefix)
	}
	if toolName != "" && strings.EqualFold(toolName, prefix) {
		return len(prefix)
	}
	return -1
}

func canonicalEvent(event string) string {
	switch event {
	case "session-start":
		return "SessionStart"
	case "pre-tool-use":
		return "PreToolUse"
	case "post-tool-use":
		return "PostToolUse"
	case "stop":
		return "Stop"
	case "user-prompt-submit":
		return "UserPromptSubmit"
	}
	debug.Logf("hook: unknown event %q\n", event)
	return ""
}
