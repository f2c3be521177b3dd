package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowgate/flowgate/internal/eventlog"
	"github.com/flowgate/flowgate/internal/flow"
	"github.com/flowgate/flowgate/internal/flowdef"
	"github.com/flowgate/flowgate/internal/verify"
)

func setupCatalogs(t *testing.T) {
	t.Helper()
	flowCatalog = flowdef.NewCatalog()
	hookCatalog = verify.NewCatalog()
}

func TestCanonicalEvent(t *testing.T) {
	tests := []struct {
		event string
		want  string
	}{
		{"session-start", "SessionStart"},
		{"pre-tool-use", "PreToolUse"},
		{"post-tool-use", "PostToolUse"},
		{"stop", "Stop"},
		{"user-prompt-submit", "UserPromptSubmit"},
		{"made-up", ""},
	}
	for _, tt := range tests {
		if got := canonicalEvent(tt.event); got != tt.want {
			t.Errorf("canonicalEvent(%q) = %q, want %q", tt.event, got, tt.want)
		}
	}
}

func TestTriggerStrength(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		toolName string
		command  string
		want     int
	}{
		{"command prefix match", "git merge", "Bash", "git merge feature", 9},
		{"command prefix miss", "git merge", "Bash", "git status", -1},
		{"tool name match", "edit", "Edit", "", 4},
		{"tool name case insensitive", "edit", "EDIT", "", 4},
		{"empty prefix", "", "Bash", "git merge", -1},
		{"nothing to match", "git merge", "", "", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := triggerStrength(tt.prefix, tt.toolName, tt.command); got != tt.want {
				t.Errorf("triggerStrength = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMatchHook(t *testing.T) {
	setupCatalogs(t)

	tests := []struct {
		name     string
		event    string
		toolName string
		command  string
		want     string
	}{
		{"stop matches the end gate", "stop", "", "", "session-end-gate"},
		{"session start banner", "session-start", "", "", "session-start-banner"},
		{"merge command", "pre-tool-use", "Bash", "git merge feature", "merge-check"},
		{"push command", "pre-tool-use", "Bash", "git push origin main", "push-branch-guard"},
		{"worktree removal beats shorter prefixes", "pre-tool-use", "Bash", "git worktree remove ../wt", "worktree-removal-check"},
		{"commit hits the testing gate first", "pre-tool-use", "Bash", "git commit -m x", "test-run-gate"},
		{"edit tool", "pre-tool-use", "Edit", "", "plan-approval-gate"},
		{"unknown event", "made-up", "Bash", "ls", ""},
		{"no trigger match", "pre-tool-use", "Bash", "ls -la", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchHook(tt.event, tt.toolName, tt.command)
			if tt.want == "" {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, tt.want, got.Hook)
		})
	}
}

func issueWorkStatus(fctx eventlog.Context, completed ...string) *flow.Status {
	def := flowCatalog.FlowDefinition("issue-work")
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}
	st := &flow.Status{
		FlowID:         "issue-work",
		FlowName:       def.Name,
		Context:        fctx,
		ExpectedSteps:  def.ExpectedStepIDs(),
		CompletedSteps: completed,
	}
	for _, id := range st.ExpectedSteps {
		if !done[id] {
			st.PendingSteps = append(st.PendingSteps, id)
		}
	}
	return st
}

func TestGateReasonBlocksOnEarlierPhases(t *testing.T) {
	setupCatalogs(t)

	mergeCheck := hookCatalog.Hook("merge-check")
	require.NotNil(t, mergeCheck)

	statuses := []*flow.Status{issueWorkStatus(eventlog.Context{"issue_number": "7"})}
	reason := gateReason(mergeCheck, statuses)

	require.Contains(t, reason, "required steps before Merge")
	require.Contains(t, reason, "issue-work/scope-confirmed")
	require.Contains(t, reason, "issue-work/tests-pass")
	// merged is the gate's own phase, not an earlier one
	require.NotContains(t, reason, "issue-work/merged")
}

func TestGateReasonApprovesWhenClean(t *testing.T) {
	setupCatalogs(t)

	mergeCheck := hookCatalog.Hook("merge-check")
	st := issueWorkStatus(eventlog.Context{"issue_number": "7"},
		"scope-confirmed", "plan-approved", "implementation-done", "self-review-done",
		"tests-pass", "committed", "pr-opened", "review-addressed")

	if reason := gateReason(mergeCheck, []*flow.Status{st}); reason != "" {
		t.Errorf("expected approve, got %q", reason)
	}
}

func TestGateReasonHonorsSkipConditions(t *testing.T) {
	setupCatalogs(t)

	gate := hookCatalog.Hook("test-run-gate")
	require.NotNil(t, gate)

	done := []string{"scope-confirmed", "implementation-done", "self-review-done"}

	st := issueWorkStatus(eventlog.Context{"issue_number": "7", "skip_planning": "true"}, done...)
	if reason := gateReason(gate, []*flow.Status{st}); reason != "" {
		t.Errorf("expected approve with planning skippable, got %q", reason)
	}

	st = issueWorkStatus(eventlog.Context{"issue_number": "7"}, done...)
	require.Contains(t, gateReason(gate, []*flow.Status{st}), "issue-work/plan-approved")
}

func TestGateReasonUnknownPhaseApproves(t *testing.T) {
	setupCatalogs(t)

	h := &verify.ExpectedHook{Hook: "odd", Phase: "not-a-phase", Expect: "block"}
	statuses := []*flow.Status{issueWorkStatus(nil)}
	if reason := gateReason(h, statuses); reason != "" {
		t.Errorf("unknown phase should approve, got %q", reason)
	}
}

func TestParseCtxPairs(t *testing.T) {
	fctx, err := parseCtxPairs([]string{"issue_number=42", "skip_planning=true"})
	require.NoError(t, err)
	require.Equal(t, eventlog.Context{"issue_number": "42", "skip_planning": "true"}, fctx)

	fctx, err = parseCtxPairs(nil)
	require.NoError(t, err)
	require.Nil(t, fctx)

	_, err = parseCtxPairs([]string{"novalue"})
	require.Error(t, err)

	_, err = parseCtxPairs([]string{"=orphan"})
	require.Error(t, err)

	// values may contain '='
	fctx, err = parseCtxPairs([]string{"query=a=b"})
	require.NoError(t, err)
	if !strings.Contains(fctx["query"], "=") {
		t.Errorf("value lost its '=': %q", fctx["query"])
	}
}
