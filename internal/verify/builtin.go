package verify

import "github.com/flowgate/flowgate/internal/flowdef"

// BuiltinHooks is the seed expectation catalog. Every canonical phase
// carries at least one expected hook so the session summary always has
// something to report per phase.
func BuiltinHooks() []*ExpectedHook {
	return []*ExpectedHook{
		{Hook: "session-start-banner", Phase: flowdef.PhaseSessionStart, Trigger: "SessionStart", Expect: "approve"},
		{Hook: "issue-assign-check", Phase: flowdef.PhaseIntake, Trigger: "PreToolUse:gh issue", Expect: "approve"},
		{Hook: "scope-note-check", Phase: flowdef.PhaseScoping, Trigger: "UserPromptSubmit", Expect: "approve"},
		{Hook: "plan-approval-gate", Phase: flowdef.PhasePlanning, Trigger: "PreToolUse:edit", Expect: "block"},
		{Hook: "dirty-worktree-guard", Phase: flowdef.PhaseImplementation, Trigger: "PreToolUse:git checkout", Expect: "block"},
		{Hook: "stray-edit-guard", Phase: flowdef.PhaseImplementation, Trigger: "PreToolUse:edit", Expect: "approve"},
		{Hook: "self-review-reminder", Phase: flowdef.PhaseSelfReview, Trigger: "PostToolUse:edit", Expect: "approve"},
		{Hook: "test-run-gate", Phase: flowdef.PhaseTesting, Trigger: "PreToolUse:git commit", Expect: "block"},
		{Hook: "commit-message-check", Phase: flowdef.PhaseCommit, Trigger: "PreToolUse:git commit", Expect: "approve"},
		{Hook: "push-branch-guard", Phase: flowdef.PhaseCommit, Trigger: "PreToolUse:git push", Expect: "block"},
		{Hook: "pr-create-check", Phase: flowdef.PhasePR, Trigger: "PreToolUse:gh pr create", Expect: "approve"},
		{Hook: "resolve-thread-guard", Phase: flowdef.PhaseAIReview, Trigger: "PreToolUse:gh api", Expect: "block"},
		{Hook: "merge-check", Phase: flowdef.PhaseMerge, Trigger: "PreToolUse:git merge", Expect: "block"},
		{Hook: "worktree-removal-check", Phase: flowdef.PhaseCleanup, Trigger: "PreToolUse:git worktree remove", Expect: "block"},
		{Hook: "session-end-gate", Phase: flowdef.PhaseSessionEnd, Trigger: "Stop", Expect: "block"},
	}
}
