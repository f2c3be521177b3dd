package flowdef

// Built-in phase and flow catalogs. Workspace .flow.toml files may
// override any of these by flow id.

// Canonical phase ids.
const (
	PhaseSessionStart   = "session-start"
	PhaseIntake         = "intake"
	PhaseScoping        = "scoping"
	PhasePlanning       = "planning"
	PhaseImplementation = "implementation"
	PhaseSelfReview     = "self-review"
	PhaseTesting        = "testing"
	PhaseCommit         = "commit"
	PhasePR             = "pr"
	PhaseAIReview       = "ai-review"
	PhaseMerge          = "merge"
	PhaseCleanup        = "cleanup"
	PhaseSessionEnd     = "session-end"
)

// BuiltinPhases returns the canonical ordered phase catalog.
func BuiltinPhases() []Phase {
	return []Phase{
		{ID: PhaseSessionStart, Name: "Session Start", Order: 1},
		{ID: PhaseIntake, Name: "Intake", Order: 2},
		{ID: PhaseScoping, Name: "Scoping", Order: 3},
		{ID: PhasePlanning, Name: "Planning", Order: 4},
		{ID: PhaseImplementation, Name: "Implementation", Order: 5},
		{ID: PhaseSelfReview, Name: "Self Review", Order: 6},
		{ID: PhaseTesting, Name: "Testing", Order: 7},
		{ID: PhaseCommit, Name: "Commit", Order: 8},
		{ID: PhasePR, Name: "Pull Request", Order: 9},
		{ID: PhaseAIReview, Name: "AI Review", Order: 10},
		{ID: PhaseMerge, Name: "Merge", Order: 11},
		{ID: PhaseCleanup, Name: "Cleanup", Order: 12},
		{ID: PhaseSessionEnd, Name: "Session End", Order: 13},
	}
}

// BuiltinFlows returns the built-in flow definitions.
func BuiltinFlows() []*FlowDefinition {
	return []*FlowDefinition{
		{
			Flow:                 "issue-work",
			Name:                 "Issue Work",
			Description:          "End-to-end tracking for one issue: scope it, plan it, implement, review, test, commit, open and land the PR.",
			BlockingOnSessionEnd: true,
			Steps: []*StepDefinition{
				{ID: "scope-confirmed", Name: "Confirm issue scope", Phase: PhaseScoping, Order: 1, Required: true},
				{ID: "plan-approved", Name: "Plan approved", Phase: PhasePlanning, Order: 2, Required: true, SkipCondition: "context.skip_planning"},
				{ID: "implementation-done", Name: "Implementation complete", Phase: PhaseImplementation, Order: 3, Required: true},
				{ID: "self-review-done", Name: "Self review of the diff", Phase: PhaseSelfReview, Order: 4, Required: true},
				{ID: "tests-pass", Name: "Tests pass", Phase: PhaseTesting, Order: 5, Required: true},
				{ID: "committed", Name: "Changes committed", Phase: PhaseCommit, Order: 6, Required: true},
				{ID: "pr-opened", Name: "Pull request opened", Phase: PhasePR, Order: 7, Required: true, SkipCondition: "context.no_pr"},
				{ID: "review-addressed", Name: "Review feedback addressed", Phase: PhaseAIReview, Order: 8, Required: true, SkipCondition: "context.no_pr"},
				{ID: "merged", Name: "Pull request merged", Phase: PhaseMerge, Order: 9, Required: true, SkipCondition: "context.no_pr"},
			},
		},
		{
			Flow:                 "ai-review",
			Name:                 "AI Fix Review",
			Description:          "Review a fix authored by another agent: reproduce the problem, inspect the diff, run the tests, approve.",
			BlockingOnSessionEnd: true,
			CompletionStep:       "approve",
			Steps: []*StepDefinition{
				{ID: "reproduce", Name: "Reproduce the reported failure", Phase: PhaseAIReview, Order: 1, Required: true},
				{ID: "inspect-diff", Name: "Inspect the diff", Phase: PhaseAIReview, Order: 2, Required: true},
				{ID: "run-tests", Name: "Run the test suite", Phase: PhaseTesting, Order: 3, Required: true},
				{ID: "approve", Name: "Approve the fix", Phase: PhaseAIReview, Order: 4, Required: true},
			},
		},
		{
			Flow:        "worktree-cleanup",
			Name:        "Worktree Cleanup",
			Description: "Remove a finished worktree once its branch has landed.",
			Steps: []*StepDefinition{
				{ID: "verify-merged", Name: "Verify the branch is merged", Phase: PhaseCleanup, Order: 1, Required: true},
				{ID: "remove-worktree", Name: "Remove the worktree", Phase: PhaseCleanup, Order: 2, Required: true, SkipCondition: "context.keep_worktree"},
			},
		},
	}
}
