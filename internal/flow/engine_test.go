package flow

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/flowgate/flowgate/internal/eventlog"
	"github.com/flowgate/flowgate/internal/flowdef"
)

func testCatalog(t *testing.T) *flowdef.Catalog {
	t.Helper()
	cat := flowdef.NewEmptyCatalog()
	defs := []*flowdef.FlowDefinition{
		{
			Flow:                 "issue-work",
			Name:                 "Issue Work",
			BlockingOnSessionEnd: true,
			Steps: []*flowdef.StepDefinition{
				{ID: "a", Name: "Step A", Phase: flowdef.PhaseImplementation, Required: true},
				{ID: "b", Name: "Step B", Phase: flowdef.PhaseTesting, Required: true},
				{ID: "c", Name: "Step C", Phase: flowdef.PhaseCommit, Required: true},
			},
		},
		{
			Flow:           "review",
			Name:           "Review",
			CompletionStep: "approve",
			Steps: []*flowdef.StepDefinition{
				{ID: "prepare", Phase: flowdef.PhaseAIReview, Required: true},
				{ID: "approve", Phase: flowdef.PhaseAIReview, Required: true},
			},
		},
		{
			Flow:                 "pr-flow",
			Name:                 "PR Flow",
			BlockingOnSessionEnd: true,
			Steps: []*flowdef.StepDefinition{
				{ID: "push", Name: "Push", Phase: flowdef.PhaseCommit, Required: true},
				{ID: "open-pr", Name: "Open PR", Phase: flowdef.PhasePR, Required: true, SkipCondition: "context.no_pr"},
				{ID: "note", Name: "Note", Phase: flowdef.PhasePR},
			},
		},
	}
	for _, def := range defs {
		if err := cat.Register(def); err != nil {
			t.Fatalf("register %s: %v", def.Flow, err)
		}
	}
	return cat
}

// tickingClock advances one second per call so instance ids never collide.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newTestEngine(t *testing.T) (*Engine, *eventlog.Store) {
	t.Helper()
	store := eventlog.NewStore(t.TempDir())
	eng := NewEngine(store, testCatalog(t)).
		WithClock(tickingClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)))
	return eng, store
}

func TestStartUnknownFlow(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Start("nope", nil, "s1")
	if !errors.Is(err, ErrUnknownFlow) {
		t.Fatalf("Start(nope) error = %v, want ErrUnknownFlow", err)
	}
}

func TestStartLogUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	store := eventlog.NewStore(filepath.Join(blocker, "logs"))
	eng := NewEngine(store, testCatalog(t))

	_, err := eng.Start("issue-work", nil, "s1")
	if !errors.Is(err, ErrLogUnavailable) {
		t.Fatalf("Start error = %v, want ErrLogUnavailable", err)
	}
}

func TestStartAndStatus(t *testing.T) {
	eng, _ := newTestEngine(t)
	fctx := eventlog.Context{"issue_number": "42"}

	id, err := eng.Start("issue-work", fctx, "s1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if id == "" {
		t.Fatal("Start returned empty instance id")
	}

	st, err := eng.Status(id, "s1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.FlowID != "issue-work" || st.FlowName != "Issue Work" {
		t.Errorf("flow identity = %q/%q", st.FlowID, st.FlowName)
	}
	if !reflect.DeepEqual(st.ExpectedSteps, []string{"a", "b", "c"}) {
		t.Errorf("ExpectedSteps = %v", st.ExpectedSteps)
	}
	if !reflect.DeepEqual(st.PendingSteps, []string{"a", "b", "c"}) {
		t.Errorf("PendingSteps = %v", st.PendingSteps)
	}
	if st.Complete {
		t.Error("freshly started flow reported complete")
	}
	if !st.Context.Equal(fctx) {
		t.Errorf("Context = %v, want %v", st.Context, fctx)
	}
	if st.StartedAt == "" {
		t.Error("StartedAt is empty")
	}
}

func TestIdempotentStart(t *testing.T) {
	eng, _ := newTestEngine(t)
	fctx := eventlog.Context{"issue_number": "42"}

	first, err := eng.Start("issue-work", fctx, "s1")
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	second, err := eng.Start("issue-work", fctx, "s1")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if first != second {
		t.Errorf("duplicate start created new instance: %q vs %q", first, second)
	}

	other, err := eng.Start("issue-work", eventlog.Context{"issue_number": "43"}, "s1")
	if err != nil {
		t.Fatalf("Start with other context: %v", err)
	}
	if other == first {
		t.Error("different context deduped onto same instance")
	}
}

func TestEmptyContextDisablesDedup(t *testing.T) {
	eng, _ := newTestEngine(t)

	first, err := eng.Start("issue-work", nil, "s1")
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	second, err := eng.Start("issue-work", nil, "s1")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if first == second {
		t.Error("empty context should allow duplicate instances")
	}
}

func TestEndToEndScenario(t *testing.T) {
	eng, store := newTestEngine(t)
	fctx := eventlog.Context{"issue_number": "42"}

	id, err := eng.Start("issue-work", fctx, "s1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	incomplete := eng.Incomplete("s1")
	if len(incomplete) != 1 {
		t.Fatalf("Incomplete returned %d flows, want 1", len(incomplete))
	}
	if !reflect.DeepEqual(incomplete[0].PendingSteps, []string{"a", "b", "c"}) {
		t.Errorf("PendingSteps = %v", incomplete[0].PendingSteps)
	}

	for _, step := range []string{"a", "b"} {
		if err := eng.CompleteStep(id, step, "issue-work", "s1"); err != nil {
			t.Fatalf("CompleteStep(%s): %v", step, err)
		}
	}
	st, err := eng.Status(id, "s1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !reflect.DeepEqual(st.PendingSteps, []string{"c"}) {
		t.Errorf("PendingSteps after a,b = %v", st.PendingSteps)
	}
	if st.Complete {
		t.Error("flow complete before final step")
	}

	if err := eng.CompleteStep(id, "c", "issue-work", "s1"); err != nil {
		t.Fatalf("CompleteStep(c): %v", err)
	}
	st, err = eng.Status(id, "s1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Complete {
		t.Error("flow not complete after all steps")
	}
	if got := eng.Incomplete("s1"); len(got) != 0 {
		t.Errorf("Incomplete after completion = %d flows", len(got))
	}

	// The final step must have auto-appended exactly one flow_completed.
	completed := 0
	for _, ev := range store.ReadFlow("s1") {
		if ev.Event == eventlog.FlowCompleted && ev.FlowInstanceID == id {
			completed++
		}
	}
	if completed != 1 {
		t.Errorf("flow_completed events = %d, want 1", completed)
	}
}

func TestStepRecompletionCounts(t *testing.T) {
	eng, _ := newTestEngine(t)

	id, err := eng.Start("issue-work", nil, "s1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := eng.CompleteStep(id, "a", "issue-work", "s1"); err != nil {
			t.Fatalf("CompleteStep: %v", err)
		}
	}

	st, err := eng.Status(id, "s1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.StepCounts["a"] != 3 {
		t.Errorf("StepCounts[a] = %d, want 3", st.StepCounts["a"])
	}
	if !reflect.DeepEqual(st.CompletedSteps, []string{"a"}) {
		t.Errorf("CompletedSteps = %v, want [a]", st.CompletedSteps)
	}
	if !reflect.DeepEqual(st.PendingSteps, []string{"b", "c"}) {
		t.Errorf("PendingSteps = %v, want [b c]", st.PendingSteps)
	}
}

func TestCompletionMonotonic(t *testing.T) {
	eng, store := newTestEngine(t)

	id, err := eng.Start("issue-work", nil, "s1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, step := range []string{"a", "b", "c"} {
		if err := eng.CompleteStep(id, step, "issue-work", "s1"); err != nil {
			t.Fatalf("CompleteStep(%s): %v", step, err)
		}
	}

	for i := 0; i < 2; i++ {
		if err := eng.CompleteStep(id, "c", "issue-work", "s1"); err != nil {
			t.Fatalf("re-CompleteStep: %v", err)
		}
		st, err := eng.Status(id, "s1")
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if !st.Complete {
			t.Fatal("completion regressed after extra step completion")
		}
	}

	// Re-completions after the flow closed must not append more
	// flow_completed events.
	completed := 0
	for _, ev := range store.ReadFlow("s1") {
		if ev.Event == eventlog.FlowCompleted {
			completed++
		}
	}
	if completed != 1 {
		t.Errorf("flow_completed events = %d, want 1", completed)
	}
}

func TestCompletionStepRule(t *testing.T) {
	eng, _ := newTestEngine(t)

	id, err := eng.Start("review", nil, "s1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := eng.CompleteStep(id, "prepare", "review", "s1"); err != nil {
		t.Fatalf("CompleteStep(prepare): %v", err)
	}
	st, err := eng.Status(id, "s1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Complete {
		t.Error("flow complete without its completion step")
	}

	if err := eng.CompleteStep(id, "approve", "review", "s1"); err != nil {
		t.Fatalf("CompleteStep(approve): %v", err)
	}
	st, err = eng.Status(id, "s1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Complete {
		t.Error("completion step did not complete the flow")
	}
}

func TestCompletionStepAlone(t *testing.T) {
	eng, _ := newTestEngine(t)

	id, err := eng.Start("review", nil, "s1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := eng.CompleteStep(id, "approve", "review", "s1"); err != nil {
		t.Fatalf("CompleteStep(approve): %v", err)
	}

	st, err := eng.Status(id, "s1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Complete {
		t.Error("completion step alone should complete the flow")
	}
	if !reflect.DeepEqual(st.PendingSteps, []string{"prepare"}) {
		t.Errorf("PendingSteps = %v, want [prepare]", st.PendingSteps)
	}
}

func TestExplicitCompleteFlow(t *testing.T) {
	eng, _ := newTestEngine(t)

	id, err := eng.Start("issue-work", nil, "s1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := eng.CompleteFlow(id, "issue-work", "s1"); err != nil {
		t.Fatalf("CompleteFlow: %v", err)
	}
	// Duplicate completion events are tolerated by readers.
	if err := eng.CompleteFlow(id, "issue-work", "s1"); err != nil {
		t.Fatalf("second CompleteFlow: %v", err)
	}

	st, err := eng.Status(id, "s1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Complete {
		t.Error("explicit completion not reflected in status")
	}
	if len(st.PendingSteps) != 3 {
		t.Errorf("PendingSteps = %v, expected all steps still pending", st.PendingSteps)
	}
}

func TestStatusUnknownInstance(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Status("flow-12345-nobody", "s1")
	if !errors.Is(err, ErrNoSuchInstance) {
		t.Fatalf("Status error = %v, want ErrNoSuchInstance", err)
	}
}

func TestOutOfOrderStepIgnored(t *testing.T) {
	eng, _ := newTestEngine(t)

	if err := eng.CompleteStep("flow-999-ghost", "a", "issue-work", "s1"); err != nil {
		t.Fatalf("CompleteStep for unstarted instance: %v", err)
	}
	if _, err := eng.Status("flow-999-ghost", "s1"); !errors.Is(err, ErrNoSuchInstance) {
		t.Fatalf("Status error = %v, want ErrNoSuchInstance", err)
	}
	if got := eng.AllStatuses("s1"); len(got) != 0 {
		t.Errorf("AllStatuses = %d entries, want 0", len(got))
	}
}

func TestReplayDeterminism(t *testing.T) {
	eng, _ := newTestEngine(t)

	id, err := eng.Start("issue-work", eventlog.Context{"issue_number": "7"}, "s1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := eng.Start("review", nil, "s1"); err != nil {
		t.Fatalf("Start review: %v", err)
	}
	for _, step := range []string{"a", "a", "b"} {
		if err := eng.CompleteStep(id, step, "issue-work", "s1"); err != nil {
			t.Fatalf("CompleteStep: %v", err)
		}
	}

	first := eng.AllStatuses("s1")
	second := eng.AllStatuses("s1")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("replay not deterministic:\n  first  %+v\n  second %+v", first, second)
	}
}

func TestSessionIsolation(t *testing.T) {
	eng, _ := newTestEngine(t)

	if _, err := eng.Start("issue-work", nil, "s1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := eng.Incomplete("s2"); len(got) != 0 {
		t.Errorf("session s2 sees %d flows from s1", len(got))
	}
}

func TestRestartAfterCompletion(t *testing.T) {
	eng, _ := newTestEngine(t)
	fctx := eventlog.Context{"issue_number": "42"}

	first, err := eng.Start("issue-work", fctx, "s1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := eng.CompleteFlow(first, "issue-work", "s1"); err != nil {
		t.Fatalf("CompleteFlow: %v", err)
	}

	second, err := eng.Start("issue-work", fctx, "s1")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if second == first {
		t.Error("start after completion reused the completed instance")
	}
}

func TestIncompleteOrder(t *testing.T) {
	eng, _ := newTestEngine(t)

	a, err := eng.Start("issue-work", eventlog.Context{"issue_number": "1"}, "s1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	b, err := eng.Start("issue-work", eventlog.Context{"issue_number": "2"}, "s1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	got := eng.Incomplete("s1")
	if len(got) != 2 || got[0].FlowInstanceID != a || got[1].FlowInstanceID != b {
		t.Errorf("Incomplete order wrong: %+v", got)
	}
}
