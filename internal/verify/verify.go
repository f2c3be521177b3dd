package verify

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/flowgate/flowgate/internal/debug"
	"github.com/flowgate/flowgate/internal/eventlog"
	"github.com/flowgate/flowgate/internal/flowdef"
)

// HookState classifies one expected hook after replaying the log.
type HookState string

const (
	StateNotFired          HookState = "not_fired"
	StateOK                HookState = "ok"
	StateUnexpectedApprove HookState = "unexpected_approve"
	StateUnexpectedBlock   HookState = "unexpected_block"
	StateUnknown           HookState = "unknown"
)

// PhaseStatus is the per-phase firing rollup.
type PhaseStatus string

const (
	PhaseNotStarted PhaseStatus = "not_started"
	PhasePartial    PhaseStatus = "partial"
	PhaseComplete   PhaseStatus = "complete"
)

// ErrNegativeSince rejects a negative verification window. This is a
// caller bug, not an operational condition, so it does not fail open.
var ErrNegativeSince = errors.New("since window must not be negative")

// MaxSummaryIssues bounds the issue list carried in a summary.
const MaxSummaryIssues = 20

// HookResult is the verdict for one hook.
type HookResult struct {
	Hook      string    `json:"hook"`
	Phase     string    `json:"phase,omitempty"`
	Expected  string    `json:"expected,omitempty"`
	State     HookState `json:"state"`
	Fired     int       `json:"fired"`
	Decisions []string  `json:"decisions,omitempty"`
}

// PhaseResult is the rollup for one phase.
type PhaseResult struct {
	Phase  string       `json:"phase"`
	Name   string       `json:"name,omitempty"`
	Status PhaseStatus  `json:"status"`
	Fired  int          `json:"fired"`
	Total  int          `json:"total"`
	Hooks  []HookResult `json:"hooks,omitempty"`
}

// Issue reports a hook whose decision diverged from its expectation.
type Issue struct {
	Hook    string `json:"hook"`
	Phase   string `json:"phase,omitempty"`
	Message string `json:"message"`
}

// Summary is the whole-session verification report.
type Summary struct {
	SessionID    string        `json:"session_id"`
	GeneratedAt  string        `json:"generated_at"`
	Phases       []PhaseResult `json:"phases"`
	TotalHooks   int           `json:"total_hooks"`
	FiredHooks   int           `json:"fired_hooks"`
	Issues       []Issue       `json:"issues,omitempty"`
	IssuesTotal  int           `json:"issues_total"`
	UnknownHooks []string      `json:"unknown_hooks,omitempty"`
}

// SummaryOptions controls a summary replay. Since limits the window:
// nil means no window, zero means nothing counts, negative is invalid.
type SummaryOptions struct {
	Since *time.Duration
}

// Verifier replays one session's hook-execution log against the
// expectation catalog.
type Verifier struct {
	log       eventlog.Log
	catalog   *Catalog
	phases    []flowdef.Phase
	sessionID string
	now       func() time.Time
}

// NewVerifier creates a verifier bound to one session.
func NewVerifier(log eventlog.Log, catalog *Catalog, phases []flowdef.Phase, sessionID string) *Verifier {
	return &Verifier{
		log:       log,
		catalog:   catalog,
		phases:    phases,
		sessionID: sessionID,
		now:       time.Now,
	}
}

// WithClock returns a copy of the verifier using a fixed clock. For tests.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	out := *v
	out.now = now
	return &out
}

// VerifyHook classifies one hook over the full session log.
func (v *Verifier) VerifyHook(hookName string) HookResult {
	byHook, _ := v.decisions(nil)
	return v.verifyHook(hookName, byHook)
}

// VerifyPhase rolls up one phase's expected hooks over the full session
// log. The rollup counts firing only; decision mismatches surface as
// issues in the summary, not here.
func (v *Verifier) VerifyPhase(phaseID string) PhaseResult {
	byHook, _ := v.decisions(nil)
	return v.verifyPhase(phaseID, byHook)
}

// Summary replays the session within the optional window and reports
// every known phase, overall fired counts, and a bounded issue list.
func (v *Verifier) Summary(opts SummaryOptions) (*Summary, error) {
	if opts.Since != nil && *opts.Since < 0 {
		return nil, ErrNegativeSince
	}

	byHook, unknown := v.decisions(opts.Since)

	sum := &Summary{
		SessionID:    v.sessionID,
		GeneratedAt:  eventlog.Timestamp(v.now()),
		UnknownHooks: unknown,
	}
	for _, phase := range v.phases {
		sum.Phases = append(sum.Phases, v.verifyPhase(phase.ID, byHook))
	}

	for _, exp := range v.catalog.Hooks() {
		sum.TotalHooks++
		res := v.verifyHook(exp.Hook, byHook)
		if res.Fired > 0 {
			sum.FiredHooks++
		}
		switch res.State {
		case StateUnexpectedApprove, StateUnexpectedBlock:
			sum.IssuesTotal++
			if len(sum.Issues) < MaxSummaryIssues {
				sum.Issues = append(sum.Issues, Issue{
					Hook:    exp.Hook,
					Phase:   exp.Phase,
					Message: fmt.Sprintf("expected %s, observed %s", exp.Expect, strings.Join(res.Decisions, ", ")),
				})
			}
		}
	}
	return sum, nil
}

// decisions folds the session's hook events into per-hook decision
// lists, applying the window when one is given. Hooks that fired but
// are not in the catalog are returned separately, sorted.
func (v *Verifier) decisions(since *time.Duration) (map[string][]string, []string) {
	byHook := make(map[string][]string)
	if since != nil && *since == 0 {
		return byHook, nil
	}

	var cutoff time.Time
	windowed := since != nil
	if windowed {
		cutoff = v.now().Add(-*since)
	}

	var unknown []string
	seen := make(map[string]bool)
	for _, ev := range v.log.ReadHook(v.sessionID) {
		if windowed {
			ts, err := eventlog.ParseTimestamp(ev.Timestamp)
			if err != nil {
				// Cannot be proven recent; only counts when no
				// window is active.
				continue
			}
			if ts.Before(cutoff) {
				continue
			}
		}
		byHook[ev.Hook] = append(byHook[ev.Hook], ev.Decision)
		if v.catalog.Hook(ev.Hook) == nil && !seen[ev.Hook] {
			seen[ev.Hook] = true
			unknown = append(unknown, ev.Hook)
			debug.Logf("verify: hook %q fired but is not in the expectation catalog\n", ev.Hook)
		}
	}
	sort.Strings(unknown)
	return byHook, unknown
}

func (v *Verifier) verifyHook(name string, byHook map[string][]string) HookResult {
	decisions := byHook[name]
	exp := v.catalog.Hook(name)
	if exp == nil {
		debug.Logf("verify: no expectation for hook %q\n", name)
		return HookResult{
			Hook:      name,
			State:     StateUnknown,
			Fired:     len(decisions),
			Decisions: distinct(decisions),
		}
	}
	return HookResult{
		Hook:      name,
		Phase:     exp.Phase,
		Expected:  exp.Expect,
		State:     classify(exp.Expect, decisions),
		Fired:     len(decisions),
		Decisions: distinct(decisions),
	}
}

func (v *Verifier) verifyPhase(phaseID string, byHook map[string][]string) PhaseResult {
	res := PhaseResult{
		Phase: phaseID,
		Name:  flowdef.PhaseByID(v.phases, phaseID).Name,
	}
	for _, exp := range v.catalog.PhaseHooks(phaseID) {
		hr := v.verifyHook(exp.Hook, byHook)
		res.Hooks = append(res.Hooks, hr)
		res.Total++
		if hr.Fired > 0 {
			res.Fired++
		}
	}
	res.Status = rollup(res.Fired, res.Total)
	return res
}

func rollup(fired, total int) PhaseStatus {
	switch {
	case total == 0 || fired == 0:
		return PhaseNotStarted
	case fired == total:
		return PhaseComplete
	default:
		return PhasePartial
	}
}

// classify compares the set of observed decisions against the expected
// one. A single wrongful approval is a violation even when other
// invocations correctly blocked, and symmetrically for wrongful blocks.
// Decisions outside the approve/block vocabulary are neutral.
func classify(expected string, decisions []string) HookState {
	if len(decisions) == 0 {
		return StateNotFired
	}
	switch expected {
	case "block":
		if containsDecision(decisions, "approve") {
			return StateUnexpectedApprove
		}
	case "approve":
		if containsDecision(decisions, "block") {
			return StateUnexpectedBlock
		}
	}
	return StateOK
}

func containsDecision(decisions []string, want string) bool {
	for _, d := range decisions {
		if d == want {
			return true
		}
	}
	return false
}

// distinct keeps the first occurrence of each decision, in order.
func distinct(decisions []string) []string {
	if len(decisions) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(decisions))
	var out []string
	for _, d := range decisions {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}
