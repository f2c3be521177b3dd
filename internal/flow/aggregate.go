package flow

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/flowgate/flowgate/internal/debug"
	"github.com/flowgate/flowgate/internal/eventlog"
	"github.com/flowgate/flowgate/internal/flowdef"
)

const (
	// DefaultExpiry is how long an incomplete flow stays relevant.
	DefaultExpiry = 24 * time.Hour
	// DefaultLookupTimeout bounds a single issue-state lookup.
	DefaultLookupTimeout = 4 * time.Second
	// DefaultLookupConcurrency bounds parallel issue-state lookups.
	DefaultLookupConcurrency = 5
)

// IssueStateChecker answers whether an issue reference is closed.
// Implementations must treat "cannot determine" as an error, not as
// closed; the aggregator keeps the flow in that case.
type IssueStateChecker interface {
	IsIssueClosed(ctx context.Context, issueRef string) (bool, error)
}

// Aggregator narrows incomplete flows down to the ones that should
// actually block session end.
type Aggregator struct {
	defs          flowdef.Registry
	issues        IssueStateChecker
	expiry        time.Duration
	lookupTimeout time.Duration
	concurrency   int64
}

// NewAggregator creates an aggregator with default expiry and lookup
// bounds and no issue checker. Without a checker the closed-issue
// filter keeps everything.
func NewAggregator(defs flowdef.Registry) *Aggregator {
	return &Aggregator{
		defs:          defs,
		expiry:        DefaultExpiry,
		lookupTimeout: DefaultLookupTimeout,
		concurrency:   DefaultLookupConcurrency,
	}
}

// WithIssueChecker returns a copy using the given checker.
func (a *Aggregator) WithIssueChecker(c IssueStateChecker) *Aggregator {
	out := *a
	out.issues = c
	return &out
}

// WithExpiry returns a copy using the given flow expiry window.
func (a *Aggregator) WithExpiry(d time.Duration) *Aggregator {
	out := *a
	if d > 0 {
		out.expiry = d
	}
	return &out
}

// WithLookupTimeout returns a copy using the given per-lookup timeout.
func (a *Aggregator) WithLookupTimeout(d time.Duration) *Aggregator {
	out := *a
	if d > 0 {
		out.lookupTimeout = d
	}
	return &out
}

// WithLookupConcurrency returns a copy using the given parallel lookup
// limit.
func (a *Aggregator) WithLookupConcurrency(n int) *Aggregator {
	out := *a
	if n > 0 {
		out.concurrency = int64(n)
	}
	return &out
}

// FilterExpired drops flows whose started_at is older than the expiry
// window. Flows with a missing or unparsable timestamp are kept; a
// stale flow is a nuisance, a silently dropped one is a policy hole.
func FilterExpired(flows []*Status, now time.Time, expiry time.Duration) []*Status {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	cutoff := now.Add(-expiry)

	var out []*Status
	for _, st := range flows {
		if st.StartedAt != "" {
			started, err := eventlog.ParseTimestamp(st.StartedAt)
			if err == nil && started.Before(cutoff) {
				debug.Logf("flow: dropping expired instance %s (started %s)\n", st.FlowInstanceID, st.StartedAt)
				continue
			}
		}
		out = append(out, st)
	}
	return out
}

// issueRef extracts an issue-tracker reference from a flow context.
func issueRef(fctx eventlog.Context) string {
	for _, key := range []string{"issue_number", "issue"} {
		if v, ok := fctx[key]; ok && v != "" {
			return v
		}
	}
	return ""
}

// FilterClosedIssues drops flows whose linked issue is closed. Lookups
// for distinct issue refs run concurrently, bounded by the aggregator's
// concurrency limit and individually timeout-bounded. Any lookup
// failure leaves the flow in place.
func (a *Aggregator) FilterClosedIssues(ctx context.Context, flows []*Status) []*Status {
	if a.issues == nil {
		return flows
	}

	refs := make(map[string]bool)
	for _, st := range flows {
		if ref := issueRef(st.Context); ref != "" {
			refs[ref] = true
		}
	}
	if len(refs) == 0 {
		return flows
	}

	var (
		mu     sync.Mutex
		closed = make(map[string]bool, len(refs))
		wg     sync.WaitGroup
		sem    = semaphore.NewWeighted(a.concurrency)
	)
	for ref := range refs {
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			lctx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
			defer cancel()
			isClosed, err := a.issues.IsIssueClosed(lctx, ref)
			if err != nil {
				debug.Logf("flow: issue lookup failed for %s, treating as open: %v\n", ref, err)
				return
			}
			mu.Lock()
			closed[ref] = isClosed
			mu.Unlock()
		}(ref)
	}
	wg.Wait()

	var out []*Status
	for _, st := range flows {
		if ref := issueRef(st.Context); ref != "" && closed[ref] {
			debug.Logf("flow: dropping instance %s, issue %s is closed\n", st.FlowInstanceID, ref)
			continue
		}
		out = append(out, st)
	}
	return out
}

// RequiredPending narrows a flow's pending steps to the non-skippable
// ones. Only these count toward blocking session end.
func (a *Aggregator) RequiredPending(st *Status) []string {
	var out []string
	for _, step := range st.PendingSteps {
		if !a.defs.CanSkipStep(st.FlowID, step, st.Context) {
			out = append(out, step)
		}
	}
	return out
}

// Blocking reports whether a single flow should block session end: its
// definition opts in and at least one required step is still pending.
func (a *Aggregator) Blocking(st *Status) bool {
	def := a.defs.FlowDefinition(st.FlowID)
	if def == nil || !def.BlockingOnSessionEnd {
		return false
	}
	return len(a.RequiredPending(st)) > 0
}

// BlockingFlows runs the full pipeline over raw incomplete flows:
// expiry filter, closed-issue filter, then the blocking decision.
func (a *Aggregator) BlockingFlows(ctx context.Context, flows []*Status, now time.Time) []*Status {
	flows = FilterExpired(flows, now, a.expiry)
	flows = a.FilterClosedIssues(ctx, flows)

	var out []*Status
	for _, st := range flows {
		if a.Blocking(st) {
			out = append(out, st)
		}
	}
	return out
}
