// Package workflowstate tracks per-session workflow display state: which
// named workflows exist, what phase each is in, and which one to show.
// Unlike the event logs this is a whole-file overwrite, the one piece of
// non-append-only state in the system. State here is display metadata
// only; blocking decisions always come from the event logs.
package workflowstate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/flowgate/flowgate/internal/debug"
	"github.com/flowgate/flowgate/internal/eventlog"
	"github.com/flowgate/flowgate/internal/flowdef"
)

const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// PhaseState is one phase's progress within one workflow.
type PhaseState struct {
	Status     string `json:"status"`
	Iterations int    `json:"iterations"`
}

// Workflow is one named workflow's phase map. Phase maps are never
// merged across workflows: a phase completed in a sibling workflow
// stays invisible here.
type Workflow struct {
	CurrentPhase string                 `json:"current_phase,omitempty"`
	Phases       map[string]*PhaseState `json:"phases"`
}

// State is the per-session workflow state document.
type State struct {
	SessionID      string                 `json:"session_id"`
	ActiveWorkflow string                 `json:"active_workflow,omitempty"`
	Workflows      map[string]*Workflow   `json:"workflows"`
	Global         map[string]interface{} `json:"global,omitempty"`
}

func filePath(dir, sessionID string) string {
	name := "workflow-state-" + eventlog.SanitizeSessionID(sessionID) + ".json"
	return filepath.Join(dir, name)
}

// Load reads the session's state file. A missing or unreadable file
// yields a fresh empty state; state display must never fail a hook.
func Load(dir, sessionID string) *State {
	st := &State{
		SessionID: sessionID,
		Workflows: make(map[string]*Workflow),
	}

	data, err := os.ReadFile(filePath(dir, sessionID))
	if err != nil {
		if !os.IsNotExist(err) {
			debug.Logf("workflowstate: read failed, starting fresh: %v\n", err)
		}
		return st
	}
	var loaded State
	if err := json.Unmarshal(data, &loaded); err != nil {
		debug.Logf("workflowstate: corrupt state file, starting fresh: %v\n", err)
		return st
	}

	loaded.SessionID = sessionID
	if loaded.Workflows == nil {
		loaded.Workflows = make(map[string]*Workflow)
	}
	for _, wf := range loaded.Workflows {
		if wf.Phases == nil {
			wf.Phases = make(map[string]*PhaseState)
		}
	}
	return &loaded
}

// Save overwrites the session's state file. Returns false on any I/O
// failure.
func (s *State) Save(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		debug.Logf("workflowstate: cannot create %s: %v\n", dir, err)
		return false
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		debug.Logf("workflowstate: marshal failed: %v\n", err)
		return false
	}
	path := filePath(dir, s.SessionID)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		debug.Logf("workflowstate: write failed: %v\n", err)
		return false
	}
	return true
}

// Workflow returns the named workflow, creating it if needed.
func (s *State) Workflow(name string) *Workflow {
	if wf, ok := s.Workflows[name]; ok {
		return wf
	}
	wf := &Workflow{Phases: make(map[string]*PhaseState)}
	s.Workflows[name] = wf
	return wf
}

// SetActive records the explicit active-workflow pointer.
func (s *State) SetActive(name string) {
	s.ActiveWorkflow = name
}

// EnterPhase moves the workflow into a phase. Re-entering a phase the
// workflow has left increments its iteration count.
func (w *Workflow) EnterPhase(phaseID string) {
	ps, ok := w.Phases[phaseID]
	if !ok {
		ps = &PhaseState{}
		w.Phases[phaseID] = ps
	}
	if !ok || w.CurrentPhase != phaseID {
		ps.Iterations++
	}
	ps.Status = StatusInProgress
	w.CurrentPhase = phaseID
}

// CompletePhase marks a phase completed without changing CurrentPhase.
func (w *Workflow) CompletePhase(phaseID string) {
	ps, ok := w.Phases[phaseID]
	if !ok {
		ps = &PhaseState{Iterations: 1}
		w.Phases[phaseID] = ps
	}
	ps.Status = StatusCompleted
}

// PhaseStatus reports one phase's status in this workflow only. Missing
// entries are not_started, regardless of sibling workflows.
func (w *Workflow) PhaseStatus(phaseID string) string {
	if ps, ok := w.Phases[phaseID]; ok && ps.Status != "" {
		return ps.Status
	}
	return StatusNotStarted
}

// SelectDisplay picks which workflow to render: the explicit active
// pointer when it names a live workflow, otherwise the workflow whose
// current phase sits furthest along the canonical order. Returns
// ("", nil) when the session has no workflows.
func SelectDisplay(s *State, phases []flowdef.Phase) (string, *Workflow) {
	if s == nil || len(s.Workflows) == 0 {
		return "", nil
	}
	if s.ActiveWorkflow != "" {
		if wf, ok := s.Workflows[s.ActiveWorkflow]; ok {
			return s.ActiveWorkflow, wf
		}
		debug.Logf("workflowstate: active workflow %q not found, falling back\n", s.ActiveWorkflow)
	}

	names := make([]string, 0, len(s.Workflows))
	for name := range s.Workflows {
		names = append(names, name)
	}
	sort.Strings(names)

	bestName, bestIdx := "", -2
	for _, name := range names {
		idx := flowdef.PhaseIndex(phases, s.Workflows[name].CurrentPhase)
		if idx > bestIdx {
			bestName, bestIdx = name, idx
		}
	}
	return bestName, s.Workflows[bestName]
}
