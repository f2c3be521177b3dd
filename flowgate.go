// Package flowgate provides a minimal public API for driving flowgate
// from Go-based agent harnesses.
//
// Most integrations should shell out to the flowgate CLI from their hook
// scripts. This package exports only the essential types and functions
// needed for Go programs that read or append session events directly.
package flowgate

import (
	"github.com/flowgate/flowgate/internal/config"
	"github.com/flowgate/flowgate/internal/eventlog"
	"github.com/flowgate/flowgate/internal/flow"
	"github.com/flowgate/flowgate/internal/flowdef"
)

// Core types for working with session events and flow instances
type (
	FlowEvent = eventlog.FlowEvent
	HookEvent = eventlog.HookEvent
	Context   = eventlog.Context
	Status    = flow.Status
)

// Event log kinds
const (
	KindFlowProgress  = eventlog.KindFlowProgress
	KindHookExecution = eventlog.KindHookExecution
)

// Flow lifecycle event types
const (
	FlowStarted   = eventlog.FlowStarted
	StepCompleted = eventlog.StepCompleted
	FlowCompleted = eventlog.FlowCompleted
)

// Log provides the minimal interface for reading and appending session events
type Log = eventlog.Log

// NewStore opens the JSONL event logs under logDir for programmatic access.
// Most integrations pair this with NewEngine to replay flow state.
func NewStore(logDir string) *eventlog.Store {
	return eventlog.NewStore(logDir)
}

// NewEngine replays flow instance state from a log using the registry's
// flow definitions. flowdef.NewCatalog() carries the built-in flows.
func NewEngine(log Log, defs flowdef.Registry) *flow.Engine {
	return flow.NewEngine(log, defs)
}

// FindDir locates the nearest .flowgate directory at or above startDir,
// falling back to <startDir>/.flowgate when none exists yet.
func FindDir(startDir string) string {
	return config.FindDir(startDir)
}
