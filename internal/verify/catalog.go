// Package verify replays a session's hook-execution log against a catalog
// of expected hook behaviors and rolls the result up per phase and per
// session. It never blocks on anything: the verdicts here are advisory
// input for the session-end decision.
//
// The expectation catalog is read-only at verification time. Built-in
// expectations cover every canonical phase; a workspace can override or
// extend them with an expected-hooks.toml file:
//
//	[[hooks]]
//	hook = "merge-check"
//	phase = "merge"
//	trigger = "PreToolUse:git merge"
//	expect = "block"
package verify

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/flowgate/flowgate/internal/debug"
)

// CatalogFileName is the workspace expectation catalog file.
const CatalogFileName = "expected-hooks.toml"

// ExpectedHook describes how one hook should behave when it fires.
type ExpectedHook struct {
	// Hook is the hook name as recorded in the execution log.
	Hook string `toml:"hook" json:"hook"`

	// Phase is the canonical phase this hook belongs to.
	Phase string `toml:"phase" json:"phase"`

	// Trigger describes when the hook fires. Display only.
	Trigger string `toml:"trigger,omitempty" json:"trigger,omitempty"`

	// Expect is the decision the hook should produce, "approve" or
	// "block".
	Expect string `toml:"expect" json:"expect"`
}

func (h *ExpectedHook) validate() error {
	if h.Hook == "" {
		return fmt.Errorf("expected hook entry missing hook name")
	}
	if h.Phase == "" {
		return fmt.Errorf("expected hook %q missing phase", h.Hook)
	}
	if h.Expect == "" {
		return fmt.Errorf("expected hook %q missing expect", h.Hook)
	}
	return nil
}

// Catalog holds expected hook behaviors, keyed by hook name.
type Catalog struct {
	mu     sync.RWMutex
	byHook map[string]*ExpectedHook
	order  []string
}

// NewCatalog returns a catalog seeded with the built-in expectations.
func NewCatalog() *Catalog {
	c := NewEmptyCatalog()
	for _, h := range BuiltinHooks() {
		c.put(h)
	}
	return c
}

// NewEmptyCatalog returns a catalog with no entries. For tests and
// custom setups.
func NewEmptyCatalog() *Catalog {
	return &Catalog{byHook: make(map[string]*ExpectedHook)}
}

// Register adds an expectation, rejecting duplicates.
func (c *Catalog) Register(h *ExpectedHook) error {
	if err := h.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byHook[h.Hook]; exists {
		return fmt.Errorf("expected hook %q already registered", h.Hook)
	}
	c.putLocked(h)
	return nil
}

// put inserts or overrides an expectation. File loading uses this so a
// workspace catalog can replace a built-in.
func (c *Catalog) put(h *ExpectedHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(h)
}

func (c *Catalog) putLocked(h *ExpectedHook) {
	if _, exists := c.byHook[h.Hook]; !exists {
		c.order = append(c.order, h.Hook)
	}
	c.byHook[h.Hook] = h
}

// Hook returns the expectation for a hook name, nil when uncataloged.
func (c *Catalog) Hook(name string) *ExpectedHook {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byHook[name]
}

// Hooks returns all expectations in registration order.
func (c *Catalog) Hooks() []*ExpectedHook {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*ExpectedHook, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byHook[name])
	}
	return out
}

// PhaseHooks returns the expectations for one phase, in registration
// order.
func (c *Catalog) PhaseHooks(phaseID string) []*ExpectedHook {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*ExpectedHook
	for _, name := range c.order {
		if h := c.byHook[name]; h.Phase == phaseID {
			out = append(out, h)
		}
	}
	return out
}

type catalogFile struct {
	Hooks []*ExpectedHook `toml:"hooks"`
}

// Parse decodes an expected-hooks.toml document.
func Parse(data []byte) ([]*ExpectedHook, error) {
	var file catalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing expected hooks: %w", err)
	}
	for _, h := range file.Hooks {
		if err := h.validate(); err != nil {
			return nil, err
		}
	}
	return file.Hooks, nil
}

// LoadFile merges a workspace catalog file into this catalog. Entries
// override built-ins with the same hook name. A missing file is a no-op.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	hooks, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, h := range hooks {
		if c.Hook(h.Hook) != nil {
			debug.Logf("verify: %s overrides expectation for %q\n", filepath.Base(path), h.Hook)
		}
		c.put(h)
	}
	return nil
}

// LoadSearchPaths merges catalog files from the standard locations, home
// first so workspace entries win.
func (c *Catalog) LoadSearchPaths(workspaceDir string) error {
	for _, path := range SearchPaths(workspaceDir) {
		if err := c.LoadFile(path); err != nil {
			return err
		}
	}
	return nil
}

// SearchPaths lists expectation catalog locations in load order.
func SearchPaths(workspaceDir string) []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".flowgate", CatalogFileName))
	}
	return append(paths, filepath.Join(workspaceDir, CatalogFileName))
}
