package flowdef

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/flowgate/flowgate/internal/debug"
)

// FlowExtTOML is the flow definition file extension.
const FlowExtTOML = ".flow.toml"

// Registry is the read-only definition surface the engine and aggregator
// consume. Catalog is the standard implementation.
type Registry interface {
	// FlowDefinition returns the definition for a flow id, or nil when
	// the id is unknown.
	FlowDefinition(flowID string) *FlowDefinition

	// Phases returns the canonical ordered phase catalog.
	Phases() []Phase

	// CanSkipStep reports whether a step may be skipped for an instance
	// with the given context.
	CanSkipStep(flowID, stepID string, fctx map[string]string) bool
}

// Catalog holds flow definitions and the phase catalog. Safe for
// concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	byID   map[string]*FlowDefinition
	order  []string
	phases []Phase
}

// NewCatalog creates a catalog seeded with the built-in phases and flows.
func NewCatalog() *Catalog {
	c := &Catalog{
		byID:   make(map[string]*FlowDefinition),
		phases: BuiltinPhases(),
	}
	for _, def := range BuiltinFlows() {
		c.put(def)
	}
	return c
}

// NewEmptyCatalog creates a catalog with the built-in phases but no flows.
func NewEmptyCatalog() *Catalog {
	return &Catalog{
		byID:   make(map[string]*FlowDefinition),
		phases: BuiltinPhases(),
	}
}

// Register adds a definition, rejecting duplicates and invalid flows.
func (c *Catalog) Register(def *FlowDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byID[def.Flow]; exists {
		return fmt.Errorf("flow %q already registered", def.Flow)
	}
	c.putLocked(def)
	return nil
}

// put inserts or replaces a definition. Used by built-ins and by file
// loading, where a workspace file overriding a built-in is intended.
func (c *Catalog) put(def *FlowDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(def)
}

func (c *Catalog) putLocked(def *FlowDefinition) {
	if _, exists := c.byID[def.Flow]; !exists {
		c.order = append(c.order, def.Flow)
	}
	c.byID[def.Flow] = def
}

// FlowDefinition returns the definition for a flow id, or nil.
func (c *Catalog) FlowDefinition(flowID string) *FlowDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID[flowID]
}

// Flows returns all definitions in registration order.
func (c *Catalog) Flows() []*FlowDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*FlowDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Phases returns a copy of the canonical ordered phase catalog.
func (c *Catalog) Phases() []Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Phase, len(c.phases))
	copy(out, c.phases)
	return out
}

// CanSkipStep reports whether a step may be skipped for the given context.
// Required steps are skippable only when their skip condition holds;
// non-required steps are always skippable. Unknown flows or steps are
// treated as skippable so a stale instance can't block forever on a
// definition that no longer exists.
func (c *Catalog) CanSkipStep(flowID, stepID string, fctx map[string]string) bool {
	def := c.FlowDefinition(flowID)
	if def == nil {
		debug.Logf("flowdef: can-skip check for unknown flow %q\n", flowID)
		return true
	}
	step := def.StepByID(stepID)
	if step == nil {
		debug.Logf("flowdef: can-skip check for unknown step %q in flow %q\n", stepID, flowID)
		return true
	}

	if step.SkipCondition != "" {
		skip, err := EvaluateSkipCondition(step.SkipCondition, fctx)
		if err != nil {
			debug.Logf("flowdef: flow %q step %q: %v\n", flowID, stepID, err)
			return !step.Required
		}
		if skip {
			return true
		}
	}
	return !step.Required
}

// LoadDir loads every *.flow.toml file in dir into the catalog. Files
// override same-id definitions already present (built-ins included).
// A missing directory is not an error; an invalid file is.
func (c *Catalog) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading flow dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), FlowExtTOML) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		def, err := ParseFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if existing := c.FlowDefinition(def.Flow); existing != nil {
			debug.Logf("flowdef: %s overrides flow %q\n", name, def.Flow)
		}
		c.put(def)
	}
	return nil
}

// LoadSearchPaths loads flow files from every search path in order, so
// later paths override earlier ones.
func (c *Catalog) LoadSearchPaths(workspaceDir string) error {
	for _, dir := range SearchPaths(workspaceDir) {
		if err := c.LoadDir(dir); err != nil {
			return err
		}
	}
	return nil
}

// SearchPaths returns the flow definition directories in load order: the
// user-level directory first, then the workspace so project flows win.
func SearchPaths(workspaceDir string) []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".flowgate", "flows"))
	}
	return append(paths, filepath.Join(workspaceDir, "flows"))
}

// ParseFile parses and validates one .flow.toml file.
func ParseFile(path string) (*FlowDefinition, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	def.Source = absPath
	return def, nil
}

// Parse parses and validates a flow definition from TOML bytes.
func Parse(data []byte) (*FlowDefinition, error) {
	var def FlowDefinition
	if err := toml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("toml: %w", err)
	}
	if def.Name == "" {
		def.Name = def.Flow
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
