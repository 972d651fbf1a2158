// Package tool models the edge executor's tool registry: a closed set of
// capability bundles (name + description + argument schema + execute
// operation) looked up by name in O(1) (§4.4 step "Tool"). CanTool and
// LogTool are the two concrete bundles (§9 "Polymorphism in tools");
// both live in infrastructure/tool and satisfy this same interface.
package tool

import (
	"context"
	"fmt"
	"sync"
)

// Tool is the closed-set capability bundle dispatched by name from the
// registry. There is no open-ended inheritance: CanTool and LogTool are
// the only two variants known at compile time.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (*Result, error)
}

// Result is the structured record produced by a tool invocation (§4.4):
// name, success, optional data, a human summary, and an optional error.
type Result struct {
	ToolName string                 `json:"tool_name"`
	Success  bool                   `json:"success"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Summary  string                 `json:"summary"`
	Error    string                 `json:"error,omitempty"`
}

// Definition describes a tool for inclusion in an LLM prompt's tool list
// (§4.2 "known tools with argument schemas").
type Definition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Registry is the O(1) by-name lookup the executor dispatches through.
// The registry is constructed once at startup and shared by reference
// (§5 "immutable after startup"); it is not mutated during steady-state
// operation, but Register/Unregister exist for startup wiring and tests.
type Registry interface {
	Register(t Tool) error
	Unregister(name string) error
	Get(name string) (Tool, bool)
	List() []Definition
	Has(name string) bool
	// Names returns the known-tools set used by ParsedIntent.Validate
	// (§3 invariant: "when action=Tool, name must be in the known-tools
	// set").
	Names() map[string]bool
}

// InMemoryRegistry is the only Registry implementation; the tool set is
// small and known at compile time, so there is no need for a pluggable
// backend.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewInMemoryRegistry creates an empty registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{tools: make(map[string]Tool)}
}

func (r *InMemoryRegistry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = t
	return nil
}

func (r *InMemoryRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return fmt.Errorf("tool %s not found", name)
	}
	delete(r.tools, name)
	return nil
}

func (r *InMemoryRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tools[name]
	return t, exists
}

func (r *InMemoryRegistry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return defs
}

func (r *InMemoryRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}

// Names returns the known-tools set used by ParsedIntent.Validate (§3
// invariant: "when action=Tool, name must be in the known-tools set").
func (r *InMemoryRegistry) Names() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make(map[string]bool, len(r.tools))
	for name := range r.tools {
		names[name] = true
	}
	return names
}
