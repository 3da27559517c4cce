package tools

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Registry manages the tools available to the model.
type Registry interface {
	Register(def ToolDefinition) error
	Get(name string) (*ToolDefinition, error)
	List() []ToolDefinition
	Unregister(name string) error
	Has(name string) bool
	Count() int
}

// InMemoryRegistry is a thread-safe in-memory Registry.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	tools map[string]ToolDefinition
}

var _ Registry = (*InMemoryRegistry)(nil)

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		tools: make(map[string]ToolDefinition),
	}
}

func (r *InMemoryRegistry) Register(def ToolDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def.Name == "" {
		return errors.New("tool name cannot be empty")
	}
	if def.Fn == nil {
		return errors.Errorf("tool %s has no function", def.Name)
	}
	r.tools[def.Name] = def
	return nil
}

// Get retrieves a tool by name. The returned definition is a copy.
func (r *InMemoryRegistry) Get(name string) (*ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.tools[name]
	if !ok {
		return nil, errors.Errorf("tool not found: %s", name)
	}
	defCopy := def
	return &defCopy, nil
}

// List returns all registered tools, sorted by name for stable catalogs.
func (r *InMemoryRegistry) List() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolDefinition, 0, len(r.tools))
	for _, def := range r.tools {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *InMemoryRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[name]; !ok {
		return errors.Errorf("tool not found: %s", name)
	}
	delete(r.tools, name)
	return nil
}

func (r *InMemoryRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

func (r *InMemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
