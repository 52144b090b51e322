package agent

import (
	"fmt"
	"sync"
)

// Registry resolves agent ids to invokers.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Invoker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Invoker)}
}

// Get retrieves an invoker by agent id.
func (r *Registry) Get(id string) (Invoker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invoker, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent not found: %s", id)
	}
	return invoker, nil
}

// Register adds or replaces an agent.
func (r *Registry) Register(id string, invoker Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[id] = invoker
}

// Unregister removes an agent by id.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, id)
}

// Exists reports whether an agent id is registered.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[id]
	return ok
}

// Names returns all registered agent ids.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for id := range r.agents {
		names = append(names, id)
	}
	return names
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
