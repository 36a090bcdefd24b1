package responder

import (
	"fmt"
	"sync"
)

// Registry is the closed set of registered responders. Routing decisions
// select targets by name from this set; there is no runtime type inspection.
type Registry struct {
	mu         sync.RWMutex
	responders map[string]Responder
	order      []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{responders: make(map[string]Responder)}
}

// Register adds a responder. Registering the same name twice is an error.
func (r *Registry) Register(rsp Responder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := rsp.Name()
	if _, ok := r.responders[name]; ok {
		return fmt.Errorf("responder %q already registered", name)
	}
	r.responders[name] = rsp
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the responder registered under name.
func (r *Registry) Lookup(name string) (Responder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rsp, ok := r.responders[name]
	return rsp, ok
}

// Names returns responder names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
