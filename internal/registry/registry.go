package registry

import (
	"sort"
	"sync"

	"specgraph/internal/element"
)

// ElementRegistry looks up the live element registered under an identifier.
// It returns nil when the host holds no element with that id.
type ElementRegistry interface {
	ElementByID(project, id string) element.Element
}

// Registry is the in-memory host store of elements, scoped per project.
type Registry struct {
	mu     sync.RWMutex
	scopes map[string]map[string]element.Element
}

var _ ElementRegistry = (*Registry)(nil)

// New creates an empty registry.
func New() *Registry {
	return &Registry{scopes: make(map[string]map[string]element.Element)}
}

// Add registers e under its id, replacing whatever was registered there.
func (r *Registry) Add(project string, e element.Element) {
	if e == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	scope, ok := r.scopes[project]
	if !ok {
		scope = make(map[string]element.Element)
		r.scopes[project] = scope
	}
	scope[e.ID()] = e
}

// ElementByID implements ElementRegistry.
func (r *Registry) ElementByID(project, id string) element.Element {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scopes[project][id]
}

// Remove drops the element registered under id.
func (r *Registry) Remove(project, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scopes[project], id)
}

// Elements returns the project's elements sorted by id.
func (r *Registry) Elements(project string) []element.Element {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scope := r.scopes[project]
	out := make([]element.Element, 0, len(scope))
	for _, e := range scope {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Roots returns the project's elements that have no parent, sorted by id.
func (r *Registry) Roots(project string) []element.Element {
	var roots []element.Element
	for _, e := range r.Elements(project) {
		if e.Parent() == nil {
			roots = append(roots, e)
		}
	}
	return roots
}

// Len returns the number of elements registered for project.
func (r *Registry) Len(project string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scopes[project])
}

// Projects returns the scopes that hold at least one element.
func (r *Registry) Projects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for p, scope := range r.scopes {
		if len(scope) > 0 {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
