// Package factory resolves declarations into test elements, reusing registered elements so
// that identities survive repeated scan passes.
package factory

import (
	"github.com/charmbracelet/log"

	"specgraph/internal/cache"
	"specgraph/internal/declaration"
	"specgraph/internal/element"
	"specgraph/internal/logging"
	"specgraph/internal/registry"
	"specgraph/internal/typename"
)

// ContextFactory turns struct type declarations into context elements.
type ContextFactory struct {
	project  string
	cache    *cache.ElementCache
	registry registry.ElementRegistry
	logger   *log.Logger
}

func NewContextFactory(project string, c *cache.ElementCache, reg registry.ElementRegistry, logger *log.Logger) *ContextFactory {
	return &ContextFactory{
		project:  project,
		cache:    c,
		registry: reg,
		logger:   logging.OrDiscard(logger),
	}
}

// CreateFromSource resolves the context declared by a source type, marks its existing
// children Pending and records the declaration in the cache. Non-struct and generic
// declarations yield nil.
func (f *ContextFactory) CreateFromSource(t *declaration.Type) *element.Context {
	if !isContextCandidate(t) {
		return nil
	}
	ctx := f.GetOrCreate(t.Package, t.Name, t.Ignored)
	element.MarkChildrenPending(ctx)
	f.cache.SetContext(t.Handle, ctx)
	return ctx
}

// CreateFromMetadata resolves the context declared by a metadata type without touching
// the children or the cache.
func (f *ContextFactory) CreateFromMetadata(t *declaration.Type) *element.Context {
	if !isContextCandidate(t) {
		return nil
	}
	return f.GetOrCreate(t.Package, t.Name, t.Ignored)
}

// GetOrCreate returns the registered context for the type, Valid again, or a new one.
func (f *ContextFactory) GetOrCreate(pkg, name string, ignored bool) *element.Context {
	typeName := typename.Qualified(pkg, name)
	id := element.ContextID(typeName)
	if ctx, ok := f.registry.ElementByID(f.project, id).(*element.Context); ok && ctx != nil {
		ctx.SetState(element.Valid)
		ctx.SetIgnored(ignored)
		return ctx
	}
	f.logger.Debug("context created", "id", id)
	return element.NewContext(pkg, name, typeName, ignored)
}

// MarkChildrenInvalidated demotes every Pending descendant of the context created from
// the declaration h to Invalid. Unknown declarations are a no-op.
func (f *ContextFactory) MarkChildrenInvalidated(h declaration.Handle) int {
	ctx, ok := f.cache.Context(h)
	if !ok {
		return 0
	}
	return element.InvalidatePending(ctx)
}

func isContextCandidate(t *declaration.Type) bool {
	return t != nil && t.IsStruct && !t.Generic && !t.Behaviors
}
