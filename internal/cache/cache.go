// Package cache maps declarations back to the elements they produced, for one project session.
package cache

import (
	"sort"

	"github.com/google/uuid"

	"specgraph/internal/declaration"
	"specgraph/internal/element"
)

// ElementCache holds the contexts and behaviors created from declarations during one
// project session. It is not safe for concurrent use: a project runs one pass at a time,
// and independent projects each open their own cache.
type ElementCache struct {
	session   string
	project   string
	contexts  map[declaration.Handle]*element.Context
	behaviors map[declaration.Handle]*element.Behavior
}

// Open starts a session for project.
func Open(project string) *ElementCache {
	return &ElementCache{
		session:   uuid.NewString(),
		project:   project,
		contexts:  make(map[declaration.Handle]*element.Context),
		behaviors: make(map[declaration.Handle]*element.Behavior),
	}
}

// Close ends the session and drops every entry.
func (c *ElementCache) Close() {
	clear(c.contexts)
	clear(c.behaviors)
}

// Session returns the session identifier.
func (c *ElementCache) Session() string { return c.session }

// Project returns the project scope.
func (c *ElementCache) Project() string { return c.project }

func (c *ElementCache) Context(h declaration.Handle) (*element.Context, bool) {
	ctx, ok := c.contexts[h]
	return ctx, ok
}

// SetContext records ctx for h, replacing any previous entry.
func (c *ElementCache) SetContext(h declaration.Handle, ctx *element.Context) {
	c.contexts[h] = ctx
}

func (c *ElementCache) DeleteContext(h declaration.Handle) {
	delete(c.contexts, h)
}

func (c *ElementCache) Behavior(h declaration.Handle) (*element.Behavior, bool) {
	b, ok := c.behaviors[h]
	return b, ok
}

// SetBehavior records b for h, replacing any previous entry.
func (c *ElementCache) SetBehavior(h declaration.Handle, b *element.Behavior) {
	c.behaviors[h] = b
}

func (c *ElementCache) DeleteBehavior(h declaration.Handle) {
	delete(c.behaviors, h)
}

// ContextHandles returns the cached context handles in sorted order.
func (c *ElementCache) ContextHandles() []declaration.Handle {
	return sortedKeys(c.contexts)
}

// BehaviorHandles returns the cached behavior handles in sorted order.
func (c *ElementCache) BehaviorHandles() []declaration.Handle {
	return sortedKeys(c.behaviors)
}

// Len returns the number of cached contexts and behaviors.
func (c *ElementCache) Len() (contexts, behaviors int) {
	return len(c.contexts), len(c.behaviors)
}

func sortedKeys[V any](m map[declaration.Handle]V) []declaration.Handle {
	keys := make([]declaration.Handle, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
