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

// BehaviorFactory turns Behaves[T] field declarations into behavior elements, reusing the
// element already registered for the same context, behaviors type and field name.
type BehaviorFactory struct {
	project  string
	cache    *cache.ElementCache
	registry registry.ElementRegistry
	logger   *log.Logger
}

// NewBehaviorFactory creates a factory for project.
func NewBehaviorFactory(project string, c *cache.ElementCache, reg registry.ElementRegistry, logger *log.Logger) *BehaviorFactory {
	return &BehaviorFactory{
		project:  project,
		cache:    c,
		registry: reg,
		logger:   logging.OrDiscard(logger),
	}
}

// CreateFromSource resolves the behavior declared by a source field.
//
// It returns nil when the field is not owned by a struct, or when the owning context has
// not been created in this session yet. Existing children of the behavior are marked
// Pending, and the field is recorded in the cache.
func (f *BehaviorFactory) CreateFromSource(field *declaration.Field) *element.Behavior {
	if field == nil || field.Owner == nil || !field.Owner.IsStruct {
		return nil
	}
	ctx, ok := f.cache.Context(field.Owner.Handle)
	if !ok || ctx == nil {
		f.logger.Debug("behavior skipped, context not discovered", "field", field.Handle)
		return nil
	}

	arg, _ := field.FirstTypeArgument()
	fieldType := typename.Normalize(arg)
	if fieldType == "" {
		return nil
	}

	behavior := f.ResolveOrCreate(ctx,
		typename.Qualified(field.Owner.Package, field.Owner.Name),
		field.Name,
		field.Ignored,
		fieldType)

	f.retire(field.Handle, behavior)
	element.MarkChildrenPending(behavior)
	f.cache.SetBehavior(field.Handle, behavior)
	return behavior
}

// retire opens the subtree of the behavior previously cached for h when the field now
// resolves to a different element, so the context sweep invalidates all of it.
func (f *BehaviorFactory) retire(h declaration.Handle, current *element.Behavior) {
	prev, ok := f.cache.Behavior(h)
	if !ok || prev == nil || prev == current || prev.State() == element.Invalid {
		return
	}
	element.MarkSubtreePending(prev)
	f.logger.Debug("behavior retyped", "field", h, "previous", prev.ID(), "current", current.ID())
}

// CreateFromMetadata resolves the behavior declared by a metadata field under ctx.
//
// The behavior is ignored when either the field or the behaviors type is. Metadata only
// confirms elements: children are not marked Pending and the cache is not updated.
// It returns nil when the field type carries no type argument.
func (f *BehaviorFactory) CreateFromMetadata(ctx *element.Context, field *declaration.Field) *element.Behavior {
	if ctx == nil || field == nil {
		return nil
	}
	arg, _ := field.FirstTypeArgument()
	fieldType := typename.Normalize(arg)
	if fieldType == "" {
		return nil
	}

	declaringType := ctx.TypeName()
	if field.Owner != nil {
		declaringType = typename.Qualified(field.Owner.Package, field.Owner.Name)
	}

	ignored := field.Ignored
	if behaviors := field.FirstGenericArgument(); behaviors != nil {
		ignored = ignored || behaviors.Ignored
	}

	return f.ResolveOrCreate(ctx, declaringType, field.Name, ignored, fieldType)
}

// ResolveOrCreate returns the behavior registered under the id of (ctx, fieldType,
// fieldName), reattached to ctx and Valid again, or a new Valid behavior under ctx.
func (f *BehaviorFactory) ResolveOrCreate(ctx *element.Context, declaringType, fieldName string, isIgnored bool, fieldType string) *element.Behavior {
	id := element.BehaviorID(ctx, fieldType, fieldName)
	if behavior, ok := f.registry.ElementByID(f.project, id).(*element.Behavior); ok && behavior != nil {
		behavior.SetParent(ctx)
		behavior.SetState(element.Valid)
		behavior.SetIgnored(isIgnored)
		f.logger.Debug("behavior reused", "id", id)
		return behavior
	}

	f.logger.Debug("behavior created", "id", id)
	return element.NewBehavior(ctx, declaringType, fieldName, isIgnored, fieldType)
}

// MarkChildrenInvalidated demotes every Pending descendant of the behavior created from
// the declaration h to Invalid. Unknown declarations are a no-op.
func (f *BehaviorFactory) MarkChildrenInvalidated(h declaration.Handle) int {
	behavior, ok := f.cache.Behavior(h)
	if !ok {
		return 0
	}
	return element.InvalidatePending(behavior)
}
