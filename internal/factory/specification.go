package factory

import (
	"github.com/charmbracelet/log"

	"specgraph/internal/declaration"
	"specgraph/internal/element"
	"specgraph/internal/logging"
	"specgraph/internal/registry"
	"specgraph/internal/typename"
)

// SpecificationFactory turns It fields into specification elements.
type SpecificationFactory struct {
	project  string
	registry registry.ElementRegistry
	logger   *log.Logger
}

func NewSpecificationFactory(project string, reg registry.ElementRegistry, logger *log.Logger) *SpecificationFactory {
	return &SpecificationFactory{project: project, registry: reg, logger: logging.OrDiscard(logger)}
}

// CreateContextSpecification resolves an It field declared directly by ctx.
func (f *SpecificationFactory) CreateContextSpecification(ctx *element.Context, field *declaration.Field) *element.Specification {
	if ctx == nil || field == nil {
		return nil
	}
	ignored := field.Ignored || ctx.IsIgnored()
	if spec := f.reuse(ctx, field.Name, ignored); spec != nil {
		return spec
	}
	return element.NewContextSpecification(ctx, field.Name, ignored)
}

// CreateBehaviorSpecification resolves an It field of the behaviors type reached through
// behavior.
func (f *SpecificationFactory) CreateBehaviorSpecification(behavior *element.Behavior, field *declaration.Field) *element.Specification {
	if behavior == nil || field == nil {
		return nil
	}
	declaringType := behavior.FieldType()
	if field.Owner != nil {
		declaringType = typename.Qualified(field.Owner.Package, field.Owner.Name)
	}
	ignored := field.Ignored || behavior.IsIgnored()
	if spec := f.reuse(behavior, field.Name, ignored); spec != nil {
		return spec
	}
	return element.NewBehaviorSpecification(behavior, declaringType, field.Name, ignored)
}

func (f *SpecificationFactory) reuse(parent element.Element, fieldName string, ignored bool) *element.Specification {
	id := element.SpecificationID(parent, fieldName)
	spec, ok := f.registry.ElementByID(f.project, id).(*element.Specification)
	if !ok || spec == nil {
		return nil
	}
	spec.SetParent(parent)
	spec.SetState(element.Valid)
	spec.SetIgnored(ignored)
	f.logger.Debug("specification reused", "id", id)
	return spec
}
