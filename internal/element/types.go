package element

// ContextID is the identifier of the context declared by the fully qualified type name.
func ContextID(typeName string) string {
	return typeName
}

// BehaviorID joins the identity of a behavior: its context, the behaviors type and the field.
func BehaviorID(ctx *Context, fieldType, fieldName string) string {
	return ctx.ID() + "." + fieldType + "." + fieldName
}

// SpecificationID is the identifier of the specification field declared under parent.
func SpecificationID(parent Element, fieldName string) string {
	return parent.ID() + "." + fieldName
}

// Context groups the specifications and behaviors declared by one struct type.
type Context struct {
	node
	typeName string
	pkg      string
	name     string
	ignored  bool
}

// NewContext creates a valid, detached context.
func NewContext(pkg, name, typeName string, ignored bool) *Context {
	c := &Context{typeName: typeName, pkg: pkg, name: name, ignored: ignored}
	c.self = c
	return c
}

func (c *Context) ID() string { return ContextID(c.typeName) }
func (c *Context) Kind() Kind { return KindContext }
func (c *Context) Name() string { return c.name }
func (c *Context) Package() string { return c.pkg }
func (c *Context) TypeName() string { return c.typeName }
func (c *Context) IsIgnored() bool { return c.ignored }
func (c *Context) SetIgnored(v bool) { c.ignored = v }

// Behavior is a Behaves[T] field of a context. Its children are the specifications of T.
type Behavior struct {
	node
	id            string
	declaringType string
	fieldName     string
	fieldType     string
	ignored       bool
}

// NewBehavior creates a valid behavior attached to ctx.
func NewBehavior(ctx *Context, declaringType, fieldName string, ignored bool, fieldType string) *Behavior {
	b := &Behavior{
		id:            BehaviorID(ctx, fieldType, fieldName),
		declaringType: declaringType,
		fieldName:     fieldName,
		fieldType:     fieldType,
		ignored:       ignored,
	}
	b.self = b
	b.SetParent(ctx)
	return b
}

func (b *Behavior) ID() string { return b.id }
func (b *Behavior) Kind() Kind { return KindBehavior }
func (b *Behavior) Name() string { return b.fieldName }
func (b *Behavior) DeclaringType() string { return b.declaringType }
func (b *Behavior) FieldName() string { return b.fieldName }
func (b *Behavior) FieldType() string { return b.fieldType }
func (b *Behavior) IsIgnored() bool { return b.ignored }
func (b *Behavior) SetIgnored(v bool) { b.ignored = v }

// Context returns the owning context.
func (b *Behavior) Context() *Context {
	ctx, _ := b.parent.(*Context)
	return ctx
}

// SetParent reattaches b to ctx. Identity fields are left untouched.
func (b *Behavior) SetParent(ctx *Context) {
	if ctx == nil {
		b.attach(nil)
		return
	}
	b.attach(ctx)
}

// Specification is a single It field, declared in a context or in a behaviors type.
type Specification struct {
	node
	id            string
	kind          Kind
	declaringType string
	fieldName     string
	ignored       bool
}

// NewContextSpecification creates a valid specification declared directly by ctx.
func NewContextSpecification(ctx *Context, fieldName string, ignored bool) *Specification {
	return newSpecification(KindContextSpecification, ctx, ctx.TypeName(), fieldName, ignored)
}

// NewBehaviorSpecification creates a valid specification reached through behavior.
// declaringType is the behaviors type that declares the field.
func NewBehaviorSpecification(behavior *Behavior, declaringType, fieldName string, ignored bool) *Specification {
	return newSpecification(KindBehaviorSpecification, behavior, declaringType, fieldName, ignored)
}

func newSpecification(kind Kind, parent Element, declaringType, fieldName string, ignored bool) *Specification {
	s := &Specification{
		id:            SpecificationID(parent, fieldName),
		kind:          kind,
		declaringType: declaringType,
		fieldName:     fieldName,
		ignored:       ignored,
	}
	s.self = s
	s.attach(parent)
	return s
}

func (s *Specification) ID() string { return s.id }
func (s *Specification) Kind() Kind { return s.kind }
func (s *Specification) Name() string { return s.fieldName }
func (s *Specification) DeclaringType() string { return s.declaringType }
func (s *Specification) FieldName() string { return s.fieldName }
func (s *Specification) IsIgnored() bool { return s.ignored }
func (s *Specification) SetIgnored(v bool) { s.ignored = v }

// SetParent reattaches s to parent.
func (s *Specification) SetParent(parent Element) {
	s.attach(parent)
}
