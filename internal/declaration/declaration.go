package declaration

import (
	"reflect"
	"strings"
)

// Handle is an opaque, stable key a reader assigns to one declaration.
// Two readers never hand out the same handle.
type Handle string

// Origin tells which reader produced a declaration.
type Origin int

const (
	// Source declarations come from live source files.
	Source Origin = iota
	// Metadata declarations come from type-checked packages.
	Metadata
)

func (o Origin) String() string {
	switch o {
	case Source:
		return "source"
	case Metadata:
		return "metadata"
	}
	return "unknown"
}

func (o Origin) prefix() string {
	if o == Metadata {
		return "meta:"
	}
	return "src:"
}

// TypeHandle builds the handle of a type declaration.
func TypeHandle(origin Origin, pkg, name string) Handle {
	if pkg == "" {
		return Handle(origin.prefix() + name)
	}
	return Handle(origin.prefix() + pkg + "." + name)
}

// FieldHandle builds the handle of a field declared by owner.
func FieldHandle(owner Handle, name string) Handle {
	return Handle(string(owner) + "." + name)
}

// Type is a named type declaration.
type Type struct {
	Handle    Handle   `json:"handle"`
	Origin    Origin   `json:"origin"`
	Package   string   `json:"package"` // import path
	Name      string   `json:"name"`
	File      string   `json:"file,omitempty"`
	StartLine int      `json:"start_line,omitempty"`
	EndLine   int      `json:"end_line,omitempty"`
	IsStruct  bool     `json:"is_struct"`
	Generic   bool     `json:"generic,omitempty"`   // declares type parameters
	Ignored   bool     `json:"ignored,omitempty"`   // embeds the ignore marker
	Behaviors bool     `json:"behaviors,omitempty"` // embeds the behaviors marker
	Fields    []*Field `json:"fields,omitempty"`
}

// Field is a named field of a struct type.
type Field struct {
	Handle  Handle  `json:"handle"`
	Origin  Origin  `json:"origin"`
	Owner   *Type   `json:"-"`
	Name    string  `json:"name"`
	Type    TypeRef `json:"type"`
	Tag     string  `json:"tag,omitempty"` // unquoted struct tag
	Ignored bool    `json:"ignored,omitempty"`
	Line    int     `json:"line,omitempty"`

	argument *Type
}

// FirstGenericArgument returns the declaration of the field type's first type argument.
// Only the metadata reader resolves it; source fields return nil.
func (f *Field) FirstGenericArgument() *Type {
	if f == nil {
		return nil
	}
	return f.argument
}

// SetFirstGenericArgument records the resolved declaration of the first type argument.
func (f *Field) SetFirstGenericArgument(t *Type) {
	f.argument = t
}

// FirstTypeArgument returns the reference of the field type's first type argument.
func (f *Field) FirstTypeArgument() (TypeRef, bool) {
	if f == nil || f.Type.Kind != Named || len(f.Type.Args) == 0 {
		return TypeRef{}, false
	}
	return f.Type.Args[0], true
}

// AddField appends a field to t and wires its owner and handle.
func (t *Type) AddField(f *Field) {
	f.Owner = t
	f.Origin = t.Origin
	if f.Handle == "" {
		f.Handle = FieldHandle(t.Handle, f.Name)
	}
	t.Fields = append(t.Fields, f)
}

// Relink restores the owner back-references lost when types are decoded from JSON.
func Relink(types []*Type) {
	for _, t := range types {
		for _, f := range t.Fields {
			f.Owner = t
		}
	}
}

// TagIgnored reports whether the struct tag value under key lists "ignore".
func TagIgnored(tag, key string) bool {
	if tag == "" || key == "" {
		return false
	}
	value, ok := reflect.StructTag(tag).Lookup(key)
	if !ok {
		return false
	}
	for _, opt := range strings.Split(value, ",") {
		if strings.TrimSpace(opt) == "ignore" {
			return true
		}
	}
	return false
}

// Markers names the markers readers recognise. Markers are matched by simple name.
type Markers struct {
	TagKey          string // struct tag key carrying the ignore option
	IgnoreMarker    string // embedded type that ignores the whole struct
	BehaviorsMarker string // embedded type that marks a behaviors type
}

// DefaultMarkers matches the markers declared by specgraph/pkg/spec.
func DefaultMarkers() Markers {
	return Markers{
		TagKey:          "spec",
		IgnoreMarker:    "Ignore",
		BehaviorsMarker: "Behaviors",
	}
}
