package declaration

// RefKind is the shape of a type reference.
type RefKind int

const (
	// Invalid marks the zero reference: nothing could be resolved.
	Invalid RefKind = iota
	Named
	Pointer
	Slice
	Array
	Map
	Opaque
)

// TypeRef is the reader-neutral view of a type expression.
//
// Named carries Package (empty for predeclared types), Name and type arguments in Args.
// Pointer, Slice and Array keep their element in Args[0]; Array keeps its length in Name.
// Map keeps key and value in Args[0] and Args[1]. Opaque keeps the raw text in Name.
type TypeRef struct {
	Kind    RefKind   `json:"kind"`
	Package string    `json:"package,omitempty"`
	Name    string    `json:"name,omitempty"`
	Args    []TypeRef `json:"args,omitempty"`
}

// IsZero reports whether the reference resolved to nothing.
func (r TypeRef) IsZero() bool {
	return r.Kind == Invalid
}

// Is reports whether r names a type called name, ignoring its package.
func (r TypeRef) Is(name string) bool {
	return r.Kind == Named && r.Name == name
}
