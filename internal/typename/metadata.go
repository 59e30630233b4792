package typename

import (
	"go/types"
	"strconv"

	"specgraph/internal/declaration"
)

// FromTypes converts a go/types type into a TypeRef.
// A nil type yields the zero TypeRef.
func FromTypes(t types.Type) declaration.TypeRef {
	switch t := t.(type) {
	case nil:
		return declaration.TypeRef{}

	case *types.Basic:
		if t.Kind() == types.Invalid {
			return declaration.TypeRef{}
		}
		return declaration.TypeRef{Kind: declaration.Named, Name: t.Name()}

	case *types.Alias:
		return fromObject(t.Obj(), nil)

	case *types.Named:
		var args []types.Type
		if targs := t.TypeArgs(); targs != nil {
			for i := 0; i < targs.Len(); i++ {
				args = append(args, targs.At(i))
			}
		}
		return fromObject(t.Obj(), args)

	case *types.Pointer:
		return wrapTypes(declaration.Pointer, "", t.Elem())

	case *types.Slice:
		return wrapTypes(declaration.Slice, "", t.Elem())

	case *types.Array:
		return wrapTypes(declaration.Array, strconv.FormatInt(t.Len(), 10), t.Elem())

	case *types.Map:
		key := FromTypes(t.Key())
		value := FromTypes(t.Elem())
		if key.IsZero() || value.IsZero() {
			return declaration.TypeRef{}
		}
		return declaration.TypeRef{Kind: declaration.Map, Args: []declaration.TypeRef{key, value}}
	}

	text := types.TypeString(t, func(p *types.Package) string { return p.Path() })
	return declaration.TypeRef{Kind: declaration.Opaque, Name: canonicalize(text)}
}

func fromObject(obj *types.TypeName, args []types.Type) declaration.TypeRef {
	if obj == nil {
		return declaration.TypeRef{}
	}
	ref := declaration.TypeRef{Kind: declaration.Named, Name: obj.Name()}
	if pkg := obj.Pkg(); pkg != nil {
		ref.Package = pkg.Path()
	}
	for _, a := range args {
		arg := FromTypes(a)
		if arg.IsZero() {
			return declaration.TypeRef{}
		}
		ref.Args = append(ref.Args, arg)
	}
	return ref
}

func wrapTypes(kind declaration.RefKind, name string, elem types.Type) declaration.TypeRef {
	inner := FromTypes(elem)
	if inner.IsZero() {
		return declaration.TypeRef{}
	}
	return declaration.TypeRef{Kind: kind, Name: name, Args: []declaration.TypeRef{inner}}
}
