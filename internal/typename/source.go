package typename

import (
	"path"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"specgraph/internal/declaration"
)

var majorVersionRe = regexp.MustCompile(`^v[0-9]+$`)

// Scope resolves identifiers of one source file.
type Scope struct {
	Package string            // import path of the file's package
	Imports map[string]string // local package name -> import path
}

// AddImport records an import spec. An empty alias derives the local name from the path.
// Blank and dot imports are not addressable by qualified names and are skipped.
func (s *Scope) AddImport(alias, importPath string) {
	if alias == "_" || alias == "." {
		return
	}
	if s.Imports == nil {
		s.Imports = make(map[string]string)
	}
	if alias != "" {
		s.Imports[alias] = importPath
		return
	}
	for _, name := range localNames(importPath) {
		if _, taken := s.Imports[name]; !taken {
			s.Imports[name] = importPath
		}
	}
}

// localNames guesses the package names an unaliased import is referred to by.
// "gopkg.in/yaml.v3" -> yaml, "example.com/x/v2" -> x, "example.com/go-foo" -> foo, go-foo.
func localNames(importPath string) []string {
	elem := path.Base(importPath)
	if majorVersionRe.MatchString(elem) {
		elem = path.Base(path.Dir(importPath))
	}
	if i := strings.Index(elem, ".v"); i > 0 && majorVersionRe.MatchString(elem[i+1:]) {
		elem = elem[:i]
	}
	names := []string{elem}
	if trimmed := strings.TrimPrefix(elem, "go-"); trimmed != elem {
		names = append([]string{trimmed}, names...)
	}
	if strings.Contains(elem, "-") {
		names = append(names, strings.ReplaceAll(strings.TrimPrefix(elem, "go-"), "-", ""))
	}
	return names
}

// FromSitter converts a tree-sitter Go type node into a TypeRef.
// A nil node yields the zero TypeRef.
func FromSitter(node *sitter.Node, src []byte, scope Scope) declaration.TypeRef {
	if node == nil {
		return declaration.TypeRef{}
	}

	switch node.Type() {
	case "type_identifier":
		name := node.Content(src)
		if IsPredeclared(name) {
			return declaration.TypeRef{Kind: declaration.Named, Name: name}
		}
		return declaration.TypeRef{Kind: declaration.Named, Package: scope.Package, Name: name}

	case "qualified_type":
		pkgNode := node.ChildByFieldName("package")
		nameNode := node.ChildByFieldName("name")
		if pkgNode == nil || nameNode == nil {
			return opaque(node, src)
		}
		alias := pkgNode.Content(src)
		importPath, ok := scope.Imports[alias]
		if !ok {
			importPath = alias
		}
		return declaration.TypeRef{Kind: declaration.Named, Package: importPath, Name: nameNode.Content(src)}

	case "generic_type":
		base := FromSitter(node.ChildByFieldName("type"), src, scope)
		if base.Kind != declaration.Named {
			return opaque(node, src)
		}
		argsNode := node.ChildByFieldName("type_arguments")
		if argsNode == nil {
			return base
		}
		for i := 0; i < int(argsNode.NamedChildCount()); i++ {
			arg := FromSitter(unwrapElem(argsNode.NamedChild(i)), src, scope)
			if arg.IsZero() {
				return declaration.TypeRef{}
			}
			base.Args = append(base.Args, arg)
		}
		return base

	case "pointer_type":
		return wrap(declaration.Pointer, "", lastNamedChild(node), src, scope)

	case "slice_type":
		return wrap(declaration.Slice, "", node.ChildByFieldName("element"), src, scope)

	case "array_type":
		length := node.ChildByFieldName("length")
		if length == nil {
			return opaque(node, src)
		}
		return wrap(declaration.Array, length.Content(src), node.ChildByFieldName("element"), src, scope)

	case "map_type":
		key := FromSitter(node.ChildByFieldName("key"), src, scope)
		value := FromSitter(node.ChildByFieldName("value"), src, scope)
		if key.IsZero() || value.IsZero() {
			return declaration.TypeRef{}
		}
		return declaration.TypeRef{Kind: declaration.Map, Args: []declaration.TypeRef{key, value}}

	case "parenthesized_type", "type_elem":
		return FromSitter(lastNamedChild(node), src, scope)
	}

	return opaque(node, src)
}

func wrap(kind declaration.RefKind, name string, elem *sitter.Node, src []byte, scope Scope) declaration.TypeRef {
	inner := FromSitter(elem, src, scope)
	if inner.IsZero() {
		return declaration.TypeRef{}
	}
	return declaration.TypeRef{Kind: kind, Name: name, Args: []declaration.TypeRef{inner}}
}

// unwrapElem strips the type_elem wrapper newer grammars put around type arguments.
func unwrapElem(node *sitter.Node) *sitter.Node {
	if node != nil && node.Type() == "type_elem" && node.NamedChildCount() == 1 {
		return node.NamedChild(0)
	}
	return node
}

func lastNamedChild(node *sitter.Node) *sitter.Node {
	n := int(node.NamedChildCount())
	if n == 0 {
		return nil
	}
	return node.NamedChild(n - 1)
}

func opaque(node *sitter.Node, src []byte) declaration.TypeRef {
	text := canonicalize(node.Content(src))
	if text == "" {
		return declaration.TypeRef{}
	}
	return declaration.TypeRef{Kind: declaration.Opaque, Name: text}
}
