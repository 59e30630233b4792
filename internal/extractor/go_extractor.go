package extractor

import (
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"specgraph/internal/declaration"
	"specgraph/internal/typename"
)

// GoExtractor implements LanguageExtractor for Go.
type GoExtractor struct{}

func (g *GoExtractor) GetLanguage() *sitter.Language {
	return golang.GetLanguage()
}

func (g *GoExtractor) GetQuery() string {
	return `(type_spec) @type`
}

// ExtractType converts a type_spec node into a source declaration. Non-struct types are
// kept (with no fields) so that callers can tell a missing type from a non-struct one.
func (g *GoExtractor) ExtractType(node *sitter.Node, sourceCode []byte, filepath string, scope typename.Scope, markers declaration.Markers) *declaration.Type {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Content(sourceCode)

	parentNode := node.Parent()
	if parentNode == nil || parentNode.Type() != "type_declaration" {
		parentNode = node
	}
	// grouped declarations: report the type_spec's own lines
	if parentNode.NamedChildCount() > 1 {
		parentNode = node
	}

	t := &declaration.Type{
		Handle:    declaration.TypeHandle(declaration.Source, scope.Package, name),
		Origin:    declaration.Source,
		Package:   scope.Package,
		Name:      name,
		File:      filepath,
		StartLine: int(parentNode.StartPoint().Row + 1),
		EndLine:   int(parentNode.EndPoint().Row + 1),
		Generic:   node.ChildByFieldName("type_parameters") != nil,
	}

	typeNode := node.ChildByFieldName("type")
	if typeNode != nil && typeNode.Type() == "struct_type" {
		t.IsStruct = true
		g.extractStructFields(t, typeNode, sourceCode, scope, markers)
	}
	return t
}

func (g *GoExtractor) extractStructFields(t *declaration.Type, structNode *sitter.Node, sourceCode []byte, scope typename.Scope, markers declaration.Markers) {
	var fieldList *sitter.Node
	for i := 0; i < int(structNode.ChildCount()); i++ {
		child := structNode.Child(i)
		if child.Type() == "field_declaration_list" {
			fieldList = child
			break
		}
	}
	if fieldList == nil {
		return
	}

	for i := 0; i < int(fieldList.NamedChildCount()); i++ {
		fieldDecl := fieldList.NamedChild(i)
		if fieldDecl.Type() != "field_declaration" {
			continue
		}

		typeNode := fieldDecl.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}

		var fieldTag string
		if tagNode := fieldDecl.ChildByFieldName("tag"); tagNode != nil {
			if unquoted, err := strconv.Unquote(tagNode.Content(sourceCode)); err == nil {
				fieldTag = unquoted
			}
		}

		var names []*sitter.Node
		for j := 0; j < int(fieldDecl.NamedChildCount()); j++ {
			if child := fieldDecl.NamedChild(j); child.Type() == "field_identifier" {
				names = append(names, child)
			}
		}

		// Embedded fields only matter as markers.
		if len(names) == 0 {
			switch embeddedName(typeNode, sourceCode) {
			case "":
			case markers.IgnoreMarker:
				t.Ignored = true
			case markers.BehaviorsMarker:
				t.Behaviors = true
			}
			continue
		}

		ref := typename.FromSitter(typeNode, sourceCode, scope)
		ignored := declaration.TagIgnored(fieldTag, markers.TagKey)
		for _, n := range names {
			t.AddField(&declaration.Field{
				Name:    n.Content(sourceCode),
				Type:    ref,
				Tag:     fieldTag,
				Ignored: ignored,
				Line:    int(n.StartPoint().Row + 1),
			})
		}
	}
}

// embeddedName is the simple type name of an embedded field: spec.Ignore -> Ignore.
func embeddedName(typeNode *sitter.Node, sourceCode []byte) string {
	switch typeNode.Type() {
	case "type_identifier":
		return typeNode.Content(sourceCode)
	case "qualified_type":
		if name := typeNode.ChildByFieldName("name"); name != nil {
			return name.Content(sourceCode)
		}
	case "pointer_type":
		if n := int(typeNode.NamedChildCount()); n > 0 {
			return embeddedName(typeNode.NamedChild(n-1), sourceCode)
		}
	case "generic_type":
		if base := typeNode.ChildByFieldName("type"); base != nil {
			return embeddedName(base, sourceCode)
		}
	}
	return ""
}
