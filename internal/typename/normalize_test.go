package typename

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specgraph/internal/declaration"
)

const fixturePkg = "example.com/shop"

const fixture = `package shop

type It func()

type Behaves[T any] struct{ Behavior T }

type Item struct{}

type Pair[K comparable, V any] struct{}

type Fixture struct {
	Plain   Item
	Ptr     *Item
	List    []Item
	Fixed   [3]Item
	Lookup  map[string]*Item
	Generic Behaves[Item]
	Nested  Pair[string, []Item]
	Builtin int
	Err     error
	Spec    It
	Empty   struct{}
}
`

var expected = map[string]string{
	"Plain":   "example.com/shop.Item",
	"Ptr":     "*example.com/shop.Item",
	"List":    "[]example.com/shop.Item",
	"Fixed":   "[3]example.com/shop.Item",
	"Lookup":  "map[string]*example.com/shop.Item",
	"Generic": "example.com/shop.Behaves[example.com/shop.Item]",
	"Nested":  "example.com/shop.Pair[string,[]example.com/shop.Item]",
	"Builtin": "int",
	"Err":     "error",
	"Spec":    "example.com/shop.It",
	"Empty":   "struct{}",
}

func TestNormalize_SourceAdapter(t *testing.T) {
	fields := sitterFields(t, []byte(fixture))
	scope := Scope{Package: fixturePkg}

	for name, want := range expected {
		t.Run(name, func(t *testing.T) {
			node, ok := fields[name]
			require.True(t, ok, "field %s should be parsed", name)
			assert.Equal(t, want, Normalize(FromSitter(node, []byte(fixture), scope)))
		})
	}
}

func TestNormalize_MetadataAdapter(t *testing.T) {
	fields := typesFields(t, fixture)

	for name, want := range expected {
		t.Run(name, func(t *testing.T) {
			typ, ok := fields[name]
			require.True(t, ok, "field %s should be type-checked", name)
			assert.Equal(t, want, Normalize(FromTypes(typ)))
		})
	}
}

func TestNormalize_AdaptersAgree(t *testing.T) {
	src := []byte(fixture)
	sitterNodes := sitterFields(t, src)
	typed := typesFields(t, fixture)
	scope := Scope{Package: fixturePkg}

	for name, typ := range typed {
		node, ok := sitterNodes[name]
		require.True(t, ok, name)
		assert.Equal(t, Normalize(FromTypes(typ)), Normalize(FromSitter(node, src, scope)), name)
	}
}

func TestNormalize_Sentinels(t *testing.T) {
	assert.Equal(t, "", Normalize(declaration.TypeRef{}))
	assert.Equal(t, "", Normalize(FromTypes(nil)))
	assert.Equal(t, "", Normalize(FromSitter(nil, nil, Scope{})))
	assert.Equal(t, "", Normalize(declaration.TypeRef{Kind: declaration.Pointer}))
	assert.Equal(t, "", Normalize(declaration.TypeRef{
		Kind: declaration.Named,
		Name: "Behaves",
		Args: []declaration.TypeRef{{}},
	}))
}

func TestNormalize_QualifiedImports(t *testing.T) {
	src := []byte(`package shop_test

import (
	"example.com/specgraph/pkg/spec"
	yaml "gopkg.in/yaml.v3"
	"example.com/lib/v2"
)

type When struct {
	Should spec.It
	Like   spec.Behaves[Shared]
	Node   yaml.Node
	Other  lib.Thing
}
`)
	scope := Scope{Package: fixturePkg + "_test"}
	scope.AddImport("", "example.com/specgraph/pkg/spec")
	scope.AddImport("yaml", "gopkg.in/yaml.v3")
	scope.AddImport("", "example.com/lib/v2")

	fields := sitterFields(t, src)
	assert.Equal(t, "example.com/specgraph/pkg/spec.It", Normalize(FromSitter(fields["Should"], src, scope)))
	assert.Equal(t,
		"example.com/specgraph/pkg/spec.Behaves[example.com/shop_test.Shared]",
		Normalize(FromSitter(fields["Like"], src, scope)))
	assert.Equal(t, "gopkg.in/yaml.v3.Node", Normalize(FromSitter(fields["Node"], src, scope)))
	assert.Equal(t, "example.com/lib/v2.Thing", Normalize(FromSitter(fields["Other"], src, scope)))
}

func TestScope_AddImport(t *testing.T) {
	var s Scope
	s.AddImport("", "gopkg.in/yaml.v3")
	s.AddImport("", "github.com/smacker/go-tree-sitter")
	s.AddImport("_", "embed")
	s.AddImport(".", "strings")

	assert.Equal(t, "gopkg.in/yaml.v3", s.Imports["yaml"])
	assert.Equal(t, "github.com/smacker/go-tree-sitter", s.Imports["tree-sitter"])
	assert.Equal(t, "github.com/smacker/go-tree-sitter", s.Imports["treesitter"])
	assert.NotContains(t, s.Imports, "_")
	assert.NotContains(t, s.Imports, ".")
}

func TestQualified(t *testing.T) {
	assert.Equal(t, "int", Qualified("", "int"))
	assert.Equal(t, "example.com/shop.Item", Qualified(fixturePkg, "Item"))
}

// sitterFields maps every struct field name in src to its type node.
func sitterFields(t *testing.T, src []byte) map[string]*sitter.Node {
	t.Helper()
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	tree, err := p.ParseCtx(context.Background(), nil, src)
	require.NoError(t, err)

	fields := make(map[string]*sitter.Node)
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Type() == "field_declaration" {
			typeNode := n.ChildByFieldName("type")
			for i := 0; i < int(n.NamedChildCount()); i++ {
				if c := n.NamedChild(i); c.Type() == "field_identifier" {
					fields[c.Content(src)] = typeNode
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(tree.RootNode())
	return fields
}

// typesFields type-checks src and maps the fields of its Fixture struct to their types.
func typesFields(t *testing.T, src string) map[string]types.Type {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "fixture.go", src, 0)
	require.NoError(t, err)

	conf := types.Config{}
	pkg, err := conf.Check(fixturePkg, fset, []*ast.File{file}, nil)
	require.NoError(t, err)

	st, ok := pkg.Scope().Lookup("Fixture").Type().Underlying().(*types.Struct)
	require.True(t, ok)

	fields := make(map[string]types.Type)
	for i := 0; i < st.NumFields(); i++ {
		fields[st.Field(i).Name()] = st.Field(i).Type()
	}
	return fields
}
