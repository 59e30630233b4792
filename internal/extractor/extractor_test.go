package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specgraph/internal/declaration"
	"specgraph/internal/typename"
)

const samplePkg = "example.com/sample"

func TestExtractor_ExtractFromSource(t *testing.T) {
	testFile := filepath.Join("testdata", "sample.go")
	src, err := os.ReadFile(testFile)
	require.NoError(t, err)

	ext, err := NewExtractor("go", declaration.DefaultMarkers())
	require.NoError(t, err)

	types, err := ext.ExtractFromSource(testFile, samplePkg, src)
	require.NoError(t, err)

	typesByName := make(map[string]*declaration.Type)
	for _, typ := range types {
		typesByName[typ.Name] = typ
	}

	t.Run("Overall Count", func(t *testing.T) {
		assert.Len(t, types, 7, "local types declared in functions are skipped")
		assert.NotContains(t, typesByName, "local")
	})

	t.Run("Handles and Package", func(t *testing.T) {
		for _, typ := range types {
			assert.Equal(t, samplePkg, typ.Package)
			assert.Equal(t, declaration.Source, typ.Origin)
			assert.Equal(t, testFile, typ.File)
			for _, f := range typ.Fields {
				assert.Same(t, typ, f.Owner)
				assert.Equal(t, declaration.FieldHandle(typ.Handle, f.Name), f.Handle)
			}
		}
		assert.Equal(t, declaration.Handle("src:example.com/sample.WhenAddingAnItem"), typesByName["WhenAddingAnItem"].Handle)
	})

	t.Run("Behaviors Type", func(t *testing.T) {
		typ, ok := typesByName["CollectionBehaviors"]
		require.True(t, ok)
		assert.True(t, typ.IsStruct)
		assert.True(t, typ.Behaviors)
		assert.False(t, typ.Ignored)
		assert.Equal(t, 10, typ.StartLine)
		assert.Equal(t, 14, typ.EndLine)

		require.Len(t, typ.Fields, 2)
		assert.Equal(t, "ShouldNotBeEmpty", typ.Fields[0].Name)
		assert.False(t, typ.Fields[0].Ignored)
		assert.Equal(t, 12, typ.Fields[0].Line)
		assert.Equal(t, "ShouldBeSorted", typ.Fields[1].Name)
		assert.True(t, typ.Fields[1].Ignored)
		assert.Equal(t, `spec:"ignore"`, typ.Fields[1].Tag)
	})

	t.Run("Context", func(t *testing.T) {
		typ, ok := typesByName["WhenAddingAnItem"]
		require.True(t, ok)
		assert.False(t, typ.Behaviors)
		assert.False(t, typ.Ignored)

		names := make([]string, 0, len(typ.Fields))
		for _, f := range typ.Fields {
			names = append(names, f.Name)
		}
		assert.Equal(t, []string{"ShouldIncreaseTheCount", "BehavesLikeACollection", "ShouldBeSlow", "ShouldBeLoud", "items"}, names)

		spec := typ.Fields[0]
		assert.Equal(t, "specgraph/pkg/spec.It", typename.Normalize(spec.Type))

		behaves := typ.Fields[1]
		assert.Equal(t, "specgraph/pkg/spec.Behaves[example.com/sample.CollectionBehaviors]", typename.Normalize(behaves.Type))
		arg, ok := behaves.FirstTypeArgument()
		require.True(t, ok)
		assert.Equal(t, "example.com/sample.CollectionBehaviors", typename.Normalize(arg))
		assert.Nil(t, behaves.FirstGenericArgument())

		assert.True(t, typ.Fields[2].Ignored)
		assert.True(t, typ.Fields[3].Ignored)
		assert.Equal(t, "[]*example.com/sample.Item", typename.Normalize(typ.Fields[4].Type))
	})

	t.Run("Ignored Context", func(t *testing.T) {
		typ, ok := typesByName["WhenTheCartIsClosed"]
		require.True(t, ok)
		assert.True(t, typ.Ignored)
		require.Len(t, typ.Fields, 1)
		assert.False(t, typ.Fields[0].Ignored)
	})

	t.Run("Other Types", func(t *testing.T) {
		assert.True(t, typesByName["Item"].IsStruct)
		assert.False(t, typesByName["Price"].IsStruct)
		assert.False(t, typesByName["Stringer"].IsStruct)
		assert.True(t, typesByName["Box"].Generic)
		assert.False(t, typesByName["Item"].Generic)
	})
}

func TestExtractor_ExtractFromSource_CustomMarkers(t *testing.T) {
	ext, err := NewExtractor("go", declaration.Markers{TagKey: "check", IgnoreMarker: "Skip", BehaviorsMarker: "Shared"})
	require.NoError(t, err)

	src := []byte(`package cart_test

import "example.com/cart/spec"

type Shared struct{}

type WhenEmpty struct {
	spec.Skip
	ShouldBeEmpty spec.It ` + "`check:\"ignore\"`" + `
	Other         spec.It ` + "`spec:\"ignore\"`" + `
}
`)

	types, err := ext.ExtractFromSource("cart_test.go", "example.com/cart", src)
	require.NoError(t, err)
	require.Len(t, types, 2)

	typ := types[1]
	assert.Equal(t, "example.com/cart_test", typ.Package)
	assert.Equal(t, declaration.Handle("src:example.com/cart_test.WhenEmpty"), typ.Handle)
	assert.True(t, typ.Ignored)
	require.Len(t, typ.Fields, 2)
	assert.True(t, typ.Fields[0].Ignored)
	assert.False(t, typ.Fields[1].Ignored)
	assert.Equal(t, "example.com/cart/spec.It", typename.Normalize(typ.Fields[0].Type))
}

func TestNewExtractor_Unsupported(t *testing.T) {
	_, err := NewExtractor("rust", declaration.DefaultMarkers())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedLanguage))
}
