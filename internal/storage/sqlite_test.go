package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specgraph/internal/cache"
	"specgraph/internal/crawler"
	"specgraph/internal/declaration"
	"specgraph/internal/element"
	"specgraph/internal/registry"
)

const project = "example.com/shop"

type fixture struct {
	registry *registry.Registry
	cache    *cache.ElementCache
	context  *element.Context
	behavior *element.Behavior
	spec     *element.Specification
	shared   *element.Specification
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{registry: registry.New(), cache: cache.Open(project)}
	t.Cleanup(f.cache.Close)

	f.context = element.NewContext(project, "WhenAdding", project+".WhenAdding", false)
	f.context.SetLocation(element.Location{File: "basket_test.go", StartLine: 10, EndLine: 14})
	f.spec = element.NewContextSpecification(f.context, "ShouldGrow", true)
	f.behavior = element.NewBehavior(f.context, project+".WhenAdding", "BehavesLikeList", false, project+".ListBehaviors")
	f.shared = element.NewBehaviorSpecification(f.behavior, project+".ListBehaviors", "ShouldList", false)
	f.shared.SetState(element.Invalid)

	for _, e := range []element.Element{f.context, f.spec, f.behavior, f.shared} {
		f.registry.Add(project, e)
	}
	f.cache.SetContext("src:example.com/shop.WhenAdding", f.context)
	f.cache.SetBehavior("src:example.com/shop.WhenAdding.BehavesLikeList", f.behavior)
	return f
}

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SnapshotRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	f := newFixture(t)

	owner := &declaration.Type{Handle: "src:example.com/shop.WhenAdding", Package: project, Name: "WhenAdding", IsStruct: true}
	owner.AddField(&declaration.Field{Name: "ShouldGrow", Type: declaration.TypeRef{Kind: declaration.Named, Package: project, Name: "It"}, Line: 11})
	files := []*crawler.FileEntry{{Path: "basket_test.go", Hash: "abc", Types: []*declaration.Type{owner}}}

	require.NoError(t, store.SaveSnapshot(ctx, f.registry, f.cache, files))

	reg := registry.New()
	c := cache.Open(project)
	defer c.Close()
	loaded, err := store.LoadSnapshot(ctx, reg, c)
	require.NoError(t, err)

	t.Run("elements", func(t *testing.T) {
		assert.Equal(t, 4, reg.Len(project))
		for _, e := range f.registry.Elements(project) {
			got := reg.ElementByID(project, e.ID())
			require.NotNil(t, got, e.ID())
			assert.Equal(t, e.Kind(), got.Kind())
			assert.Equal(t, e.State(), got.State(), e.ID())
			assert.Equal(t, e.IsIgnored(), got.IsIgnored(), e.ID())
			assert.Equal(t, e.Location(), got.Location(), e.ID())
		}

		b, ok := reg.ElementByID(project, f.behavior.ID()).(*element.Behavior)
		require.True(t, ok)
		assert.Equal(t, project+".ListBehaviors", b.FieldType())
		assert.Same(t, reg.ElementByID(project, f.context.ID()), b.Parent())
		require.Len(t, b.Children(), 1)
		assert.Equal(t, "ShouldList", b.Children()[0].Name())
	})

	t.Run("children keep their order", func(t *testing.T) {
		root := reg.ElementByID(project, f.context.ID())
		require.Len(t, root.Children(), 2)
		assert.Equal(t, f.spec.ID(), root.Children()[0].ID())
		assert.Equal(t, f.behavior.ID(), root.Children()[1].ID())
	})

	t.Run("cache", func(t *testing.T) {
		got, ok := c.Context("src:example.com/shop.WhenAdding")
		require.True(t, ok)
		assert.Same(t, reg.ElementByID(project, f.context.ID()), got)

		b, ok := c.Behavior("src:example.com/shop.WhenAdding.BehavesLikeList")
		require.True(t, ok)
		assert.Equal(t, f.behavior.ID(), b.ID())
	})

	t.Run("files", func(t *testing.T) {
		require.Len(t, loaded, 1)
		assert.Equal(t, "abc", loaded[0].Hash)
		require.Len(t, loaded[0].Types, 1)
		typ := loaded[0].Types[0]
		require.Len(t, typ.Fields, 1)
		assert.Same(t, typ, typ.Fields[0].Owner)
		assert.True(t, typ.Fields[0].Type.Is("It"))
	})
}

func TestSQLiteStore_SaveSnapshot_ReplacesProject(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, store.SaveSnapshot(ctx, f.registry, f.cache, nil))

	other := cache.Open("example.com/other")
	defer other.Close()
	otherReg := registry.New()
	otherReg.Add("example.com/other", element.NewContext("example.com/other", "When", "example.com/other.When", false))
	require.NoError(t, store.SaveSnapshot(ctx, otherReg, other, nil))

	// second snapshot without the behavior
	f.registry.Remove(project, f.shared.ID())
	f.registry.Remove(project, f.behavior.ID())
	element.Detach(f.behavior)
	f.cache.DeleteBehavior("src:example.com/shop.WhenAdding.BehavesLikeList")
	require.NoError(t, store.SaveSnapshot(ctx, f.registry, f.cache, nil))

	reg := registry.New()
	c := cache.Open(project)
	defer c.Close()
	_, err := store.LoadSnapshot(ctx, reg, c)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len(project))
	_, behaviors := c.Len()
	assert.Zero(t, behaviors)

	otherLoaded := registry.New()
	oc := cache.Open("example.com/other")
	defer oc.Close()
	_, err = store.LoadSnapshot(ctx, otherLoaded, oc)
	require.NoError(t, err)
	assert.Equal(t, 1, otherLoaded.Len("example.com/other"), "other projects are untouched")
}

func TestSQLiteStore_LoadSnapshot_Empty(t *testing.T) {
	store := newStore(t)
	reg := registry.New()
	c := cache.Open(project)
	defer c.Close()

	files, err := store.LoadSnapshot(context.Background(), reg, c)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Zero(t, reg.Len(project))
}
