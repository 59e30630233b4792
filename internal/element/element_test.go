package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTree() (*Context, *Behavior, []*Specification) {
	ctx := NewContext("example.com/shop", "WhenAdding", "example.com/shop.WhenAdding", false)
	b := NewBehavior(ctx, "example.com/shop.WhenAdding", "BehavesLikeACollection", false, "example.com/shop.CollectionBehaviors")
	specs := []*Specification{
		NewBehaviorSpecification(b, "example.com/shop.CollectionBehaviors", "ShouldNotBeEmpty", false),
		NewBehaviorSpecification(b, "example.com/shop.CollectionBehaviors", "ShouldKeepOrder", false),
	}
	return ctx, b, specs
}

func TestIdentifiers(t *testing.T) {
	ctx, b, specs := newTree()

	assert.Equal(t, "example.com/shop.WhenAdding", ctx.ID())
	assert.Equal(t, "example.com/shop.WhenAdding.example.com/shop.CollectionBehaviors.BehavesLikeACollection", b.ID())
	assert.Equal(t, b.ID()+".ShouldNotBeEmpty", specs[0].ID())
	assert.Equal(t, BehaviorID(ctx, "example.com/shop.CollectionBehaviors", "BehavesLikeACollection"), b.ID())

	cs := NewContextSpecification(ctx, "ShouldIncreaseTheCount", false)
	assert.Equal(t, "example.com/shop.WhenAdding.ShouldIncreaseTheCount", cs.ID())
	assert.Equal(t, KindContextSpecification, cs.Kind())
	assert.Equal(t, "example.com/shop.WhenAdding", cs.DeclaringType())
}

func TestTree_Links(t *testing.T) {
	ctx, b, specs := newTree()

	assert.Same(t, ctx, b.Context())
	require.Len(t, ctx.Children(), 1)
	assert.Equal(t, Element(b), ctx.Children()[0])
	require.Len(t, b.Children(), 2)
	assert.Equal(t, Element(b), specs[1].Parent())
	assert.Equal(t, Valid, b.State())
}

func TestBehavior_SetParentMovesOnlyTheRelation(t *testing.T) {
	ctxA, b, _ := newTree()
	ctxB := NewContext("example.com/shop", "WhenAdding", "example.com/shop.WhenAdding", false)
	id := b.ID()

	b.SetParent(ctxB)

	assert.Same(t, ctxB, b.Context())
	assert.Empty(t, ctxA.Children(), "old parent must drop the element")
	require.Len(t, ctxB.Children(), 1)
	assert.Equal(t, id, b.ID())
	assert.Equal(t, "BehavesLikeACollection", b.FieldName())
	assert.Len(t, b.Children(), 2, "children move with the element")

	b.SetParent(ctxB)
	assert.Len(t, ctxB.Children(), 1, "reattaching to the same parent is a no-op")

	b.SetParent(nil)
	assert.Nil(t, b.Context())
	assert.Empty(t, ctxB.Children())
}

func TestChildrenIsACopy(t *testing.T) {
	_, b, _ := newTree()
	children := b.Children()
	children[0] = nil
	assert.NotNil(t, b.Children()[0])
}

func TestFlatten(t *testing.T) {
	ctx, b, specs := newTree()
	all := Flatten(ctx)
	require.Len(t, all, 3)
	assert.Equal(t, Element(b), all[0])
	assert.Equal(t, Element(specs[0]), all[1])
	assert.Equal(t, Element(specs[1]), all[2])
	assert.Nil(t, Flatten(nil))
}

func TestInvalidatePending(t *testing.T) {
	ctx, b, specs := newTree()

	MarkChildrenPending(b)
	specs[0].SetState(Valid) // rediscovered during the pass

	assert.Equal(t, 1, InvalidatePending(b))
	assert.Equal(t, Valid, specs[0].State())
	assert.Equal(t, Invalid, specs[1].State())

	t.Run("idempotent", func(t *testing.T) {
		assert.Equal(t, 0, InvalidatePending(b))
		assert.Equal(t, Invalid, specs[1].State())
		assert.Equal(t, Valid, specs[0].State())
	})

	t.Run("walks grandchildren", func(t *testing.T) {
		MarkSubtreePending(ctx)
		assert.Equal(t, 3, InvalidatePending(ctx))
		assert.Equal(t, Pending, ctx.State(), "the root itself is not a descendant")
		assert.True(t, Invalidate(ctx))
		assert.Equal(t, Invalid, ctx.State())
	})
}

func TestInvalidate_RequiresPending(t *testing.T) {
	_, b, _ := newTree()
	assert.False(t, Invalidate(b))
	assert.Equal(t, Valid, b.State())
	assert.False(t, Invalidate(nil))
}

func TestParseState(t *testing.T) {
	for _, s := range []State{Valid, Pending, Invalid} {
		parsed, ok := ParseState(s.String())
		require.True(t, ok)
		assert.Equal(t, s, parsed)
	}
	_, ok := ParseState("stale")
	assert.False(t, ok)
}

func TestDetach(t *testing.T) {
	ctx, b, _ := newTree()
	Detach(b)
	assert.Empty(t, ctx.Children())
	assert.Nil(t, b.Parent())
	Detach(nil)
}
