package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specgraph/internal/declaration"
	"specgraph/internal/element"
)

func TestElementCache_SetReplaces(t *testing.T) {
	c := Open("shop")
	defer c.Close()

	h := declaration.Handle("src:example.com/shop.When.Like")
	ctx := element.NewContext("example.com/shop", "When", "example.com/shop.When", false)
	first := element.NewBehavior(ctx, "example.com/shop.When", "Like", false, "example.com/shop.Shared")
	second := element.NewBehavior(ctx, "example.com/shop.When", "Like", true, "example.com/shop.Shared")

	c.SetBehavior(h, first)
	c.SetBehavior(h, second)

	got, ok := c.Behavior(h)
	require.True(t, ok)
	assert.Same(t, second, got)
	_, behaviors := c.Len()
	assert.Equal(t, 1, behaviors, "one entry per declaration")
}

func TestElementCache_ContextsAndBehaviorsAreIndependent(t *testing.T) {
	c := Open("shop")
	h := declaration.Handle("src:example.com/shop.When")
	ctx := element.NewContext("example.com/shop", "When", "example.com/shop.When", false)

	c.SetContext(h, ctx)
	_, ok := c.Behavior(h)
	assert.False(t, ok)

	got, ok := c.Context(h)
	require.True(t, ok)
	assert.Same(t, ctx, got)

	c.DeleteContext(h)
	_, ok = c.Context(h)
	assert.False(t, ok)
}

func TestElementCache_Handles(t *testing.T) {
	c := Open("shop")
	ctx := element.NewContext("example.com/shop", "When", "example.com/shop.When", false)
	c.SetContext("src:b", ctx)
	c.SetContext("src:a", ctx)
	c.SetBehavior("src:a.X", element.NewBehavior(ctx, "example.com/shop.When", "X", false, "T"))

	assert.Equal(t, []declaration.Handle{"src:a", "src:b"}, c.ContextHandles())
	assert.Equal(t, []declaration.Handle{"src:a.X"}, c.BehaviorHandles())

	c.DeleteBehavior("src:a.X")
	assert.Empty(t, c.BehaviorHandles())
}

func TestElementCache_Session(t *testing.T) {
	a := Open("shop")
	b := Open("shop")
	assert.NotEmpty(t, a.Session())
	assert.NotEqual(t, a.Session(), b.Session(), "every session is scoped on its own")
	assert.Equal(t, "shop", a.Project())

	a.SetContext("src:a", element.NewContext("", "A", "A", false))
	a.Close()
	contexts, behaviors := a.Len()
	assert.Zero(t, contexts)
	assert.Zero(t, behaviors)
}
