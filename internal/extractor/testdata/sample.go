package sample

import (
	"fmt"

	s "specgraph/pkg/spec"
)

// CollectionBehaviors is shared by every collection context.
type CollectionBehaviors struct {
	s.Behaviors
	ShouldNotBeEmpty s.It
	ShouldBeSorted   s.It `spec:"ignore"`
}

// WhenAddingAnItem is a context.
type WhenAddingAnItem struct {
	s.Context
	ShouldIncreaseTheCount s.It
	BehavesLikeACollection s.Behaves[CollectionBehaviors]
	ShouldBeSlow, ShouldBeLoud s.It `json:"-" spec:"slow,ignore"`
	items                  []*Item
}

type WhenTheCartIsClosed struct {
	s.Ignore
	ShouldRejectItems s.It
}

type (
	Item struct {
		Name string
	}
	Price int
)

type Box[T any] struct {
	Value T
}

type Stringer interface {
	fmt.Stringer
}

func helper() {
	type local struct{ Spec s.It }
	_ = local{}
}
