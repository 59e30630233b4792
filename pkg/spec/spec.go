// Package spec holds the types specifications are declared with.
//
// A context is a struct whose fields are specifications:
//
//	type WhenAddingAnItem struct {
//		spec.Context
//		Establish              spec.Establish
//		Because                spec.Because
//		ShouldIncreaseTheCount spec.It
//		BehavesLikeACollection spec.Behaves[CollectionBehaviors]
//	}
//
//	type CollectionBehaviors struct {
//		spec.Behaviors
//		ShouldNotBeEmpty spec.It
//	}
//
// specgraph discovers these declarations statically; nothing in this package runs them.
package spec

// It is a single specification.
type It func()

// Behaves pulls the specifications of the behaviors type T into a context.
type Behaves[T any] struct {
	Behavior T
}

// Establish arranges the state a context observes.
type Establish func()

// Because performs the action under test.
type Because func()

// Cleanup runs after every specification of a context.
type Cleanup func()

// Context optionally marks a struct as a context.
type Context struct{}

// Behaviors marks a struct as a behaviors type. Behaviors types are never contexts.
type Behaviors struct{}

// Ignore marks a context or behaviors type as ignored. A single field is ignored with the
// `spec:"ignore"` struct tag instead.
type Ignore struct{}
