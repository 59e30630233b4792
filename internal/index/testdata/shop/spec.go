package shop

type It func()

type Behaves[T any] struct{ Behavior T }

type Behaviors struct{}

type Ignore struct{}
