package cart

// It is a single specification.
type It func()

// Behaves includes the specifications of T.
type Behaves[T any] struct{ Behavior T }

type Behaviors struct{}

type Ignore struct{}

type Cart struct {
	Items []string
}
