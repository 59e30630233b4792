package cart_test

import "example.com/cart"

type SlowBehaviors struct {
	cart.Behaviors
	cart.Ignore
	ShouldTakeLong cart.It
}

type WhenCheckingOut struct {
	ShouldCharge  cart.It `spec:"ignore"`
	BehavesSlowly cart.Behaves[SlowBehaviors]
}
