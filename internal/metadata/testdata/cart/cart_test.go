package cart

type EmptyCartBehaviors struct {
	Behaviors
	ShouldHaveNoItems It
}

type WhenCreated struct {
	ShouldBeEmpty    It
	BehavesLikeEmpty Behaves[EmptyCartBehaviors]
}
