package shop

type NonEmptyBehaviors struct {
	Behaviors
	ShouldHaveItems It
	ShouldHaveTotal It
}

type WhenAddingToBasket struct {
	ShouldContainTheItem It
	BehavesLikeNonEmpty  Behaves[NonEmptyBehaviors]
}

type SkippedBehaviors struct {
	Behaviors
	Ignore
	ShouldBeSkipped It
}

type WhenRemovingFromBasket struct {
	ShouldBeEmpty   It `spec:"ignore"`
	BehavesSkipped  Behaves[SkippedBehaviors]
	BehavesNonEmpty Behaves[NonEmptyBehaviors] `spec:"ignore"`
}
