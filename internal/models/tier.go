package models

// Tier classifies both creators (commission axis) and members (discount axis).
// Values outside the known set are treated as unknown by the calculators.
type Tier string

const (
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// IsKnown reports whether the tier is one of the closed set.
func (t Tier) IsKnown() bool {
	return t == TierSilver || t == TierGold || t == TierPlatinum
}

// IsPriority reports whether the tier gets priority queue insertion.
func (t Tier) IsPriority() bool {
	return t == TierGold || t == TierPlatinum
}

// EventTier is the pricing category of a listing (a/b/c).
type EventTier string

const (
	EventTierA EventTier = "a"
	EventTierB EventTier = "b"
	EventTierC EventTier = "c"
)
