package commission

import "booking-engine/internal/models"

// Member discount matrix: (member tier, event tier) -> discount rate.
// Silver and unrecognized member tiers get no discount on any event tier.
var discountRates = map[models.Tier]map[models.EventTier]float64{
	models.TierGold: {
		models.EventTierA: 0.20,
		models.EventTierB: 0.10,
		models.EventTierC: 0.05,
	},
	models.TierPlatinum: {
		models.EventTierA: 0.30,
		models.EventTierB: 0.20,
		models.EventTierC: 0.10,
	},
}

// GetDiscountPercentage returns the discount rate for a member tier on an
// event pricing tier. Unknown member or event tiers yield zero.
func GetDiscountPercentage(userTier models.Tier, eventTier models.EventTier) float64 {
	byEvent, ok := discountRates[userTier]
	if !ok {
		return 0
	}
	return byEvent[eventTier]
}

// ApplyDiscount returns the price after deducting the discount rate,
// rounded to cents.
func ApplyDiscount(price, discount float64) float64 {
	return Round2(price * (1 - discount))
}

// CalculateDiscountedPrice composes the discount lookup and application.
// Members without a discount-bearing tier get the original price back
// untouched, so a no-discount path never picks up rounding drift.
func CalculateDiscountedPrice(originalPrice float64, userTier models.Tier, eventTier models.EventTier) float64 {
	discount := GetDiscountPercentage(userTier, eventTier)
	if discount == 0 {
		return originalPrice
	}
	return ApplyDiscount(originalPrice, discount)
}
