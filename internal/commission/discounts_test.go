package commission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"booking-engine/internal/models"
)

func TestGetDiscountPercentage(t *testing.T) {
	assert.Equal(t, 0.20, GetDiscountPercentage(models.TierGold, models.EventTierA))
	assert.Equal(t, 0.10, GetDiscountPercentage(models.TierGold, models.EventTierB))
	assert.Equal(t, 0.05, GetDiscountPercentage(models.TierGold, models.EventTierC))
	assert.Equal(t, 0.30, GetDiscountPercentage(models.TierPlatinum, models.EventTierA))
	assert.Equal(t, 0.20, GetDiscountPercentage(models.TierPlatinum, models.EventTierB))
	assert.Equal(t, 0.10, GetDiscountPercentage(models.TierPlatinum, models.EventTierC))

	// Silver and unknown member tiers never get a discount.
	assert.Equal(t, 0.0, GetDiscountPercentage(models.TierSilver, models.EventTierA))
	assert.Equal(t, 0.0, GetDiscountPercentage(models.Tier(""), models.EventTierA))
	assert.Equal(t, 0.0, GetDiscountPercentage(models.Tier("bronze"), models.EventTierA))

	// Unknown event tiers yield zero for every member tier.
	assert.Equal(t, 0.0, GetDiscountPercentage(models.TierPlatinum, models.EventTier("d")))
	assert.Equal(t, 0.0, GetDiscountPercentage(models.TierGold, models.EventTier("")))
}

func TestCalculateDiscountedPrice(t *testing.T) {
	assert.Equal(t, 240.0, CalculateDiscountedPrice(300, models.TierGold, models.EventTierA))
	assert.Equal(t, 270.0, CalculateDiscountedPrice(300, models.TierGold, models.EventTierB))
	assert.Equal(t, 210.0, CalculateDiscountedPrice(300, models.TierPlatinum, models.EventTierA))

	// No-discount members get the original price back unchanged.
	assert.Equal(t, 300.0, CalculateDiscountedPrice(300, models.Tier(""), models.EventTierA))
	assert.Equal(t, 300.0, CalculateDiscountedPrice(300, models.TierSilver, models.EventTierA))

	assert.Equal(t, 0.0, CalculateDiscountedPrice(0, models.TierGold, models.EventTierA))
}

func TestApplyDiscountRoundsToCents(t *testing.T) {
	assert.Equal(t, 89.99, ApplyDiscount(99.99, 0.10))
	assert.Equal(t, 33.33, ApplyDiscount(33.33, 0))
}
