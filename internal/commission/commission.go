package commission

import (
	"math"

	"booking-engine/internal/models"
)

// DefaultCommissionRate applies to silver creators and to any tier value
// outside the known set, including empty.
const DefaultCommissionRate = 0.20

var commissionRates = map[models.Tier]float64{
	models.TierSilver:   0.20,
	models.TierGold:     0.10,
	models.TierPlatinum: 0.05,
}

// Round2 rounds to cents, half away from zero (half-up for positive amounts).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GetCreatorCommissionRate returns the platform commission rate for a creator
// tier. Unrecognized tiers fall back to the default rate.
func GetCreatorCommissionRate(tier models.Tier) float64 {
	if rate, ok := commissionRates[tier]; ok {
		return rate
	}
	return DefaultCommissionRate
}

// Breakdown is the gross/commission/net split for one payout amount.
type Breakdown struct {
	Gross          float64 `json:"gross"`
	Commission     float64 `json:"commission"`
	Net            float64 `json:"net"`
	CommissionRate float64 `json:"commission_rate"`
}

// CalculateCreatorPayout splits a gross amount into commission and net.
// Commission is rounded first; net is derived by subtraction so that
// Net == Gross - Commission holds exactly after rounding.
func CalculateCreatorPayout(gross float64, tier models.Tier) Breakdown {
	rate := GetCreatorCommissionRate(tier)
	fee := Round2(gross * rate)
	return Breakdown{
		Gross:          Round2(gross),
		Commission:     fee,
		Net:            Round2(gross - fee),
		CommissionRate: rate,
	}
}
