package risk

import "math"

// maxKellyFraction caps position sizing; full Kelly is too aggressive for
// noisy win-rate estimates
const maxKellyFraction = 0.25

// PositionSize returns the instrument units that risk riskPerTrade of the
// account between entry and stop. Zero stop distance yields zero size.
func PositionSize(entry, stopLoss, accountSize, riskPerTrade float64) float64 {
	stopDistance := math.Abs(entry - stopLoss)
	if stopDistance == 0 || accountSize <= 0 || riskPerTrade <= 0 {
		return 0
	}
	return accountSize * riskPerTrade / stopDistance
}

// KellyFraction computes the Kelly-criterion account fraction for a given
// historical win rate and risk/reward ratio: f = W - (1-W)/R. Negative
// edges return 0 and the result is capped at a quarter Kelly ceiling.
func KellyFraction(winRate, riskReward float64) float64 {
	if riskReward <= 0 || winRate <= 0 || winRate >= 1 {
		return 0
	}
	f := winRate - (1-winRate)/riskReward
	if f < 0 {
		return 0
	}
	return math.Min(f, maxKellyFraction)
}

// AdjustForVolatility scales a position down in violent markets and up
// slightly in quiet ones
func AdjustForVolatility(baseSize, volatilityRatio float64) float64 {
	if volatilityRatio > 1.5 {
		return baseSize / volatilityRatio
	}
	if volatilityRatio > 0 && volatilityRatio < 0.7 {
		return baseSize * 1.2
	}
	return baseSize
}
