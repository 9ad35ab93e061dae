package market

import "forex-signal-engine/internal/model"

// RegimeBounds are the ATR-to-price ratios separating volatility regimes
type RegimeBounds struct {
	High float64 // at or above this ratio the market is HIGH volatility
	Low  float64 // at or below this ratio the market is LOW volatility
}

// DefaultRegimeBounds reflect typical FX behavior: 0.5% of price is
// already violent for a major pair, 0.1% is a quiet session
func DefaultRegimeBounds() RegimeBounds {
	return RegimeBounds{High: 0.005, Low: 0.001}
}

// ClassifyVolatility buckets the market by ATR as a fraction of price.
// The bucket drives stop/target multiplier selection: quiet regimes get
// wider multipliers because the ATR itself is smaller.
func ClassifyVolatility(atr, price float64, bounds RegimeBounds) model.VolatilityRegime {
	if price <= 0 || atr <= 0 {
		return model.VolatilityMedium
	}

	ratio := atr / price
	switch {
	case ratio >= bounds.High:
		return model.VolatilityHigh
	case ratio <= bounds.Low:
		return model.VolatilityLow
	default:
		return model.VolatilityMedium
	}
}
