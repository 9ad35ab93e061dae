package levels

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"forex-signal-engine/internal/model"
)

// Bounds restricts stop and target placement in ATR units
type Bounds struct {
	MinSLATRMultiple float64
	MaxSLATRMultiple float64
	MinTPATRMultiple float64
	MaxTPATRMultiple float64
	MinRiskReward    float64
}

// DefaultBounds allow stops 1-4 ATR away and targets 2-8 ATR away with a
// minimum 1.5 risk/reward
func DefaultBounds() Bounds {
	return Bounds{
		MinSLATRMultiple: 1.0,
		MaxSLATRMultiple: 4.0,
		MinTPATRMultiple: 2.0,
		MaxTPATRMultiple: 8.0,
		MinRiskReward:    1.5,
	}
}

// Result holds the calculated levels. Degraded means no placement could
// satisfy the minimum risk/reward inside the bounds and the signal must
// become HOLD.
type Result struct {
	StopLoss      float64
	TakeProfit    float64
	RiskReward    float64
	StopFromLevel bool
	TPFromLevel   bool
	Degraded      bool
}

// Calculator derives stop-loss and take-profit from market structure with
// ATR-based fallbacks
type Calculator struct {
	bounds Bounds
	logger zerolog.Logger
}

// NewCalculator creates a level calculator with the given bounds
func NewCalculator(bounds Bounds) *Calculator {
	return &Calculator{
		bounds: bounds,
		logger: log.With().Str("component", "level_calculator").Logger(),
	}
}

// regimeMultipliers picks the fallback ATR multipliers for the volatility
// regime. Quiet regimes get wider multipliers because the ATR itself is
// smaller there.
func regimeMultipliers(regime model.VolatilityRegime) (sl, tp float64) {
	switch regime {
	case model.VolatilityHigh:
		return 1.5, 3.0
	case model.VolatilityLow:
		return 2.5, 5.0
	default:
		return 2.0, 4.0
	}
}

// Calculate produces validated stop-loss and take-profit levels for the
// given direction. Direction must be BUY or SELL; HOLD has no levels.
func (c *Calculator) Calculate(
	direction model.SignalType,
	price, atr float64,
	regime model.VolatilityRegime,
	keyLevels []model.KeyLevel,
) (Result, error) {
	if price <= 0 || atr <= 0 || math.IsNaN(price) || math.IsNaN(atr) {
		return Result{}, fmt.Errorf("level calculation needs price and ATR: %w", model.ErrInsufficientData)
	}
	if direction != model.SignalBuy && direction != model.SignalSell {
		return Result{}, fmt.Errorf("no levels for direction %q", direction)
	}

	slMult, tpMult := regimeMultipliers(regime)

	var result Result

	// Stop side: the nearest qualifying structural level gives the
	// tightest economically meaningful stop
	if stop, ok := c.nearestStopLevel(direction, price, atr, keyLevels); ok {
		result.StopLoss = stop
		result.StopFromLevel = true
	} else if direction == model.SignalBuy {
		result.StopLoss = price - atr*slMult
	} else {
		result.StopLoss = price + atr*slMult
	}

	// Target side: the most-tested level is the likelier barrier, so
	// strength beats proximity here
	if target, ok := c.strongestTargetLevel(direction, price, atr, keyLevels); ok {
		result.TakeProfit = target
		result.TPFromLevel = true
	} else if direction == model.SignalBuy {
		result.TakeProfit = price + atr*tpMult
	} else {
		result.TakeProfit = price - atr*tpMult
	}

	stopDistance := math.Abs(price - result.StopLoss)
	targetDistance := math.Abs(result.TakeProfit - price)
	if stopDistance == 0 {
		return Result{}, fmt.Errorf("zero stop distance: %w", model.ErrInsufficientData)
	}
	result.RiskReward = targetDistance / stopDistance

	// Widen the target to the minimum risk/reward when needed; if that
	// pushes past the maximum target distance the trade is not worth
	// taking and the signal degrades
	if result.RiskReward < c.bounds.MinRiskReward {
		widened := stopDistance * c.bounds.MinRiskReward
		if widened > c.bounds.MaxTPATRMultiple*atr {
			c.logger.Debug().
				Float64("risk_reward", result.RiskReward).
				Float64("required", c.bounds.MinRiskReward).
				Msg("Cannot widen target inside bounds, degrading")
			result.Degraded = true
			return result, nil
		}
		if direction == model.SignalBuy {
			result.TakeProfit = price + widened
		} else {
			result.TakeProfit = price - widened
		}
		result.TPFromLevel = false
		result.RiskReward = c.bounds.MinRiskReward
	}

	return result, nil
}

// nearestStopLevel finds the closest key level on the protective side of
// price within the allowed ATR band
func (c *Calculator) nearestStopLevel(direction model.SignalType, price, atr float64, keyLevels []model.KeyLevel) (float64, bool) {
	minDist := c.bounds.MinSLATRMultiple * atr
	maxDist := c.bounds.MaxSLATRMultiple * atr

	best := 0.0
	bestDist := math.MaxFloat64
	found := false

	for _, level := range keyLevels {
		dist := price - level.Price
		if direction == model.SignalSell {
			dist = level.Price - price
		}
		// Positive distance means the level sits on the stop side
		if dist < minDist || dist > maxDist {
			continue
		}
		if dist < bestDist {
			best = level.Price
			bestDist = dist
			found = true
		}
	}
	return best, found
}

// strongestTargetLevel finds the highest-strength key level on the profit
// side of price within the allowed ATR band; ties go to the nearer level
func (c *Calculator) strongestTargetLevel(direction model.SignalType, price, atr float64, keyLevels []model.KeyLevel) (float64, bool) {
	minDist := c.bounds.MinTPATRMultiple * atr
	maxDist := c.bounds.MaxTPATRMultiple * atr

	best := 0.0
	bestStrength := 0
	bestDist := math.MaxFloat64
	found := false

	for _, level := range keyLevels {
		dist := level.Price - price
		if direction == model.SignalSell {
			dist = price - level.Price
		}
		if dist < minDist || dist > maxDist {
			continue
		}
		if level.Strength > bestStrength || (level.Strength == bestStrength && dist < bestDist) {
			best = level.Price
			bestStrength = level.Strength
			bestDist = dist
			found = true
		}
	}
	return best, found
}
