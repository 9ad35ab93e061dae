package confluence

import (
	"fmt"

	"forex-signal-engine/internal/model"
)

// Analyzer scores trend agreement across timeframes using a per-timeframe
// weight table. Higher timeframes conventionally carry more weight.
type Analyzer struct {
	weights map[model.Timeframe]float64
}

// NewAnalyzer creates an analyzer with the given weight table. Timeframes
// absent from the table weigh 1.
func NewAnalyzer(weights map[model.Timeframe]float64) *Analyzer {
	return &Analyzer{weights: weights}
}

// DeriveTrend labels one timeframe from price position against its moving
// averages: price > SMA20 > SMA50 is bullish, the inverse is bearish,
// anything else is sideways.
func DeriveTrend(snapshot model.IndicatorSnapshot) model.TrendLabel {
	switch {
	case snapshot.Close > snapshot.SMA20 && snapshot.SMA20 > snapshot.SMA50:
		return model.TrendBullish
	case snapshot.Close < snapshot.SMA20 && snapshot.SMA20 < snapshot.SMA50:
		return model.TrendBearish
	default:
		return model.TrendSideways
	}
}

// Analyze computes the weighted confluence of the supplied timeframe
// analyses. Fewer than two timeframes cannot produce a meaningful score.
func (a *Analyzer) Analyze(analyses []model.TimeframeAnalysis) (model.ConfluenceResult, error) {
	if len(analyses) < 2 {
		return model.ConfluenceResult{}, fmt.Errorf(
			"confluence needs at least 2 timeframes, have %d: %w",
			len(analyses), model.ErrNotEnoughTimeframes)
	}

	agreement := make(map[model.Timeframe]model.TrendLabel, len(analyses))
	weightByTrend := make(map[model.TrendLabel]float64)
	var totalWeight float64

	for _, analysis := range analyses {
		weight := a.weight(analysis.Timeframe)
		agreement[analysis.Timeframe] = analysis.Trend
		weightByTrend[analysis.Trend] += weight
		totalWeight += weight
	}

	overall := majorityTrend(weightByTrend)

	score := 0.0
	if totalWeight > 0 {
		score = weightByTrend[overall] / totalWeight * 100
	}

	return model.ConfluenceResult{
		OverallTrend: overall,
		Score:        score,
		Agreement:    agreement,
	}, nil
}

func (a *Analyzer) weight(tf model.Timeframe) float64 {
	if w, ok := a.weights[tf]; ok && w > 0 {
		return w
	}
	return 1
}

// majorityTrend picks the label with the highest total weight; a tie for
// the top weight is indecision and resolves to sideways
func majorityTrend(weightByTrend map[model.TrendLabel]float64) model.TrendLabel {
	best := model.TrendSideways
	bestWeight := -1.0
	tied := false

	for _, label := range []model.TrendLabel{model.TrendBullish, model.TrendBearish, model.TrendSideways} {
		weight, ok := weightByTrend[label]
		if !ok {
			continue
		}
		if weight > bestWeight {
			best = label
			bestWeight = weight
			tied = false
		} else if weight == bestWeight {
			tied = true
		}
	}

	if tied {
		return model.TrendSideways
	}
	return best
}
