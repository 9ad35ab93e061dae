package structure

import (
	"sort"

	"forex-signal-engine/internal/model"
)

// Detector finds swing points and clusters them into key levels
type Detector struct {
	window      int     // fractal window, e.g. 5 means two bars on each side
	atrFraction float64 // clustering tolerance as a fraction of ATR
	maxPerSide  int
	fallbackTol float64 // relative tolerance when ATR is unusable
}

// NewDetector creates a detector with the given fractal window and
// clustering tolerance (a fraction of ATR)
func NewDetector(window int, atrFraction float64) *Detector {
	if window < 3 {
		window = 5
	}
	if window%2 == 0 {
		window++
	}
	if atrFraction <= 0 {
		atrFraction = 0.1
	}
	return &Detector{
		window:      window,
		atrFraction: atrFraction,
		maxPerSide:  10,
		fallbackTol: 0.0002, // roughly 2 pips on a major pair
	}
}

// DetectSwings finds fractal swing highs and lows: bars whose high (low)
// exceeds (undercuts) every bar within half the window on both sides.
// Sparse series yield fewer swings, never an error.
func (d *Detector) DetectSwings(candles []model.Candle) (highs, lows []float64) {
	half := d.window / 2
	if len(candles) < d.window {
		return nil, nil
	}

	for i := half; i < len(candles)-half; i++ {
		isHigh, isLow := true, true
		for j := i - half; j <= i+half; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			highs = append(highs, candles[i].High)
		}
		if isLow {
			lows = append(lows, candles[i].Low)
		}
	}
	return highs, lows
}

type swingPoint struct {
	price     float64
	timeframe model.Timeframe
}

// ClusterLevels merges swing points from every timeframe into key levels.
// Points within the tolerance band collapse into one level whose strength
// is the number of contributing swings.
func (d *Detector) ClusterLevels(analyses []model.TimeframeAnalysis, currentPrice, atr float64) []model.KeyLevel {
	var points []swingPoint
	for _, analysis := range analyses {
		for _, price := range analysis.SwingHighs {
			points = append(points, swingPoint{price: price, timeframe: analysis.Timeframe})
		}
		for _, price := range analysis.SwingLows {
			points = append(points, swingPoint{price: price, timeframe: analysis.Timeframe})
		}
	}
	if len(points) == 0 {
		return nil
	}

	tolerance := d.atrFraction * atr
	if tolerance <= 0 {
		tolerance = currentPrice * d.fallbackTol
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].price < points[j].price
	})

	var levels []model.KeyLevel
	cluster := []swingPoint{points[0]}
	sum := points[0].price

	flush := func() {
		mean := sum / float64(len(cluster))
		levels = append(levels, model.KeyLevel{
			Price:           mean,
			Kind:            kindFor(mean, currentPrice),
			Strength:        len(cluster),
			SourceTimeframe: dominantTimeframe(cluster),
		})
	}

	for _, point := range points[1:] {
		mean := sum / float64(len(cluster))
		if point.price-mean <= tolerance {
			cluster = append(cluster, point)
			sum += point.price
			continue
		}
		flush()
		cluster = []swingPoint{point}
		sum = point.price
	}
	flush()

	levels = trimWeakLevels(levels, currentPrice, d.maxPerSide)

	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Price < levels[j].Price
	})
	return levels
}

func kindFor(level, currentPrice float64) model.LevelKind {
	if level < currentPrice {
		return model.LevelSupport
	}
	return model.LevelResistance
}

// dominantTimeframe is the timeframe contributing the most swings to a
// cluster; ties go to the first contributor
func dominantTimeframe(cluster []swingPoint) model.Timeframe {
	counts := make(map[model.Timeframe]int, len(cluster))
	best := cluster[0].timeframe
	for _, point := range cluster {
		counts[point.timeframe]++
		if counts[point.timeframe] > counts[best] {
			best = point.timeframe
		}
	}
	return best
}

// trimWeakLevels keeps the strongest maxPerSide levels on each side of the
// current price, so a long history cannot flood the level calculator
func trimWeakLevels(levels []model.KeyLevel, currentPrice float64, maxPerSide int) []model.KeyLevel {
	var support, resistance []model.KeyLevel
	for _, level := range levels {
		if level.Kind == model.LevelSupport {
			support = append(support, level)
		} else {
			resistance = append(resistance, level)
		}
	}

	byStrength := func(side []model.KeyLevel) []model.KeyLevel {
		sort.Slice(side, func(i, j int) bool {
			return side[i].Strength > side[j].Strength
		})
		if len(side) > maxPerSide {
			side = side[:maxPerSide]
		}
		return side
	}

	return append(byStrength(support), byStrength(resistance)...)
}
