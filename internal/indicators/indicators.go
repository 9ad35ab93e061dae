package indicators

import (
	"fmt"
	"math"

	"forex-signal-engine/internal/model"
)

// Periods configures every lookback used by the snapshot calculation
type Periods struct {
	RSI        int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	BB         int
	BBStdDev   float64
	ATR        int
}

// DefaultPeriods are the standard settings: RSI(14), MACD(12,26,9),
// Bollinger(20, 2σ), ATR(14)
func DefaultPeriods() Periods {
	return Periods{
		RSI:        14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		BB:         20,
		BBStdDev:   2.0,
		ATR:        14,
	}
}

// minCandles is the shortest series the full snapshot can be computed from
func (p Periods) minCandles() int {
	required := p.MACDSlow + p.MACDSignal
	for _, n := range []int{p.RSI + 1, p.BB, p.ATR + 1, 50} {
		if n > required {
			required = n
		}
	}
	return required
}

// Snapshot computes every indicator for the latest bar of the series.
// SMA200 is included only when the series is long enough for it; every
// other indicator is mandatory and a short series fails with
// ErrInsufficientData.
func Snapshot(candles []model.Candle, periods Periods) (model.IndicatorSnapshot, error) {
	if len(candles) < periods.minCandles() {
		return model.IndicatorSnapshot{}, fmt.Errorf(
			"snapshot needs %d candles, have %d: %w",
			periods.minCandles(), len(candles), model.ErrInsufficientData)
	}

	rsi, err := RSI(candles, periods.RSI)
	if err != nil {
		return model.IndicatorSnapshot{}, err
	}

	macd, macdSignal, macdHist, err := MACD(candles, periods.MACDFast, periods.MACDSlow, periods.MACDSignal)
	if err != nil {
		return model.IndicatorSnapshot{}, err
	}

	bbUpper, bbMiddle, bbLower, err := BollingerBands(candles, periods.BB, periods.BBStdDev)
	if err != nil {
		return model.IndicatorSnapshot{}, err
	}

	atr, err := ATR(candles, periods.ATR)
	if err != nil {
		return model.IndicatorSnapshot{}, err
	}

	snapshot := model.IndicatorSnapshot{
		RSI:        rsi,
		MACD:       macd,
		MACDSignal: macdSignal,
		MACDHist:   macdHist,
		BBUpper:    bbUpper,
		BBMiddle:   bbMiddle,
		BBLower:    bbLower,
		EMA9:       EMA(candles, 9),
		EMA21:      EMA(candles, 21),
		EMA50:      EMA(candles, 50),
		SMA20:      SMA(candles, 20),
		SMA50:      SMA(candles, 50),
		ATR:        atr,
		Close:      candles[len(candles)-1].Close,
	}

	if len(candles) >= 200 {
		snapshot.SMA200 = SMA(candles, 200)
	}

	return snapshot, nil
}

// RSI computes the Relative Strength Index with Wilder smoothing
func RSI(candles []model.Candle, period int) (float64, error) {
	if len(candles) < period+1 {
		return 0, fmt.Errorf("RSI(%d) needs %d candles, have %d: %w",
			period, period+1, len(candles), model.ErrInsufficientData)
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := candles[i].Close - candles[i-1].Close
		if change >= 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing over the remainder of the series
	for i := period + 1; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if change >= 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), nil
}

// MACD computes the MACD line, signal line, and histogram
func MACD(candles []model.Candle, fast, slow, signal int) (float64, float64, float64, error) {
	if len(candles) < slow+signal {
		return 0, 0, 0, fmt.Errorf("MACD(%d,%d,%d) needs %d candles, have %d: %w",
			fast, slow, signal, slow+signal, len(candles), model.ErrInsufficientData)
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	fastSeries := emaSeries(closes, fast)
	slowSeries := emaSeries(closes, slow)

	// MACD line exists from the point the slow EMA is defined
	macdLine := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		macdLine = append(macdLine, fastSeries[i]-slowSeries[i])
	}

	signalSeries := emaSeries(macdLine, signal)

	macd := macdLine[len(macdLine)-1]
	signalValue := signalSeries[len(signalSeries)-1]
	return macd, signalValue, macd - signalValue, nil
}

// BollingerBands computes upper, middle, and lower bands
func BollingerBands(candles []model.Candle, period int, stdDevs float64) (float64, float64, float64, error) {
	if len(candles) < period {
		return 0, 0, 0, fmt.Errorf("Bollinger(%d) needs %d candles, have %d: %w",
			period, period, len(candles), model.ErrInsufficientData)
	}

	middle := SMA(candles, period)

	var variance float64
	for i := len(candles) - period; i < len(candles); i++ {
		diff := candles[i].Close - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	return middle + stdDevs*stdDev, middle, middle - stdDevs*stdDev, nil
}

// ATR computes the Average True Range with Wilder smoothing
func ATR(candles []model.Candle, period int) (float64, error) {
	if len(candles) < period+1 {
		return 0, fmt.Errorf("ATR(%d) needs %d candles, have %d: %w",
			period, period+1, len(candles), model.ErrInsufficientData)
	}

	trueRanges := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		highLow := candles[i].High - candles[i].Low
		highPrevClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowPrevClose := math.Abs(candles[i].Low - candles[i-1].Close)
		trueRanges = append(trueRanges, math.Max(highLow, math.Max(highPrevClose, lowPrevClose)))
	}

	var atr float64
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)

	for i := period; i < len(trueRanges); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}

	return atr, nil
}

// EMA computes the exponential moving average of the closes. Series shorter
// than the period collapse to the last close.
func EMA(candles []model.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if len(candles) < period {
		return candles[len(candles)-1].Close
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	series := emaSeries(closes, period)
	return series[len(series)-1]
}

// SMA computes the simple moving average of the last period closes
func SMA(candles []model.Candle, period int) float64 {
	if len(candles) < period || period == 0 {
		return 0
	}

	var sum float64
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period)
}

// emaSeries returns a full EMA series aligned with values; entries before
// the seed window hold the running seed average
func emaSeries(values []float64, period int) []float64 {
	series := make([]float64, len(values))
	if len(values) == 0 {
		return series
	}
	if period > len(values) {
		period = len(values)
	}

	// Seed with the SMA of the first window
	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
		series[i] = seed / float64(i+1)
	}
	seed /= float64(period)
	series[period-1] = seed

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		series[i] = (values[i]-series[i-1])*multiplier + series[i-1]
	}
	return series
}
