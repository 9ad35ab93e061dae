package model

// IndicatorSnapshot holds the computed indicator values for the latest bar
// of one timeframe
type IndicatorSnapshot struct {
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
	BBUpper    float64 `json:"bb_upper"`
	BBMiddle   float64 `json:"bb_middle"`
	BBLower    float64 `json:"bb_lower"`
	EMA9       float64 `json:"ema_9"`
	EMA21      float64 `json:"ema_21"`
	EMA50      float64 `json:"ema_50"`
	SMA20      float64 `json:"sma_20"`
	SMA50      float64 `json:"sma_50"`
	SMA200     float64 `json:"sma_200,omitempty"`
	ATR        float64 `json:"atr"`
	Close      float64 `json:"close"`
}

// TrendLabel classifies the direction of one timeframe
type TrendLabel string

const (
	TrendBullish  TrendLabel = "BULLISH"
	TrendBearish  TrendLabel = "BEARISH"
	TrendSideways TrendLabel = "SIDEWAYS"
)

// TimeframeAnalysis is the full per-timeframe picture fed into confluence
// scoring and level detection
type TimeframeAnalysis struct {
	Timeframe  Timeframe         `json:"timeframe"`
	Indicators IndicatorSnapshot `json:"indicators"`
	Trend      TrendLabel        `json:"trend"`
	SwingHighs []float64         `json:"swing_highs"`
	SwingLows  []float64         `json:"swing_lows"`
}

// ConfluenceResult aggregates trend agreement across timeframes
type ConfluenceResult struct {
	OverallTrend TrendLabel               `json:"overall_trend"`
	Score        float64                  `json:"score"` // 0..100
	Agreement    map[Timeframe]TrendLabel `json:"agreement"`
}

// VolatilityRegime classifies ATR relative to price
type VolatilityRegime string

const (
	VolatilityHigh   VolatilityRegime = "HIGH"
	VolatilityMedium VolatilityRegime = "MEDIUM"
	VolatilityLow    VolatilityRegime = "LOW"
)
