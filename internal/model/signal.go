package model

import "time"

// SignalType is the directional decision of a generated signal
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

// SignalOutcome is the realized result of an actionable signal, recorded by
// the outcome tracker after the fact
type SignalOutcome string

const (
	OutcomeHitTakeProfit SignalOutcome = "HIT_TP"
	OutcomeHitStopLoss   SignalOutcome = "HIT_SL"
	OutcomeExpired       SignalOutcome = "EXPIRED"
)

// TechnicalSnapshot is the supporting evidence attached to a signal
type TechnicalSnapshot struct {
	Timeframes []TimeframeAnalysis `json:"timeframes"`
	Confluence ConfluenceResult    `json:"confluence"`
	Regime     VolatilityRegime    `json:"volatility_regime"`
	KeyLevels  []KeyLevel          `json:"key_levels"`
	ATR        float64             `json:"atr"`
}

// TradingSignal is the immutable output of one generation call.
// StopLoss and TakeProfit are nil for HOLD signals.
type TradingSignal struct {
	ID         string            `json:"id"`
	Instrument string            `json:"instrument"`
	Type       SignalType        `json:"signal_type"`
	EntryPrice float64           `json:"entry_price"`
	StopLoss   *float64          `json:"stop_loss,omitempty"`
	TakeProfit *float64          `json:"take_profit,omitempty"`
	Confidence float64           `json:"confidence_score"`
	RiskReward float64           `json:"risk_reward_ratio,omitempty"`
	AIAnalysis string            `json:"ai_analysis,omitempty"`
	Snapshot   TechnicalSnapshot `json:"technical_snapshot"`
	CreatedAt  time.Time         `json:"created_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}
