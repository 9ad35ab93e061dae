package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"forex-signal-engine/internal/analysis/confluence"
	"forex-signal-engine/internal/analysis/market"
	"forex-signal-engine/internal/analysis/structure"
	"forex-signal-engine/internal/config"
	"forex-signal-engine/internal/indicators"
	"forex-signal-engine/internal/levels"
	"forex-signal-engine/internal/marketdata"
	"forex-signal-engine/internal/model"
	"forex-signal-engine/internal/narrative"
	"forex-signal-engine/internal/outcome"
)

// Engine runs the full signal-generation pipeline for one instrument:
// fetch, indicators, confluence, key levels, level calculation, assembly.
type Engine struct {
	provider   marketdata.Provider
	generator  narrative.Generator // nil disables narratives
	tracker    outcome.Tracker     // nil falls back to configured weights
	detector   *structure.Detector
	calculator *levels.Calculator
	cfg        *config.Config
	logger     zerolog.Logger
}

// New wires the pipeline from its collaborators. generator and tracker
// may be nil.
func New(cfg *config.Config, provider marketdata.Provider, generator narrative.Generator, tracker outcome.Tracker) *Engine {
	return &Engine{
		provider:  provider,
		generator: generator,
		tracker:   tracker,
		detector:  structure.NewDetector(cfg.SwingWindow, cfg.ClusterATRFraction),
		calculator: levels.NewCalculator(levels.Bounds{
			MinSLATRMultiple: cfg.MinSLATRMultiple,
			MaxSLATRMultiple: cfg.MaxSLATRMultiple,
			MinTPATRMultiple: cfg.MinTPATRMultiple,
			MaxTPATRMultiple: cfg.MaxTPATRMultiple,
			MinRiskReward:    cfg.MinRiskReward,
		}),
		cfg:    cfg,
		logger: log.With().Str("component", "signal_engine").Logger(),
	}
}

// GenerateSignal produces one TradingSignal for the instrument. Degraded
// setups come back as well-formed HOLD signals; only missing data and
// failed fetches are errors.
func (e *Engine) GenerateSignal(ctx context.Context, instrument string) (*model.TradingSignal, error) {
	price, err := e.provider.GetCurrentPrice(ctx, instrument)
	if err != nil {
		return nil, fmt.Errorf("fetching current price: %w", err)
	}
	entry := price.Mid()
	if entry <= 0 || math.IsNaN(entry) {
		return nil, fmt.Errorf("unusable price for %s: %w", instrument, model.ErrInsufficientData)
	}

	analyses, err := e.analyzeTimeframes(ctx, instrument)
	if err != nil {
		return nil, err
	}

	conf, err := e.analyzeConfluence(ctx, analyses)
	if err != nil {
		return nil, err
	}

	// The highest configured timeframe anchors volatility and levels;
	// its ATR is the unit every distance bound is expressed in
	anchor := analyses[len(analyses)-1]
	atr := anchor.Indicators.ATR
	regime := market.ClassifyVolatility(atr, entry, market.RegimeBounds{
		High: e.cfg.HighVolatilityRatio,
		Low:  e.cfg.LowVolatilityRatio,
	})
	keyLevels := e.detector.ClusterLevels(analyses, entry, atr)

	snapshot := model.TechnicalSnapshot{
		Timeframes: analyses,
		Confluence: conf,
		Regime:     regime,
		KeyLevels:  keyLevels,
		ATR:        atr,
	}

	signal := e.assemble(ctx, instrument, entry, atr, regime, snapshot)

	e.logger.Info().
		Str("instrument", instrument).
		Str("type", string(signal.Type)).
		Float64("confluence", conf.Score).
		Float64("risk_reward", signal.RiskReward).
		Msg("Signal generated")

	return signal, nil
}

// analyzeTimeframes fetches and analyzes every configured timeframe
// concurrently and joins the results in configured order
func (e *Engine) analyzeTimeframes(ctx context.Context, instrument string) ([]model.TimeframeAnalysis, error) {
	type timeframeResult struct {
		index    int
		analysis model.TimeframeAnalysis
		err      error
	}

	results := make(chan timeframeResult, len(e.cfg.Timeframes))
	for i, tf := range e.cfg.Timeframes {
		go func(index int, timeframe model.Timeframe) {
			analysis, err := e.analyzeTimeframe(ctx, instrument, timeframe)
			results <- timeframeResult{index: index, analysis: analysis, err: err}
		}(i, tf)
	}

	analyses := make([]model.TimeframeAnalysis, len(e.cfg.Timeframes))
	var firstErr error
	for range e.cfg.Timeframes {
		res := <-results
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
		analyses[res.index] = res.analysis
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return analyses, nil
}

func (e *Engine) analyzeTimeframe(ctx context.Context, instrument string, tf model.Timeframe) (model.TimeframeAnalysis, error) {
	candles, err := e.provider.GetCandles(ctx, instrument, tf, e.cfg.CandleCount)
	if err != nil {
		return model.TimeframeAnalysis{}, fmt.Errorf("fetching %s candles: %w", tf, err)
	}

	snapshot, err := indicators.Snapshot(candles, indicators.Periods{
		RSI:        e.cfg.RSIPeriod,
		MACDFast:   e.cfg.MACDFastPeriod,
		MACDSlow:   e.cfg.MACDSlowPeriod,
		MACDSignal: e.cfg.MACDSignalPeriod,
		BB:         e.cfg.BBPeriod,
		BBStdDev:   e.cfg.BBStdDev,
		ATR:        e.cfg.ATRPeriod,
	})
	if err != nil {
		return model.TimeframeAnalysis{}, fmt.Errorf("analyzing %s: %w", tf, err)
	}

	highs, lows := e.detector.DetectSwings(candles)

	return model.TimeframeAnalysis{
		Timeframe:  tf,
		Indicators: snapshot,
		Trend:      confluence.DeriveTrend(snapshot),
		SwingHighs: highs,
		SwingLows:  lows,
	}, nil
}

func (e *Engine) analyzeConfluence(ctx context.Context, analyses []model.TimeframeAnalysis) (model.ConfluenceResult, error) {
	weights := e.cfg.TimeframeWeights
	if e.tracker != nil {
		current, err := e.tracker.CurrentWeights(ctx)
		if err != nil {
			e.logger.Warn().Err(err).Msg("Outcome tracker unavailable, using configured weights")
		} else {
			weights = current
		}
	}

	return confluence.NewAnalyzer(weights).Analyze(analyses)
}

// assemble applies the decision rule and packages the final signal.
// BUY/SELL requires confluence at or above threshold AND a risk/reward at
// or above the minimum; everything else is a HOLD with levels omitted.
func (e *Engine) assemble(
	ctx context.Context,
	instrument string,
	entry, atr float64,
	regime model.VolatilityRegime,
	snapshot model.TechnicalSnapshot,
) *model.TradingSignal {
	now := time.Now().UTC()
	signal := &model.TradingSignal{
		ID:         uuid.NewString(),
		Instrument: instrument,
		Type:       model.SignalHold,
		EntryPrice: entry,
		Confidence: snapshot.Confluence.Score,
		Snapshot:   snapshot,
		CreatedAt:  now,
		ExpiresAt:  now.Add(e.cfg.SignalTTL),
	}

	direction := model.SignalHold
	if snapshot.Confluence.Score >= e.cfg.ConfluenceThreshold {
		switch snapshot.Confluence.OverallTrend {
		case model.TrendBullish:
			direction = model.SignalBuy
		case model.TrendBearish:
			direction = model.SignalSell
		}
	}

	if direction != model.SignalHold {
		result, err := e.calculator.Calculate(direction, entry, atr, regime, snapshot.KeyLevels)
		switch {
		case err != nil:
			e.logger.Warn().Err(err).Msg("Level calculation failed, holding")
		case result.Degraded:
			e.logger.Debug().Str("instrument", instrument).Msg("Risk/reward below minimum, holding")
		default:
			signal.Type = direction
			signal.StopLoss = &result.StopLoss
			signal.TakeProfit = &result.TakeProfit
			signal.RiskReward = result.RiskReward
		}
	}

	sanitizeSignal(signal)

	if e.generator != nil && signal.Type != model.SignalHold {
		prompt := narrative.FormatSignalPrompt(instrument, signal.Type, entry, snapshot)
		text, err := e.generator.GenerateAnalysis(ctx, prompt)
		if err != nil {
			e.logger.Warn().Err(err).Msg("Narrative generation failed, proceeding without")
		} else {
			signal.AIAnalysis = text
		}
	}

	return signal
}

// sanitizeSignal strips NaN and Infinity from every outgoing float; the
// JSON boundary downstream cannot represent them
func sanitizeSignal(signal *model.TradingSignal) {
	signal.EntryPrice = cleanFloat(signal.EntryPrice)
	signal.Confidence = cleanFloat(signal.Confidence)
	signal.RiskReward = cleanFloat(signal.RiskReward)
	signal.StopLoss = cleanFloatPtr(signal.StopLoss)
	signal.TakeProfit = cleanFloatPtr(signal.TakeProfit)

	snapshot := &signal.Snapshot
	snapshot.ATR = cleanFloat(snapshot.ATR)
	snapshot.Confluence.Score = cleanFloat(snapshot.Confluence.Score)
	for i := range snapshot.Timeframes {
		sanitizeSnapshot(&snapshot.Timeframes[i].Indicators)
	}
	for i := range snapshot.KeyLevels {
		snapshot.KeyLevels[i].Price = cleanFloat(snapshot.KeyLevels[i].Price)
	}
}

func sanitizeSnapshot(s *model.IndicatorSnapshot) {
	fields := []*float64{
		&s.RSI, &s.MACD, &s.MACDSignal, &s.MACDHist,
		&s.BBUpper, &s.BBMiddle, &s.BBLower,
		&s.EMA9, &s.EMA21, &s.EMA50,
		&s.SMA20, &s.SMA50, &s.SMA200,
		&s.ATR, &s.Close,
	}
	for _, f := range fields {
		*f = cleanFloat(*f)
	}
}

func cleanFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func cleanFloatPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	if math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil
	}
	return f
}
