package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"forex-signal-engine/internal/config"
	"forex-signal-engine/internal/model"
	"forex-signal-engine/internal/outcome"
)

type fakeProvider struct {
	candles    map[model.Timeframe][]model.Candle
	price      model.Price
	priceErr   error
	candlesErr error
}

func (f *fakeProvider) GetCandles(_ context.Context, _ string, tf model.Timeframe, _ int) ([]model.Candle, error) {
	if f.candlesErr != nil {
		return nil, f.candlesErr
	}
	return f.candles[tf], nil
}

func (f *fakeProvider) GetCurrentPrice(_ context.Context, instrument string) (model.Price, error) {
	if f.priceErr != nil {
		return model.Price{}, f.priceErr
	}
	price := f.price
	price.Instrument = instrument
	return price, nil
}

type fakeGenerator struct {
	text  string
	err   error
	calls int
}

func (f *fakeGenerator) GenerateAnalysis(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Instrument:  "EUR/USD",
		Timeframes:  []model.Timeframe{model.TimeframeM15, model.TimeframeM30},
		CandleCount: 100,

		RSIPeriod:        14,
		MACDFastPeriod:   12,
		MACDSlowPeriod:   26,
		MACDSignalPeriod: 9,
		BBPeriod:         20,
		BBStdDev:         2.0,
		ATRPeriod:        14,

		SwingWindow:        5,
		ClusterATRFraction: 0.1,

		ConfluenceThreshold: 60,
		TimeframeWeights: map[model.Timeframe]float64{
			model.TimeframeM15: 1,
			model.TimeframeM30: 2,
		},

		MinSLATRMultiple: 1.0,
		MaxSLATRMultiple: 4.0,
		MinTPATRMultiple: 2.0,
		MaxTPATRMultiple: 8.0,
		MinRiskReward:    1.5,

		HighVolatilityRatio: 0.005,
		LowVolatilityRatio:  0.001,

		SignalTTL: 4 * time.Hour,
	}
}

func trendingCandles(n int, start, step float64) []model.Candle {
	candles := make([]model.Candle, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price := start + float64(i)*step
		candles[i] = model.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      price,
			High:      price + 0.0005,
			Low:       price - 0.0005,
			Close:     price,
		}
	}
	return candles
}

func uptrendProvider() *fakeProvider {
	up := trendingCandles(100, 1.0800, 0.0002)
	last := up[len(up)-1].Close
	return &fakeProvider{
		candles: map[model.Timeframe][]model.Candle{
			model.TimeframeM15: up,
			model.TimeframeM30: up,
		},
		price: model.Price{Bid: last - 0.0001, Ask: last + 0.0001, Time: time.Now().UTC()},
	}
}

func TestGenerateSignalBuyInvariants(t *testing.T) {
	cfg := testConfig()
	provider := uptrendProvider()
	tracker := outcome.NewMemoryTracker(cfg.TimeframeWeights)

	eng := New(cfg, provider, nil, tracker)
	signal, err := eng.GenerateSignal(context.Background(), cfg.Instrument)
	if err != nil {
		t.Fatalf("GenerateSignal() error = %v", err)
	}

	if signal.Type != model.SignalBuy {
		t.Fatalf("signal type = %v, want BUY (confluence %.0f)", signal.Type, signal.Confidence)
	}
	if signal.StopLoss == nil || signal.TakeProfit == nil {
		t.Fatal("BUY signal missing levels")
	}
	if !(*signal.StopLoss < signal.EntryPrice && signal.EntryPrice < *signal.TakeProfit) {
		t.Errorf("BUY ordering violated: sl %.5f, entry %.5f, tp %.5f",
			*signal.StopLoss, signal.EntryPrice, *signal.TakeProfit)
	}
	if signal.RiskReward < cfg.MinRiskReward {
		t.Errorf("risk reward = %.2f, want >= %.2f", signal.RiskReward, cfg.MinRiskReward)
	}
	if signal.Confidence < cfg.ConfluenceThreshold {
		t.Errorf("confidence = %.2f, want >= threshold", signal.Confidence)
	}
	if !signal.ExpiresAt.After(signal.CreatedAt) {
		t.Error("expiry must be after creation")
	}
	if signal.ID == "" {
		t.Error("signal missing ID")
	}

	// The whole object must survive JSON encoding: no NaN or Infinity
	if _, err := json.Marshal(signal); err != nil {
		t.Errorf("signal not JSON-safe: %v", err)
	}
}

func TestGenerateSignalSellInvariants(t *testing.T) {
	cfg := testConfig()
	down := trendingCandles(100, 1.1000, -0.0002)
	last := down[len(down)-1].Close
	provider := &fakeProvider{
		candles: map[model.Timeframe][]model.Candle{
			model.TimeframeM15: down,
			model.TimeframeM30: down,
		},
		price: model.Price{Bid: last - 0.0001, Ask: last + 0.0001},
	}

	eng := New(cfg, provider, nil, nil)
	signal, err := eng.GenerateSignal(context.Background(), cfg.Instrument)
	if err != nil {
		t.Fatalf("GenerateSignal() error = %v", err)
	}

	if signal.Type != model.SignalSell {
		t.Fatalf("signal type = %v, want SELL", signal.Type)
	}
	if !(*signal.TakeProfit < signal.EntryPrice && signal.EntryPrice < *signal.StopLoss) {
		t.Errorf("SELL ordering violated: tp %.5f, entry %.5f, sl %.5f",
			*signal.TakeProfit, signal.EntryPrice, *signal.StopLoss)
	}
}

func TestGenerateSignalHoldOnSidewaysMarket(t *testing.T) {
	cfg := testConfig()
	flat := trendingCandles(100, 1.0850, 0)
	provider := &fakeProvider{
		candles: map[model.Timeframe][]model.Candle{
			model.TimeframeM15: flat,
			model.TimeframeM30: flat,
		},
		price: model.Price{Bid: 1.0849, Ask: 1.0851},
	}

	eng := New(cfg, provider, nil, nil)
	signal, err := eng.GenerateSignal(context.Background(), cfg.Instrument)
	if err != nil {
		t.Fatalf("GenerateSignal() error = %v", err)
	}

	if signal.Type != model.SignalHold {
		t.Fatalf("signal type = %v, want HOLD", signal.Type)
	}
	if signal.StopLoss != nil || signal.TakeProfit != nil {
		t.Error("HOLD signal must omit stop loss and take profit")
	}
	if _, err := json.Marshal(signal); err != nil {
		t.Errorf("HOLD signal not JSON-safe: %v", err)
	}
}

func TestGenerateSignalIdempotence(t *testing.T) {
	cfg := testConfig()
	provider := uptrendProvider()

	eng := New(cfg, provider, nil, nil)
	first, err := eng.GenerateSignal(context.Background(), cfg.Instrument)
	if err != nil {
		t.Fatalf("GenerateSignal() error = %v", err)
	}
	second, err := eng.GenerateSignal(context.Background(), cfg.Instrument)
	if err != nil {
		t.Fatalf("GenerateSignal() error = %v", err)
	}

	if first.Type != second.Type ||
		first.EntryPrice != second.EntryPrice ||
		*first.StopLoss != *second.StopLoss ||
		*first.TakeProfit != *second.TakeProfit ||
		first.RiskReward != second.RiskReward ||
		first.Confidence != second.Confidence {
		t.Errorf("same inputs produced different numbers:\n%+v\n%+v", first, second)
	}
}

func TestGenerateSignalInsufficientData(t *testing.T) {
	cfg := testConfig()
	short := trendingCandles(30, 1.0800, 0.0002)
	provider := &fakeProvider{
		candles: map[model.Timeframe][]model.Candle{
			model.TimeframeM15: short,
			model.TimeframeM30: short,
		},
		price: model.Price{Bid: 1.0849, Ask: 1.0851},
	}

	eng := New(cfg, provider, nil, nil)
	if _, err := eng.GenerateSignal(context.Background(), cfg.Instrument); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("GenerateSignal() error = %v, want ErrInsufficientData", err)
	}
}

func TestGenerateSignalPriceFetchFailure(t *testing.T) {
	cfg := testConfig()
	provider := uptrendProvider()
	provider.priceErr = errors.New("pricing endpoint down")

	eng := New(cfg, provider, nil, nil)
	if _, err := eng.GenerateSignal(context.Background(), cfg.Instrument); err == nil {
		t.Error("expected error when price fetch fails")
	}
}

func TestGenerateSignalNarrativeBestEffort(t *testing.T) {
	cfg := testConfig()

	t.Run("failure is non-fatal", func(t *testing.T) {
		generator := &fakeGenerator{err: errors.New("model overloaded")}
		eng := New(cfg, uptrendProvider(), generator, nil)

		signal, err := eng.GenerateSignal(context.Background(), cfg.Instrument)
		if err != nil {
			t.Fatalf("GenerateSignal() error = %v", err)
		}
		if signal.AIAnalysis != "" {
			t.Error("failed narrative must be omitted")
		}
		if generator.calls != 1 {
			t.Errorf("generator calls = %d, want 1", generator.calls)
		}
	})

	t.Run("success attaches verbatim", func(t *testing.T) {
		generator := &fakeGenerator{text: "Strong bullish confluence across timeframes."}
		eng := New(cfg, uptrendProvider(), generator, nil)

		signal, err := eng.GenerateSignal(context.Background(), cfg.Instrument)
		if err != nil {
			t.Fatalf("GenerateSignal() error = %v", err)
		}
		if signal.AIAnalysis != generator.text {
			t.Errorf("ai_analysis = %q, want %q", signal.AIAnalysis, generator.text)
		}
	})

	t.Run("hold skips the generator", func(t *testing.T) {
		flat := trendingCandles(100, 1.0850, 0)
		provider := &fakeProvider{
			candles: map[model.Timeframe][]model.Candle{
				model.TimeframeM15: flat,
				model.TimeframeM30: flat,
			},
			price: model.Price{Bid: 1.0849, Ask: 1.0851},
		}
		generator := &fakeGenerator{text: "should not be used"}
		eng := New(cfg, provider, generator, nil)

		signal, err := eng.GenerateSignal(context.Background(), cfg.Instrument)
		if err != nil {
			t.Fatalf("GenerateSignal() error = %v", err)
		}
		if signal.Type != model.SignalHold {
			t.Fatalf("signal type = %v, want HOLD", signal.Type)
		}
		if generator.calls != 0 {
			t.Errorf("generator calls = %d, want 0 for HOLD", generator.calls)
		}
	})
}
