package confluence

import (
	"errors"
	"math"
	"testing"

	"forex-signal-engine/internal/model"
)

func TestDeriveTrend(t *testing.T) {
	tests := []struct {
		name     string
		snapshot model.IndicatorSnapshot
		want     model.TrendLabel
	}{
		{
			name:     "price above rising averages",
			snapshot: model.IndicatorSnapshot{Close: 1.09, SMA20: 1.085, SMA50: 1.08},
			want:     model.TrendBullish,
		},
		{
			name:     "price below falling averages",
			snapshot: model.IndicatorSnapshot{Close: 1.07, SMA20: 1.075, SMA50: 1.08},
			want:     model.TrendBearish,
		},
		{
			name:     "averages crossed",
			snapshot: model.IndicatorSnapshot{Close: 1.09, SMA20: 1.08, SMA50: 1.085},
			want:     model.TrendSideways,
		},
		{
			name:     "price between averages",
			snapshot: model.IndicatorSnapshot{Close: 1.082, SMA20: 1.085, SMA50: 1.08},
			want:     model.TrendSideways,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTrend(tt.snapshot); got != tt.want {
				t.Errorf("DeriveTrend() = %v, want %v", got, tt.want)
			}
		})
	}
}

func analysisWith(tf model.Timeframe, trend model.TrendLabel) model.TimeframeAnalysis {
	return model.TimeframeAnalysis{Timeframe: tf, Trend: trend}
}

func TestAnalyzeWeightedMajority(t *testing.T) {
	analyzer := NewAnalyzer(map[model.Timeframe]float64{
		model.TimeframeM1:  1,
		model.TimeframeM5:  2,
		model.TimeframeM15: 3,
		model.TimeframeM30: 4,
	})

	// Weights 2+3+4 = 9 of 10 agree bullish
	result, err := analyzer.Analyze([]model.TimeframeAnalysis{
		analysisWith(model.TimeframeM1, model.TrendBearish),
		analysisWith(model.TimeframeM5, model.TrendBullish),
		analysisWith(model.TimeframeM15, model.TrendBullish),
		analysisWith(model.TimeframeM30, model.TrendBullish),
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.OverallTrend != model.TrendBullish {
		t.Errorf("overall trend = %v, want BULLISH", result.OverallTrend)
	}
	if math.Abs(result.Score-90) > 1e-9 {
		t.Errorf("confluence score = %.2f, want 90", result.Score)
	}
	if result.Agreement[model.TimeframeM1] != model.TrendBearish {
		t.Errorf("agreement map lost the dissenting timeframe")
	}
}

func TestAnalyzeTieResolvesToSideways(t *testing.T) {
	analyzer := NewAnalyzer(map[model.Timeframe]float64{
		model.TimeframeM5:  2,
		model.TimeframeM15: 2,
	})

	result, err := analyzer.Analyze([]model.TimeframeAnalysis{
		analysisWith(model.TimeframeM5, model.TrendBullish),
		analysisWith(model.TimeframeM15, model.TrendBearish),
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.OverallTrend != model.TrendSideways {
		t.Errorf("overall trend on tie = %v, want SIDEWAYS", result.OverallTrend)
	}
}

func TestAnalyzeUnknownTimeframeWeighsOne(t *testing.T) {
	analyzer := NewAnalyzer(map[model.Timeframe]float64{model.TimeframeM5: 3})

	result, err := analyzer.Analyze([]model.TimeframeAnalysis{
		analysisWith(model.TimeframeM5, model.TrendBullish),
		analysisWith(model.TimeframeH4, model.TrendBearish), // not in table
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.OverallTrend != model.TrendBullish {
		t.Errorf("overall trend = %v, want BULLISH", result.OverallTrend)
	}
	if math.Abs(result.Score-75) > 1e-9 {
		t.Errorf("confluence score = %.2f, want 75", result.Score)
	}
}

func TestAnalyzeNotEnoughTimeframes(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	_, err := analyzer.Analyze([]model.TimeframeAnalysis{
		analysisWith(model.TimeframeM5, model.TrendBullish),
	})
	if !errors.Is(err, model.ErrNotEnoughTimeframes) {
		t.Errorf("Analyze() error = %v, want ErrNotEnoughTimeframes", err)
	}
}
