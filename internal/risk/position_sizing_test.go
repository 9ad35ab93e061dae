package risk

import (
	"math"
	"testing"
)

func TestPositionSize(t *testing.T) {
	tests := []struct {
		name         string
		entry        float64
		stopLoss     float64
		accountSize  float64
		riskPerTrade float64
		want         float64
	}{
		{"long 20 pip stop", 1.0850, 1.0830, 10000, 0.01, 50000},
		{"short side symmetric", 1.0830, 1.0850, 10000, 0.01, 50000},
		{"zero stop distance", 1.0850, 1.0850, 10000, 0.01, 0},
		{"zero account", 1.0850, 1.0830, 0, 0.01, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PositionSize(tt.entry, tt.stopLoss, tt.accountSize, tt.riskPerTrade)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("PositionSize() = %.2f, want %.2f", got, tt.want)
			}
		})
	}
}

func TestKellyFraction(t *testing.T) {
	tests := []struct {
		name       string
		winRate    float64
		riskReward float64
		want       float64
	}{
		{"solid edge", 0.55, 2.0, 0.25}, // 0.55 - 0.45/2 = 0.325, capped
		{"thin edge", 0.40, 2.0, 0.10},
		{"no edge", 0.30, 2.0, 0},
		{"invalid risk reward", 0.55, 0, 0},
		{"degenerate win rate", 1.0, 2.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KellyFraction(tt.winRate, tt.riskReward)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("KellyFraction(%.2f, %.1f) = %.4f, want %.4f", tt.winRate, tt.riskReward, got, tt.want)
			}
		})
	}
}

func TestAdjustForVolatility(t *testing.T) {
	if got := AdjustForVolatility(100, 2.0); got != 50 {
		t.Errorf("high volatility adjustment = %.2f, want 50", got)
	}
	if got := AdjustForVolatility(100, 0.5); got != 120 {
		t.Errorf("low volatility adjustment = %.2f, want 120", got)
	}
	if got := AdjustForVolatility(100, 1.0); got != 100 {
		t.Errorf("normal volatility adjustment = %.2f, want 100", got)
	}
}
