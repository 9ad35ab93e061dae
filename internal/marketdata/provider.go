package marketdata

import (
	"context"

	"forex-signal-engine/internal/model"
)

// Provider fetches market data for one instrument. Implementations must
// return candles in chronological order, oldest first.
type Provider interface {
	GetCandles(ctx context.Context, instrument string, timeframe model.Timeframe, count int) ([]model.Candle, error)
	GetCurrentPrice(ctx context.Context, instrument string) (model.Price, error)
}
