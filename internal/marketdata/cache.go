package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"forex-signal-engine/internal/model"
)

// CachedProvider fronts a Provider with a short-lived Redis cache of candle
// batches. Cache failures degrade to direct fetches, never to errors.
type CachedProvider struct {
	inner  Provider
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedProvider wraps a provider with a Redis candle cache
func NewCachedProvider(inner Provider, client *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: log.With().Str("component", "candle_cache").Logger(),
	}
}

func cacheKey(instrument string, timeframe model.Timeframe, count int) string {
	return fmt.Sprintf("candles:%s:%s:%d", instrument, timeframe, count)
}

// GetCandles returns cached candles when fresh, otherwise fetches and caches
func (p *CachedProvider) GetCandles(ctx context.Context, instrument string, timeframe model.Timeframe, count int) ([]model.Candle, error) {
	key := cacheKey(instrument, timeframe, count)

	if raw, err := p.client.Get(ctx, key).Bytes(); err == nil {
		var candles []model.Candle
		if err := json.Unmarshal(raw, &candles); err == nil {
			p.logger.Debug().Str("key", key).Msg("Candle cache hit")
			return candles, nil
		}
		p.logger.Warn().Str("key", key).Msg("Discarding unreadable cache entry")
	} else if err != redis.Nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("Candle cache unavailable")
	}

	candles, err := p.inner.GetCandles(ctx, instrument, timeframe, count)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(candles); err == nil {
		if err := p.client.Set(ctx, key, raw, p.ttl).Err(); err != nil {
			p.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache candles")
		}
	}

	return candles, nil
}

// GetCurrentPrice always goes to the source; quotes are too short-lived to cache
func (p *CachedProvider) GetCurrentPrice(ctx context.Context, instrument string) (model.Price, error) {
	return p.inner.GetCurrentPrice(ctx, instrument)
}
