package oanda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"forex-signal-engine/internal/marketdata"
	"forex-signal-engine/internal/model"
	httpClient "forex-signal-engine/internal/platform/http"
)

// Client is an OANDA v20 REST API client
type Client struct {
	apiKey     string
	accountID  string
	baseURL    string
	mapper     marketdata.SymbolMapper
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new OANDA client
type ClientOptions struct {
	APIKey          string
	AccountID       string
	BaseURL         string
	Mapper          marketdata.SymbolMapper
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new OANDA API client
func NewClient(options ClientOptions) *Client {
	httpOpts := httpClient.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = "https://api-fxpractice.oanda.com"
	}

	mapper := options.Mapper
	if mapper == nil {
		mapper = marketdata.DefaultMapper()
	}

	return &Client{
		apiKey:     options.APIKey,
		accountID:  options.AccountID,
		baseURL:    baseURL,
		mapper:     mapper,
		httpClient: httpClient.NewClient(httpOpts),
		logger:     log.With().Str("component", "oanda_client").Logger(),
	}
}

// candlesResponse mirrors the OANDA candles endpoint payload
type candlesResponse struct {
	Instrument  string `json:"instrument"`
	Granularity string `json:"granularity"`
	Candles     []struct {
		Complete bool   `json:"complete"`
		Volume   int64  `json:"volume"`
		Time     string `json:"time"`
		Mid      struct {
			Open  string `json:"o"`
			High  string `json:"h"`
			Low   string `json:"l"`
			Close string `json:"c"`
		} `json:"mid"`
	} `json:"candles"`
}

// pricingResponse mirrors the OANDA pricing endpoint payload
type pricingResponse struct {
	Prices []struct {
		Instrument string `json:"instrument"`
		Time       string `json:"time"`
		Bids       []struct {
			Price string `json:"price"`
		} `json:"bids"`
		Asks []struct {
			Price string `json:"price"`
		} `json:"asks"`
	} `json:"prices"`
}

// granularities maps application timeframes to OANDA granularity codes
var granularities = map[model.Timeframe]string{
	model.TimeframeM1:  "M1",
	model.TimeframeM5:  "M5",
	model.TimeframeM15: "M15",
	model.TimeframeM30: "M30",
	model.TimeframeH1:  "H1",
	model.TimeframeH4:  "H4",
	model.TimeframeD1:  "D",
}

// GetCandles fetches candle data from the OANDA candles endpoint
func (c *Client) GetCandles(ctx context.Context, instrument string, timeframe model.Timeframe, count int) ([]model.Candle, error) {
	granularity, ok := granularities[timeframe]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %q", timeframe)
	}

	native := c.mapper.ToNative(instrument)
	endpoint := fmt.Sprintf(
		"%s/v3/instruments/%s/candles?granularity=%s&count=%d&price=M",
		c.baseURL, native, granularity, count,
	)

	c.logger.Debug().
		Str("instrument", native).
		Str("granularity", granularity).
		Int("count", count).
		Msg("Fetching candles")

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching candles for %s %s: %w", native, granularity, err)
	}

	var data candlesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error().Err(err).Str("response", string(body)).Msg("Error parsing candles JSON")
		return nil, fmt.Errorf("parsing candles JSON: %w", err)
	}

	if len(data.Candles) == 0 {
		c.logger.Warn().Str("response", string(body)).Msg("No candles in response")
		return nil, fmt.Errorf("%s %s: %w", native, granularity, model.ErrInsufficientData)
	}

	candles := make([]model.Candle, 0, len(data.Candles))
	for _, raw := range data.Candles {
		// The newest candle may still be forming; only completed candles
		// are usable for indicator math
		if !raw.Complete {
			continue
		}

		candle, err := parseCandle(raw.Time, raw.Mid.Open, raw.Mid.High, raw.Mid.Low, raw.Mid.Close, raw.Volume)
		if err != nil {
			return nil, fmt.Errorf("parsing candle: %w", err)
		}
		candles = append(candles, candle)
	}

	// Sort oldest first for proper indicator calculations
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	c.logger.Debug().Int("count", len(candles)).Msg("Fetched candles")
	return candles, nil
}

// GetCurrentPrice fetches the live bid/ask quote from the pricing endpoint
func (c *Client) GetCurrentPrice(ctx context.Context, instrument string) (model.Price, error) {
	native := c.mapper.ToNative(instrument)
	endpoint := fmt.Sprintf(
		"%s/v3/accounts/%s/pricing?instruments=%s",
		c.baseURL, c.accountID, url.QueryEscape(native),
	)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return model.Price{}, fmt.Errorf("fetching price for %s: %w", native, err)
	}

	var data pricingResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error().Err(err).Str("response", string(body)).Msg("Error parsing pricing JSON")
		return model.Price{}, fmt.Errorf("parsing pricing JSON: %w", err)
	}

	if len(data.Prices) == 0 || len(data.Prices[0].Bids) == 0 || len(data.Prices[0].Asks) == 0 {
		return model.Price{}, fmt.Errorf("no price for %s: %w", native, model.ErrInsufficientData)
	}

	quote := data.Prices[0]
	bid, err := strconv.ParseFloat(quote.Bids[0].Price, 64)
	if err != nil {
		return model.Price{}, fmt.Errorf("parsing bid: %w", err)
	}
	ask, err := strconv.ParseFloat(quote.Asks[0].Price, 64)
	if err != nil {
		return model.Price{}, fmt.Errorf("parsing ask: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, quote.Time)
	if err != nil {
		ts = time.Now().UTC()
	}

	return model.Price{
		Instrument: c.mapper.ToCanonical(quote.Instrument),
		Bid:        bid,
		Ask:        ask,
		Time:       ts,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return body, nil
}

func parseCandle(rawTime, o, h, l, cl string, volume int64) (model.Candle, error) {
	ts, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return model.Candle{}, err
	}

	open, err := strconv.ParseFloat(o, 64)
	if err != nil {
		return model.Candle{}, err
	}
	high, err := strconv.ParseFloat(h, 64)
	if err != nil {
		return model.Candle{}, err
	}
	low, err := strconv.ParseFloat(l, 64)
	if err != nil {
		return model.Candle{}, err
	}
	closePrice, err := strconv.ParseFloat(cl, 64)
	if err != nil {
		return model.Candle{}, err
	}

	return model.Candle{
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}
