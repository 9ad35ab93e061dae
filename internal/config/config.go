package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"forex-signal-engine/internal/model"
)

// Config holds all application configuration
type Config struct {
	OandaAPIKey    string
	OandaAccountID string
	OandaBaseURL   string
	OpenAIAPIKey   string
	RedisAddr      string
	PostgresDSN    string

	Instrument  string
	Timeframes  []model.Timeframe
	CandleCount int

	RSIPeriod        int
	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int
	BBPeriod         int
	BBStdDev         float64
	ATRPeriod        int

	SwingWindow        int
	ClusterATRFraction float64

	ConfluenceThreshold float64
	TimeframeWeights    map[model.Timeframe]float64

	MinSLATRMultiple float64
	MaxSLATRMultiple float64
	MinTPATRMultiple float64
	MaxTPATRMultiple float64
	MinRiskReward    float64

	HighVolatilityRatio float64 // ATR / price above this is HIGH
	LowVolatilityRatio  float64 // ATR / price below this is LOW

	AccountSize  float64 // 0 disables position sizing output
	RiskPerTrade float64

	SignalTTL        time.Duration
	NarrativeTimeout time.Duration
	RequestTimeout   time.Duration
	CacheTTL         time.Duration
	LogLevel         string
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{
		OandaAPIKey:    os.Getenv("OANDA_API_KEY"),
		OandaAccountID: os.Getenv("OANDA_ACCOUNT_ID"),
		OandaBaseURL:   getEnvWithDefault("OANDA_BASE_URL", "https://api-fxpractice.oanda.com"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),

		Instrument:  getEnvWithDefault("INSTRUMENT", "EUR/USD"),
		Timeframes:  parseTimeframes(getEnvWithDefault("TIMEFRAMES", "M1,M5,M15,M30")),
		CandleCount: getEnvIntWithDefault("CANDLE_COUNT", 250),

		RSIPeriod:        getEnvIntWithDefault("RSI_PERIOD", 14),
		MACDFastPeriod:   getEnvIntWithDefault("MACD_FAST_PERIOD", 12),
		MACDSlowPeriod:   getEnvIntWithDefault("MACD_SLOW_PERIOD", 26),
		MACDSignalPeriod: getEnvIntWithDefault("MACD_SIGNAL_PERIOD", 9),
		BBPeriod:         getEnvIntWithDefault("BB_PERIOD", 20),
		BBStdDev:         getEnvFloatWithDefault("BB_STD_DEV", 2.0),
		ATRPeriod:        getEnvIntWithDefault("ATR_PERIOD", 14),

		SwingWindow:        getEnvIntWithDefault("SWING_WINDOW", 5),
		ClusterATRFraction: getEnvFloatWithDefault("CLUSTER_ATR_FRACTION", 0.1),

		ConfluenceThreshold: getEnvFloatWithDefault("CONFLUENCE_THRESHOLD", 60),

		MinSLATRMultiple: getEnvFloatWithDefault("MIN_SL_ATR_MULTIPLE", 1.0),
		MaxSLATRMultiple: getEnvFloatWithDefault("MAX_SL_ATR_MULTIPLE", 4.0),
		MinTPATRMultiple: getEnvFloatWithDefault("MIN_TP_ATR_MULTIPLE", 2.0),
		MaxTPATRMultiple: getEnvFloatWithDefault("MAX_TP_ATR_MULTIPLE", 8.0),
		MinRiskReward:    getEnvFloatWithDefault("MIN_RISK_REWARD", 1.5),

		HighVolatilityRatio: getEnvFloatWithDefault("HIGH_VOLATILITY_RATIO", 0.005),
		LowVolatilityRatio:  getEnvFloatWithDefault("LOW_VOLATILITY_RATIO", 0.001),

		AccountSize:  getEnvFloatWithDefault("ACCOUNT_SIZE", 0),
		RiskPerTrade: getEnvFloatWithDefault("RISK_PER_TRADE", 0.01),

		SignalTTL:        time.Duration(getEnvIntWithDefault("SIGNAL_TTL_MINUTES", 240)) * time.Minute,
		NarrativeTimeout: time.Duration(getEnvIntWithDefault("NARRATIVE_TIMEOUT", 15)) * time.Second,
		RequestTimeout:   time.Duration(getEnvIntWithDefault("REQUEST_TIMEOUT", 30)) * time.Second,
		CacheTTL:         time.Duration(getEnvIntWithDefault("CACHE_TTL_SECONDS", 30)) * time.Second,
		LogLevel:         getEnvWithDefault("LOG_LEVEL", "info"),
	}

	cfg.TimeframeWeights = defaultWeights(cfg.Timeframes)

	return cfg, nil
}

// defaultWeights assigns increasing weight to higher timeframes in the
// order they were configured
func defaultWeights(timeframes []model.Timeframe) map[model.Timeframe]float64 {
	weights := make(map[model.Timeframe]float64, len(timeframes))
	for i, tf := range timeframes {
		weights[tf] = float64(i + 1)
	}
	return weights
}

func parseTimeframes(raw string) []model.Timeframe {
	parts := strings.Split(raw, ",")
	timeframes := make([]model.Timeframe, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		timeframes = append(timeframes, model.Timeframe(p))
	}
	return timeframes
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
