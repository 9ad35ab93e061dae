package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"forex-signal-engine/internal/config"
	"forex-signal-engine/internal/engine"
	"forex-signal-engine/internal/marketdata"
	"forex-signal-engine/internal/marketdata/oanda"
	"forex-signal-engine/internal/model"
	"forex-signal-engine/internal/narrative"
	"forex-signal-engine/internal/outcome"
	"forex-signal-engine/internal/risk"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandling(cancel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogging(cfg.LogLevel)
	log.Info().Msg("Starting signal engine")
	printConfig(cfg)

	provider := buildProvider(cfg)
	generator := buildGenerator(cfg)
	tracker := buildTracker(cfg)

	eng := engine.New(cfg, provider, generator, tracker)

	signalResult, err := eng.GenerateSignal(ctx, cfg.Instrument)
	if err != nil {
		log.Fatal().Err(err).Str("instrument", cfg.Instrument).Msg("Signal generation failed")
	}

	output, err := json.MarshalIndent(signalResult, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode signal")
	}
	fmt.Println(string(output))

	printPositionSize(cfg, signalResult)
}

// printPositionSize suggests a position size for actionable signals when
// an account size is configured
func printPositionSize(cfg *config.Config, sig *model.TradingSignal) {
	if cfg.AccountSize <= 0 || sig.Type == model.SignalHold || sig.StopLoss == nil {
		return
	}

	units := risk.PositionSize(sig.EntryPrice, *sig.StopLoss, cfg.AccountSize, cfg.RiskPerTrade)
	log.Info().
		Float64("units", units).
		Float64("account_risk", cfg.RiskPerTrade).
		Msg("Suggested position size")
}

// setupSignalHandling configures signal handling for graceful shutdown
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, exiting...")
		cancel()
	}()
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

// printConfig outputs the effective configuration
func printConfig(cfg *config.Config) {
	timeframes := make([]string, len(cfg.Timeframes))
	for i, tf := range cfg.Timeframes {
		timeframes[i] = string(tf)
	}

	log.Info().
		Str("Instrument", cfg.Instrument).
		Strs("Timeframes", timeframes).
		Int("CandleCount", cfg.CandleCount).
		Float64("ConfluenceThreshold", cfg.ConfluenceThreshold).
		Float64("MinRiskReward", cfg.MinRiskReward).
		Bool("NarrativeEnabled", cfg.OpenAIAPIKey != "").
		Bool("CacheEnabled", cfg.RedisAddr != "").
		Bool("OutcomeStoreEnabled", cfg.PostgresDSN != "").
		Msg("Configuration loaded")
}

func buildProvider(cfg *config.Config) marketdata.Provider {
	var provider marketdata.Provider = oanda.NewClient(oanda.ClientOptions{
		APIKey:         cfg.OandaAPIKey,
		AccountID:      cfg.OandaAccountID,
		BaseURL:        cfg.OandaBaseURL,
		Mapper:         marketdata.DefaultMapper(),
		RequestTimeout: cfg.RequestTimeout,
		RequestsPerSec: 5,
	})

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		provider = marketdata.NewCachedProvider(provider, client, cfg.CacheTTL)
		log.Info().Str("addr", cfg.RedisAddr).Msg("Candle cache enabled")
	}

	return provider
}

func buildGenerator(cfg *config.Config) narrative.Generator {
	if cfg.OpenAIAPIKey == "" {
		log.Info().Msg("No OpenAI key configured, narratives disabled")
		return nil
	}
	return narrative.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.NarrativeTimeout)
}

func buildTracker(cfg *config.Config) outcome.Tracker {
	if cfg.PostgresDSN == "" {
		return outcome.NewMemoryTracker(cfg.TimeframeWeights)
	}

	store, err := outcome.NewStore(cfg.PostgresDSN, cfg.TimeframeWeights)
	if err != nil {
		log.Warn().Err(err).Msg("Outcome store unavailable, using in-memory tracker")
		return outcome.NewMemoryTracker(cfg.TimeframeWeights)
	}
	return store
}
