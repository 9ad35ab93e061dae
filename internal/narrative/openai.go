package narrative

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"forex-signal-engine/internal/model"
)

// Generator produces a free-text rationale for a signal. Implementations
// are best-effort collaborators: callers must tolerate errors and proceed
// without a narrative.
type Generator interface {
	GenerateAnalysis(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient wraps the OpenAI chat completion API
type OpenAIClient struct {
	client  *openai.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewOpenAIClient creates a narrative generator backed by OpenAI
func NewOpenAIClient(apiKey string, timeout time.Duration) *OpenAIClient {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &OpenAIClient{
		client:  openai.NewClient(apiKey),
		timeout: timeout,
		logger:  log.With().Str("component", "openai_client").Logger(),
	}
}

// GenerateAnalysis sends the prompt and returns the completion text
func (c *OpenAIClient) GenerateAnalysis(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		c.logger.Error().Err(err).Msg("OpenAI API error")
		return "", err
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn().Msg("OpenAI returned empty choices")
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}

// FormatSignalPrompt builds a structured prompt from the signal's
// technical evidence
func FormatSignalPrompt(instrument string, direction model.SignalType, price float64, snapshot model.TechnicalSnapshot) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Technical analysis summary for %s (current price %.5f):\n\n", instrument, price))
	sb.WriteString(fmt.Sprintf("Proposed direction: %s\n", direction))
	sb.WriteString(fmt.Sprintf("Multi-timeframe trend: %s (confluence %.0f/100)\n",
		snapshot.Confluence.OverallTrend, snapshot.Confluence.Score))
	sb.WriteString(fmt.Sprintf("Volatility regime: %s (ATR %.5f)\n\n", snapshot.Regime, snapshot.ATR))

	for _, tf := range snapshot.Timeframes {
		ind := tf.Indicators
		sb.WriteString(fmt.Sprintf("%s: trend %s, RSI %.1f, MACD hist %.5f, price vs SMA20 %.5f/%.5f\n",
			tf.Timeframe, tf.Trend, ind.RSI, ind.MACDHist, ind.Close, ind.SMA20))
	}

	if len(snapshot.KeyLevels) > 0 {
		sb.WriteString("\nNearby key levels:\n")
		for _, level := range snapshot.KeyLevels {
			sb.WriteString(fmt.Sprintf("- %.5f (%s, tested %d times)\n", level.Price, level.Kind, level.Strength))
		}
	}

	sb.WriteString("\nWrite a 2-3 sentence trading rationale for this setup. ")
	sb.WriteString("Mention the confluence, the volatility regime, and the most relevant key level.")

	return sb.String()
}
