package generation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/karte/internal/config"
	"github.com/hyperjump/karte/internal/metrics"
	"github.com/hyperjump/karte/internal/prompt"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryDelay = 500 * time.Millisecond
)

// ChatClient is the subset of the go-openai client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIGenerator calls an OpenAI-compatible chat completion endpoint.
type OpenAIGenerator struct {
	client      ChatClient
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	retryDelay  time.Duration
	limiter     *rate.Limiter
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// OpenAIOption configures an OpenAIGenerator.
type OpenAIOption func(*OpenAIGenerator)

// WithChatClient replaces the HTTP client, e.g. with a test double.
func WithChatClient(c ChatClient) OpenAIOption {
	return func(g *OpenAIGenerator) { g.client = c }
}

// WithRetryDelay sets the pause before the retry.
func WithRetryDelay(d time.Duration) OpenAIOption {
	return func(g *OpenAIGenerator) { g.retryDelay = d }
}

// WithOpenAILogger sets a logger for retries.
func WithOpenAILogger(l *zap.Logger) OpenAIOption {
	return func(g *OpenAIGenerator) { g.logger = l }
}

// WithOpenAIMetrics counts retries.
func WithOpenAIMetrics(m *metrics.Metrics) OpenAIOption {
	return func(g *OpenAIGenerator) { g.metrics = m }
}

// NewOpenAIGenerator builds a generator from cfg.
func NewOpenAIGenerator(cfg config.GenerationConfig, opts ...OpenAIOption) *OpenAIGenerator {
	g := &OpenAIGenerator{
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.TemperatureOrDefault(),
		timeout:     cfg.Timeout,
		retryDelay:  defaultRetryDelay,
		logger:      zap.NewNop(),
	}
	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	g.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60), max(1, rpm/10))
	for _, opt := range opts {
		opt(g)
	}
	if g.client == nil {
		oc := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		g.client = openai.NewClientWithConfig(oc)
	}
	return g
}

// Name implements Generator.
func (g *OpenAIGenerator) Name() string {
	return "openai"
}

// Generate sends p as a system and user message. A transport, rate-limit or server
// failure is retried once with the same request.
func (g *OpenAIGenerator) Generate(ctx context.Context, p *prompt.Prompt) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.Text},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}
	if req.Temperature == 0 {
		// A zero temperature is dropped from the request body by omitempty.
		req.Temperature = math.SmallestNonzeroFloat32
	}

	var lastErr error
	for attempt := 0; attempt < config.GenerationAttempts; attempt++ {
		if attempt > 0 {
			g.metrics.BackendRetry()
			g.logger.Warn("retrying chat completion", zap.Error(lastErr))
			select {
			case <-time.After(g.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		text, err := g.complete(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

// retryable reports whether err may clear on a second attempt: transport failures,
// rate limiting and server errors. Empty output and other API rejections are final.
func retryable(err error) bool {
	if errors.Is(err, ErrEmptyOutput) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= 500 || apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= 500 || reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return true
}

func (g *OpenAIGenerator) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyOutput
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyOutput
	}
	return text, nil
}
