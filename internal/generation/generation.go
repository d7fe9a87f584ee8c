// Package generation turns prompts into raw document text, either through an
// OpenAI-compatible chat backend or, when none is configured, from built-in templates.
package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/karte/internal/config"
	"github.com/hyperjump/karte/internal/metrics"
	"github.com/hyperjump/karte/internal/models"
	"github.com/hyperjump/karte/internal/prompt"
)

// ErrEmptyOutput is returned when a backend produces no usable text.
var ErrEmptyOutput = errors.New("generation backend returned no content")

// Generator produces raw text for a prompt.
type Generator interface {
	Generate(ctx context.Context, p *prompt.Prompt) (string, error)
	Name() string
}

// New returns the OpenAI generator when an API key is configured, otherwise the
// template generator.
func New(cfg config.GenerationConfig, opts ...OpenAIOption) Generator {
	if cfg.HasBackend() {
		return NewOpenAIGenerator(cfg, opts...)
	}
	return NewTemplateGenerator()
}

// Client is the pipeline's entry to generation. It short-circuits insufficient-data
// prompts and maps backend failures to request errors.
type Client struct {
	gen     Generator
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records backend latency.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient wraps gen.
func NewClient(gen Generator, opts ...ClientOption) *Client {
	c := &Client{gen: gen, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the name of the underlying generator.
func (c *Client) Backend() string {
	return c.gen.Name()
}

// Generate returns raw text for p. An insufficient-data prompt never reaches the
// generator and yields InsufficientDataError.
func (c *Client) Generate(ctx context.Context, p *prompt.Prompt) (string, error) {
	if p.Insufficient {
		return "", models.NewInsufficientDataError()
	}
	start := time.Now()
	text, err := c.gen.Generate(ctx, p)
	c.metrics.GenerationTime(c.gen.Name(), time.Since(start))
	if err != nil {
		c.logger.Warn("generation failed", zap.String("backend", c.gen.Name()), zap.Error(err))
		var domainErr *models.Error
		if errors.As(err, &domainErr) {
			return "", domainErr
		}
		return "", models.NewGenerationUnavailableError(err)
	}
	if strings.TrimSpace(text) == "" {
		return "", models.NewGenerationUnavailableError(ErrEmptyOutput)
	}
	return text, nil
}
