// Package embedding turns text into unit-length vectors. The default embedder hashes
// analyzed terms into a fixed number of buckets; an ONNX sentence model is available
// in cgo builds.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/karte/internal/config"
)

// ErrEmptyText is returned when text has no terms to embed.
var ErrEmptyText = errors.New("text has no embeddable terms")

// Embedder produces vector embeddings for text. Implementations must be
// deterministic and return L2-normalized vectors of Dimensions() length.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// New creates the embedder selected by cfg.Provider.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "hash", "":
		e, err := NewHashEmbedder(cfg.Dimensions, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "onnx":
		e, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: hash, onnx)", cfg.Provider)
	}
}

// embedAll calls embed for each text, stopping at the first error.
func embedAll(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
