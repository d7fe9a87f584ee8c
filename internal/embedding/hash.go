package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
)

// bigramWeight scales adjacent-term features relative to single terms.
const bigramWeight = 0.5

// HashEmbedder maps analyzed terms and adjacent term pairs into a fixed number of
// signed buckets (feature hashing). It needs no model files and is fully deterministic,
// so identical text always yields an identical vector.
type HashEmbedder struct {
	dimensions int
	analyzer   *Analyzer
	cache      *EmbeddingCache
}

// NewHashEmbedder creates a hashing embedder with the given dimensions and cache capacity.
func NewHashEmbedder(dimensions, cacheSize int) (*HashEmbedder, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	return &HashEmbedder{
		dimensions: dimensions,
		analyzer:   NewAnalyzer(),
		cache:      NewEmbeddingCache(cacheSize),
	}, nil
}

// Embed returns the normalized embedding of text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	terms, err := e.analyzer.Terms(text)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, ErrEmptyText
	}

	vec := make([]float32, e.dimensions)
	for i, term := range terms {
		e.addFeature(vec, term, 1)
		if i > 0 {
			e.addFeature(vec, terms[i-1]+" "+term, bigramWeight)
		}
	}
	if !NormalizeL2Slice(vec) {
		return nil, fmt.Errorf("%w: features cancelled out", ErrEmptyText)
	}

	e.cache.Set(text, vec)
	return vec, nil
}

func (e *HashEmbedder) addFeature(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := sum % uint64(e.dimensions)
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedAll(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// CacheHitRate reports the fraction of Embed calls answered from the cache.
func (e *HashEmbedder) CacheHitRate() float64 {
	return e.cache.HitRate()
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}
