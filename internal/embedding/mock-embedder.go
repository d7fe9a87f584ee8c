package embedding

import (
	"context"
	"fmt"
	"sync"
)

// MockEmbedder is a controllable embedder for tests. Texts registered with Set get the
// given vector (normalized); all other texts fall back to a HashEmbedder. Err, when
// set, is returned from every call.
type MockEmbedder struct {
	dimensions int
	fallback   *HashEmbedder
	mu         sync.Mutex
	fixed      map[string][]float32
	calls      int
	Err        error
}

// NewMockEmbedder returns a mock embedder of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	fallback, _ := NewHashEmbedder(dimensions, 128)
	return &MockEmbedder{
		dimensions: dimensions,
		fallback:   fallback,
		fixed:      make(map[string][]float32),
	}
}

// Set pins the embedding for text. vec is padded or truncated to the mock's dimensions.
func (e *MockEmbedder) Set(text string, vec ...float32) {
	v := make([]float32, e.dimensions)
	copy(v, vec)
	NormalizeL2Slice(v)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fixed[text] = v
}

// Calls returns how many texts have been embedded.
func (e *MockEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Embed returns the pinned vector for text, or the hashed one.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	err := e.Err
	v, ok := e.fixed[text]
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("mock embed: %w", err)
	}
	if ok {
		return v, nil
	}
	return e.fallback.Embed(ctx, text)
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedAll(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
