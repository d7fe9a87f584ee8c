package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/karte/internal/embedding"
	"github.com/hyperjump/karte/internal/knowledge"
	"github.com/hyperjump/karte/internal/models"
)

// Indexer builds tenant indexes: load sources, chunk, embed, and index vectors.
type Indexer struct {
	loader   *knowledge.Loader
	embedder embedding.Embedder
	chunker  *Chunker
	logger   *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for build events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer reading tenant knowledge through loader.
func NewIndexer(loader *knowledge.Loader, embedder embedding.Embedder, chunkSize int, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		loader:   loader,
		embedder: embedder,
		chunker:  NewChunker(chunkSize),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Loader returns the knowledge loader the indexer reads from.
func (idx *Indexer) Loader() *knowledge.Loader {
	return idx.loader
}

// Build loads the tenant's knowledge directory and returns a complete index of it.
// It returns knowledge.ErrTenantNotFound when the tenant has no directory.
func (idx *Indexer) Build(ctx context.Context, tenant string) (*TenantIndex, error) {
	sources, err := idx.loader.Load(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return idx.BuildFromSources(ctx, tenant, sources)
}

// cacheReporter is implemented by embedders that cache by text.
type cacheReporter interface {
	CacheHitRate() float64
}

// BuildFromSources indexes already loaded sources. An empty source set yields a valid,
// empty index.
func (idx *Indexer) BuildFromSources(ctx context.Context, tenant string, sources []knowledge.Source) (*TenantIndex, error) {
	var chunks []*models.Chunk
	for _, src := range sources {
		chunks = append(chunks, idx.chunker.Chunk(tenant, src)...)
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	ti, err := newTenantIndex(ctx, tenant, idx.embedder.Dimensions(), chunks)
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{
		zap.String("tenant", tenant),
		zap.Int("sources", len(sources)),
		zap.Int("chunks", ti.Size()),
	}
	if c, ok := idx.embedder.(cacheReporter); ok {
		fields = append(fields, zap.Float64("embedding_cache_hit_rate", c.CacheHitRate()))
	}
	idx.logger.Info("tenant index built", fields...)
	return ti, nil
}
