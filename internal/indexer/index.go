package indexer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hyperjump/karte/internal/models"
	"github.com/hyperjump/karte/internal/vector"
)

// TenantIndex is the immutable, fully built index of one tenant. It is safe for
// concurrent readers; a rebuild produces a new TenantIndex instead of mutating this one.
type TenantIndex struct {
	tenant   string
	chunks   []*models.Chunk
	byID     map[string]*models.Chunk
	vectors  *vector.MemoryIndex
	diseases []string
	builtAt  time.Time
}

func newTenantIndex(ctx context.Context, tenant string, dimensions int, chunks []*models.Chunk) (*TenantIndex, error) {
	vecs, err := vector.NewMemoryIndex(dimensions)
	if err != nil {
		return nil, err
	}
	ti := &TenantIndex{
		tenant:  tenant,
		chunks:  chunks,
		byID:    make(map[string]*models.Chunk, len(chunks)),
		vectors: vecs,
		builtAt: time.Now().UTC(),
	}
	ids := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	seen := make(map[string]bool)
	for i, ch := range chunks {
		if !ch.Category.Valid() {
			return nil, fmt.Errorf("chunk %s has unknown category %q", ch.ID, ch.Category)
		}
		if (ch.Category == models.CategoryDisease) != (ch.Disease != "") {
			return nil, fmt.Errorf("chunk %s: disease id must be set exactly for disease chunks", ch.ID)
		}
		ids[i] = ch.ID
		embeddings[i] = ch.Embedding
		ti.byID[ch.ID] = ch
		if ch.Disease != "" && !seen[ch.Disease] {
			seen[ch.Disease] = true
			ti.diseases = append(ti.diseases, ch.Disease)
		}
	}
	sort.Strings(ti.diseases)
	if err := vecs.Add(ctx, ids, embeddings); err != nil {
		return nil, fmt.Errorf("failed to index vectors: %w", err)
	}
	return ti, nil
}

// Search ranks the chunks admitted by keep against query and returns at most k of them.
// keep is evaluated before ranking.
func (ti *TenantIndex) Search(ctx context.Context, query []float32, k int, keep func(*models.Chunk) bool) ([]models.ScoredChunk, error) {
	var filter vector.Filter
	if keep != nil {
		filter = func(id string) bool {
			ch, ok := ti.byID[id]
			return ok && keep(ch)
		}
	}
	hits, err := ti.vectors.Search(ctx, query, k, filter)
	if err != nil {
		return nil, err
	}
	out := make([]models.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, models.ScoredChunk{Chunk: ti.byID[h.ID], Score: h.Score})
	}
	return out, nil
}

// Tenant returns the tenant key.
func (ti *TenantIndex) Tenant() string {
	return ti.tenant
}

// Size returns the number of chunks.
func (ti *TenantIndex) Size() int {
	return len(ti.chunks)
}

// Dimensions returns the embedding dimension.
func (ti *TenantIndex) Dimensions() int {
	return ti.vectors.Dimensions()
}

// BuiltAt returns when the index was built.
func (ti *TenantIndex) BuiltAt() time.Time {
	return ti.builtAt
}

// Chunks returns the chunks in insertion order.
func (ti *TenantIndex) Chunks() []*models.Chunk {
	out := make([]*models.Chunk, len(ti.chunks))
	copy(out, ti.chunks)
	return out
}

// Diseases returns the sorted disease ids present in the index.
func (ti *TenantIndex) Diseases() []string {
	out := make([]string, len(ti.diseases))
	copy(out, ti.diseases)
	return out
}

// HasDisease reports whether any chunk belongs to disease id.
func (ti *TenantIndex) HasDisease(id string) bool {
	i := sort.SearchStrings(ti.diseases, id)
	return i < len(ti.diseases) && ti.diseases[i] == id
}

// Stats summarizes the index.
func (ti *TenantIndex) Stats() models.IndexStats {
	stats := models.IndexStats{
		Tenant:      ti.tenant,
		TotalChunks: len(ti.chunks),
		Categories:  make(map[models.Category]int),
		Diseases:    ti.Diseases(),
		Dimensions:  ti.Dimensions(),
	}
	for _, ch := range ti.chunks {
		stats.Categories[ch.Category]++
	}
	return stats
}
