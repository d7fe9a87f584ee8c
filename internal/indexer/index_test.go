package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/karte/internal/embedding"
	"github.com/hyperjump/karte/internal/knowledge"
	"github.com/hyperjump/karte/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestIndexer(t *testing.T, root string) (*Indexer, *embedding.MockEmbedder) {
	t.Helper()
	emb := embedding.NewMockEmbedder(8)
	return NewIndexer(knowledge.NewLoader(root), emb, 50), emb
}

func TestTenantIndex_SearchFiltersBeforeRanking(t *testing.T) {
	ctx := context.Background()
	idx, emb := newTestIndexer(t, t.TempDir())
	emb.Set("high blood pressure basics", 1, 0)
	emb.Set("sugar levels and insulin", 0.6, 0.8)
	emb.Set("sleep eight hours", 0.9, 0.1)
	emb.Set("query", 1, 0)

	sources := []knowledge.Source{
		{Path: "diseases/hypertension.txt", Category: models.CategoryDisease, Disease: "hypertension", Sections: []string{"high blood pressure basics"}},
		{Path: "diseases/diabetes.txt", Category: models.CategoryDisease, Disease: "diabetes", Sections: []string{"sugar levels and insulin"}},
		{Path: "wellness/sleep.txt", Category: models.CategoryWellness, Sections: []string{"sleep eight hours"}},
	}
	ti, err := idx.BuildFromSources(ctx, "clinic", sources)
	require.NoError(t, err)
	require.Equal(t, 3, ti.Size())

	q, err := emb.Embed(ctx, "query")
	require.NoError(t, err)

	hits, err := ti.Search(ctx, q, 5, func(ch *models.Chunk) bool {
		return ch.Category == models.CategoryDisease && ch.Disease == "diabetes"
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "diabetes", hits[0].Chunk.Disease)

	all, err := ti.Search(ctx, q, 5, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "diseases/hypertension.txt", all[0].Chunk.Source)
	assert.Equal(t, "wellness/sleep.txt", all[1].Chunk.Source)
	assert.GreaterOrEqual(t, all[0].Score, all[1].Score)
}

func TestTenantIndex_StatsAndDiseases(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndexer(t, t.TempDir())
	ti, err := idx.BuildFromSources(ctx, "clinic", []knowledge.Source{
		{Path: "diseases/diabetes.txt", Category: models.CategoryDisease, Disease: "diabetes", Sections: []string{"insulin"}},
		{Path: "diseases/asthma.txt", Category: models.CategoryDisease, Disease: "asthma", Sections: []string{"inhaler technique", "triggers"}},
		{Path: "templates/certificate.txt", Category: models.CategoryTemplate, Sections: []string{"DRAFT certificate"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"asthma", "diabetes"}, ti.Diseases())
	assert.True(t, ti.HasDisease("asthma"))
	assert.False(t, ti.HasDisease("hypertension"))

	stats := ti.Stats()
	assert.Equal(t, "clinic", stats.Tenant)
	assert.Equal(t, 4, stats.TotalChunks)
	assert.Equal(t, 3, stats.Categories[models.CategoryDisease])
	assert.Equal(t, 1, stats.Categories[models.CategoryTemplate])
	assert.Equal(t, 8, stats.Dimensions)
}

func TestIndexer_BuildEmptySourcesIsValid(t *testing.T) {
	idx, emb := newTestIndexer(t, t.TempDir())
	ti, err := idx.BuildFromSources(context.Background(), "empty", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ti.Size())

	q, _ := emb.Embed(context.Background(), "anything")
	hits, err := ti.Search(context.Background(), q, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndexer_BuildRejectsInconsistentChunks(t *testing.T) {
	idx, _ := newTestIndexer(t, t.TempDir())
	_, err := idx.BuildFromSources(context.Background(), "clinic", []knowledge.Source{
		{Path: "diseases/x.txt", Category: models.CategoryDisease, Sections: []string{"missing disease id"}},
	})
	assert.Error(t, err)
}

func TestIndexer_BuildIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "clinic", "diseases", "hypertension.txt"), "Blood pressure.\n---\nSalt intake.")
	writeFile(t, filepath.Join(root, "clinic", "wellness", "sleep.md"), "Sleep well.")
	idx, _ := newTestIndexer(t, root)

	a, err := idx.Build(context.Background(), "clinic")
	require.NoError(t, err)
	b, err := idx.Build(context.Background(), "clinic")
	require.NoError(t, err)
	require.Equal(t, a.Size(), b.Size())
	for i, ch := range a.Chunks() {
		other := b.Chunks()[i]
		assert.Equal(t, ch.ID, other.ID)
		assert.Equal(t, ch.Content, other.Content)
		assert.Equal(t, ch.Embedding, other.Embedding)
	}
}

func TestIndexer_BuildUnknownTenant(t *testing.T) {
	idx, _ := newTestIndexer(t, t.TempDir())
	_, err := idx.Build(context.Background(), "nobody")
	assert.ErrorIs(t, err, knowledge.ErrTenantNotFound)
}

func TestRegistry_LoadReindexAndFailureKeepsOldIndex(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "clinic", "diseases", "diabetes.txt"), "Insulin basics.")
	idx, _ := newTestIndexer(t, root)
	reg := NewRegistry(idx)

	_, ok := reg.Get("clinic")
	assert.False(t, ok)

	first, err := reg.Load(ctx, "clinic")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Size())

	again, err := reg.Load(ctx, "clinic")
	require.NoError(t, err)
	assert.Same(t, first, again)

	writeFile(t, filepath.Join(root, "clinic", "wellness", "walk.txt"), "Walk daily.")
	second, err := reg.Reindex(ctx, "clinic")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Size())
	assert.Equal(t, 1, first.Size(), "old index must not be mutated")

	require.NoError(t, os.RemoveAll(filepath.Join(root, "clinic")))
	_, err = reg.Reindex(ctx, "clinic")
	assert.ErrorIs(t, err, knowledge.ErrTenantNotFound)
	live, ok := reg.Get("clinic")
	require.True(t, ok)
	assert.Same(t, second, live)
	assert.Equal(t, []string{"clinic"}, reg.Tenants())
}

func TestRegistry_ConcurrentReadersDuringReindex(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "clinic", "guidelines", "general.txt"), "General guidance.\n---\nMore guidance.")
	idx, emb := newTestIndexer(t, root)
	reg := NewRegistry(idx)
	_, err := reg.Load(ctx, "clinic")
	require.NoError(t, err)
	q, _ := emb.Embed(ctx, "guidance")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ti, ok := reg.Get("clinic")
				if !assert.True(t, ok) {
					return
				}
				hits, err := ti.Search(ctx, q, 5, nil)
				assert.NoError(t, err)
				assert.Len(t, hits, ti.Size())
			}
		}()
	}
	for i := 0; i < 5; i++ {
		_, err := reg.Reindex(ctx, "clinic")
		require.NoError(t, err)
	}
	wg.Wait()
}
