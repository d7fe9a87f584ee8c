package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	ctx := context.Background()
	idx, err := NewMemoryIndex(3)
	require.NoError(t, err)

	require.NoError(t, idx.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0, 0}, {0, 1, 0}}))
	assert.Equal(t, 2, idx.Size())

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "b", results[1].ID)
}

func TestMemoryIndex_FilterAppliesBeforeRanking(t *testing.T) {
	ctx := context.Background()
	idx, err := NewMemoryIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx,
		[]string{"best-but-excluded", "ok", "worse"},
		[][]float32{{1, 0}, {0.6, 0.8}, {0, 1}},
	))

	allowed := map[string]bool{"ok": true, "worse": true}
	results, err := idx.Search(ctx, []float32{1, 0}, 1, func(id string) bool { return allowed[id] })
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].ID)

	none, err := idx.Search(ctx, []float32{1, 0}, 5, func(string) bool { return false })
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryIndex_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx, err := NewMemoryIndex(2)
	require.NoError(t, err)
	ids := []string{"first", "second", "third", "fourth"}
	vecs := [][]float32{{0, 1}, {0, 1}, {0, 1}, {0, 1}}
	require.NoError(t, idx.Add(ctx, ids, vecs))

	for i := 0; i < 5; i++ {
		results, err := idx.Search(ctx, []float32{0, 1}, 3, nil)
		require.NoError(t, err)
		got := []string{results[0].ID, results[1].ID, results[2].ID}
		assert.Equal(t, []string{"first", "second", "third"}, got)
	}
}

func TestMemoryIndex_Rejects(t *testing.T) {
	ctx := context.Background()
	_, err := NewMemoryIndex(0)
	assert.Error(t, err)

	idx, err := NewMemoryIndex(2)
	require.NoError(t, err)
	assert.Error(t, idx.Add(ctx, []string{"a"}, nil), "length mismatch")
	assert.Error(t, idx.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}}), "wrong dimension")
	assert.Error(t, idx.Add(ctx, []string{"a"}, [][]float32{{2, 0}}), "not normalized")
	require.NoError(t, idx.Add(ctx, []string{"a"}, [][]float32{{1, 0}}))
	assert.Error(t, idx.Add(ctx, []string{"a"}, [][]float32{{0, 1}}), "duplicate id")

	_, err = idx.Search(ctx, []float32{1}, 1, nil)
	assert.Error(t, err)
	res, err := idx.Search(ctx, []float32{1, 0}, 0, nil)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestInnerProductAndNorm(t *testing.T) {
	assert.InDelta(t, 0.0, InnerProduct([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 0.0, InnerProduct([]float32{1}, []float32{1, 2}), 1e-9)
	assert.InDelta(t, 5.0, L2Norm([]float32{3, 4}), 1e-9)
	assert.True(t, IsUnit([]float32{0.6, 0.8}, 1e-6))
	assert.False(t, IsUnit([]float32{1, 1}, 1e-6))
}
