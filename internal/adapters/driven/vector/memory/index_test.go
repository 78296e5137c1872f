package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docbrief/internal/core/ports/driven"
)

func seedIndex(t *testing.T) *Index {
	t.Helper()
	index := NewIndex()
	ctx := context.Background()

	vectors := map[string][]float32{
		"docs:a.md:0": {1, 0, 0},
		"docs:a.md:1": {0.9, 0.1, 0},
		"docs:b.md:0": {0, 1, 0},
		"apis:c.md:0": {0, 0, 1},
	}
	payloads := map[string]driven.VectorPayload{
		"docs:a.md:0": {Repository: "docs", Path: "a.md", Ordinal: 0, Category: "guide"},
		"docs:a.md:1": {Repository: "docs", Path: "a.md", Ordinal: 1, Category: "guide"},
		"docs:b.md:0": {Repository: "docs", Path: "b.md", Ordinal: 0, Category: "api"},
		"apis:c.md:0": {Repository: "apis", Path: "c.md", Ordinal: 0, Category: "api"},
	}
	for id, vector := range vectors {
		require.NoError(t, index.Upsert(ctx, id, vector, payloads[id]))
	}
	return index
}

func TestIndex_SearchOrdersByScore(t *testing.T) {
	index := seedIndex(t)

	hits, err := index.Search(context.Background(), []float32{1, 0, 0}, 10, 0, nil)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	assert.Equal(t, "docs:a.md:0", hits[0].ID)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestIndex_SearchThresholdAndLimit(t *testing.T) {
	index := seedIndex(t)
	ctx := context.Background()

	// Orthogonal vectors score 0.5 after remapping; 0.6 keeps only
	// the near-parallel ones.
	hits, err := index.Search(ctx, []float32{1, 0, 0}, 10, 0.6, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = index.Search(ctx, []float32{1, 0, 0}, 1, 0, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndex_SearchFilters(t *testing.T) {
	index := seedIndex(t)
	ctx := context.Background()

	t.Run("repository", func(t *testing.T) {
		hits, err := index.Search(ctx, []float32{1, 1, 1}, 10, 0,
			&driven.VectorFilter{Repositories: []string{"apis"}})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "apis:c.md:0", hits[0].ID)
	})

	t.Run("category", func(t *testing.T) {
		hits, err := index.Search(ctx, []float32{1, 1, 1}, 10, 0,
			&driven.VectorFilter{Categories: []string{"api"}})
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("path", func(t *testing.T) {
		hits, err := index.Search(ctx, []float32{1, 1, 1}, 10, 0,
			&driven.VectorFilter{Path: "b.md"})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "docs:b.md:0", hits[0].ID)
	})
}

func TestIndex_UpsertReplaces(t *testing.T) {
	index := seedIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, "docs:a.md:0", []float32{0, 0, 1}, driven.VectorPayload{
		Repository: "docs", Path: "a.md",
	}))

	hits, err := index.Search(ctx, []float32{0, 0, 1}, 1, 0,
		&driven.VectorFilter{Repositories: []string{"docs"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "docs:a.md:0", hits[0].ID)

	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.IndexedVectorCount)
}

func TestIndex_DeleteByFile(t *testing.T) {
	index := seedIndex(t)
	ctx := context.Background()

	err := index.Delete(ctx, driven.VectorFilter{Repositories: []string{"docs"}, Path: "a.md"})
	require.NoError(t, err)

	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.IndexedVectorCount)
	assert.Equal(t, 2, stats.DocumentCount)

	hits, err := index.Search(ctx, []float32{1, 0, 0}, 10, 0, nil)
	require.NoError(t, err)
	for _, hit := range hits {
		assert.NotEqual(t, "a.md", hit.Payload.Path)
	}
}

func TestIndex_Stats(t *testing.T) {
	index := seedIndex(t)

	stats, err := index.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.DocumentCount)
	assert.Equal(t, 4, stats.ChunkCount)
	assert.Equal(t, 4, stats.IndexedVectorCount)
}
