package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docbrief/internal/core/domain"
)

func testChunks(repo, path string, contents ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = domain.Chunk{
			ID:         domain.ChunkID(repo, path, i),
			Repository: repo,
			Path:       path,
			Ordinal:    i,
			Content:    content,
			Type:       domain.ChunkTypeParagraph,
		}
	}
	return chunks
}

func TestChunkStore_DocumentRoundTrip(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	_, err := store.GetDocument(ctx, "docs", "a.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	doc := &domain.Document{
		ID:         "doc-1",
		Repository: "docs",
		Path:       "a.md",
		Content:    "hello",
		Priority:   domain.PriorityHigh,
	}
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "docs", "a.md")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.ID)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
}

func TestChunkStore_SaveChunksReplacesFileSet(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, testChunks("docs", "a.md", "one", "two", "three")))
	require.NoError(t, store.SaveChunks(ctx, testChunks("docs", "a.md", "replaced")))

	chunks, err := store.GetChunks(ctx, "docs", "a.md")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "replaced", chunks[0].Content)
}

func TestChunkStore_GetChunkByID(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, testChunks("docs", "a.md", "one", "two")))

	chunk, err := store.GetChunk(ctx, domain.ChunkID("docs", "a.md", 1))
	require.NoError(t, err)
	assert.Equal(t, "two", chunk.Content)

	_, err = store.GetChunk(ctx, "docs:a.md:99")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChunkStore_ListChunksDeterministic(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, testChunks("zeta", "z.md", "z1", "z2")))
	require.NoError(t, store.SaveChunks(ctx, testChunks("alpha", "a.md", "a1")))

	first, err := store.ListChunks(ctx)
	require.NoError(t, err)
	second, err := store.ListChunks(ctx)
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, "a1", first[0].Content, "files enumerate in key order")
	assert.Equal(t, "z1", first[1].Content)
	assert.Equal(t, 0, first[1].Ordinal)
	assert.Equal(t, 1, first[2].Ordinal)
}

func TestChunkStore_DeleteFile(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{Repository: "docs", Path: "a.md"}))
	require.NoError(t, store.SaveChunks(ctx, testChunks("docs", "a.md", "one")))
	require.NoError(t, store.SaveChunks(ctx, testChunks("docs", "b.md", "other")))

	require.NoError(t, store.DeleteFile(ctx, "docs", "a.md"))

	_, err := store.GetDocument(ctx, "docs", "a.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	chunks, err := store.GetChunks(ctx, "docs", "a.md")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	remaining, err := store.GetChunks(ctx, "docs", "b.md")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
