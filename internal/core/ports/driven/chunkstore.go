package driven

import (
	"context"

	"github.com/custodia-labs/docbrief/internal/core/domain"
)

// ChunkStore persists document and chunk metadata.
// The retrieval scorer reads chunk content and metadata from here;
// embeddings live in the VectorIndex.
type ChunkStore interface {
	// SaveDocument stores or updates a document record.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by repository and path.
	GetDocument(ctx context.Context, repository, path string) (*domain.Document, error)

	// SaveChunks replaces the chunk set for the chunks' file.
	// All chunks must share one (repository, path).
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunk retrieves a chunk by its stable ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks retrieves all chunks for a file in ordinal order.
	GetChunks(ctx context.Context, repository, path string) ([]domain.Chunk, error)

	// ListChunks returns all stored chunks. The structural strategy
	// scans these when no vector candidates constrain the set.
	ListChunks(ctx context.Context) ([]domain.Chunk, error)

	// DeleteFile removes a document record and its chunks.
	DeleteFile(ctx context.Context, repository, path string) error

	// Close releases resources.
	Close() error
}
