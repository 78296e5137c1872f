package driven

import (
	"context"

	"github.com/custodia-labs/docbrief/internal/core/domain"
)

// DocumentChunker splits one document into an ordered sequence of
// typed, metadata-tagged chunks. Pure from the core's perspective:
// persistence and embedding are the caller's responsibility.
type DocumentChunker interface {
	// Chunk splits the document's content into retrievable chunks.
	// Malformed structure degrades to best effort rather than failing;
	// a recoverable parse problem is reported alongside the chunks.
	Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
