package driven

import "context"

// VectorIndex provides approximate nearest-neighbour search over chunk
// embeddings. It is the only owner of persisted retrieval state; chunks
// are keyed by their stable "repository:path:ordinal" identity so
// re-indexing is addressable and idempotent.
type VectorIndex interface {
	// Upsert inserts or replaces the vector and payload for a chunk ID.
	Upsert(ctx context.Context, id string, embedding []float32, payload VectorPayload) error

	// Search finds the nearest neighbours to the query vector.
	// Candidates scoring below threshold are excluded, not down-ranked.
	// A non-nil filter restricts candidates by payload fields.
	Search(ctx context.Context, query []float32, limit int, threshold float64, filter *VectorFilter) ([]VectorHit, error)

	// Delete removes all vectors matching the filter. Used to
	// supersede a changed file's chunks before re-inserting.
	Delete(ctx context.Context, filter VectorFilter) error

	// Stats reports index size counters.
	Stats(ctx context.Context) (IndexStats, error)

	// Close releases resources.
	Close() error
}

// VectorPayload is the metadata stored alongside a vector.
type VectorPayload struct {
	// Repository and Path identify the chunk's source file.
	Repository string
	Path       string

	// Ordinal is the chunk position within the document.
	Ordinal int

	// Category is the repository category, when set.
	Category string

	// Language is the code language, when set.
	Language string
}

// VectorFilter restricts search or delete to matching payloads.
// Zero-valued fields do not constrain.
type VectorFilter struct {
	// Repositories matches any of the named repositories.
	Repositories []string

	// Path matches an exact file path.
	Path string

	// Categories matches any of the named categories.
	Categories []string
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ID is the matched chunk identity.
	ID string

	// Score is the similarity score in [0,1], cosine by convention.
	Score float64

	// Payload is the stored metadata.
	Payload VectorPayload
}

// IndexStats reports vector index size counters.
type IndexStats struct {
	DocumentCount      int
	ChunkCount         int
	IndexedVectorCount int
}
