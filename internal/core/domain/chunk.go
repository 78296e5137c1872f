package domain

import "fmt"

// ChunkType is the structural classification of a chunk.
// It drives scoring weights and templated rendering downstream.
type ChunkType string

// The closed set of chunk types.
const (
	ChunkTypeHeading   ChunkType = "heading"
	ChunkTypeParagraph ChunkType = "paragraph"
	ChunkTypeCode      ChunkType = "code"
	ChunkTypeList      ChunkType = "list"
	ChunkTypeTable     ChunkType = "table"
)

// ChunkMetadata carries optional descriptive fields for a chunk.
type ChunkMetadata struct {
	// Title is the document or section title, when known.
	Title string

	// Description is a short free-text description, when known.
	Description string

	// Language is the programming language of a code chunk,
	// taken from the fence hint (e.g. "bash", "go").
	Language string

	// Category is the repository category this chunk inherits.
	Category string

	// HeadingContext is the breadcrumb of ancestor headings
	// enclosing this chunk, outermost first.
	HeadingContext []string
}

// Chunk is the atomic retrievable unit within a document.
// Chunks are created by the chunker, embedded before persistence,
// superseded on re-sync of their file, and never mutated in place.
type Chunk struct {
	// ID is the stable identity "repository:path:ordinal".
	ID string

	// Repository and Path are the chunk's provenance, used for
	// grouping, deduplication and supersession.
	Repository string
	Path       string

	// Ordinal is the chunk's position within its document.
	Ordinal int

	// Content is the text span. Non-empty, bounded length.
	Content string

	// Type is the structural classification.
	Type ChunkType

	// Metadata carries optional descriptive fields.
	Metadata ChunkMetadata

	// StartChar and EndChar are the chunk's character offsets
	// within the original document content.
	StartChar int
	EndChar   int

	// ContentHash is the parent document's content hash at the
	// time this chunk was produced.
	ContentHash string

	// Embedding is the vector representation. Absent until the
	// chunk has been indexed; unembedded chunks are not searchable.
	Embedding []float32
}

// ChunkID derives the stable chunk identity from its provenance.
// Re-indexing the same file yields the same IDs, which keeps vector
// index upserts addressable and idempotent.
func ChunkID(repository, path string, ordinal int) string {
	return fmt.Sprintf("%s:%s:%d", repository, path, ordinal)
}
