package driving

import (
	"context"

	"github.com/custodia-labs/docbrief/internal/core/domain"
	"github.com/custodia-labs/docbrief/internal/core/ports/driven"
)

// IngestService turns raw documents into indexed chunks.
type IngestService interface {
	// ProcessDocument chunks one document without persisting anything.
	// Pure from the caller's perspective.
	ProcessDocument(ctx context.Context, path, content string, meta domain.RepositoryMeta) ([]domain.Chunk, error)

	// IndexDocument chunks, embeds and persists one document.
	// A document whose content hash is unchanged is a no-op; a changed
	// document first has its previous chunks removed.
	IndexDocument(ctx context.Context, path, content string, meta domain.RepositoryMeta) ([]domain.Chunk, error)

	// RemoveFile deletes all indexed state for a file.
	RemoveFile(ctx context.Context, repository, path string) error

	// Status returns ingestion progress for a repository.
	Status(ctx context.Context, repository string) (*IngestStatus, error)

	// IngestSource indexes every document the provider yields and
	// returns the final status for the provider's repository.
	IngestSource(ctx context.Context, provider driven.SourceProvider) (*IngestStatus, error)

	// WatchSource applies the provider's change stream until ctx is
	// cancelled or the stream closes.
	WatchSource(ctx context.Context, provider driven.SourceProvider) error
}

// IngestStatus represents the current state of an ingestion run.
type IngestStatus struct {
	// Repository identifies the repository being ingested.
	Repository string

	// Running indicates if ingestion is currently in progress.
	Running bool

	// DocumentsProcessed is the count of documents processed.
	DocumentsProcessed int

	// DocumentsSkipped is the count skipped with unchanged hashes.
	DocumentsSkipped int

	// ErrorCount is the number of errors encountered.
	ErrorCount int
}
