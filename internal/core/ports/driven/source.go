package driven

import (
	"context"

	"github.com/custodia-labs/docbrief/internal/core/domain"
)

// SourceProvider supplies raw document text and change notifications.
// Exclude-pattern filtering and binary detection happen inside the
// provider; anything it emits is eligible for chunking.
type SourceProvider interface {
	// Repository returns the repository metadata this provider serves.
	Repository() domain.RepositoryMeta

	// Documents streams all current documents. The channel closes when
	// enumeration finishes; errors are reported on the second channel.
	Documents(ctx context.Context) (<-chan domain.Document, <-chan error)

	// Changes streams file change notifications until ctx is cancelled.
	Changes(ctx context.Context) (<-chan domain.FileChange, error)

	// Read fetches the current content of one file.
	Read(ctx context.Context, path string) (string, error)

	// Close releases resources.
	Close() error
}
