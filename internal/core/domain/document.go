package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Priority is the static trust tier assigned to a source repository.
// Higher tiers receive a score multiplier during ranking.
type Priority string

// Priority tiers, ordered high to low.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether the priority is one of the known tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank returns an ordinal for tie-breaking (higher is more trusted).
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Document represents a single source file registered for retrieval.
// It is immutable once processed; a re-sync of the same path supersedes it.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Repository identifies the source repository the file belongs to.
	Repository string

	// Path is the file path within the repository.
	Path string

	// Content is the full raw text of the file.
	Content string

	// ContentHash is the SHA-256 hex digest of Content, used for
	// change detection so unchanged files are not re-indexed.
	ContentHash string

	// Priority is the source repository's trust tier.
	Priority Priority

	// Categories are the repository's category tags (e.g. "api", "guide").
	Categories []string

	// CreatedAt is when the document was first indexed.
	CreatedAt time.Time

	// UpdatedAt is when the document was last re-indexed.
	UpdatedAt time.Time
}

// RepositoryMeta describes the repository a document came from.
// Supplied by the caller at ingestion time.
type RepositoryMeta struct {
	// Name is the repository identifier.
	Name string

	// Priority is the configured trust tier for this repository.
	Priority Priority

	// Categories are the repository's category tags.
	Categories []string
}

// FileChange is a change notification from a source provider.
type FileChange struct {
	// Repository is the repository containing the changed file.
	Repository string

	// Path is the changed file's path.
	Path string

	// Deleted is true when the file was removed rather than modified.
	Deleted bool
}

// HashContent computes the SHA-256 hex digest used for ContentHash.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
