package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuery indicates a malformed query. Rejected before
	// any external call; the wrapping message names the bad field.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrCursorInvalid indicates a continuation cursor that is
	// malformed or belongs to a different query.
	ErrCursorInvalid = errors.New("invalid cursor")

	// ErrUpstreamUnavailable indicates the embedding provider or
	// vector index is unreachable or timed out. Retryable.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Semantic and hybrid strategies are disabled.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexUnavailable indicates the vector index is not
	// configured. Semantic similarity search is disabled.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrParse indicates malformed document structure. Chunking
	// degrades to best effort; the error is recorded, not fatal.
	ErrParse = errors.New("document parse error")

	// ErrCapacity indicates a payload or chunk count over the
	// configured ceiling. Rejected at the boundary, never silently
	// truncated.
	ErrCapacity = errors.New("capacity exceeded")
)
