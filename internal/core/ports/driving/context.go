package driving

import (
	"context"

	"github.com/custodia-labs/docbrief/internal/core/domain"
)

// ContextRequest bundles a query with context assembly parameters.
type ContextRequest struct {
	// Query is the retrieval request, including strategy and MaxResults.
	Query domain.Query

	// Budget bounds the assembled page. Zero fields are unbounded.
	Budget domain.ContextBudget

	// Level selects overview or detailed assembly (default detailed).
	Level domain.Granularity
}

// ContextService answers task queries with ranked, bounded evidence.
type ContextService interface {
	// Search performs single-pass ranked retrieval.
	Search(ctx context.Context, query domain.Query) ([]domain.ScoredChunk, domain.SearchInfo, error)

	// GenerateContext runs retrieval plus size-bounded assembly and
	// returns the first context page.
	GenerateContext(ctx context.Context, req ContextRequest) (*domain.ContextPage, error)

	// GetContextPage resumes assembly at the given cursor without
	// re-running retrieval semantics; the same query and cursor return
	// the same page while the index is unchanged.
	GetContextPage(ctx context.Context, req ContextRequest, cursor string) (*domain.ContextPage, error)
}
