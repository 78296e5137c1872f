package domain

import (
	"fmt"
	"strings"
	"time"
)

// Strategy selects how a query is scored.
type Strategy string

// Available retrieval strategies.
const (
	// StrategySemantic ranks purely by vector similarity.
	StrategySemantic Strategy = "semantic"

	// StrategyStructural ranks purely by keyword/structural overlap.
	StrategyStructural Strategy = "structural"

	// StrategyHybrid combines semantic and structural scores.
	// This is the default.
	StrategyHybrid Strategy = "hybrid"

	// StrategyDegraded marks a response that fell back to a weaker
	// strategy than requested. Only appears in response metadata.
	StrategyDegraded Strategy = "degraded"
)

// Query limits.
const (
	DefaultMaxResults = 20
	MaxResultsCeiling = 100
)

// Query is a natural-language retrieval request.
// Filters are hard intersect constraints applied before ranking.
type Query struct {
	// Task is the free-text "what do I need to know to do X" request.
	Task string

	// Language filters to chunks whose code language matches.
	Language string

	// Framework filters to chunks mentioning the framework.
	Framework string

	// Repositories filters to the named repositories.
	Repositories []string

	// Categories filters to the named categories.
	Categories []string

	// MaxResults bounds the ranked result count (default 20, max 100).
	MaxResults int

	// Strategy selects the scoring strategy (default hybrid).
	Strategy Strategy
}

// Normalized returns a copy with defaults applied.
func (q Query) Normalized() Query {
	q.Task = strings.TrimSpace(q.Task)
	if q.MaxResults == 0 {
		q.MaxResults = DefaultMaxResults
	}
	if q.Strategy == "" {
		q.Strategy = StrategyHybrid
	}
	return q
}

// Validate rejects malformed queries before any external call is made.
// The returned error wraps ErrInvalidQuery and names the offending field.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Task) == "" {
		return fmt.Errorf("%w: task must not be empty", ErrInvalidQuery)
	}
	if q.MaxResults < 0 || q.MaxResults > MaxResultsCeiling {
		return fmt.Errorf("%w: maxResults must be between 1 and %d, got %d",
			ErrInvalidQuery, MaxResultsCeiling, q.MaxResults)
	}
	switch q.Strategy {
	case "", StrategySemantic, StrategyStructural, StrategyHybrid:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidQuery, q.Strategy)
	}
	return nil
}

// ScoredChunk is a chunk with its final combined score.
// Higher score always means more relevant; rank order follows score.
type ScoredChunk struct {
	Chunk Chunk

	// Score is the final combined relevance score.
	Score float64

	// Explanation is a human-readable justification for the rank.
	// Informational only, never used for logic.
	Explanation string
}

// SearchInfo describes how a ranked result set was produced.
type SearchInfo struct {
	// TotalCandidates is the candidate count before budgeting.
	TotalCandidates int

	// SearchTime is the elapsed retrieval time.
	SearchTime time.Duration

	// Strategy is the strategy that actually ran. Set to
	// StrategyDegraded when a fallback produced the results.
	Strategy Strategy

	// Repositories are the distinct repositories represented.
	Repositories []string

	// Truncated signals the candidate set hit the configured
	// ceiling before ranking completed. Never set silently.
	Truncated bool
}
