package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docbrief/internal/core/domain"
	"github.com/custodia-labs/docbrief/internal/core/ports/driving"
	"github.com/custodia-labs/docbrief/internal/logger"
)

// Ensure ContextService implements the interface.
var _ driving.ContextService = (*ContextService)(nil)

// Ranking cache bounds. Pagination within this window does not
// re-run retrieval.
const (
	rankingCacheSize = 64
	rankingCacheTTL  = 2 * time.Minute
)

type rankedEntry struct {
	chunks  []domain.ScoredChunk
	info    domain.SearchInfo
	expires time.Time
}

// ContextService answers task queries with ranked, budget-bounded
// context pages. Each query runs an independent read-only pipeline;
// the only shared state is the bounded ranking cache that makes
// page continuation deterministic and cheap.
type ContextService struct {
	retriever *Retriever
	cfg       ScoringConfig

	mu       sync.Mutex
	rankings map[string]*rankedEntry

	now func() time.Time
}

// NewContextService creates the context service facade.
func NewContextService(retriever *Retriever, cfg ScoringConfig) *ContextService {
	return &ContextService{
		retriever: retriever,
		cfg:       cfg,
		rankings:  make(map[string]*rankedEntry),
		now:       time.Now,
	}
}

// Search performs single-pass ranked retrieval.
func (s *ContextService) Search(ctx context.Context, query domain.Query) ([]domain.ScoredChunk, domain.SearchInfo, error) {
	return s.retriever.Search(ctx, query)
}

// GenerateContext runs retrieval plus bounded assembly and returns
// the first page.
func (s *ContextService) GenerateContext(ctx context.Context, req driving.ContextRequest) (*domain.ContextPage, error) {
	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}

	hash := requestHash(req)
	ranked, info, err := s.rankedFor(ctx, req, hash)
	if err != nil {
		return nil, err
	}

	eligible := eligibleChunks(ranked, req.Level, s.cfg.OverviewParagraphLimit)
	return buildPage(eligible, info, req.Budget, 0, hash), nil
}

// GetContextPage resumes assembly at the cursor. The same query and
// cursor return the same page while the index is unchanged.
func (s *ContextService) GetContextPage(ctx context.Context, req driving.ContextRequest, cursor string) (*domain.ContextPage, error) {
	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}
	if cursor == "" {
		return s.GenerateContext(ctx, req)
	}

	hash := requestHash(req)
	offset, err := decodeCursor(cursor, hash)
	if err != nil {
		return nil, err
	}

	ranked, info, err := s.rankedFor(ctx, req, hash)
	if err != nil {
		return nil, err
	}

	eligible := eligibleChunks(ranked, req.Level, s.cfg.OverviewParagraphLimit)
	return buildPage(eligible, info, req.Budget, offset, hash), nil
}

// validateRequest applies defaults and rejects bad shapes before any
// external call.
func (s *ContextService) validateRequest(req *driving.ContextRequest) error {
	if req.Level == "" {
		req.Level = domain.GranularityDetailed
	}
	if !req.Level.Valid() {
		return fmt.Errorf("%w: unknown granularity %q", domain.ErrInvalidQuery, req.Level)
	}
	if req.Budget.MaxChunks < 0 || req.Budget.MaxChars < 0 {
		return fmt.Errorf("%w: negative budget", domain.ErrInvalidQuery)
	}
	return req.Query.Normalized().Validate()
}

// rankedFor returns the cached ranking for the request, running
// retrieval on a miss.
func (s *ContextService) rankedFor(ctx context.Context, req driving.ContextRequest, hash string) ([]domain.ScoredChunk, domain.SearchInfo, error) {
	s.mu.Lock()
	entry, ok := s.rankings[hash]
	if ok && s.now().Before(entry.expires) {
		s.mu.Unlock()
		logger.Debug("Ranking cache hit for %s", hash)
		return entry.chunks, entry.info, nil
	}
	s.mu.Unlock()

	ranked, info, err := s.retriever.Search(ctx, req.Query)
	if err != nil {
		return nil, domain.SearchInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rankings) >= rankingCacheSize {
		s.evictLocked()
	}
	s.rankings[hash] = &rankedEntry{
		chunks:  ranked,
		info:    info,
		expires: s.now().Add(rankingCacheTTL),
	}
	return ranked, info, nil
}

// evictLocked drops expired entries, falling back to clearing the
// soonest-to-expire one so the map stays bounded.
func (s *ContextService) evictLocked() {
	now := s.now()
	var soonestKey string
	var soonest time.Time
	for key, entry := range s.rankings {
		if now.After(entry.expires) {
			delete(s.rankings, key)
			continue
		}
		if soonestKey == "" || entry.expires.Before(soonest) {
			soonestKey, soonest = key, entry.expires
		}
	}
	if len(s.rankings) >= rankingCacheSize && soonestKey != "" {
		delete(s.rankings, soonestKey)
	}
}
