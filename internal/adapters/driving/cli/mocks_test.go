package cli

import (
	"context"
	"time"

	"github.com/custodia-labs/docbrief/internal/core/domain"
	"github.com/custodia-labs/docbrief/internal/core/ports/driven"
	"github.com/custodia-labs/docbrief/internal/core/ports/driving"
)

// mockContextService is a mock implementation of driving.ContextService.
type mockContextService struct {
	results []domain.ScoredChunk
	info    domain.SearchInfo
	page    *domain.ContextPage
	err     error

	lastQuery  domain.Query
	lastCursor string
}

func (m *mockContextService) Search(_ context.Context, query domain.Query) ([]domain.ScoredChunk, domain.SearchInfo, error) {
	m.lastQuery = query
	return m.results, m.info, m.err
}

func (m *mockContextService) GenerateContext(_ context.Context, req driving.ContextRequest) (*domain.ContextPage, error) {
	m.lastQuery = req.Query
	return m.page, m.err
}

func (m *mockContextService) GetContextPage(_ context.Context, req driving.ContextRequest, cursor string) (*domain.ContextPage, error) {
	m.lastQuery = req.Query
	m.lastCursor = cursor
	return m.page, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	status *driving.IngestStatus
	err    error

	lastMeta    domain.RepositoryMeta
	watchCalled bool
}

func (m *mockIngestService) ProcessDocument(_ context.Context, _, _ string, _ domain.RepositoryMeta) ([]domain.Chunk, error) {
	return nil, m.err
}

func (m *mockIngestService) IndexDocument(_ context.Context, _, _ string, _ domain.RepositoryMeta) ([]domain.Chunk, error) {
	return nil, m.err
}

func (m *mockIngestService) RemoveFile(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockIngestService) Status(_ context.Context, _ string) (*driving.IngestStatus, error) {
	return m.status, m.err
}

func (m *mockIngestService) IngestSource(_ context.Context, provider driven.SourceProvider) (*driving.IngestStatus, error) {
	m.lastMeta = provider.Repository()
	return m.status, m.err
}

func (m *mockIngestService) WatchSource(_ context.Context, provider driven.SourceProvider) error {
	m.lastMeta = provider.Repository()
	m.watchCalled = true
	return m.err
}

// setupTestServices installs mock services and returns a cleanup that
// restores the previous wiring.
func setupTestServices() func() {
	oldContext := contextService
	oldIngest := ingestService

	chunk := domain.Chunk{
		ID:         "docs:guide/setup.md:0",
		Repository: "docs",
		Path:       "guide/setup.md",
		Ordinal:    0,
		Content:    "# Setup",
		Type:       domain.ChunkTypeHeading,
		Metadata: domain.ChunkMetadata{
			Title:          "Setup",
			HeadingContext: []string{"Setup"},
		},
	}
	info := domain.SearchInfo{
		TotalCandidates: 1,
		SearchTime:      3 * time.Millisecond,
		Strategy:        domain.StrategyHybrid,
		Repositories:    []string{"docs"},
	}

	contextService = &mockContextService{
		results: []domain.ScoredChunk{{Chunk: chunk, Score: 0.9}},
		info:    info,
		page: &domain.ContextPage{
			Chunks:   []domain.ScoredChunk{{Chunk: chunk, Score: 0.9}},
			Metadata: info,
		},
	}
	ingestService = &mockIngestService{
		status: &driving.IngestStatus{
			Repository:         "docs",
			DocumentsProcessed: 2,
			DocumentsSkipped:   1,
		},
	}

	return func() {
		contextService = oldContext
		ingestService = oldIngest
	}
}
