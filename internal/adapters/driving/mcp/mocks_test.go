package mcp

import (
	"context"

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
	chunks []domain.Chunk
	status *driving.IngestStatus
	err    error
}

func (m *mockIngestService) ProcessDocument(_ context.Context, _, _ string, _ domain.RepositoryMeta) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

func (m *mockIngestService) IndexDocument(_ context.Context, _, _ string, _ domain.RepositoryMeta) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

func (m *mockIngestService) RemoveFile(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockIngestService) Status(_ context.Context, _ string) (*driving.IngestStatus, error) {
	return m.status, m.err
}

func (m *mockIngestService) IngestSource(_ context.Context, _ driven.SourceProvider) (*driving.IngestStatus, error) {
	return m.status, m.err
}

func (m *mockIngestService) WatchSource(_ context.Context, _ driven.SourceProvider) error {
	return m.err
}
