package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docbrief/internal/core/domain"
	"github.com/custodia-labs/docbrief/internal/core/ports/driving"
)

// QueryInput carries the shared query fields of the retrieval tools.
type QueryInput struct {
	Task         string   `json:"task" jsonschema:"the task to retrieve documentation context for"`
	Language     string   `json:"language,omitempty" jsonschema:"only return code chunks in this language"`
	Framework    string   `json:"framework,omitempty" jsonschema:"only return chunks mentioning this framework"`
	Repositories []string `json:"repositories,omitempty" jsonschema:"restrict to these repositories"`
	Categories   []string `json:"categories,omitempty" jsonschema:"restrict to these categories"`
	MaxResults   int      `json:"max_results,omitempty" jsonschema:"maximum ranked results (default 20, max 100)"`
	Strategy     string   `json:"strategy,omitempty" jsonschema:"scoring strategy: hybrid, semantic or structural (default hybrid)"`
}

// ContextInput is the input schema for the context tools.
type ContextInput struct {
	QueryInput
	Level     string `json:"level,omitempty" jsonschema:"granularity: overview or detailed (default detailed)"`
	MaxChunks int    `json:"max_chunks,omitempty" jsonschema:"maximum chunks per page (0 = unbounded)"`
	MaxChars  int    `json:"max_chars,omitempty" jsonschema:"maximum total content characters per page (0 = unbounded)"`
}

// PageInput is the input schema for the get_context_page tool.
type PageInput struct {
	ContextInput
	Cursor string `json:"cursor" jsonschema:"continuation cursor from a previous page"`
}

// StatusInput is the input schema for the index_status tool.
type StatusInput struct {
	Repository string `json:"repository" jsonschema:"the repository to report ingestion status for"`
}

// ChunkOutput represents one ranked chunk.
type ChunkOutput struct {
	ID             string   `json:"id"`
	Repository     string   `json:"repository"`
	Path           string   `json:"path"`
	Content        string   `json:"content"`
	Type           string   `json:"type"`
	Language       string   `json:"language,omitempty"`
	HeadingContext []string `json:"heading_context,omitempty"`
	Score          float64  `json:"score"`
	Explanation    string   `json:"explanation,omitempty"`
}

// SearchMetaOutput describes how the ranking was produced.
type SearchMetaOutput struct {
	TotalCandidates int      `json:"total_candidates"`
	SearchTimeMs    int64    `json:"search_time_ms"`
	Strategy        string   `json:"strategy"`
	Repositories    []string `json:"repositories,omitempty"`
	Truncated       bool     `json:"truncated,omitempty"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results  []ChunkOutput    `json:"results"`
	Count    int              `json:"count"`
	Metadata SearchMetaOutput `json:"metadata"`
}

// ContextOutput is the output schema for the context tools.
type ContextOutput struct {
	Chunks    []ChunkOutput    `json:"chunks"`
	Metadata  SearchMetaOutput `json:"metadata"`
	HasMore   bool             `json:"has_more"`
	Cursor    string           `json:"cursor,omitempty"`
	Truncated bool             `json:"truncated,omitempty"`
}

// StatusOutput is the output schema for the index_status tool.
type StatusOutput struct {
	Repository         string `json:"repository"`
	Running            bool   `json:"running"`
	DocumentsProcessed int    `json:"documents_processed"`
	DocumentsSkipped   int    `json:"documents_skipped"`
	ErrorCount         int    `json:"error_count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Rank indexed documentation chunks for a task",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_context",
		Description: "Assemble a budget-bounded context page for a task",
	}, s.handleGenerateContext)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_context_page",
		Description: "Continue context assembly from a cursor",
	}, s.handleGetContextPage)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_status",
			Description: "Report ingestion progress for a repository",
		}, s.handleIndexStatus)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, info, err := s.ports.Context.Search(ctx, toQuery(input))
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{
		Results:  toChunkOutputs(results),
		Count:    len(results),
		Metadata: toMetaOutput(info),
	}, nil
}

// handleGenerateContext handles the generate_context tool invocation.
func (s *Server) handleGenerateContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ContextInput,
) (*mcp.CallToolResult, ContextOutput, error) {
	page, err := s.ports.Context.GenerateContext(ctx, toContextRequest(input))
	if err != nil {
		return nil, ContextOutput{}, err
	}
	return nil, toContextOutput(page), nil
}

// handleGetContextPage handles the get_context_page tool invocation.
func (s *Server) handleGetContextPage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PageInput,
) (*mcp.CallToolResult, ContextOutput, error) {
	page, err := s.ports.Context.GetContextPage(ctx, toContextRequest(input.ContextInput), input.Cursor)
	if err != nil {
		return nil, ContextOutput{}, err
	}
	return nil, toContextOutput(page), nil
}

// handleIndexStatus handles the index_status tool invocation.
func (s *Server) handleIndexStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	status, err := s.ports.Ingest.Status(ctx, input.Repository)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	return nil, StatusOutput{
		Repository:         status.Repository,
		Running:            status.Running,
		DocumentsProcessed: status.DocumentsProcessed,
		DocumentsSkipped:   status.DocumentsSkipped,
		ErrorCount:         status.ErrorCount,
	}, nil
}

func toQuery(input QueryInput) domain.Query {
	return domain.Query{
		Task:         input.Task,
		Language:     input.Language,
		Framework:    input.Framework,
		Repositories: input.Repositories,
		Categories:   input.Categories,
		MaxResults:   input.MaxResults,
		Strategy:     domain.Strategy(input.Strategy),
	}
}

func toContextRequest(input ContextInput) driving.ContextRequest {
	return driving.ContextRequest{
		Query: toQuery(input.QueryInput),
		Budget: domain.ContextBudget{
			MaxChunks: input.MaxChunks,
			MaxChars:  input.MaxChars,
		},
		Level: domain.Granularity(input.Level),
	}
}

func toChunkOutputs(results []domain.ScoredChunk) []ChunkOutput {
	out := make([]ChunkOutput, len(results))
	for i, sc := range results {
		out[i] = ChunkOutput{
			ID:             sc.Chunk.ID,
			Repository:     sc.Chunk.Repository,
			Path:           sc.Chunk.Path,
			Content:        sc.Chunk.Content,
			Type:           string(sc.Chunk.Type),
			Language:       sc.Chunk.Metadata.Language,
			HeadingContext: sc.Chunk.Metadata.HeadingContext,
			Score:          sc.Score,
			Explanation:    sc.Explanation,
		}
	}
	return out
}

func toMetaOutput(info domain.SearchInfo) SearchMetaOutput {
	return SearchMetaOutput{
		TotalCandidates: info.TotalCandidates,
		SearchTimeMs:    info.SearchTime.Milliseconds(),
		Strategy:        string(info.Strategy),
		Repositories:    info.Repositories,
		Truncated:       info.Truncated,
	}
}

func toContextOutput(page *domain.ContextPage) ContextOutput {
	return ContextOutput{
		Chunks:    toChunkOutputs(page.Chunks),
		Metadata:  toMetaOutput(page.Metadata),
		HasMore:   page.HasMore,
		Cursor:    page.Cursor,
		Truncated: page.Truncated,
	}
}
