// Package qdrant provides a VectorIndex adapter backed by Qdrant's
// REST API. It assumes cosine distance and creates the collection on
// first use if missing.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docbrief/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:6333"
	DefaultCollection = "docbrief"
	DefaultTimeout    = 15 * time.Second
)

// pointNamespace derives stable Qdrant point UUIDs from chunk IDs.
// Qdrant only accepts integers or UUIDs as point IDs, so the chunk ID
// itself travels in the payload.
var pointNamespace = uuid.MustParse("8f2f9f4e-5a1d-4a62-9f5b-3f4f5b1c9d7e")

// Config holds configuration for the Qdrant index.
type Config struct {
	// BaseURL is the Qdrant API base URL (default: http://localhost:6333).
	BaseURL string

	// APIKey is the optional api-key header value.
	APIKey string

	// Collection is the collection name (default: docbrief).
	Collection string

	// Dimensions is the vector size the collection is created with.
	Dimensions int

	// Timeout is the per-request timeout (default: 15s).
	Timeout time.Duration
}

// Index is a Qdrant-backed implementation of driven.VectorIndex.
type Index struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	collection string
	dimensions int
}

// NewIndex creates the index and ensures the collection exists.
func NewIndex(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant: dimensions must be positive, got %d", cfg.Dimensions)
	}

	idx := &Index{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
	}
	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

// ensureCollection creates the collection if it does not exist.
// Qdrant returns 200 for an existing collection with the same schema.
func (x *Index) ensureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     x.dimensions,
			"distance": "Cosine",
		},
	}
	return x.do(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s", x.collection), body, nil)
}

// pointID derives the stable point UUID for a chunk ID.
func pointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// Upsert inserts or replaces the vector and payload for a chunk ID.
func (x *Index) Upsert(ctx context.Context, id string, embedding []float32, payload driven.VectorPayload) error {
	body := map[string]any{
		"points": []map[string]any{{
			"id":     pointID(id),
			"vector": embedding,
			"payload": map[string]any{
				"chunk_id":   id,
				"repository": payload.Repository,
				"path":       payload.Path,
				"ordinal":    payload.Ordinal,
				"category":   payload.Category,
				"language":   payload.Language,
			},
		}},
	}
	return x.do(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s/points?wait=true", x.collection), body, nil)
}

// Search finds the nearest neighbours above the score threshold.
func (x *Index) Search(ctx context.Context, query []float32, limit int, threshold float64, filter *driven.VectorFilter) ([]driven.VectorHit, error) {
	if limit <= 0 {
		limit = 10
	}
	body := map[string]any{
		"vector":       query,
		"limit":        limit,
		"with_payload": true,
	}
	if threshold > 0 {
		body["score_threshold"] = threshold
	}
	if qf := qdrantFilter(filter); qf != nil {
		body["filter"] = qf
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := x.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", x.collection), body, &resp)
	if err != nil {
		return nil, err
	}

	hits := make([]driven.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := driven.VectorHit{Score: r.Score}
		if v, ok := r.Payload["chunk_id"].(string); ok {
			hit.ID = v
		}
		if v, ok := r.Payload["repository"].(string); ok {
			hit.Payload.Repository = v
		}
		if v, ok := r.Payload["path"].(string); ok {
			hit.Payload.Path = v
		}
		if v, ok := r.Payload["ordinal"].(float64); ok {
			hit.Payload.Ordinal = int(v)
		}
		if v, ok := r.Payload["category"].(string); ok {
			hit.Payload.Category = v
		}
		if v, ok := r.Payload["language"].(string); ok {
			hit.Payload.Language = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Delete removes all points matching the filter.
func (x *Index) Delete(ctx context.Context, filter driven.VectorFilter) error {
	qf := qdrantFilter(&filter)
	if qf == nil {
		return fmt.Errorf("qdrant: refusing unfiltered delete")
	}
	body := map[string]any{"filter": qf}
	return x.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/delete?wait=true", x.collection), body, nil)
}

// Stats reports collection size counters.
func (x *Index) Stats(ctx context.Context) (driven.IndexStats, error) {
	var resp struct {
		Result struct {
			PointsCount int `json:"points_count"`
		} `json:"result"`
	}
	err := x.do(ctx, http.MethodGet,
		fmt.Sprintf("/collections/%s", x.collection), nil, &resp)
	if err != nil {
		return driven.IndexStats{}, err
	}
	return driven.IndexStats{
		ChunkCount:         resp.Result.PointsCount,
		IndexedVectorCount: resp.Result.PointsCount,
	}, nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

// qdrantFilter translates a port filter into Qdrant's must-match form.
// Returns nil when the filter constrains nothing.
func qdrantFilter(filter *driven.VectorFilter) map[string]any {
	if filter == nil {
		return nil
	}

	var must []map[string]any
	if len(filter.Repositories) > 0 {
		must = append(must, map[string]any{
			"key":   "repository",
			"match": map[string]any{"any": filter.Repositories},
		})
	}
	if filter.Path != "" {
		must = append(must, map[string]any{
			"key":   "path",
			"match": map[string]any{"value": filter.Path},
		})
	}
	if len(filter.Categories) > 0 {
		must = append(must, map[string]any{
			"key":   "category",
			"match": map[string]any{"any": filter.Categories},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

// do sends one JSON request and decodes the response into out.
func (x *Index) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
