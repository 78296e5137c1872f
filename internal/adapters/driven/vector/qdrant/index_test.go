package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docbrief/internal/core/ports/driven"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) *Index {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	index, err := NewIndex(context.Background(), Config{
		BaseURL:    server.URL,
		Dimensions: 3,
	})
	require.NoError(t, err)
	return index
}

func okHandler(t *testing.T, onRequest func(r *http.Request, body map[string]any)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		if onRequest != nil {
			onRequest(r, body)
		}
		_, _ = w.Write([]byte(`{"result":{},"status":"ok"}`))
	}
}

func TestNewIndex_CreatesCollection(t *testing.T) {
	var sawCreate bool
	index := newTestIndex(t, okHandler(t, func(r *http.Request, body map[string]any) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/docbrief" {
			sawCreate = true
			vectors := body["vectors"].(map[string]any)
			assert.Equal(t, float64(3), vectors["size"])
			assert.Equal(t, "Cosine", vectors["distance"])
		}
	}))
	require.NotNil(t, index)
	assert.True(t, sawCreate)
}

func TestNewIndex_RequiresDimensions(t *testing.T) {
	_, err := NewIndex(context.Background(), Config{BaseURL: "http://localhost:1"})
	assert.Error(t, err)
}

func TestUpsert_SendsStablePointID(t *testing.T) {
	var gotID, gotChunkID string
	index := newTestIndex(t, okHandler(t, func(r *http.Request, body map[string]any) {
		if r.URL.Path != "/collections/docbrief/points" {
			return
		}
		points := body["points"].([]any)
		require.Len(t, points, 1)
		point := points[0].(map[string]any)
		gotID = point["id"].(string)
		payload := point["payload"].(map[string]any)
		gotChunkID = payload["chunk_id"].(string)
		assert.Equal(t, "docs", payload["repository"])
		assert.Equal(t, "a.md", payload["path"])
	}))

	err := index.Upsert(context.Background(), "docs:a.md:0", []float32{1, 0, 0},
		driven.VectorPayload{Repository: "docs", Path: "a.md"})
	require.NoError(t, err)

	assert.Equal(t, "docs:a.md:0", gotChunkID)
	assert.Equal(t, pointID("docs:a.md:0"), gotID, "point IDs are deterministic")
	assert.NotEqual(t, pointID("docs:a.md:1"), gotID)
}

func TestSearch_TranslatesFilterAndHits(t *testing.T) {
	index := newTestIndex(t, okHandler(t, nil))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/docbrief/points/search" {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(5), body["limit"])
			assert.Equal(t, 0.35, body["score_threshold"])

			filter := body["filter"].(map[string]any)
			must := filter["must"].([]any)
			assert.Len(t, must, 2)

			_, _ = w.Write([]byte(`{"result":[
				{"score":0.9,"payload":{"chunk_id":"docs:a.md:0","repository":"docs","path":"a.md","ordinal":0,"language":"go"}},
				{"score":0.5,"payload":{"chunk_id":"docs:b.md:0","repository":"docs","path":"b.md","ordinal":0}}
			]}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	t.Cleanup(server.Close)
	index.baseURL = server.URL

	hits, err := index.Search(context.Background(), []float32{1, 0, 0}, 5, 0.35, &driven.VectorFilter{
		Repositories: []string{"docs"},
		Path:         "a.md",
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "docs:a.md:0", hits[0].ID)
	assert.Equal(t, 0.9, hits[0].Score)
	assert.Equal(t, "go", hits[0].Payload.Language)
	assert.Equal(t, "b.md", hits[1].Payload.Path)
}

func TestDelete_RefusesUnfiltered(t *testing.T) {
	index := newTestIndex(t, okHandler(t, nil))
	err := index.Delete(context.Background(), driven.VectorFilter{})
	assert.Error(t, err)
}

func TestDelete_SendsFilter(t *testing.T) {
	var sawDelete bool
	index := newTestIndex(t, okHandler(t, func(r *http.Request, body map[string]any) {
		if r.URL.Path != "/collections/docbrief/points/delete" {
			return
		}
		sawDelete = true
		filter := body["filter"].(map[string]any)
		must := filter["must"].([]any)
		assert.Len(t, must, 2)
	}))

	err := index.Delete(context.Background(), driven.VectorFilter{
		Repositories: []string{"docs"},
		Path:         "a.md",
	})
	require.NoError(t, err)
	assert.True(t, sawDelete)
}

func TestStats(t *testing.T) {
	index := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"result":{"points_count":42}}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{}}`))
	})

	stats, err := index.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, stats.IndexedVectorCount)
}

func TestSearch_ErrorStatus(t *testing.T) {
	index := newTestIndex(t, okHandler(t, nil))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)
	index.baseURL = server.URL

	_, err := index.Search(context.Background(), []float32{1}, 5, 0, nil)
	assert.Error(t, err)
}
