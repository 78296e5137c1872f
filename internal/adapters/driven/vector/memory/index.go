// Package memory provides an in-memory VectorIndex using exact cosine
// similarity. Intended for tests and small corpora; production setups
// point at an external index such as Qdrant.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/docbrief/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	vector  []float32
	payload driven.VectorPayload
}

// Index is an in-memory implementation of driven.VectorIndex.
type Index struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewIndex creates a new in-memory vector index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]entry)}
}

// Upsert inserts or replaces the vector and payload for a chunk ID.
func (x *Index) Upsert(_ context.Context, id string, embedding []float32, payload driven.VectorPayload) error {
	vector := make([]float32, len(embedding))
	copy(vector, embedding)

	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries[id] = entry{vector: vector, payload: payload}
	return nil
}

// Search finds the nearest neighbours by exact cosine similarity.
func (x *Index) Search(_ context.Context, query []float32, limit int, threshold float64, filter *driven.VectorFilter) ([]driven.VectorHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := make([]driven.VectorHit, 0)
	for id, e := range x.entries {
		if filter != nil && !matches(e.payload, *filter) {
			continue
		}
		score := cosine(query, e.vector)
		if score < threshold {
			continue
		}
		hits = append(hits, driven.VectorHit{ID: id, Score: score, Payload: e.payload})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Delete removes all vectors matching the filter.
func (x *Index) Delete(_ context.Context, filter driven.VectorFilter) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for id, e := range x.entries {
		if matches(e.payload, filter) {
			delete(x.entries, id)
		}
	}
	return nil
}

// Stats reports index size counters.
func (x *Index) Stats(_ context.Context) (driven.IndexStats, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	files := make(map[string]bool)
	for _, e := range x.entries {
		files[e.payload.Repository+"\x00"+e.payload.Path] = true
	}
	return driven.IndexStats{
		DocumentCount:      len(files),
		ChunkCount:         len(x.entries),
		IndexedVectorCount: len(x.entries),
	}, nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

// matches applies a payload filter; zero-valued fields do not constrain.
func matches(p driven.VectorPayload, f driven.VectorFilter) bool {
	if len(f.Repositories) > 0 && !contains(f.Repositories, p.Repository) {
		return false
	}
	if f.Path != "" && f.Path != p.Path {
		return false
	}
	if len(f.Categories) > 0 && !contains(f.Categories, p.Category) {
		return false
	}
	return true
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

// cosine computes cosine similarity, remapped from [-1,1] to [0,1].
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (sim + 1) / 2
}
