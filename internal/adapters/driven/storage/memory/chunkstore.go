// Package memory provides in-memory implementations of the storage
// ports, used for tests and ephemeral runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docbrief/internal/core/domain"
	"github.com/custodia-labs/docbrief/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document // key: repository+"\x00"+path
	chunks    map[string][]domain.Chunk  // same key, ordinal order
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

func fileKey(repository, path string) string {
	return repository + "\x00" + path
}

// SaveDocument stores or updates a document record.
func (s *ChunkStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[fileKey(doc.Repository, doc.Path)] = *doc
	return nil
}

// GetDocument retrieves a document by repository and path.
func (s *ChunkStore) GetDocument(_ context.Context, repository, path string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[fileKey(repository, path)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// SaveChunks replaces the chunk set for the chunks' file.
func (s *ChunkStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fileKey(chunks[0].Repository, chunks[0].Path)
	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	sort.Slice(stored, func(i, j int) bool { return stored[i].Ordinal < stored[j].Ordinal })
	s.chunks[key] = stored
	return nil
}

// GetChunk retrieves a chunk by its stable ID.
func (s *ChunkStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chunks := range s.chunks {
		for _, chunk := range chunks {
			if chunk.ID == id {
				return &chunk, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// GetChunks retrieves all chunks for a file in ordinal order.
func (s *ChunkStore) GetChunks(_ context.Context, repository, path string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks, ok := s.chunks[fileKey(repository, path)]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

// ListChunks returns all stored chunks.
func (s *ChunkStore) ListChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.chunks))
	for key := range s.chunks {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []domain.Chunk
	for _, key := range keys {
		out = append(out, s.chunks[key]...)
	}
	return out, nil
}

// DeleteFile removes a document record and its chunks.
func (s *ChunkStore) DeleteFile(_ context.Context, repository, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fileKey(repository, path)
	delete(s.documents, key)
	delete(s.chunks, key)
	return nil
}

// Close releases resources.
func (s *ChunkStore) Close() error {
	return nil
}
