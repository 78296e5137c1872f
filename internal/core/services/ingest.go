package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docbrief/internal/core/domain"
	"github.com/custodia-labs/docbrief/internal/core/ports/driven"
	"github.com/custodia-labs/docbrief/internal/core/ports/driving"
	"github.com/custodia-labs/docbrief/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.IngestService = (*Ingestor)(nil)

// Ingestion ceilings. Oversized input is rejected at the boundary,
// never silently truncated.
const (
	DefaultMaxDocumentBytes = 2 << 20 // 2 MiB
	DefaultMaxChunksPerDoc  = 500
	DefaultEmbedTimeout     = 60 * time.Second
)

// Ingestor turns raw documents into indexed chunks: chunk, embed,
// upsert. Indexing is idempotent - an unchanged content hash is a
// no-op, and a changed file's previous chunks are removed before the
// new set is inserted.
type Ingestor struct {
	chunker     driven.DocumentChunker
	chunkStore  driven.ChunkStore
	vectorIndex driven.VectorIndex
	embedder    driven.EmbeddingService

	maxDocumentBytes int
	maxChunksPerDoc  int
	embedTimeout     time.Duration

	// fileLocks serializes concurrent ingestion of the same file;
	// different files proceed in parallel.
	mu        sync.Mutex
	fileLocks map[string]*sync.Mutex

	// Status tracking per repository.
	statusMu sync.RWMutex
	statuses map[string]*driving.IngestStatus
}

// IngestorOption configures the ingestor.
type IngestorOption func(*Ingestor)

// WithMaxDocumentBytes sets the per-document size ceiling.
func WithMaxDocumentBytes(n int) IngestorOption {
	return func(i *Ingestor) {
		if n > 0 {
			i.maxDocumentBytes = n
		}
	}
}

// WithMaxChunksPerDoc sets the per-document chunk count ceiling.
func WithMaxChunksPerDoc(n int) IngestorOption {
	return func(i *Ingestor) {
		if n > 0 {
			i.maxChunksPerDoc = n
		}
	}
}

// WithEmbedTimeout sets the timeout for embedding calls.
func WithEmbedTimeout(d time.Duration) IngestorOption {
	return func(i *Ingestor) {
		if d > 0 {
			i.embedTimeout = d
		}
	}
}

// NewIngestor creates an ingestor. The vectorIndex and embedder are
// optional (can be nil); without them chunks are stored for structural
// retrieval only.
func NewIngestor(
	chunker driven.DocumentChunker,
	chunkStore driven.ChunkStore,
	vectorIndex driven.VectorIndex,
	embedder driven.EmbeddingService,
	opts ...IngestorOption,
) *Ingestor {
	ing := &Ingestor{
		chunker:          chunker,
		chunkStore:       chunkStore,
		vectorIndex:      vectorIndex,
		embedder:         embedder,
		maxDocumentBytes: DefaultMaxDocumentBytes,
		maxChunksPerDoc:  DefaultMaxChunksPerDoc,
		embedTimeout:     DefaultEmbedTimeout,
		fileLocks:        make(map[string]*sync.Mutex),
		statuses:         make(map[string]*driving.IngestStatus),
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// ProcessDocument chunks one document without persisting anything.
// A parse problem (wrapping domain.ErrParse) is returned alongside the
// best-effort chunks.
func (i *Ingestor) ProcessDocument(ctx context.Context, path, content string, meta domain.RepositoryMeta) ([]domain.Chunk, error) {
	if len(content) > i.maxDocumentBytes {
		return nil, fmt.Errorf("%w: document %s is %d bytes (ceiling %d)",
			domain.ErrCapacity, path, len(content), i.maxDocumentBytes)
	}

	doc := i.buildDocument(path, content, meta)
	chunks, err := i.chunker.Chunk(ctx, doc)
	if err != nil && !errors.Is(err, domain.ErrParse) {
		return nil, fmt.Errorf("chunk %s: %w", path, err)
	}

	if len(chunks) > i.maxChunksPerDoc {
		return nil, fmt.Errorf("%w: document %s produced %d chunks (ceiling %d)",
			domain.ErrCapacity, path, len(chunks), i.maxChunksPerDoc)
	}
	return chunks, err
}

// IndexDocument chunks, embeds and persists one document. Re-indexing
// an unchanged document is a no-op; a changed document supersedes its
// previous chunk set.
func (i *Ingestor) IndexDocument(ctx context.Context, path, content string, meta domain.RepositoryMeta) ([]domain.Chunk, error) {
	unlock := i.lockFile(meta.Name, path)
	defer unlock()

	hash := domain.HashContent(content)
	existing, err := i.chunkStore.GetDocument(ctx, meta.Name, path)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get document: %w", err)
	}

	if existing != nil && existing.ContentHash == hash {
		logger.Debug("Unchanged content hash for %s/%s, skipping", meta.Name, path)
		i.bumpStatus(meta.Name, func(st *driving.IngestStatus) { st.DocumentsSkipped++ })
		return i.chunkStore.GetChunks(ctx, meta.Name, path)
	}

	chunks, parseErr := i.ProcessDocument(ctx, path, content, meta)
	if parseErr != nil && !errors.Is(parseErr, domain.ErrParse) {
		return nil, parseErr
	}
	if parseErr != nil {
		// Recovered: the document is still partially indexed.
		logger.Warn("Parse problem in %s/%s: %v", meta.Name, path, parseErr)
	}

	if err := i.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	// Supersede before insert so no stale chunk survives a re-sync.
	if i.vectorIndex != nil {
		filter := driven.VectorFilter{Repositories: []string{meta.Name}, Path: path}
		if err := i.vectorIndex.Delete(ctx, filter); err != nil {
			return nil, fmt.Errorf("%w: delete stale vectors: %w", domain.ErrUpstreamUnavailable, err)
		}
		for _, chunk := range chunks {
			if chunk.Embedding == nil {
				continue
			}
			payload := driven.VectorPayload{
				Repository: chunk.Repository,
				Path:       chunk.Path,
				Ordinal:    chunk.Ordinal,
				Category:   chunk.Metadata.Category,
				Language:   chunk.Metadata.Language,
			}
			if err := i.vectorIndex.Upsert(ctx, chunk.ID, chunk.Embedding, payload); err != nil {
				return nil, fmt.Errorf("%w: upsert chunk %s: %w", domain.ErrUpstreamUnavailable, chunk.ID, err)
			}
		}
	}

	doc := i.buildDocument(path, content, meta)
	if existing != nil {
		doc.ID = existing.ID
		doc.CreatedAt = existing.CreatedAt
	}
	if err := i.chunkStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := i.chunkStore.SaveChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("save chunks: %w", err)
	}

	i.bumpStatus(meta.Name, func(st *driving.IngestStatus) { st.DocumentsProcessed++ })
	logger.Info("Indexed %s/%s: %d chunks", meta.Name, path, len(chunks))
	return chunks, nil
}

// RemoveFile deletes all indexed state for a file.
func (i *Ingestor) RemoveFile(ctx context.Context, repository, path string) error {
	unlock := i.lockFile(repository, path)
	defer unlock()

	if i.vectorIndex != nil {
		filter := driven.VectorFilter{Repositories: []string{repository}, Path: path}
		if err := i.vectorIndex.Delete(ctx, filter); err != nil {
			return fmt.Errorf("%w: delete vectors: %w", domain.ErrUpstreamUnavailable, err)
		}
	}
	if err := i.chunkStore.DeleteFile(ctx, repository, path); err != nil {
		return fmt.Errorf("delete file state: %w", err)
	}
	logger.Info("Removed %s/%s from index", repository, path)
	return nil
}

// Status returns ingestion progress for a repository.
func (i *Ingestor) Status(_ context.Context, repository string) (*driving.IngestStatus, error) {
	i.statusMu.RLock()
	defer i.statusMu.RUnlock()
	st, ok := i.statuses[repository]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *st
	return &copied, nil
}

// IngestSource drains a source provider, indexing every document.
// Per-document errors are recorded and never abort the run.
func (i *Ingestor) IngestSource(ctx context.Context, provider driven.SourceProvider) (*driving.IngestStatus, error) {
	meta := provider.Repository()
	logger.Section("Ingest " + meta.Name)

	i.setRunning(meta.Name, true)
	defer i.setRunning(meta.Name, false)

	docs, errs := provider.Documents(ctx)
	for docs != nil || errs != nil {
		select {
		case doc, ok := <-docs:
			if !ok {
				docs = nil
				continue
			}
			if _, err := i.IndexDocument(ctx, doc.Path, doc.Content, meta); err != nil {
				logger.Error("Index %s/%s: %v", meta.Name, doc.Path, err)
				i.bumpStatus(meta.Name, func(st *driving.IngestStatus) { st.ErrorCount++ })
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				logger.Error("Source %s: %v", meta.Name, err)
				i.bumpStatus(meta.Name, func(st *driving.IngestStatus) { st.ErrorCount++ })
			}
		case <-ctx.Done():
			return i.snapshot(meta.Name), ctx.Err()
		}
	}

	return i.snapshot(meta.Name), nil
}

// WatchSource consumes the provider's change stream until the context
// is cancelled, re-indexing changed files and removing deleted ones.
func (i *Ingestor) WatchSource(ctx context.Context, provider driven.SourceProvider) error {
	meta := provider.Repository()

	changes, err := provider.Changes(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", meta.Name, err)
	}
	logger.Info("Watching %s for changes", meta.Name)

	for {
		select {
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			if change.Deleted {
				if err := i.RemoveFile(ctx, change.Repository, change.Path); err != nil {
					logger.Error("Remove %s/%s: %v", change.Repository, change.Path, err)
				}
				continue
			}
			content, err := provider.Read(ctx, change.Path)
			if err != nil {
				logger.Error("Read %s/%s: %v", change.Repository, change.Path, err)
				continue
			}
			if _, err := i.IndexDocument(ctx, change.Path, content, meta); err != nil {
				logger.Error("Re-index %s/%s: %v", change.Repository, change.Path, err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// embedChunks batch-embeds chunk contents, attaching the vectors.
// A nil embedder leaves chunks unembedded (structural-only mode).
func (i *Ingestor) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	if i.embedder == nil || len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for idx, chunk := range chunks {
		texts[idx] = chunk.Content
	}

	embedCtx, cancel := context.WithTimeout(ctx, i.embedTimeout)
	defer cancel()

	vectors, err := i.embedder.EmbedBatch(embedCtx, texts)
	if err != nil {
		return fmt.Errorf("%w: embed %d chunks: %w", domain.ErrUpstreamUnavailable, len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: embedder returned %d vectors for %d chunks",
			domain.ErrUpstreamUnavailable, len(vectors), len(chunks))
	}

	for idx := range chunks {
		chunks[idx].Embedding = vectors[idx]
	}
	return nil
}

func (i *Ingestor) buildDocument(path, content string, meta domain.RepositoryMeta) *domain.Document {
	now := time.Now().UTC()
	return &domain.Document{
		ID:          uuid.New().String(),
		Repository:  meta.Name,
		Path:        path,
		Content:     content,
		ContentHash: domain.HashContent(content),
		Priority:    meta.Priority,
		Categories:  meta.Categories,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// lockFile serializes ingestion per (repository, path).
func (i *Ingestor) lockFile(repository, path string) func() {
	key := repository + "\x00" + path

	i.mu.Lock()
	lock, ok := i.fileLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		i.fileLocks[key] = lock
	}
	i.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (i *Ingestor) bumpStatus(repository string, fn func(*driving.IngestStatus)) {
	i.statusMu.Lock()
	defer i.statusMu.Unlock()
	st, ok := i.statuses[repository]
	if !ok {
		st = &driving.IngestStatus{Repository: repository}
		i.statuses[repository] = st
	}
	fn(st)
}

func (i *Ingestor) setRunning(repository string, running bool) {
	i.bumpStatus(repository, func(st *driving.IngestStatus) { st.Running = running })
}

func (i *Ingestor) snapshot(repository string) *driving.IngestStatus {
	i.statusMu.RLock()
	defer i.statusMu.RUnlock()
	if st, ok := i.statuses[repository]; ok {
		copied := *st
		return &copied
	}
	return &driving.IngestStatus{Repository: repository}
}
