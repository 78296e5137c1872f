package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/custodia-labs/docbrief/internal/core/domain"
	"github.com/custodia-labs/docbrief/internal/core/ports/driven"
	"github.com/custodia-labs/docbrief/internal/logger"
)

// candidate holds intermediate scoring state before final ranking.
type candidate struct {
	chunk      domain.Chunk
	doc        *domain.Document
	semantic   float64
	structural float64
	score      float64
}

// Retriever ranks chunks for a query by combining vector similarity,
// lexical/structural overlap and source priority weighting.
type Retriever struct {
	chunkStore  driven.ChunkStore
	vectorIndex driven.VectorIndex
	embedder    driven.EmbeddingService
	cache       *EmbedCache
	cfg         ScoringConfig
}

// NewRetriever creates a retriever. The vectorIndex and embedder are
// optional (can be nil); without them only the structural strategy runs.
func NewRetriever(
	chunkStore driven.ChunkStore,
	vectorIndex driven.VectorIndex,
	embedder driven.EmbeddingService,
	cache *EmbedCache,
	cfg ScoringConfig,
) *Retriever {
	return &Retriever{
		chunkStore:  chunkStore,
		vectorIndex: vectorIndex,
		embedder:    embedder,
		cache:       cache,
		cfg:         cfg,
	}
}

// Search returns the ranked top chunks for the query.
//
// Post-scoring adjustments run in a fixed order for reproducibility:
// priority weighting, hard filters, rank sort with tie-breaks, then
// adjacent-duplicate collapse.
func (r *Retriever) Search(ctx context.Context, query domain.Query) ([]domain.ScoredChunk, domain.SearchInfo, error) {
	q := query.Normalized()
	if err := q.Validate(); err != nil {
		return nil, domain.SearchInfo{}, err
	}

	logger.Section("Retrieval")
	logger.Debug("Task: %q, strategy: %s, maxResults: %d", q.Task, q.Strategy, q.MaxResults)

	start := time.Now()

	// Request more candidates than needed to survive filtering.
	internalLimit := q.MaxResults * 3

	effective, degraded := r.effectiveStrategy(q.Strategy)
	if degraded {
		logger.Warn("Strategy %s unavailable, degrading to %s", q.Strategy, effective)
	}

	var cands []candidate
	var err error

	switch effective {
	case domain.StrategySemantic:
		cands, err = r.semanticCandidates(ctx, q, internalLimit)
	case domain.StrategyStructural:
		cands, err = r.structuralCandidates(ctx, q)
	case domain.StrategyHybrid:
		cands, err = r.hybridCandidates(ctx, q, internalLimit)
	}
	if err != nil {
		return nil, domain.SearchInfo{}, err
	}

	logger.Debug("Raw candidates: %d", len(cands))

	truncated := false
	if r.cfg.CandidateCeiling > 0 && len(cands) > r.cfg.CandidateCeiling {
		// Candidates arrive in no particular order (hybrid merges
		// through a map), so the cap must cut a deterministic tail or
		// identical queries would rank different subsets on each run.
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].score != cands[j].score {
				return cands[i].score > cands[j].score
			}
			return cands[i].chunk.ID < cands[j].chunk.ID
		})
		cands = cands[:r.cfg.CandidateCeiling]
		truncated = true
	}

	if err := r.hydrateDocuments(ctx, cands); err != nil {
		return nil, domain.SearchInfo{}, err
	}

	// 1. Priority weighting.
	r.applyPriority(cands)

	// 2. Hard filters. Excludes, never penalties.
	cands = r.applyFilters(cands, q)
	logger.Debug("After filters: %d", len(cands))

	// 3 & 4. Rank order with tie-breaks, then collapse adjacent
	// near-duplicates from the same file.
	r.sortCandidates(cands)
	cands = r.dedupAdjacent(cands)

	total := len(cands)
	if len(cands) > q.MaxResults {
		cands = cands[:q.MaxResults]
	}

	results := make([]domain.ScoredChunk, len(cands))
	repos := make(map[string]bool)
	for i, c := range cands {
		results[i] = domain.ScoredChunk{
			Chunk:       c.chunk,
			Score:       c.score,
			Explanation: r.explain(c),
		}
		repos[c.chunk.Repository] = true
	}

	strategy := effective
	if degraded {
		strategy = domain.StrategyDegraded
	}

	info := domain.SearchInfo{
		TotalCandidates: total,
		SearchTime:      time.Since(start),
		Strategy:        strategy,
		Repositories:    sortedKeys(repos),
		Truncated:       truncated,
	}

	logger.Info("Retrieval: %d results in %s (%s)", len(results), info.SearchTime, strategy)
	return results, info, nil
}

// effectiveStrategy degrades hybrid to structural when the semantic
// services are not configured at all. A configured-but-unreachable
// vector index is not degraded here; that fails fast during search.
func (r *Retriever) effectiveStrategy(requested domain.Strategy) (domain.Strategy, bool) {
	canSemantic := r.vectorIndex != nil && r.embedder != nil
	if requested == domain.StrategyHybrid && !canSemantic {
		return domain.StrategyStructural, true
	}
	return requested, false
}

// semanticCandidates embeds the query and searches the vector index.
func (r *Retriever) semanticCandidates(ctx context.Context, q domain.Query, limit int) ([]candidate, error) {
	if r.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if r.vectorIndex == nil {
		return nil, domain.ErrIndexUnavailable
	}

	vector, err := r.embedQuery(ctx, q.Task)
	if err != nil {
		return nil, err
	}

	filter := &driven.VectorFilter{
		Repositories: q.Repositories,
		Categories:   q.Categories,
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.cfg.SearchTimeout)
	defer cancel()

	hits, err := r.vectorIndex.Search(searchCtx, vector, limit, r.cfg.ScoreThreshold, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %w", domain.ErrUpstreamUnavailable, err)
	}
	logger.Debug("Vector search: %d hits above threshold %.2f", len(hits), r.cfg.ScoreThreshold)

	cands := make([]candidate, 0, len(hits))
	for _, hit := range hits {
		chunk, err := r.chunkStore.GetChunk(ctx, hit.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Chunk superseded since indexing; skip stale hit.
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", hit.ID, err)
		}
		cands = append(cands, candidate{
			chunk:    *chunk,
			semantic: clamp01(hit.Score),
			score:    clamp01(hit.Score),
		})
	}
	return cands, nil
}

// structuralCandidates scores every stored chunk lexically.
func (r *Retriever) structuralCandidates(ctx context.Context, q domain.Query) ([]candidate, error) {
	chunks, err := r.chunkStore.ListChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	terms := tokenize(q.Task)
	cands := make([]candidate, 0)
	for _, chunk := range chunks {
		s := r.structuralScore(terms, chunk)
		if s <= 0 {
			continue
		}
		cands = append(cands, candidate{
			chunk:      chunk,
			structural: s,
			score:      s,
		})
	}
	return cands, nil
}

// hybridCandidates runs both legs in parallel and combines the
// normalized scores with the configured weights.
func (r *Retriever) hybridCandidates(ctx context.Context, q domain.Query, limit int) ([]candidate, error) {
	var semantic, structural []candidate
	var semanticErr, structuralErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		semantic, semanticErr = r.semanticCandidates(ctx, q, limit)
	}()

	go func() {
		defer wg.Done()
		structural, structuralErr = r.structuralCandidates(ctx, q)
	}()

	wg.Wait()

	// The semantic leg failing means the index is unreachable;
	// hybrid fails fast rather than silently returning partial rank.
	if semanticErr != nil {
		return nil, fmt.Errorf("hybrid search: %w", semanticErr)
	}
	if structuralErr != nil {
		return nil, fmt.Errorf("hybrid search: %w", structuralErr)
	}

	merged := make(map[string]*candidate, len(semantic)+len(structural))
	for i := range semantic {
		c := semantic[i]
		merged[c.chunk.ID] = &c
	}
	for _, c := range structural {
		if existing, ok := merged[c.chunk.ID]; ok {
			existing.structural = c.structural
		} else {
			c := c
			merged[c.chunk.ID] = &c
		}
	}

	cands := make([]candidate, 0, len(merged))
	for _, c := range merged {
		c.score = c.semantic*r.cfg.SemanticWeight + c.structural*r.cfg.StructuralWeight
		cands = append(cands, *c)
	}

	logger.Debug("Hybrid: %d semantic + %d structural -> %d merged",
		len(semantic), len(structural), len(cands))
	return cands, nil
}

// embedQuery resolves the query embedding through the bounded cache.
func (r *Retriever) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if r.cache != nil {
		if vector, ok := r.cache.Get(text); ok {
			logger.Debug("Query embedding cache hit")
			return vector, nil
		}
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.cfg.SearchTimeout)
	defer cancel()

	vector, err := r.embedder.Embed(embedCtx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: generate query embedding: %w", domain.ErrUpstreamUnavailable, err)
	}

	if r.cache != nil {
		r.cache.Put(text, vector)
	}
	return vector, nil
}

// structuralScore computes the type-weighted lexical overlap between
// query terms and the chunk, normalized to [0,1]. Term frequency is
// capped so one repeated word cannot dominate; hits in the title,
// heading breadcrumb or code language outweigh body hits.
func (r *Retriever) structuralScore(terms []string, chunk domain.Chunk) float64 {
	if len(terms) == 0 {
		return 0
	}

	counts := make(map[string]int)
	for _, tok := range tokenize(chunk.Content) {
		counts[tok]++
	}

	headline := make(map[string]bool)
	headlineText := chunk.Metadata.Title + " " + strings.Join(chunk.Metadata.HeadingContext, " ") +
		" " + chunk.Metadata.Language
	for _, tok := range tokenize(headlineText) {
		headline[tok] = true
	}

	var sum float64
	for _, term := range terms {
		tf := counts[term]
		if tf > 3 {
			tf = 3
		}
		s := float64(tf) / 3
		if headline[term] && s < 0.8 {
			s = 0.8
		}
		sum += s
	}

	weight, ok := r.cfg.TypeWeights[chunk.Type]
	if !ok {
		weight = 1.0
	}
	return clamp01(sum / float64(len(terms)) * weight)
}

// hydrateDocuments attaches the parent document to each candidate for
// priority and recency handling. Lookups are memoized per file.
func (r *Retriever) hydrateDocuments(ctx context.Context, cands []candidate) error {
	docs := make(map[string]*domain.Document)
	for i := range cands {
		key := cands[i].chunk.Repository + "\x00" + cands[i].chunk.Path
		doc, ok := docs[key]
		if !ok {
			var err error
			doc, err = r.chunkStore.GetDocument(ctx, cands[i].chunk.Repository, cands[i].chunk.Path)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("get document: %w", err)
				}
				doc = nil
			}
			docs[key] = doc
		}
		cands[i].doc = doc
	}
	return nil
}

// applyPriority multiplies each score by its source tier multiplier.
func (r *Retriever) applyPriority(cands []candidate) {
	for i := range cands {
		mult, ok := r.cfg.PriorityMultipliers[r.priorityOf(cands[i])]
		if !ok {
			mult = 1.0
		}
		cands[i].score *= mult
	}
}

func (r *Retriever) priorityOf(c candidate) domain.Priority {
	if c.doc != nil && c.doc.Priority.Valid() {
		return c.doc.Priority
	}
	return domain.PriorityMedium
}

// applyFilters drops candidates failing any explicit constraint.
func (r *Retriever) applyFilters(cands []candidate, q domain.Query) []candidate {
	repoSet := toSet(q.Repositories)
	catSet := toSet(q.Categories)
	framework := strings.ToLower(q.Framework)

	kept := cands[:0]
	for _, c := range cands {
		if q.Language != "" && !strings.EqualFold(c.chunk.Metadata.Language, q.Language) {
			continue
		}
		if len(repoSet) > 0 && !repoSet[c.chunk.Repository] {
			continue
		}
		if len(catSet) > 0 && !catSet[c.chunk.Metadata.Category] {
			continue
		}
		if framework != "" && !mentionsFramework(c.chunk, framework) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// mentionsFramework checks the chunk's text and metadata for the
// framework name, case-insensitively.
func mentionsFramework(chunk domain.Chunk, framework string) bool {
	if strings.Contains(strings.ToLower(chunk.Content), framework) {
		return true
	}
	meta := strings.ToLower(chunk.Metadata.Title + " " +
		strings.Join(chunk.Metadata.HeadingContext, " ") + " " + chunk.Metadata.Category)
	return strings.Contains(meta, framework)
}

// sortCandidates orders by score descending with deterministic
// tie-breaks: higher source priority, more recent document, shorter
// content, then chunk ID.
func (r *Retriever) sortCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score > b.score
		}
		ap, bp := r.priorityOf(a).Rank(), r.priorityOf(b).Rank()
		if ap != bp {
			return ap > bp
		}
		var at, bt time.Time
		if a.doc != nil {
			at = a.doc.UpdatedAt
		}
		if b.doc != nil {
			bt = b.doc.UpdatedAt
		}
		if !at.Equal(bt) {
			return at.After(bt)
		}
		if len(a.chunk.Content) != len(b.chunk.Content) {
			return len(a.chunk.Content) < len(b.chunk.Content)
		}
		return a.chunk.ID < b.chunk.ID
	})
}

// dedupAdjacent collapses rank-adjacent chunks from the same file
// whose content overlaps above the threshold, keeping the higher
// scored (earlier) one. Prevents one long document from monopolizing
// the results.
func (r *Retriever) dedupAdjacent(cands []candidate) []candidate {
	if len(cands) < 2 {
		return cands
	}

	kept := cands[:1]
	for _, c := range cands[1:] {
		prev := kept[len(kept)-1]
		if c.chunk.Repository == prev.chunk.Repository &&
			c.chunk.Path == prev.chunk.Path &&
			tokenOverlap(prev.chunk.Content, c.chunk.Content) >= r.cfg.DedupThreshold {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// explain renders the human-readable score justification.
func (r *Retriever) explain(c candidate) string {
	return fmt.Sprintf("semantic %.2f, structural %.2f, priority %s",
		c.semantic, c.structural, r.priorityOf(c))
}

// tokenize lowercases and splits text into alphanumeric tokens of at
// least two characters.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// tokenOverlap computes the Jaccard similarity of two token sets.
func tokenOverlap(a, b string) float64 {
	setA := toSet(tokenize(a))
	setB := toSet(tokenize(b))
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var intersection int
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
