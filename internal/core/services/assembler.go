package services

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/docbrief/internal/core/domain"
	"github.com/custodia-labs/docbrief/internal/core/ports/driving"
)

const cursorVersion = "v1"

// requestHash canonically fingerprints a context request. The cursor
// embeds it so a continuation can only resume the request it was
// issued for.
func requestHash(req driving.ContextRequest) string {
	q := req.Query.Normalized()
	canonical := strings.Join([]string{
		q.Task,
		q.Language,
		q.Framework,
		strings.Join(q.Repositories, ","),
		strings.Join(q.Categories, ","),
		strconv.Itoa(q.MaxResults),
		string(q.Strategy),
		string(req.Level),
		strconv.Itoa(req.Budget.MaxChunks),
		strconv.Itoa(req.Budget.MaxChars),
	}, "\x1f")
	return domain.HashContent(canonical)[:16]
}

// encodeCursor packs the request hash and resume offset into an
// opaque token.
func encodeCursor(hash string, offset int) string {
	raw := fmt.Sprintf("%s:%s:%d", cursorVersion, hash, offset)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor unpacks a cursor and validates it against the request.
func decodeCursor(cursor, wantHash string) (int, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCursorInvalid, err)
	}

	parts := strings.Split(string(raw), ":")
	if len(parts) != 3 || parts[0] != cursorVersion {
		return 0, fmt.Errorf("%w: malformed token", domain.ErrCursorInvalid)
	}
	if parts[1] != wantHash {
		return 0, fmt.Errorf("%w: cursor belongs to a different query", domain.ErrCursorInvalid)
	}

	offset, err := strconv.Atoi(parts[2])
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("%w: bad offset", domain.ErrCursorInvalid)
	}
	return offset, nil
}

// eligibleChunks applies the granularity bias. Overview keeps headings
// and short paragraphs for a cheap first look; if nothing qualifies it
// falls back to the full ranked list. Detailed applies no bias.
func eligibleChunks(ranked []domain.ScoredChunk, level domain.Granularity, paragraphLimit int) []domain.ScoredChunk {
	if level != domain.GranularityOverview {
		return ranked
	}

	var overview []domain.ScoredChunk
	for _, sc := range ranked {
		switch sc.Chunk.Type {
		case domain.ChunkTypeHeading:
			overview = append(overview, sc)
		case domain.ChunkTypeParagraph:
			if len(sc.Chunk.Content) <= paragraphLimit {
				overview = append(overview, sc)
			}
		}
	}
	if len(overview) == 0 {
		return ranked
	}
	return overview
}

// buildPage greedily fills one page from eligible[offset:] under the
// budget. A chunk that would overflow is deferred whole to the next
// page, never truncated mid-content; a page always makes progress, so
// a single over-budget chunk still ships alone.
func buildPage(
	eligible []domain.ScoredChunk,
	info domain.SearchInfo,
	budget domain.ContextBudget,
	offset int,
	hash string,
) *domain.ContextPage {
	page := &domain.ContextPage{
		Metadata:  info,
		Truncated: info.Truncated,
	}
	if offset >= len(eligible) {
		return page
	}

	chars := 0
	next := offset
	for _, sc := range eligible[offset:] {
		if budget.MaxChunks > 0 && len(page.Chunks) >= budget.MaxChunks {
			break
		}
		if budget.MaxChars > 0 && chars+len(sc.Chunk.Content) > budget.MaxChars && len(page.Chunks) > 0 {
			break
		}
		page.Chunks = append(page.Chunks, sc)
		chars += len(sc.Chunk.Content)
		next++
	}

	if next < len(eligible) {
		page.HasMore = true
		page.Cursor = encodeCursor(hash, next)
	}
	return page
}
