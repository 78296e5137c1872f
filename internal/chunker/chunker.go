// Package chunker splits documents into typed, metadata-tagged chunks
// suitable for independent retrieval.
package chunker

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docbrief/internal/core/domain"
	"github.com/custodia-labs/docbrief/internal/core/ports/driven"
)

// Ensure Chunker implements the interface.
var _ driven.DocumentChunker = (*Chunker)(nil)

// Default size window, in characters.
const (
	// DefaultMaxChunkSize is the hard maximum before a chunk is split.
	DefaultMaxChunkSize = 1500

	// DefaultMinChunkSize is the soft minimum below which small
	// same-type siblings are merged.
	DefaultMinChunkSize = 100

	// DefaultOverlap is the trailing slice carried into the next
	// chunk at a split point.
	DefaultOverlap = 200
)

// codeLanguages maps source file extensions to fence language hints.
var codeLanguages = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".sh":   "bash",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cs":   "csharp",
	".php":  "php",
	".kt":   "kotlin",
	".sql":  "sql",
}

var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdown":    true,
	".mdx":      true,
}

// Chunker transforms one document's raw text into chunks.
// It implements the DocumentChunker interface.
type Chunker struct {
	maxSize int
	minSize int
	overlap int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxSize sets the hard maximum chunk size in characters.
func WithMaxSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// WithMinSize sets the soft minimum chunk size in characters.
func WithMinSize(size int) Option {
	return func(c *Chunker) {
		if size >= 0 {
			c.minSize = size
		}
	}
}

// WithOverlap sets the split overlap in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a new chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxSize: DefaultMaxChunkSize,
		minSize: DefaultMinChunkSize,
		overlap: DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Keep the window coherent.
	if c.minSize >= c.maxSize {
		c.minSize = c.maxSize / 4
	}
	if c.overlap >= c.maxSize {
		c.overlap = c.maxSize / 4
	}

	return c
}

// Chunk splits the document content into chunks.
//
// The chunk set is deterministic: identical content yields byte-identical
// chunks with the same "repository:path:ordinal" IDs. A recoverable parse
// problem (wrapping domain.ErrParse) is returned alongside the best-effort
// chunks rather than aborting.
func (c *Chunker) Chunk(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, errors.New("document is nil")
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	segs, parseErr := c.parse(doc)
	segs = c.merge(doc.Content, segs)

	title := documentTitle(doc.Content, doc.Path)
	category := ""
	if len(doc.Categories) > 0 {
		category = doc.Categories[0]
	}

	var chunks []domain.Chunk
	for _, seg := range segs {
		for _, piece := range c.split(seg) {
			chunks = append(chunks, domain.Chunk{
				Repository: doc.Repository,
				Path:       doc.Path,
				Content:    piece.content,
				Type:       piece.kind.chunkType(),
				StartChar:  piece.start,
				EndChar:    piece.end,
				Metadata: domain.ChunkMetadata{
					Title:          title,
					Language:       piece.language,
					Category:       category,
					HeadingContext: piece.crumbs,
				},
				ContentHash: doc.ContentHash,
			})
		}
	}

	for i := range chunks {
		chunks[i].Ordinal = i
		chunks[i].ID = domain.ChunkID(doc.Repository, doc.Path, i)
	}

	return chunks, parseErr
}

// parse selects the structural parser for the document's content type.
func (c *Chunker) parse(doc *domain.Document) ([]segment, error) {
	ext := strings.ToLower(filepath.Ext(doc.Path))
	switch {
	case markdownExtensions[ext]:
		return parseMarkdown(doc.Content)
	case codeLanguages[ext] != "":
		return parseCode(doc.Content, codeLanguages[ext]), nil
	default:
		return parsePlain(doc.Content), nil
	}
}

// merge coalesces adjacent table rows into one table unit and merges
// undersized paragraph/list segments with their next same-type sibling.
// Code and heading segments are never merged. Merged content is the
// verbatim source slice spanning both segments.
func (c *Chunker) merge(content string, segs []segment) []segment {
	if len(segs) == 0 {
		return segs
	}

	var out []segment
	for _, seg := range segs {
		if len(out) > 0 {
			prev := &out[len(out)-1]
			if prev.kind == seg.kind && c.mergeable(prev, &seg) {
				prev.content = content[prev.start:seg.end]
				prev.end = seg.end
				continue
			}
		}
		out = append(out, seg)
	}
	return out
}

// mergeable reports whether prev should absorb next.
func (c *Chunker) mergeable(prev, next *segment) bool {
	switch prev.kind {
	case segTable:
		// A table is one logical unit; rows always coalesce.
		return true
	case segParagraph, segList:
		merged := next.end - prev.start
		return len(prev.content) < c.minSize && merged <= c.maxSize
	default:
		return false
	}
}

// split breaks an oversized non-code segment at sentence or line
// boundaries, prepending a trailing slice of the prior piece so
// retrieval near a split point does not lose context. Code segments
// are returned whole regardless of size.
func (c *Chunker) split(seg segment) []segment {
	if seg.kind == segCode || len(seg.content) <= c.maxSize {
		return []segment{seg}
	}

	var pieces []segment
	text := seg.content
	pos := 0 // offset into text

	for pos < len(text) {
		remaining := len(text) - pos
		if remaining <= c.maxSize {
			pieces = append(pieces, c.piece(seg, text, pos, len(text)))
			break
		}

		cut := splitPoint(text[pos:pos+c.maxSize]) + pos
		pieces = append(pieces, c.piece(seg, text, pos, cut))

		// The next piece begins with the last overlap characters of
		// this one; offsets track true source positions.
		next := cut - c.overlap
		if next <= pos {
			next = cut
		}
		pos = next
	}

	return pieces
}

// piece builds a sub-segment of seg covering text[from:to].
func (c *Chunker) piece(seg segment, text string, from, to int) segment {
	return segment{
		kind:     seg.kind,
		content:  text[from:to],
		start:    seg.start + from,
		end:      seg.start + to,
		language: seg.language,
		crumbs:   seg.crumbs,
	}
}

// splitPoint finds the best cut inside window, preferring sentence
// endings, then line breaks, then spaces. Falls back to the full
// window when no boundary exists.
func splitPoint(window string) int {
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if idx := strings.LastIndex(window, sep); idx > len(window)/2 {
			return idx + len(sep)
		}
	}
	if idx := strings.LastIndex(window, " "); idx > len(window)/2 {
		return idx + 1
	}
	return len(window)
}

// documentTitle extracts a title from the first H1 heading or falls
// back to a cleaned filename.
func documentTitle(content, path string) string {
	for _, ln := range strings.Split(content, "\n") {
		ln = strings.TrimSpace(ln)
		if strings.HasPrefix(ln, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(ln, "#"))
		}
	}

	filename := filepath.Base(path)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
