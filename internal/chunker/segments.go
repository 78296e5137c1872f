package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/docbrief/internal/core/domain"
)

// segmentKind identifies a structural unit variant. The set is closed
// so the merge and split rules can be exhaustive.
type segmentKind int

const (
	segHeading segmentKind = iota
	segParagraph
	segCode
	segList
	segTable
)

// chunkType maps a segment kind to its chunk classification.
func (k segmentKind) chunkType() domain.ChunkType {
	switch k {
	case segHeading:
		return domain.ChunkTypeHeading
	case segCode:
		return domain.ChunkTypeCode
	case segList:
		return domain.ChunkTypeList
	case segTable:
		return domain.ChunkTypeTable
	default:
		return domain.ChunkTypeParagraph
	}
}

// segment is one parsed structural unit. Content is always a verbatim
// slice of the source, so [start, end) offsets stay truthful and a
// document can be reconstructed from its segments.
type segment struct {
	kind     segmentKind
	content  string
	start    int
	end      int
	level    int      // heading level, 1-6
	language string   // code fence hint
	crumbs   []string // enclosing heading breadcrumb, outermost first
}

// line is a source line with its byte offset.
type line struct {
	text  string // without trailing newline
	start int
}

func splitOffsetLines(s string) []line {
	var lines []line
	offset := 0
	for {
		idx := strings.IndexByte(s[offset:], '\n')
		if idx < 0 {
			if offset <= len(s) {
				lines = append(lines, line{text: s[offset:], start: offset})
			}
			return lines
		}
		lines = append(lines, line{text: s[offset : offset+idx], start: offset})
		offset += idx + 1
	}
}

var (
	headingRe  = regexp.MustCompile(`^#{1,6}\s+`)
	listItemRe = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+`)
)

func isFence(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

func isTableRow(trimmed string) bool {
	return strings.HasPrefix(trimmed, "|")
}

// crumbStack tracks the current heading ancestry while parsing.
type crumbStack struct {
	entries []struct {
		level int
		text  string
	}
}

func (c *crumbStack) push(level int, text string) {
	for len(c.entries) > 0 && c.entries[len(c.entries)-1].level >= level {
		c.entries = c.entries[:len(c.entries)-1]
	}
	c.entries = append(c.entries, struct {
		level int
		text  string
	}{level, text})
}

// snapshot returns a copy of the current breadcrumb texts.
func (c *crumbStack) snapshot() []string {
	if len(c.entries) == 0 {
		return nil
	}
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.text
	}
	return out
}

// parseMarkdown splits markdown content into structural segments.
// Malformed structure (an unterminated code fence) degrades to
// remainder-as-one-segment; the returned error wraps domain.ErrParse
// and the segments are still usable.
func parseMarkdown(content string) ([]segment, error) {
	lines := splitOffsetLines(content)
	var segs []segment
	var crumbs crumbStack
	var parseErr error

	// Paragraph accumulation state.
	paraStart := -1
	paraEnd := 0

	flushPara := func() {
		if paraStart < 0 {
			return
		}
		text := content[paraStart:paraEnd]
		if strings.TrimSpace(text) != "" {
			segs = append(segs, segment{
				kind:    segParagraph,
				content: text,
				start:   paraStart,
				end:     paraEnd,
				crumbs:  crumbs.snapshot(),
			})
		}
		paraStart = -1
	}

	lineEnd := func(i int) int {
		if i+1 < len(lines) {
			return lines[i+1].start - 1 // exclude the newline
		}
		return len(content)
	}

	for i := 0; i < len(lines); i++ {
		ln := lines[i]
		trimmed := strings.TrimSpace(ln.text)

		switch {
		case trimmed == "":
			flushPara()

		case isFence(trimmed):
			flushPara()
			marker := trimmed[:3]
			language := strings.ToLower(strings.TrimSpace(strings.TrimLeft(trimmed, "`~")))
			closing := -1
			for j := i + 1; j < len(lines); j++ {
				if strings.HasPrefix(strings.TrimSpace(lines[j].text), marker) {
					closing = j
					break
				}
			}
			if closing < 0 {
				// Unterminated fence: the remainder of the document
				// becomes one code segment and the error is recorded.
				segs = append(segs, segment{
					kind:     segCode,
					content:  content[ln.start:],
					start:    ln.start,
					end:      len(content),
					language: language,
					crumbs:   crumbs.snapshot(),
				})
				parseErr = fmt.Errorf("%w: unterminated code fence at offset %d", domain.ErrParse, ln.start)
				return segs, parseErr
			}
			end := lineEnd(closing)
			segs = append(segs, segment{
				kind:     segCode,
				content:  content[ln.start:end],
				start:    ln.start,
				end:      end,
				language: language,
				crumbs:   crumbs.snapshot(),
			})
			i = closing

		case headingRe.MatchString(ln.text):
			flushPara()
			level := 0
			for level < len(trimmed) && trimmed[level] == '#' {
				level++
			}
			text := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			end := lineEnd(i)
			// The heading's own breadcrumb holds its ancestors only.
			crumbs.push(level, text)
			ancestors := crumbs.snapshot()
			segs = append(segs, segment{
				kind:    segHeading,
				content: content[ln.start:end],
				start:   ln.start,
				end:     end,
				level:   level,
				crumbs:  ancestors[:len(ancestors)-1],
			})

		case isTableRow(trimmed):
			flushPara()
			end := lineEnd(i)
			segs = append(segs, segment{
				kind:    segTable,
				content: content[ln.start:end],
				start:   ln.start,
				end:     end,
				crumbs:  crumbs.snapshot(),
			})

		case listItemRe.MatchString(ln.text):
			flushPara()
			// Consume indented continuation lines belonging to this item.
			last := i
			for j := i + 1; j < len(lines); j++ {
				next := lines[j].text
				if strings.TrimSpace(next) == "" || listItemRe.MatchString(next) ||
					headingRe.MatchString(next) || isFence(strings.TrimSpace(next)) ||
					isTableRow(strings.TrimSpace(next)) {
					break
				}
				if !strings.HasPrefix(next, " ") && !strings.HasPrefix(next, "\t") {
					break
				}
				last = j
			}
			end := lineEnd(last)
			segs = append(segs, segment{
				kind:    segList,
				content: content[ln.start:end],
				start:   ln.start,
				end:     end,
				crumbs:  crumbs.snapshot(),
			})
			i = last

		default:
			if paraStart < 0 {
				paraStart = ln.start
			}
			paraEnd = lineEnd(i)
		}
	}
	flushPara()

	return segs, parseErr
}

// parsePlain splits unknown or plain-text content on blank-line
// boundaries, producing paragraph segments only.
func parsePlain(content string) []segment {
	lines := splitOffsetLines(content)
	var segs []segment
	paraStart := -1
	paraEnd := 0

	lineEnd := func(i int) int {
		if i+1 < len(lines) {
			return lines[i+1].start - 1
		}
		return len(content)
	}

	flush := func() {
		if paraStart < 0 {
			return
		}
		text := content[paraStart:paraEnd]
		if strings.TrimSpace(text) != "" {
			segs = append(segs, segment{
				kind:    segParagraph,
				content: text,
				start:   paraStart,
				end:     paraEnd,
			})
		}
		paraStart = -1
	}

	for i, ln := range lines {
		if strings.TrimSpace(ln.text) == "" {
			flush()
			continue
		}
		if paraStart < 0 {
			paraStart = ln.start
		}
		paraEnd = lineEnd(i)
	}
	flush()

	return segs
}

// parseCode splits source code on blank-line boundaries into code
// segments with the language fixed by file extension. Code segments
// are never split below this granularity.
func parseCode(content, language string) []segment {
	segs := parsePlain(content)
	for i := range segs {
		segs[i].kind = segCode
		segs[i].language = language
	}
	return segs
}
