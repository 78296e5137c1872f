package domain

// Granularity selects how a context page is filled.
type Granularity string

// Supported granularity levels.
const (
	// GranularityOverview favours heading and short paragraph chunks
	// for a cheap first look at the material.
	GranularityOverview Granularity = "overview"

	// GranularityDetailed applies no type bias.
	GranularityDetailed Granularity = "detailed"
)

// Valid reports whether the granularity is a known level.
func (g Granularity) Valid() bool {
	return g == GranularityOverview || g == GranularityDetailed
}

// ContextBudget bounds a single context page.
// A zero field means that dimension is unbounded.
type ContextBudget struct {
	// MaxChunks is the maximum number of chunks per page.
	MaxChunks int

	// MaxChars is the maximum total content length per page.
	MaxChars int
}

// ContextPage is one budget-bounded page of ranked evidence.
type ContextPage struct {
	// Chunks are the page's scored chunks in rank order.
	Chunks []ScoredChunk

	// Metadata describes how the underlying ranking was produced.
	Metadata SearchInfo

	// HasMore is true iff ranked candidates remain beyond this page.
	HasMore bool

	// Cursor is an opaque continuation token for the next page.
	// Empty when HasMore is false.
	Cursor string

	// Truncated signals that a capacity ceiling cut the candidate
	// set before budgeting. Never set silently.
	Truncated bool
}
