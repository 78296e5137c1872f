// Package domain defines the core business entities for Docbrief.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A source file registered for retrieval
//   - Chunk: The atomic retrievable unit produced by chunking
//   - Query: A natural-language retrieval request with filters
//   - ScoredChunk: A chunk paired with its combined relevance score
//   - ContextPage: A budget-bounded page of ranked evidence
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
