// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ChunkStore: Chunk and document metadata persistence
//   - ConfigStore: Application configuration
//   - DocumentChunker: Splits documents into retrievable chunks
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - VectorIndex: External nearest-neighbour search over chunk embeddings.
//     Without it, semantic and hybrid strategies are disabled.
//   - EmbeddingService: Generates vector embeddings. Without it,
//     VectorIndex is also disabled.
//   - SourceProvider: Supplies documents and change notifications.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or source package
package driven
