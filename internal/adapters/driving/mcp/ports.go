package mcp

import (
	"github.com/custodia-labs/docbrief/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Context answers search and context assembly requests.
	Context driving.ContextService

	// Ingest reports ingestion status. Optional.
	Ingest driving.IngestService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Context == nil {
		return ErrMissingContextService
	}
	return nil
}
