// Package mcp provides an MCP (Model Context Protocol) server adapter for
// Docbrief. It lets AI assistants pull task-focused documentation context
// from the local index.
package mcp

import "errors"

// ErrMissingContextService is returned when the context service is not provided.
var ErrMissingContextService = errors.New("mcp: context service is required")
