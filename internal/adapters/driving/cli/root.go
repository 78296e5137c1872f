// Package cli implements the docbrief command-line interface using
// cobra. Commands delegate to core services through the driving ports;
// main wires the real implementations in via SetServices before
// calling Execute.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docbrief/internal/core/ports/driving"
	"github.com/custodia-labs/docbrief/internal/logger"
)

var version = "0.1.0"

// Wired by SetServices. Tests swap these for mocks.
var (
	contextService driving.ContextService
	ingestService  driving.IngestService
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "docbrief",
	Short: "Documentation context for AI coding assistants",
	Long: `Docbrief indexes project documentation into structure-aware chunks
and serves task-scoped, size-bounded context to AI assistants over
MCP or directly from the command line.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"print pipeline diagnostics to stderr")
}

// Services bundles the core services the CLI drives.
type Services struct {
	Context driving.ContextService
	Ingest  driving.IngestService
}

// SetServices wires core services into the command tree.
func SetServices(s Services) {
	contextService = s.Context
	ingestService = s.Ingest
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
