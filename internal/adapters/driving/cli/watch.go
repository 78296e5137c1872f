package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	watchRepo       string
	watchPriority   string
	watchCategories []string
	watchExcludes   []string
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Index a directory and keep it in sync",
	Long: `Indexes the directory, then watches it for changes and re-indexes
files as they are written, created or removed. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchRepo, "repo", "r", "", "repository name (default: directory base name)")
	watchCmd.Flags().StringVarP(&watchPriority, "priority", "p", "medium", "repository priority (high, medium, low)")
	watchCmd.Flags().StringSliceVarP(&watchCategories, "category", "c", nil, "category tags for the repository")
	watchCmd.Flags().StringSliceVar(&watchExcludes, "exclude", nil, "additional path patterns to skip")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	provider, err := buildProvider(args[0], watchRepo, watchPriority, watchCategories, watchExcludes)
	if err != nil {
		return err
	}

	defer provider.Close()

	meta := provider.Repository()
	cmd.Printf("Indexing %s into repository %q...\n", args[0], meta.Name)

	status, err := ingestService.IngestSource(cmd.Context(), provider)
	if err != nil {
		return fmt.Errorf("initial ingestion failed: %w", err)
	}
	cmd.Printf("Indexed %d documents (%d unchanged, %d errors). Watching for changes...\n",
		status.DocumentsProcessed, status.DocumentsSkipped, status.ErrorCount)

	err = ingestService.WatchSource(cmd.Context(), provider)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
