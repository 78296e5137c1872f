package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docbrief/internal/core/domain"
	"github.com/custodia-labs/docbrief/internal/core/ports/driving"
)

var (
	contextLanguage   string
	contextFramework  string
	contextRepos      []string
	contextCategories []string
	contextStrategy   string
	contextLevel      string
	contextMaxChunks  int
	contextMaxChars   int
	contextCursor     string
	contextJSON       bool
)

var contextCmd = &cobra.Command{
	Use:   "context [task]",
	Short: "Generate a context page for a task",
	Long: `Runs retrieval for the task and assembles a size-bounded page of
evidence. When the ranked material exceeds the budget, the page ends
with a cursor; pass it back with --cursor to fetch the next page.`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	contextCmd.Flags().StringVarP(&contextLanguage, "language", "l", "", "only include chunks in this programming language")
	contextCmd.Flags().StringVarP(&contextFramework, "framework", "f", "", "only include chunks mentioning this framework")
	contextCmd.Flags().StringSliceVarP(&contextRepos, "repo", "r", nil, "restrict to these repositories")
	contextCmd.Flags().StringSliceVarP(&contextCategories, "category", "c", nil, "restrict to these categories")
	contextCmd.Flags().StringVarP(&contextStrategy, "strategy", "s", "hybrid", "retrieval strategy (semantic, structural, hybrid)")
	contextCmd.Flags().StringVar(&contextLevel, "level", "detailed", "granularity (overview, detailed)")
	contextCmd.Flags().IntVar(&contextMaxChunks, "max-chunks", 0, "maximum chunks per page (0 = unbounded)")
	contextCmd.Flags().IntVar(&contextMaxChars, "max-chars", 0, "maximum content characters per page (0 = unbounded)")
	contextCmd.Flags().StringVar(&contextCursor, "cursor", "", "continuation cursor from a previous page")
	contextCmd.Flags().BoolVar(&contextJSON, "json", false, "output the page as JSON")
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	if contextService == nil {
		return errors.New("context service not configured")
	}

	req := driving.ContextRequest{
		Query: domain.Query{
			Task:         args[0],
			Language:     contextLanguage,
			Framework:    contextFramework,
			Repositories: contextRepos,
			Categories:   contextCategories,
			Strategy:     domain.Strategy(contextStrategy),
		},
		Budget: domain.ContextBudget{
			MaxChunks: contextMaxChunks,
			MaxChars:  contextMaxChars,
		},
		Level: domain.Granularity(contextLevel),
	}

	var page *domain.ContextPage
	var err error
	if contextCursor != "" {
		page, err = contextService.GetContextPage(cmd.Context(), req, contextCursor)
	} else {
		page, err = contextService.GenerateContext(cmd.Context(), req)
	}
	if err != nil {
		return fmt.Errorf("context generation failed: %w", err)
	}

	if contextJSON {
		data, merr := json.MarshalIndent(page, "", "  ")
		if merr != nil {
			return fmt.Errorf("failed to marshal page: %w", merr)
		}
		cmd.Println(string(data))
		return nil
	}

	return outputContextPage(cmd, page)
}

func outputContextPage(cmd *cobra.Command, page *domain.ContextPage) error {
	if len(page.Chunks) == 0 {
		cmd.Println("No context found.")
		return nil
	}

	cmd.Printf("Context (%s, %d candidates, %s):\n",
		page.Metadata.Strategy, page.Metadata.TotalCandidates, page.Metadata.SearchTime)
	if page.Truncated {
		cmd.Println("Note: candidate set was truncated by the capacity ceiling.")
	}
	cmd.Println()

	for i := range page.Chunks {
		chunk := page.Chunks[i].Chunk
		cmd.Printf("--- %s/%s#%d (%.2f) ---\n", chunk.Repository, chunk.Path, chunk.Ordinal, page.Chunks[i].Score)
		cmd.Println(chunk.Content)
		cmd.Println()
	}

	if page.HasMore {
		cmd.Printf("More available. Re-run with --cursor %s\n", page.Cursor)
	}

	return nil
}
