package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docbrief/internal/core/domain"
)

var (
	searchLanguage   string
	searchFramework  string
	searchRepos      []string
	searchCategories []string
	searchLimit      int
	searchStrategy   string
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [task]",
	Short: "Search indexed documentation",
	Long: `Performs single-pass ranked retrieval over the indexed documentation.
The default hybrid strategy combines semantic similarity with
structural term scoring; filters exclude rather than penalise.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchLanguage, "language", "l", "", "only return chunks in this programming language")
	searchCmd.Flags().StringVarP(&searchFramework, "framework", "f", "", "only return chunks mentioning this framework")
	searchCmd.Flags().StringSliceVarP(&searchRepos, "repo", "r", nil, "restrict to these repositories")
	searchCmd.Flags().StringSliceVarP(&searchCategories, "category", "c", nil, "restrict to these categories")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchStrategy, "strategy", "s", "hybrid", "retrieval strategy (semantic, structural, hybrid)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if contextService == nil {
		return errors.New("context service not configured")
	}

	query := domain.Query{
		Task:         args[0],
		Language:     searchLanguage,
		Framework:    searchFramework,
		Repositories: searchRepos,
		Categories:   searchCategories,
		MaxResults:   searchLimit,
		Strategy:     domain.Strategy(searchStrategy),
	}

	results, info, err := contextService.Search(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results, info)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.ScoredChunk) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.ScoredChunk, info domain.SearchInfo) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results (%s, %d candidates):\n", info.Strategy, info.TotalCandidates)
	cmd.Println()
	for i := range results {
		chunk := results[i].Chunk
		cmd.Printf("  [%d] %s/%s#%d (%.2f)\n", i+1, chunk.Repository, chunk.Path, chunk.Ordinal, results[i].Score)
		if len(chunk.Metadata.HeadingContext) > 0 {
			cmd.Printf("      %s\n", strings.Join(chunk.Metadata.HeadingContext, " > "))
		}
		cmd.Printf("      %s\n", snippet(chunk.Content, 120))
		cmd.Println()
	}

	return nil
}

// snippet returns the first line of content, truncated to max runes.
func snippet(content string, max int) string {
	line := content
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	runes := []rune(line)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return line
}
