package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tigerchen52/pub-guard-llm/internal/output"
)

var (
	lookupAPIKey string
	lookupCSV    string
)

func init() {
	lookupCmd.Flags().StringVar(&lookupAPIKey, "s2-api-key", "", "Semantic Scholar API key (default: SEMANTIC_SCHOLAR_API_KEY env)")
	lookupCmd.Flags().StringVar(&lookupCSV, "csv", "", "Also write the authors to a CSV file")
	rootCmd.AddCommand(lookupCmd)
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <title>",
	Short: "Look up the authors of a paper on Semantic Scholar",
	Long: `Finds the best-matching paper for a title and prints its authors with their
h-index, paper and citation counts.

Examples:
  pubguard lookup "Challenges in diagnosis and management of diabetes in the young"
  pubguard lookup --json "Attention is all you need"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.Join(args, " ")
		authors := newScholarClient(lookupAPIKey).LookupAuthorsByTitle(cmd.Context(), title)

		if err := output.FormatAuthors(cmd.OutOrStdout(), authors, outputConfig()); err != nil {
			return err
		}
		if lookupCSV != "" {
			if err := output.WriteAuthorsCSV(lookupCSV, authors); err != nil {
				return fmt.Errorf("write CSV: %w", err)
			}
			fmt.Fprintf(os.Stderr, "✓ Wrote %s (%d authors)\n", lookupCSV, len(authors))
		}
		return nil
	},
}
