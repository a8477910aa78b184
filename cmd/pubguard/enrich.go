package main

import (
	"github.com/spf13/cobra"

	"github.com/tigerchen52/pub-guard-llm/internal/output"
)

var enrichInput articleFlags

func init() {
	enrichInput.register(enrichCmd)
	rootCmd.AddCommand(enrichCmd)
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Show the reputation-annotated article without calling a model",
	Long: `Looks up authors on Semantic Scholar and the journal and institutions in the
local caches, and prints the annotated fields the model would see. Fields that
could not be annotated are listed as faults.

Examples:
  pubguard enrich --article paper.json
  pubguard enrich --article paper.json --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := enrichInput.single(cmd.InOrStdin())
		if err != nil {
			return err
		}
		res := newEnricher().Enrich(cmd.Context(), a)
		return output.FormatEnriched(cmd.OutOrStdout(), res, outputConfig())
	},
}
