package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tigerchen52/pub-guard-llm/internal/guard"
	"github.com/tigerchen52/pub-guard-llm/internal/history"
	"github.com/tigerchen52/pub-guard-llm/internal/output"
)

var (
	historyLimit    int
	historyCategory string
	historyCSV      string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", history.DefaultLimit, "Number of screenings to show")
	historyCmd.Flags().StringVar(&historyCategory, "category", "", "Only show one outcome: ok, invalid_input, generation_failed, unexpected")
	historyCmd.Flags().StringVar(&historyCSV, "csv", "", "Also write the entries to a CSV file")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List recorded screenings",
	Long: `Lists screenings recorded with predict --history, newest first. With an ID,
prints that screening including its prompt.

Examples:
  pubguard history
  pubguard history --category generation_failed --limit 50
  pubguard history 3f0c9a52-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		var entries []history.Entry
		if len(args) == 1 {
			e, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !flagJSON {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n\nAnswer: %s\n", e.Title, e.Prompt, e.Answer)
				return nil
			}
			entries = []history.Entry{*e}
		} else {
			entries, err = store.List(cmd.Context(), history.ListOptions{
				Limit:    historyLimit,
				Category: guard.Category(historyCategory),
			})
			if err != nil {
				return err
			}
		}

		if err := output.FormatHistory(cmd.OutOrStdout(), entries, outputConfig()); err != nil {
			return err
		}
		if historyCSV != "" {
			if err := output.WriteHistoryCSV(historyCSV, entries); err != nil {
				return fmt.Errorf("write CSV: %w", err)
			}
			fmt.Fprintf(os.Stderr, "✓ Wrote %s (%d entries)\n", historyCSV, len(entries))
		}
		return nil
	},
}
