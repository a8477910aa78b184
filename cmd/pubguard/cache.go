package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tigerchen52/pub-guard-llm/internal/cache"
	"github.com/tigerchen52/pub-guard-llm/internal/output"
	"github.com/tigerchen52/pub-guard-llm/internal/reputation"
)

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheGetCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the journal and institution caches",
	Long: `Inspect the local reputation caches.

Commands:
  pubguard cache stats         - Show how many records were loaded
  pubguard cache get <name>    - Look up a journal or institution`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache load statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		journals, institutions := loadCaches()
		stats := []cache.Stats{journals.Stats(), institutions.Stats()}
		return output.FormatCacheStats(cmd.OutOrStdout(), stats, outputConfig())
	},
}

// cacheHit is one cache match for a name.
type cacheHit struct {
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	Value string `json:"value"`
	Label string `json:"label"`
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Look up a journal or institution by name",
	Long: `Looks the name up in both caches, case-insensitively. Institution names are
also tried after normalization, so a full affiliation string works too.

Examples:
  pubguard cache get "Nature"
  pubguard cache get "Dept of Medicine, Harvard University, Boston"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")
		journals, institutions := loadCaches()

		var hits []cacheHit
		if q, ok := journals.Lookup(name); ok {
			hits = append(hits, cacheHit{Kind: "journal", Name: name, Value: q, Label: reputation.QuartileLabel(q)})
		}
		inst := reputation.NormalizeInstitution(name)
		if avg, ok := institutions.Lookup(inst); ok {
			label, err := reputation.AverageCitationLabel(avg)
			if err != nil {
				label = err.Error()
			}
			hits = append(hits, cacheHit{Kind: "institution", Name: inst, Value: fmt.Sprintf("%g", avg), Label: label})
		}

		w := cmd.OutOrStdout()
		if flagJSON {
			if hits == nil {
				hits = []cacheHit{}
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(hits)
		}
		if len(hits) == 0 {
			return fmt.Errorf("%q not found in either cache", name)
		}
		for _, h := range hits {
			fmt.Fprintf(w, "%s\t%s\t%s\n", h.Kind, h.Name, h.Label)
		}
		return nil
	},
}
