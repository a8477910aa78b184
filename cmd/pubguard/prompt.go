package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tigerchen52/pub-guard-llm/internal/article"
	"github.com/tigerchen52/pub-guard-llm/internal/llm"
	"github.com/tigerchen52/pub-guard-llm/internal/prompt"
)

var (
	promptInput    articleFlags
	promptKShot    int
	promptExamples string
	promptChat     bool
)

func init() {
	promptInput.register(promptCmd)
	promptCmd.Flags().IntVar(&promptKShot, "k-shot", 0, "Labeled examples to include")
	promptCmd.Flags().StringVar(&promptExamples, "examples", "", "JSONL file of labeled examples")
	promptCmd.Flags().BoolVar(&promptChat, "chat", false, "Print the conversation sent to the model as JSON")
	rootCmd.AddCommand(promptCmd)
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the screening prompt for an article",
	Long: `Enriches the article and prints the prompt exactly as it would be sent to the
model. The fields pass through the same input checks as predict.

Examples:
  pubguard prompt --article paper.json
  pubguard prompt --article paper.json --k-shot 2 --examples examples.jsonl --chat`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := promptInput.single(cmd.InOrStdin())
		if err != nil {
			return err
		}

		var examples []article.LabeledExample
		if promptKShot > 0 {
			if promptExamples == "" {
				return fmt.Errorf("--k-shot needs --examples")
			}
			if examples, err = article.ReadExamplesFile(promptExamples); err != nil {
				return err
			}
		}

		res := newEnricher().Enrich(cmd.Context(), a)
		if err := llm.CheckArticle(res.Article, llm.DefaultSanitizeConfig()); err != nil {
			return err
		}
		text := prompt.Format(res.Article, examples, promptKShot)

		if promptChat || flagJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(prompt.Conversation(text))
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}
