package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tigerchen52/pub-guard-llm/internal/article"
	"github.com/tigerchen52/pub-guard-llm/internal/guard"
	"github.com/tigerchen52/pub-guard-llm/internal/llm"
	"github.com/tigerchen52/pub-guard-llm/internal/output"
)

var (
	predictInput       articleFlags
	predictKShot       int
	predictExamples    string
	predictBackend     string
	predictModel       string
	predictBaseURL     string
	predictMaxTokens   int
	predictTemperature float64
	predictCSV         string
	predictHistory     bool
)

func init() {
	predictInput.register(predictCmd)
	predictCmd.Flags().IntVar(&predictKShot, "k-shot", -1, "Labeled examples to include in the prompt (default: config k_shot)")
	predictCmd.Flags().StringVar(&predictExamples, "examples", "", "JSONL file of labeled examples for --k-shot")
	predictCmd.Flags().StringVar(&predictBackend, "backend", "", "Inference backend: openai or gemini")
	predictCmd.Flags().StringVar(&predictModel, "model", "", "Model name (default: LLM_MODEL env or config)")
	predictCmd.Flags().StringVar(&predictBaseURL, "llm-url", "", "OpenAI-compatible API base URL (default: LLM_BASE_URL env)")
	predictCmd.Flags().IntVar(&predictMaxTokens, "max-tokens", 0, "Maximum tokens to generate")
	predictCmd.Flags().Float64Var(&predictTemperature, "temperature", -1, "Sampling temperature")
	predictCmd.Flags().StringVar(&predictCSV, "csv", "", "Also write results to a CSV file")
	predictCmd.Flags().BoolVar(&predictHistory, "history", false, "Record screenings in the history database")

	rootCmd.AddCommand(predictCmd)
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Screen articles for retraction risk",
	Long: `Enriches each article with reputation signals, builds the screening prompt
and asks the model whether the article should be retracted.

Examples:
  pubguard predict --article paper.json
  pubguard predict --input papers.jsonl --csv results.csv --history
  pubguard predict --title "..." --abstract "..." --author "Jane Doe" \
      --institution "Harvard University" --journal "Nature"

Environment variables:
  LLM_API_KEY     - API key for the OpenAI-compatible backend (or OPENAI_API_KEY)
  LLM_BASE_URL    - Base URL for the OpenAI-compatible backend
  LLM_MODEL       - Model name
  GEMINI_API_KEY  - API key for the gemini backend
  SEMANTIC_SCHOLAR_API_KEY - Raises the author lookup rate limit`,
	Args: cobra.NoArgs,
	RunE: runPredict,
}

func runPredict(cmd *cobra.Command, args []string) error {
	articles, err := predictInput.articles(cmd.InOrStdin())
	if err != nil {
		return err
	}

	lc := cfg.LLM
	if predictBackend != "" {
		lc.Backend = strings.ToLower(predictBackend)
	}
	if predictModel != "" {
		lc.Model = predictModel
	}
	if predictBaseURL != "" {
		lc.BaseURL = predictBaseURL
	}
	if predictKShot >= 0 {
		lc.KShot = predictKShot
	}
	if predictExamples != "" {
		lc.ExamplesFile = predictExamples
	}
	if predictMaxTokens > 0 {
		lc.MaxTokens = predictMaxTokens
	}
	if predictTemperature >= 0 {
		lc.Temperature = predictTemperature
	}

	gen, model, err := newGenerator(cmd.Context(), lc)
	if err != nil {
		return err
	}

	engineCfg := guard.DefaultConfig()
	engineCfg.Model = model
	engineCfg.KShot = lc.KShot
	engineCfg.Generate = llm.GenerateOptions{MaxTokens: lc.MaxTokens, Temperature: lc.Temperature}
	if lc.KShot > 0 {
		if lc.ExamplesFile == "" {
			return errors.New("--k-shot needs --examples (or llm.examples_file in the config)")
		}
		engineCfg.Examples, err = article.ReadExamplesFile(lc.ExamplesFile)
		if err != nil {
			return err
		}
		if len(engineCfg.Examples) < lc.KShot {
			logger.Warn("fewer examples than requested",
				zap.Int("k_shot", lc.KShot), zap.Int("examples", len(engineCfg.Examples)))
		}
	}

	opts := []guard.Option{guard.WithLogger(logger)}
	if predictHistory || cfg.History.Enabled {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, guard.WithRecorder(store))
	}

	engine := guard.NewEngine(gen, newEnricher(), engineCfg, opts...)

	var results []*guard.Result
	var batchErr error
	if len(articles) == 1 {
		r, err := engine.Predict(cmd.Context(), articles[0])
		if err != nil {
			return err
		}
		results = []*guard.Result{r}
	} else {
		results, batchErr = engine.PredictBatch(cmd.Context(), articles)
	}

	if err := output.FormatResults(cmd.OutOrStdout(), results, outputConfig()); err != nil {
		return err
	}
	if predictCSV != "" {
		if err := output.WriteResultsCSV(predictCSV, results); err != nil {
			return fmt.Errorf("write CSV: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %s (%d results)\n", predictCSV, len(results))
	}
	return batchErr
}
