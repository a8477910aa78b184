// Command pubguard screens research articles for retraction risk.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tigerchen52/pub-guard-llm/internal/cache"
	"github.com/tigerchen52/pub-guard-llm/internal/config"
	"github.com/tigerchen52/pub-guard-llm/internal/enrich"
	"github.com/tigerchen52/pub-guard-llm/internal/history"
	"github.com/tigerchen52/pub-guard-llm/internal/llm"
	"github.com/tigerchen52/pub-guard-llm/internal/logging"
	"github.com/tigerchen52/pub-guard-llm/internal/output"
	"github.com/tigerchen52/pub-guard-llm/internal/scholar"
)

var (
	flagConfig  string
	flagDataDir string
	flagJSON    bool
	flagHuman   bool
	flagVerbose bool

	cfg    config.Config
	logger = zap.NewNop()
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

var rootCmd = &cobra.Command{
	Use:   "pubguard",
	Short: "Screen research articles for retraction risk",
	Long: `pubguard enriches article metadata with author, institution and journal
reputation signals and asks a language model whether the article should be
retracted.

Data files (journal_cache.jsonl, affiliation_cache.jsonl) are read from the
data directory (--data-dir, PUBGUARD_DATA_DIR or data/ next to the binary).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagDataDir != "" {
			cfg.DataDir = flagDataDir
		}
		level := cfg.LogLevel
		if flagVerbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.LogFormat)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: $PUBGUARD_CONFIG or ~/.config/pubguard/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Directory holding the reputation caches")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output JSON")
	rootCmd.PersistentFlags().BoolVar(&flagHuman, "human", false, "Styled terminal output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func outputConfig() output.Config {
	return output.Config{JSON: flagJSON, Human: flagHuman}
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.Path()
}

// loadCaches reads both reputation caches from the data directory. Missing
// files give empty caches.
func loadCaches() (*cache.JournalCache, *cache.InstitutionCache) {
	journals := cache.LoadJournalCache(filepath.Join(cfg.DataDir, cache.JournalFile), logger)
	institutions := cache.LoadInstitutionCache(filepath.Join(cfg.DataDir, cache.InstitutionFile), logger)
	return journals, institutions
}

func newScholarClient(apiKey string) *scholar.Client {
	if apiKey == "" {
		apiKey = cfg.Scholar.APIKey
	}
	opts := []scholar.Option{
		scholar.WithAPIKey(apiKey),
		scholar.WithConcurrency(cfg.Scholar.Concurrency),
		scholar.WithLogger(logger),
	}
	if cfg.Scholar.BaseURL != "" {
		opts = append(opts, scholar.WithBaseURL(cfg.Scholar.BaseURL))
	}
	if cfg.Scholar.TimeoutSeconds > 0 {
		opts = append(opts, scholar.WithTimeout(time.Duration(cfg.Scholar.TimeoutSeconds)*time.Second))
	}
	return scholar.NewClient(opts...)
}

func newEnricher() *enrich.Enricher {
	journals, institutions := loadCaches()
	return enrich.New(newScholarClient(""), journals, institutions,
		enrich.WithLogger(logger),
		enrich.WithCachedQuartile(cfg.Enrich.CachedQuartile))
}

// newGenerator builds the inference backend named in the LLM settings and
// returns it with the model name it uses.
func newGenerator(ctx context.Context, lc config.LLMConfig) (llm.Generator, string, error) {
	switch lc.Backend {
	case config.BackendGemini:
		model := lc.Model
		if model == "" || model == llm.DefaultModel {
			model = llm.DefaultGeminiModel
		}
		g, err := llm.NewGeminiClient(ctx, lc.GeminiAPIKey, model)
		if err != nil {
			return nil, "", fmt.Errorf("gemini setup: %w", err)
		}
		return g, g.Model(), nil
	case config.BackendOpenAI, "":
		c := llm.NewClient(
			llm.WithBaseURL(lc.BaseURL),
			llm.WithAPIKey(lc.APIKey),
			llm.WithModel(lc.Model),
		)
		return c, c.Model(), nil
	default:
		return nil, "", fmt.Errorf("unknown backend %q (want %s or %s)", lc.Backend, config.BackendOpenAI, config.BackendGemini)
	}
}

func openHistory() (*history.Store, error) {
	path := cfg.HistoryPath()
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	return store, nil
}

var errNoArticle = errors.New("no article given: use --article, --input or --title/--abstract/--author/--institution/--journal")
