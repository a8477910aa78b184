package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tigerchen52/pub-guard-llm/internal/config"
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage pubguard configuration",
	Long: `View and modify pubguard defaults.

Commands:
  pubguard config show    - Show the effective configuration
  pubguard config set     - Interactive configuration editor
  pubguard config reset   - Reset to defaults`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		err := rootCmd.PersistentPreRunE(cmd, args)
		// A broken config file must still be resettable.
		if err != nil && cmd == configResetCmd {
			fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("ignoring invalid config: "+err.Error()))
			return nil
		}
		return err
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagJSON {
			return writeConfigJSON(cmd, cfg)
		}

		style := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(1, 2)

		content := fmt.Sprintf(`📁 Config file: %s
   Data dir:     %s

🔎 Semantic Scholar:
   API key:      %s
   Timeout:      %ds
   Concurrency:  %d
   Cached JCR:   %v

🤖 LLM:
   Backend:      %s
   Base URL:     %s
   Model:        %s
   API key:      %s
   Max tokens:   %d
   Temperature:  %g
   K-shot:       %d
   Examples:     %s

🗂  History:
   Record:       %v
   Database:     %s`,
			configPath(),
			cfg.DataDir,
			maskKey(cfg.Scholar.APIKey),
			cfg.Scholar.TimeoutSeconds,
			cfg.Scholar.Concurrency,
			cfg.Enrich.CachedQuartile,
			cfg.LLM.Backend,
			cfg.LLM.BaseURL,
			cfg.LLM.Model,
			maskKey(activeLLMKey(cfg.LLM)),
			cfg.LLM.MaxTokens,
			cfg.LLM.Temperature,
			cfg.LLM.KShot,
			valueOrDefault(cfg.LLM.ExamplesFile, "(none)"),
			cfg.History.Enabled,
			cfg.HistoryPath())

		fmt.Fprintln(cmd.OutOrStdout(), style.Render(content))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Interactive configuration editor",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Edit the file's own settings so environment secrets are not persisted.
		fileCfg, err := config.LoadFile(configPath())
		if err != nil {
			return err
		}

		var (
			dataDir        = fileCfg.DataDir
			concurrencyStr = strconv.Itoa(fileCfg.Scholar.Concurrency)
			cachedQuartile = fileCfg.Enrich.CachedQuartile
			backend        = fileCfg.LLM.Backend
			baseURL        = fileCfg.LLM.BaseURL
			model          = fileCfg.LLM.Model
			maxTokensStr   = strconv.Itoa(fileCfg.LLM.MaxTokens)
			temperatureStr = strconv.FormatFloat(fileCfg.LLM.Temperature, 'g', -1, 64)
			kShotStr       = strconv.Itoa(fileCfg.LLM.KShot)
			examplesFile   = fileCfg.LLM.ExamplesFile
			recordHistory  = fileCfg.History.Enabled
		)

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Data directory").
					Description("Holds journal_cache.jsonl and affiliation_cache.jsonl").
					Value(&dataDir).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return fmt.Errorf("data directory is required")
						}
						return nil
					}),
				huh.NewInput().
					Title("Concurrent author lookups").
					Value(&concurrencyStr).
					Validate(validatePositiveInt),
				huh.NewConfirm().
					Title("Label journals with their cached JCR quartile?").
					Description("Off: every journal found in the cache is labelled Q4").
					Value(&cachedQuartile),
			).Title("Enrichment"),

			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Inference backend").
					Options(
						huh.NewOption("OpenAI-compatible API", config.BackendOpenAI),
						huh.NewOption("Gemini API", config.BackendGemini),
					).
					Value(&backend),
				huh.NewInput().
					Title("API base URL (OpenAI-compatible backend)").
					Description("e.g., http://localhost:8000/v1 for a local vLLM server").
					Value(&baseURL),
				huh.NewInput().
					Title("Model").
					Value(&model),
				huh.NewInput().
					Title("Max tokens").
					Value(&maxTokensStr).
					Validate(validatePositiveInt),
				huh.NewInput().
					Title("Temperature").
					Value(&temperatureStr).
					Validate(func(s string) error {
						t, err := strconv.ParseFloat(s, 64)
						if err != nil {
							return fmt.Errorf("enter a number")
						}
						if t < 0 || t > 2 {
							return fmt.Errorf("must be 0-2")
						}
						return nil
					}),
			).Title("LLM Settings"),

			huh.NewGroup(
				huh.NewInput().
					Title("Few-shot examples (k)").
					Value(&kShotStr).
					Validate(validateNonNegativeInt),
				huh.NewInput().
					Title("Examples file (JSONL)").
					Value(&examplesFile),
				huh.NewConfirm().
					Title("Record every screening in the history database?").
					Value(&recordHistory),
			).Title("Screening"),
		).WithTheme(huh.ThemeCatppuccin())

		if err := form.Run(); err != nil {
			return err
		}

		concurrency, err := strconv.Atoi(concurrencyStr)
		if err != nil {
			return fmt.Errorf("parse concurrency: %w", err)
		}
		maxTokens, err := strconv.Atoi(maxTokensStr)
		if err != nil {
			return fmt.Errorf("parse max tokens: %w", err)
		}
		temperature, err := strconv.ParseFloat(temperatureStr, 64)
		if err != nil {
			return fmt.Errorf("parse temperature: %w", err)
		}
		kShot, err := strconv.Atoi(kShotStr)
		if err != nil {
			return fmt.Errorf("parse k-shot: %w", err)
		}

		fileCfg.DataDir = strings.TrimSpace(dataDir)
		fileCfg.Scholar.Concurrency = concurrency
		fileCfg.Enrich.CachedQuartile = cachedQuartile
		fileCfg.LLM.Backend = backend
		fileCfg.LLM.BaseURL = strings.TrimSpace(baseURL)
		fileCfg.LLM.Model = strings.TrimSpace(model)
		fileCfg.LLM.MaxTokens = maxTokens
		fileCfg.LLM.Temperature = temperature
		fileCfg.LLM.KShot = kShot
		fileCfg.LLM.ExamplesFile = strings.TrimSpace(examplesFile)
		fileCfg.History.Enabled = recordHistory

		if err := config.Save(configPath(), fileCfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println(successStyle.Render("✓ Configuration saved!"))
		fmt.Println(dimStyle.Render(fmt.Sprintf("  %s", configPath())))
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Save(configPath(), config.Default()); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("✓ Configuration reset to defaults"))
		return nil
	},
}

func writeConfigJSON(cmd *cobra.Command, c config.Config) error {
	c.Scholar.APIKey = maskKey(c.Scholar.APIKey)
	c.LLM.APIKey = maskKey(c.LLM.APIKey)
	c.LLM.GeminiAPIKey = maskKey(c.LLM.GeminiAPIKey)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

func activeLLMKey(lc config.LLMConfig) string {
	if lc.Backend == config.BackendGemini {
		return lc.GeminiAPIKey
	}
	return lc.APIKey
}

// maskKey shows only the last four characters of a secret.
func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 4:
		return "****"
	default:
		return "****" + key[len(key)-4:]
	}
}

func valueOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("enter a number")
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1")
	}
	return nil
}

func validateNonNegativeInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("enter a number")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
