// Package config loads pubguard settings from a YAML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerchen52/pub-guard-llm/internal/llm"
	"github.com/tigerchen52/pub-guard-llm/internal/scholar"
)

// Backends accepted in LLMConfig.Backend.
const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// Config holds all pubguard settings.
type Config struct {
	DataDir   string        `yaml:"data_dir"`
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"`
	Scholar   ScholarConfig `yaml:"semantic_scholar"`
	Enrich    EnrichConfig  `yaml:"enrich"`
	LLM       LLMConfig     `yaml:"llm"`
	History   HistoryConfig `yaml:"history"`
}

// EnrichConfig tunes the reputation annotations.
type EnrichConfig struct {
	// CachedQuartile labels journals with their cached JCR quartile instead of
	// the name-derived label (always Q4).
	CachedQuartile bool `yaml:"cached_quartile"`
}

// ScholarConfig configures the Semantic Scholar client.
type ScholarConfig struct {
	APIKey         string `yaml:"api_key,omitempty"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Concurrency    int    `yaml:"concurrency"`
}

// LLMConfig configures generation and prompt construction.
type LLMConfig struct {
	Backend      string  `yaml:"backend"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	APIKey       string  `yaml:"api_key,omitempty"`
	GeminiAPIKey string  `yaml:"gemini_api_key,omitempty"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	KShot        int     `yaml:"k_shot"`
	ExamplesFile string  `yaml:"examples_file,omitempty"`
}

// HistoryConfig configures the screening audit log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DataDir:   defaultDataDir(),
		LogLevel:  "warn",
		LogFormat: "console",
		Scholar: ScholarConfig{
			BaseURL:        scholar.DefaultBaseURL,
			TimeoutSeconds: int(scholar.DefaultTimeout.Seconds()),
			Concurrency:    1,
		},
		LLM: LLMConfig{
			Backend:     BackendOpenAI,
			BaseURL:     llm.DefaultBaseURL,
			Model:       llm.DefaultModel,
			MaxTokens:   llm.DefaultMaxTokens,
			Temperature: llm.DefaultTemperature,
		},
	}
}

// defaultDataDir is data/ next to the executable when it exists, data/ in the
// working directory otherwise.
func defaultDataDir() string {
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Join(filepath.Dir(exe), "data")
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return "data"
}

// Path returns the config file location: $PUBGUARD_CONFIG, or
// ~/.config/pubguard/config.yaml.
func Path() string {
	if p := os.Getenv("PUBGUARD_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "pubguard", "config.yaml")
	}
	return filepath.Join(home, ".config", "pubguard", "config.yaml")
}

// HistoryPath returns where the history database lives.
func (c Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(c.DataDir, "history.db")
}

// Validate reports settings no command can work with.
func (c Config) Validate() error {
	var errs []error
	switch c.LLM.Backend {
	case BackendOpenAI, BackendGemini:
	default:
		errs = append(errs, fmt.Errorf("llm.backend %q: want %s or %s", c.LLM.Backend, BackendOpenAI, BackendGemini))
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must not be negative"))
	}
	if c.LLM.Temperature < 0 {
		errs = append(errs, fmt.Errorf("llm.temperature must not be negative"))
	}
	if c.LLM.KShot < 0 {
		errs = append(errs, fmt.Errorf("llm.k_shot must not be negative"))
	}
	if c.Scholar.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("semantic_scholar.timeout_seconds must not be negative"))
	}
	return errors.Join(errs...)
}

// LoadFile returns the defaults overlaid with the YAML file at path. A
// missing file is not an error. Environment variables are not consulted, so
// the result is safe to write back with Save.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	// Keys absent from the file keep their default values.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Load returns the effective settings: defaults, the YAML file at path (or
// Path() when empty), a .env file in the working directory, then the
// environment.
func Load(path string) (Config, error) {
	if path == "" {
		path = Path()
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := loadDotEnv(".env"); err != nil {
		return cfg, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// loadDotEnv exports the variables in file without overriding ones already
// set.
func loadDotEnv(file string) error {
	if _, err := os.Stat(file); err != nil {
		return nil
	}
	if err := godotenv.Load(file); err != nil {
		return fmt.Errorf("load %s: %w", file, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PUBGUARD_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("PUBGUARD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PUBGUARD_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("SEMANTIC_SCHOLAR_API_KEY"); v != "" {
		c.Scholar.APIKey = v
	}
	if v := firstEnv("LLM_API_KEY", "OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"); v != "" {
		c.LLM.GeminiAPIKey = v
	}
	if v := os.Getenv("PUBGUARD_BACKEND"); v != "" {
		c.LLM.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("PUBGUARD_K_SHOT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PUBGUARD_K_SHOT: %w", err)
		}
		c.LLM.KShot = n
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Save writes cfg to path, creating parent directories. The file may hold API
// keys, so it is only readable by the owner.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
