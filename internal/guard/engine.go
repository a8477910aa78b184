// Package guard screens articles for retraction risk: it enriches the
// article, builds the screening prompt, asks a model and extracts its verdict.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tigerchen52/pub-guard-llm/internal/article"
	"github.com/tigerchen52/pub-guard-llm/internal/enrich"
	"github.com/tigerchen52/pub-guard-llm/internal/llm"
	"github.com/tigerchen52/pub-guard-llm/internal/prompt"
)

// Category classifies the outcome of a screening.
type Category string

const (
	CategoryOK               Category = "ok"
	CategoryInvalidInput     Category = "invalid_input"
	CategoryGenerationFailed Category = "generation_failed"
	CategoryUnexpected       Category = "unexpected"
)

// User-facing answers for failed screenings. Details go to the log only.
const (
	MsgInvalidInput     = "Error: Invalid input provided."
	MsgGenerationFailed = "Error: Model failed to generate a response."
	MsgUnexpected       = "Error: An unexpected issue occurred during prediction."
)

// Message returns the fixed answer for a failure category, or "" for CategoryOK.
func (c Category) Message() string {
	switch c {
	case CategoryOK:
		return ""
	case CategoryInvalidInput:
		return MsgInvalidInput
	case CategoryGenerationFailed:
		return MsgGenerationFailed
	default:
		return MsgUnexpected
	}
}

// Classify maps an error raised at the inference boundary to its category.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryOK
	case errors.Is(err, llm.ErrInvalidInput):
		return CategoryInvalidInput
	case errors.Is(err, llm.ErrGeneration):
		return CategoryGenerationFailed
	default:
		return CategoryUnexpected
	}
}

// Enricher renders the entity fields of an article. *enrich.Enricher
// satisfies it.
type Enricher interface {
	Enrich(ctx context.Context, a article.Article) enrich.Result
}

// Recorder persists screening results.
type Recorder interface {
	Record(ctx context.Context, r *Result) error
}

// Config controls screening behavior.
type Config struct {
	KShot    int                      // Examples rendered into the prompt (default: 0)
	Examples []article.LabeledExample // Few-shot pool, used front to back
	Generate llm.GenerateOptions      // Token and temperature limits
	Sanitize llm.SanitizeConfig       // Field validation
	Model    string                   // Recorded with each result
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Generate: llm.DefaultGenerateOptions(),
		Sanitize: llm.DefaultSanitizeConfig(),
	}
}

// Result is the outcome of screening one article.
type Result struct {
	ID        string                   `json:"id"`
	Title     string                   `json:"title"`
	Journal   string                   `json:"journal"`
	Model     string                   `json:"model,omitempty"`
	Enriched  *article.EnrichedArticle `json:"enriched,omitempty"`
	Prompt    string                   `json:"prompt,omitempty"`
	Answer    string                   `json:"answer"`
	RawOutput string                   `json:"raw_output,omitempty"`
	Category  Category                 `json:"category"`
	Faults    []string                 `json:"faults,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	Duration  time.Duration            `json:"duration_ns"`
}

// OK reports whether the model produced an answer.
func (r *Result) OK() bool { return r.Category == CategoryOK }

// Engine screens articles.
type Engine struct {
	gen      llm.Generator
	enricher Enricher
	cfg      Config
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder stores every result with r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a new screening engine.
func NewEngine(gen llm.Generator, enricher Enricher, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		gen:      gen,
		enricher: enricher,
		cfg:      cfg,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Predict screens a. A missing required field is returned as an error; every
// other failure is reported through the result's Category and a fixed Answer.
func (e *Engine) Predict(ctx context.Context, a article.Article) (*Result, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	start := e.now()
	result := &Result{
		ID:        uuid.NewString(),
		Title:     a.Title,
		Journal:   a.Journal,
		Model:     e.cfg.Model,
		CreatedAt: start.UTC(),
	}
	log := e.logger.With(zap.String("screening_id", result.ID))

	err := e.run(ctx, a, result, log)
	result.Category = Classify(err)
	if err != nil {
		result.Answer = result.Category.Message()
		log.Error("screening failed",
			zap.String("category", string(result.Category)),
			zap.String("title", a.Title),
			zap.Error(err))
	}
	result.Duration = e.now().Sub(start)

	if e.recorder != nil {
		if rerr := e.recorder.Record(ctx, result); rerr != nil {
			log.Warn("failed to record screening", zap.Error(rerr))
		}
	}
	return result, nil
}

// run performs the screening steps, converting panics into errors.
func (e *Engine) run(ctx context.Context, a article.Article, result *Result, log *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during prediction: %v", r)
		}
	}()

	// Step 1: Enrich
	enriched := e.enricher.Enrich(ctx, a)
	for _, f := range enriched.Faults {
		result.Faults = append(result.Faults, f.Error())
	}
	if enriched.Degraded() {
		log.Info("enrichment degraded", zap.Int("faults", len(enriched.Faults)))
	}

	// Step 2: Check fields
	checked := enriched.Article
	result.Enriched = &checked
	if err := llm.CheckArticle(checked, e.cfg.Sanitize); err != nil {
		return fmt.Errorf("check input: %w", err)
	}

	// Step 3: Prompt
	result.Prompt = prompt.Format(checked, e.cfg.Examples, e.cfg.KShot)
	log.Debug("generated prompt", zap.String("prompt", result.Prompt))

	// Step 4: Generate
	raw, err := e.gen.Generate(ctx, prompt.Conversation(result.Prompt), e.cfg.Generate)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	result.RawOutput = raw

	// Step 5: Extract
	answer, ok := prompt.ExtractAnswer(raw)
	if !ok {
		return fmt.Errorf("%w: no answer in model output", llm.ErrGeneration)
	}
	result.Answer = answer
	return nil
}

// PredictBatch screens articles one after another. Articles failing validation
// are skipped with their index reported in the returned error; the others are
// still screened.
func (e *Engine) PredictBatch(ctx context.Context, articles []article.Article) ([]*Result, error) {
	results := make([]*Result, 0, len(articles))
	var errs []error
	for i, a := range articles {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		r, err := e.Predict(ctx, a)
		if err != nil {
			errs = append(errs, fmt.Errorf("article %d: %w", i+1, err))
			continue
		}
		results = append(results, r)
	}
	return results, errors.Join(errs...)
}
