package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/tigerchen52/pub-guard-llm/internal/prompt"
)

// DefaultGeminiModel is used when no Gemini model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient generates replies with the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini backend. An empty model selects
// DefaultGeminiModel.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set GEMINI_API_KEY)")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Model returns the configured model name.
func (g *GeminiClient) Model() string { return g.model }

// Contents maps conversation turns onto Gemini contents. System turns become
// the system instruction.
func Contents(turns []prompt.Turn) ([]*genai.Content, *genai.Content, error) {
	var contents []*genai.Content
	var system *genai.Content
	for _, t := range turns {
		switch t.From {
		case prompt.RoleHuman:
			contents = append(contents, &genai.Content{
				Parts: []*genai.Part{{Text: t.Value}},
				Role:  "user",
			})
		case prompt.RoleGPT:
			contents = append(contents, &genai.Content{
				Parts: []*genai.Part{{Text: t.Value}},
				Role:  "model",
			})
		case prompt.RoleSystem:
			system = &genai.Content{Parts: []*genai.Part{{Text: t.Value}}}
		default:
			return nil, nil, fmt.Errorf("%w: unknown speaker %q", ErrInvalidInput, t.From)
		}
	}
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("%w: empty conversation", ErrInvalidInput)
	}
	return contents, system, nil
}

// Generate sends the conversation to Gemini and returns the reply text.
func (g *GeminiClient) Generate(ctx context.Context, turns []prompt.Turn, opts GenerateOptions) (string, error) {
	contents, system, err := Contents(turns)
	if err != nil {
		return "", err
	}
	opts = opts.withDefaults()

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(opts.Temperature)),
		MaxOutputTokens:   int32(opts.MaxTokens),
		SystemInstruction: system,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %w", ErrGeneration, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response from model", ErrGeneration)
	}
	return text, nil
}
