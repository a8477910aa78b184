// Package llm provides the text-generation backends used to screen articles.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tigerchen52/pub-guard-llm/internal/prompt"
)

// Generation defaults.
const (
	DefaultMaxTokens   = 256
	DefaultTemperature = 0.1
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTimeout     = 120 * time.Second

	maxResponseSize = 10 << 20
)

var (
	// ErrInvalidInput marks input the model cannot be asked about: rejected by
	// the sanitizer or refused by the backend as malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGeneration marks a backend that failed to produce a response.
	ErrGeneration = errors.New("generation failed")
)

// GenerateOptions bound a single generation.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// DefaultGenerateOptions returns the options used when none are given.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{MaxTokens: DefaultMaxTokens, Temperature: DefaultTemperature}
}

func (o GenerateOptions) withDefaults() GenerateOptions {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Temperature < 0 {
		o.Temperature = DefaultTemperature
	}
	return o
}

// Generator produces the model's reply to a conversation.
type Generator interface {
	Generate(ctx context.Context, turns []prompt.Turn, opts GenerateOptions) (string, error)
}

// Client wraps an OpenAI-compatible API endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Option configures the LLM client.
type Option func(*Client)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new LLM client with sensible defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the request body for chat completions.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse is the response from chat completions.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Messages maps conversation turns onto chat roles.
func Messages(turns []prompt.Turn) ([]Message, error) {
	msgs := make([]Message, 0, len(turns))
	for _, t := range turns {
		var role string
		switch t.From {
		case prompt.RoleHuman:
			role = "user"
		case prompt.RoleGPT:
			role = "assistant"
		case prompt.RoleSystem:
			role = "system"
		default:
			return nil, fmt.Errorf("%w: unknown speaker %q", ErrInvalidInput, t.From)
		}
		msgs = append(msgs, Message{Role: role, Content: t.Value})
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: empty conversation", ErrInvalidInput)
	}
	return msgs, nil
}

// Generate sends the conversation to /chat/completions and returns the reply.
func (c *Client) Generate(ctx context.Context, turns []prompt.Turn, opts GenerateOptions) (string, error) {
	messages, err := Messages(turns)
	if err != nil {
		return "", err
	}
	opts = opts.withDefaults()

	req := ChatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrGeneration, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrGeneration, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: http request: %w", ErrGeneration, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrGeneration, err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusRequestEntityTooLarge,
		resp.StatusCode == http.StatusUnprocessableEntity:
		return "", fmt.Errorf("%w: API rejected request (%d): %s", ErrInvalidInput, resp.StatusCode, string(respBody))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: API error %d: %s", ErrGeneration, resp.StatusCode, string(respBody))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %v", ErrGeneration, err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrGeneration)
	}

	return chatResp.Choices[0].Message.Content, nil
}
