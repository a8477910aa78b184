// Package scholar resolves paper authors and their h-index through the
// Semantic Scholar Graph API.
package scholar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Semantic Scholar Graph API root.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"
	// DefaultUserAgent identifies this application to Semantic Scholar.
	DefaultUserAgent = "pubguard/1.0"
	// DefaultTimeout bounds every individual API call.
	DefaultTimeout = 10 * time.Second

	// Rate limits
	rateWithoutKey = 1  // requests per second on the shared public pool
	rateWithKey    = 10 // requests per second with an API key

	maxBodySize = 10 << 20
)

// ErrNoResults is returned when a paper search matches nothing.
var ErrNoResults = errors.New("no papers found")

// Client is an HTTP client for the Semantic Scholar Graph API.
type Client struct {
	baseURL     string
	apiKey      string
	userAgent   string
	httpClient  *http.Client
	timeout     time.Duration
	limiter     *rate.Limiter
	rateLimit   *float64
	concurrency int
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAPIKey sets the Semantic Scholar API key. Unless WithRateLimit is also
// given, a key raises the default rate limit.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient sets a custom HTTP client. The client is used as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-call timeout, applied through the request context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit overrides the requests-per-second limit regardless of any API
// key. A non-positive value disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) { c.rateLimit = &perSecond }
}

// WithConcurrency sets how many author detail requests may be in flight.
// The default of 1 issues them one after another.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n < 1 {
			n = 1
		}
		c.concurrency = n
	}
}

// WithLogger sets the logger used to report degraded lookups.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a new Semantic Scholar client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		userAgent:   DefaultUserAgent,
		timeout:     DefaultTimeout,
		concurrency: 1,
		logger:      zap.NewNop(),
		httpClient:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.limiter = newLimiter(c.rateLimit, c.apiKey)
	return c
}

// newLimiter picks the request rate once all options are known: an explicit
// override wins, then the keyed or public default.
func newLimiter(override *float64, apiKey string) *rate.Limiter {
	switch {
	case override != nil && *override <= 0:
		return rate.NewLimiter(rate.Inf, 1)
	case override != nil:
		return rate.NewLimiter(rate.Limit(*override), 1)
	case apiKey != "":
		return rate.NewLimiter(rate.Limit(rateWithKey), 1)
	default:
		return rate.NewLimiter(rate.Limit(rateWithoutKey), 1)
	}
}

// doGet performs a rate-limited GET request and returns the response body.
func (c *Client) doGet(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("Semantic Scholar rate limit exceeded (HTTP 429). Consider setting an API key with --s2-api-key or SEMANTIC_SCHOLAR_API_KEY")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("Semantic Scholar returned HTTP %d for %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return body, nil
}
