package scholar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func loadTestdata(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", filename))
	if err != nil {
		t.Fatalf("failed to load testdata/%s: %v", filename, err)
	}
	return data
}

// newFixtureServer serves the paper search fixture and one fixture per author.
// Author IDs listed in fail get an HTTP 500.
func newFixtureServer(t *testing.T, fail ...string) *httptest.Server {
	t.Helper()
	search := loadTestdata(t, "paper_search.json")
	authors := map[string][]byte{
		"1": loadTestdata(t, "author_1.json"),
		"2": loadTestdata(t, "author_2.json"),
		"3": loadTestdata(t, "author_3.json"),
	}
	failing := make(map[string]bool)
	for _, id := range fail {
		failing[id] = true
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/paper/search":
			q := r.URL.Query()
			if got := q.Get("limit"); got != "1" {
				t.Errorf("expected limit=1, got %q", got)
			}
			if got := q.Get("fields"); got != searchFields {
				t.Errorf("expected fields=%q, got %q", searchFields, got)
			}
			w.Write(search)
		case strings.HasPrefix(r.URL.Path, "/author/"):
			id := strings.TrimPrefix(r.URL.Path, "/author/")
			if got := r.URL.Query().Get("fields"); got != authorFields {
				t.Errorf("expected fields=%q, got %q", authorFields, got)
			}
			if failing[id] {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			body, ok := authors[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(body)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func testClient(srv *httptest.Server, opts ...Option) *Client {
	base := []Option{WithBaseURL(srv.URL), WithRateLimit(0)}
	return NewClient(append(base, opts...)...)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient()
	if c.baseURL != DefaultBaseURL {
		t.Errorf("expected base URL %q, got %q", DefaultBaseURL, c.baseURL)
	}
	if c.timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, c.timeout)
	}
	if c.limiter.Limit() != rate.Limit(rateWithoutKey) {
		t.Errorf("expected public rate limit, got %v", c.limiter.Limit())
	}
	if c.concurrency != 1 {
		t.Errorf("expected sequential lookups by default, got concurrency %d", c.concurrency)
	}
}

func TestNewClient_WithOptions(t *testing.T) {
	c := NewClient(
		WithBaseURL("http://localhost:9999/"),
		WithAPIKey("key-123"),
		WithTimeout(3*time.Second),
		WithConcurrency(0),
	)
	if c.baseURL != "http://localhost:9999" {
		t.Errorf("expected trailing slash trimmed, got %q", c.baseURL)
	}
	if c.apiKey != "key-123" {
		t.Errorf("expected API key %q, got %q", "key-123", c.apiKey)
	}
	if c.timeout != 3*time.Second {
		t.Errorf("expected timeout 3s, got %v", c.timeout)
	}
	if c.limiter.Limit() != rate.Limit(rateWithKey) {
		t.Errorf("an API key should raise the rate limit, got %v", c.limiter.Limit())
	}
	if c.concurrency != 1 {
		t.Errorf("concurrency below 1 should clamp to 1, got %d", c.concurrency)
	}
}

func TestNewClient_OptionOrder(t *testing.T) {
	orders := map[string][]Option{
		"rate limit first": {WithRateLimit(2), WithAPIKey("key")},
		"api key first":    {WithAPIKey("key"), WithRateLimit(2)},
	}
	for name, opts := range orders {
		if got := NewClient(opts...).limiter.Limit(); got != 2 {
			t.Errorf("%s: limit = %v, want 2", name, got)
		}
	}

	if got := NewClient(WithRateLimit(0), WithAPIKey("key")).limiter.Limit(); got != rate.Inf {
		t.Errorf("disabled limit replaced by key default: %v", got)
	}

	hc := &http.Client{Timeout: time.Minute}
	clients := map[string]*Client{
		"timeout first":     NewClient(WithTimeout(time.Second), WithHTTPClient(hc)),
		"http client first": NewClient(WithHTTPClient(hc), WithTimeout(time.Second)),
	}
	for name, c := range clients {
		if c.httpClient != hc || c.timeout != time.Second {
			t.Errorf("%s: client = %p timeout = %v", name, c.httpClient, c.timeout)
		}
	}
	if hc.Timeout != time.Minute {
		t.Errorf("caller's http.Client was modified: timeout = %v", hc.Timeout)
	}
}

func TestClient_TimeoutWithCustomHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := testClient(srv, WithHTTPClient(&http.Client{}), WithTimeout(50*time.Millisecond))
	start := time.Now()
	if _, err := c.SearchPaper(context.Background(), "slow"); err == nil {
		t.Error("expected a timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout not honoured with a custom client: took %v", elapsed)
	}
}

func TestClient_Headers(t *testing.T) {
	var gotKey, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"total":0,"data":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv, WithAPIKey("secret"), WithUserAgent("pubguard-test"))
	_, _ = c.SearchPaper(context.Background(), "anything")

	if gotKey != "secret" {
		t.Errorf("expected x-api-key %q, got %q", "secret", gotKey)
	}
	if gotUA != "pubguard-test" {
		t.Errorf("expected User-Agent %q, got %q", "pubguard-test", gotUA)
	}
}

func TestSearchPaper(t *testing.T) {
	srv := newFixtureServer(t)
	defer srv.Close()

	p, err := testClient(srv).SearchPaper(context.Background(), "Challenges in diagnosis and management of diabetes in the young.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "abc123" {
		t.Errorf("expected paper ID abc123, got %q", p.ID)
	}
	ids := p.AuthorIDs()
	if strings.Join(ids, ",") != "1,2,3" {
		t.Errorf("expected author IDs 1,2,3 (null ID skipped), got %v", ids)
	}
}

func TestSearchPaper_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":0,"data":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).SearchPaper(context.Background(), "nothing")
	if err != ErrNoResults {
		t.Errorf("expected ErrNoResults, got %v", err)
	}
}

func TestAuthor(t *testing.T) {
	srv := newFixtureServer(t)
	defer srv.Close()

	a, err := testClient(srv).Author(context.Background(), "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Name != "Viral N Shah" {
		t.Errorf("expected name 'Viral N Shah', got %q", a.Name)
	}
	if a.Affiliations != "University of Colorado, Barbara Davis Center" {
		t.Errorf("unexpected affiliations %q", a.Affiliations)
	}
	if a.HIndex == nil || *a.HIndex != 30 {
		t.Errorf("expected h-index 30, got %v", a.HIndex)
	}
	if a.PaperCount == nil || *a.PaperCount != 180 {
		t.Errorf("expected paper count 180, got %v", a.PaperCount)
	}
}

func TestAuthor_MissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"authorId":"9"}`))
	}))
	defer srv.Close()

	a, err := testClient(srv).Author(context.Background(), "9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Name != "N/A" {
		t.Errorf("expected placeholder name, got %q", a.Name)
	}
	if a.HIndex != nil {
		t.Errorf("expected nil h-index, got %v", *a.HIndex)
	}
}

func TestLookupAuthorsByTitle(t *testing.T) {
	srv := newFixtureServer(t)
	defer srv.Close()

	authors := testClient(srv).LookupAuthorsByTitle(context.Background(), "Challenges in diagnosis and management of diabetes in the young.")
	if len(authors) != 3 {
		t.Fatalf("expected 3 authors, got %d", len(authors))
	}
	wantNames := []string{"Ranjit Unnikrishnan", "Viral N Shah", "Viswanathan Mohan"}
	for i, want := range wantNames {
		if authors[i].Name != want {
			t.Errorf("author %d: expected %q, got %q", i, want, authors[i].Name)
		}
	}
}

func TestLookupAuthorsByTitle_AuthorFailureIsOmitted(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	srv := newFixtureServer(t, "2")
	defer srv.Close()

	authors := testClient(srv, WithLogger(zap.New(core))).LookupAuthorsByTitle(context.Background(), "title")
	if len(authors) != 2 {
		t.Fatalf("expected 2 authors, got %d", len(authors))
	}
	if authors[0].ID != "1" || authors[1].ID != "3" {
		t.Errorf("expected order 1,3, got %s,%s", authors[0].ID, authors[1].ID)
	}
	if logs.FilterMessage("author lookup: dropping author").Len() != 1 {
		t.Error("expected one warning for the dropped author")
	}
}

func TestLookupAuthorsByTitle_Degrades(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"no results", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"total":0,"data":[]}`))
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"malformed JSON", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": [`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			authors := testClient(srv).LookupAuthorsByTitle(context.Background(), "title")
			if len(authors) != 0 {
				t.Errorf("expected no authors, got %d", len(authors))
			}
		})
	}
}

func TestLookupAuthorsByTitle_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		w.Write([]byte(`{"total":0,"data":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv, WithTimeout(50*time.Millisecond))
	start := time.Now()
	authors := c.LookupAuthorsByTitle(context.Background(), "slow")
	if len(authors) != 0 {
		t.Errorf("expected no authors on timeout, got %d", len(authors))
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout not honoured: took %v", elapsed)
	}
}

func TestLookupAuthorsByTitle_ConcurrentKeepsOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var inFlight, peak int64
	search := loadTestdata(t, "paper_search.json")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/paper/search" {
			w.Write(search)
			return
		}
		n := atomic.AddInt64(&inFlight, 1)
		defer atomic.AddInt64(&inFlight, -1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		id := strings.TrimPrefix(r.URL.Path, "/author/")
		// later authors answer first
		delay := map[string]time.Duration{"1": 60, "2": 30, "3": 0}[id] * time.Millisecond
		time.Sleep(delay)
		w.Write([]byte(`{"name":"Author ` + id + `","hIndex":1}`))
	}))
	defer srv.Close()

	c := testClient(srv, WithConcurrency(2))
	authors := c.LookupAuthorsByTitle(context.Background(), "title")
	srv.CloseClientConnections()

	if len(authors) != 3 {
		t.Fatalf("expected 3 authors, got %d", len(authors))
	}
	for i, want := range []string{"Author 1", "Author 2", "Author 3"} {
		if authors[i].Name != want {
			t.Errorf("position %d: expected %q, got %q", i, want, authors[i].Name)
		}
	}
	if p := atomic.LoadInt64(&peak); p > 2 {
		t.Errorf("concurrency limit exceeded: %d requests in flight", p)
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	c := NewClient(WithBaseURL("http://127.0.0.1:1"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.SearchPaper(ctx, "test"); err == nil {
		t.Error("expected error from cancelled context, got nil")
	}
	if got := c.LookupAuthorsByTitle(ctx, "test"); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}
