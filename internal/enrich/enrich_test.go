package enrich

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tigerchen52/pub-guard-llm/internal/article"
	"github.com/tigerchen52/pub-guard-llm/internal/cache"
	"github.com/tigerchen52/pub-guard-llm/internal/reputation"
	"github.com/tigerchen52/pub-guard-llm/internal/scholar"
)

type fakeLookup struct {
	authors []scholar.AuthorInfo
	panics  bool
	titles  []string
}

func (f *fakeLookup) LookupAuthorsByTitle(_ context.Context, title string) []scholar.AuthorInfo {
	f.titles = append(f.titles, title)
	if f.panics {
		panic("lookup exploded")
	}
	return f.authors
}

func intPtr(v int) *int { return &v }

func sampleArticle() article.Article {
	return article.Article{
		Title:    "Challenges in diagnosis and management of diabetes in the young.",
		Abstract: "Abstract text.",
		Authors:  []string{"Ranjit Unnikrishnan", "Viral N Shah", "Viswanathan Mohan"},
		Institutions: []string{
			"Barbara Davis Center for Diabetes, University of Colorado Anschutz Campus, Aurora, CO USA",
			"Madras Diabetes Research Foundation, Chennai, India",
		},
		Journal: "Frontiers in Cell and Developmental Biology",
	}
}

func testCaches() (*cache.JournalCache, *cache.InstitutionCache) {
	journals := cache.NewJournalCache(map[string]string{
		"Frontiers in Cell and Developmental Biology": "Q4",
		"Nature": "Q1",
		"Odd Journal": "Q9",
	})
	institutions := cache.NewInstitutionCache(map[string]float64{
		"Harvard University": 64,
		"University of Colorado Anschutz Campus": 25,
		"Zero University": 0,
		"Broken University": -3,
	})
	return journals, institutions
}

func TestEnrich_FullyResolved(t *testing.T) {
	journals, institutions := testCaches()
	lookup := &fakeLookup{authors: []scholar.AuthorInfo{
		{ID: "1", Name: "Ranjit Unnikrishnan", HIndex: intPtr(38)},
		{ID: "2", Name: "Viral N Shah", HIndex: intPtr(30)},
		{ID: "3", Name: "Viswanathan Mohan", HIndex: intPtr(130)},
	}}
	e := New(lookup, journals, institutions)

	a := sampleArticle()
	res := e.Enrich(context.Background(), a)

	want := article.EnrichedArticle{
		Title:    a.Title,
		Abstract: a.Abstract,
		Authors: "Ranjit Unnikrishnan (author h-index: 38, Influential Researcher); " +
			"Viral N Shah (author h-index: 30, Established Researcher); " +
			"Viswanathan Mohan (author h-index: 130, Leading Expert)",
		Institutions: "Barbara Davis Center for Diabetes, University of Colorado Anschutz Campus, Aurora, CO USA " +
			"(institution average citation: 25.0, Established Institution); " +
			"Madras Diabetes Research Foundation, Chennai, India (null)",
		Journal: "Frontiers in Cell and Developmental Biology (journal JCR: Q4, Low Level Journal)",
	}
	if diff := cmp.Diff(want, res.Article); diff != "" {
		t.Errorf("enriched article mismatch (-want +got):\n%s", diff)
	}
	if res.Degraded() {
		t.Errorf("expected no faults, got %v", res.Faults)
	}
	if len(lookup.titles) != 1 || lookup.titles[0] != a.Title {
		t.Errorf("expected one lookup by title, got %v", lookup.titles)
	}
}

func TestEnrich_NoAuthorsFound(t *testing.T) {
	journals, institutions := testCaches()
	e := New(&fakeLookup{}, journals, institutions)

	res := e.Enrich(context.Background(), sampleArticle())
	want := "Ranjit Unnikrishnan (null); Viral N Shah (null); Viswanathan Mohan (null)"
	if res.Article.Authors != want {
		t.Errorf("Authors = %q, want %q", res.Article.Authors, want)
	}
	if res.Degraded() {
		t.Error("an empty lookup is not a fault")
	}
}

func TestEnrich_NilDependencies(t *testing.T) {
	e := New(nil, nil, nil)
	a := sampleArticle()
	a.Journal = "Nature"
	res := e.Enrich(context.Background(), a)

	if res.Article.Journal != "Nature (null)" {
		t.Errorf("Journal = %q", res.Article.Journal)
	}
	want := "Barbara Davis Center for Diabetes, University of Colorado Anschutz Campus, Aurora, CO USA (null); " +
		"Madras Diabetes Research Foundation, Chennai, India (null)"
	if res.Article.Institutions != want {
		t.Errorf("Institutions = %q", res.Article.Institutions)
	}
}

func TestEnrich_Journal(t *testing.T) {
	journals, institutions := testCaches()

	tests := []struct {
		journal string
		want    string
		cached  string
	}{
		{"NATURE", "NATURE (journal JCR: Q4, Low Level Journal)", "NATURE (journal JCR: Q1, Top Level Journal)"},
		{"nature", "nature (journal JCR: Q4, Low Level Journal)", "nature (journal JCR: Q1, Top Level Journal)"},
		{"Odd Journal", "Odd Journal (journal JCR: Q4, Low Level Journal)", "Odd Journal (journal JCR: Q4, Low Level Journal)"},
		{"Unknown Letters", "Unknown Letters (null)", "Unknown Letters (null)"},
	}
	byName := New(nil, journals, institutions)
	byCache := New(nil, journals, institutions, WithCachedQuartile(true))
	for _, tt := range tests {
		a := sampleArticle()
		a.Journal = tt.journal
		if got := byName.Enrich(context.Background(), a).Article.Journal; got != tt.want {
			t.Errorf("journal %q: got %q, want %q", tt.journal, got, tt.want)
		}
		if got := byCache.Enrich(context.Background(), a).Article.Journal; got != tt.cached {
			t.Errorf("journal %q with cached quartile: got %q, want %q", tt.journal, got, tt.cached)
		}
	}
}

func TestEnrich_Institutions(t *testing.T) {
	journals, institutions := testCaches()
	e := New(nil, journals, institutions)

	a := sampleArticle()
	a.Institutions = []string{"Dept of Medicine, HARVARD UNIVERSITY, Boston", "Zero University"}
	res := e.Enrich(context.Background(), a)

	want := "Dept of Medicine, HARVARD UNIVERSITY, Boston (institution average citation: 64.0, World-Class Institution); " +
		"Zero University (institution average citation: 0.0, Developing Institution)"
	if res.Article.Institutions != want {
		t.Errorf("Institutions = %q, want %q", res.Article.Institutions, want)
	}
}

func TestEnrich_InvalidMetricsAreFaults(t *testing.T) {
	journals, institutions := testCaches()
	lookup := &fakeLookup{authors: []scholar.AuthorInfo{
		{ID: "1", Name: "Alice", HIndex: intPtr(12)},
		{ID: "2", Name: "Bob"},
		{ID: "3", Name: "Carol", HIndex: intPtr(-1)},
	}}
	core, logs := observer.New(zapcore.WarnLevel)
	e := New(lookup, journals, institutions, WithLogger(zap.New(core)))

	a := sampleArticle()
	a.Institutions = []string{"Broken University"}
	res := e.Enrich(context.Background(), a)

	wantAuthors := "Alice (author h-index: 12, Early Career Researcher); Bob (null); Carol (null)"
	if res.Article.Authors != wantAuthors {
		t.Errorf("Authors = %q, want %q", res.Article.Authors, wantAuthors)
	}
	if res.Article.Institutions != "Broken University (null)" {
		t.Errorf("Institutions = %q", res.Article.Institutions)
	}
	if len(res.Faults) != 3 {
		t.Fatalf("expected 3 faults, got %v", res.Faults)
	}
	if !errors.Is(res.Faults[1].Err, reputation.ErrInvalidMetric) {
		t.Errorf("expected invalid metric fault for Carol, got %v", res.Faults[1].Err)
	}
	if res.Faults[2].Field != article.FieldInstitutions {
		t.Errorf("expected institutions fault, got %q", res.Faults[2].Field)
	}
	if logs.FilterMessage("enrichment degraded").Len() != 3 {
		t.Errorf("expected 3 warnings, got %d", logs.Len())
	}
}

func TestEnrich_PanicIsIsolated(t *testing.T) {
	journals, institutions := testCaches()
	core, logs := observer.New(zapcore.ErrorLevel)
	e := New(&fakeLookup{panics: true}, journals, institutions, WithLogger(zap.New(core)))

	res := e.Enrich(context.Background(), sampleArticle())

	if res.Article.Authors != "Ranjit Unnikrishnan (null); Viral N Shah (null); Viswanathan Mohan (null)" {
		t.Errorf("Authors = %q", res.Article.Authors)
	}
	if res.Article.Journal != "Frontiers in Cell and Developmental Biology (journal JCR: Q4, Low Level Journal)" {
		t.Errorf("journal should still be enriched, got %q", res.Article.Journal)
	}
	if !res.Degraded() || res.Faults[0].Field != article.FieldAuthors {
		t.Errorf("expected an Authors fault, got %v", res.Faults)
	}
	if logs.FilterMessage("enrichment failed, using fallback").Len() != 1 {
		t.Error("expected the panic to be logged")
	}
}

func TestEnrich_WithLoadedCaches(t *testing.T) {
	dir := filepath.Join("..", "..", "testdata")
	journals := cache.LoadJournalCache(filepath.Join(dir, cache.JournalFile), nil)
	institutions := cache.LoadInstitutionCache(filepath.Join(dir, cache.InstitutionFile), nil)
	e := New(nil, journals, institutions)

	a := sampleArticle()
	a.Institutions = []string{"Harvard University"}
	a.Journal = "Journal of Clinical Medicine"
	res := e.Enrich(context.Background(), a)

	if res.Article.Institutions != "Harvard University (institution average citation: 64.0, World-Class Institution)" {
		t.Errorf("Institutions = %q", res.Article.Institutions)
	}
	if res.Article.Journal != "Journal of Clinical Medicine (journal JCR: Q4, Low Level Journal)" {
		t.Errorf("Journal = %q", res.Article.Journal)
	}

	// the lowercase duplicate later in the file wins
	res = New(nil, journals, institutions, WithCachedQuartile(true)).Enrich(context.Background(), a)
	if res.Article.Journal != "Journal of Clinical Medicine (journal JCR: Q3, Moderate Level Journal)" {
		t.Errorf("Journal with cached quartile = %q", res.Article.Journal)
	}
}
