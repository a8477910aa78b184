// Package enrich annotates an article's authors, institutions and journal with
// reputation labels drawn from Semantic Scholar and the local caches.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tigerchen52/pub-guard-llm/internal/article"
	"github.com/tigerchen52/pub-guard-llm/internal/cache"
	"github.com/tigerchen52/pub-guard-llm/internal/reputation"
	"github.com/tigerchen52/pub-guard-llm/internal/scholar"
)

// nullLabel is rendered for any entity whose reputation is unknown.
const nullLabel = "(null)"

const separator = "; "

// AuthorLookup resolves the authors of a paper from its title.
// *scholar.Client satisfies it.
type AuthorLookup interface {
	LookupAuthorsByTitle(ctx context.Context, title string) []scholar.AuthorInfo
}

// Fault records why one field of an enriched article was degraded.
type Fault struct {
	Field string
	Err   error
}

func (f Fault) Error() string {
	return fmt.Sprintf("%s: %v", f.Field, f.Err)
}

// Result is an enriched article together with the faults met while building it.
// A non-empty Faults list means some fields carry fallback renderings.
type Result struct {
	Article article.EnrichedArticle
	Faults  []Fault
}

// Degraded reports whether any field fell back because of a fault.
func (r Result) Degraded() bool {
	return len(r.Faults) > 0
}

// Enricher renders the entity fields of articles.
type Enricher struct {
	authors      AuthorLookup
	journals     *cache.JournalCache
	institutions *cache.InstitutionCache
	logger       *zap.Logger

	cachedQuartile bool
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithLogger sets the logger used for fault reports.
func WithLogger(l *zap.Logger) Option {
	return func(e *Enricher) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCachedQuartile labels found journals with the quartile stored in the
// journal cache. By default the label is derived from the journal name, which
// renders every found journal as Q4.
func WithCachedQuartile(on bool) Option {
	return func(e *Enricher) { e.cachedQuartile = on }
}

// New creates an Enricher. A nil lookup behaves as one that never finds anyone;
// nil caches behave as empty caches.
func New(authors AuthorLookup, journals *cache.JournalCache, institutions *cache.InstitutionCache, opts ...Option) *Enricher {
	e := &Enricher{
		authors:      authors,
		journals:     journals,
		institutions: institutions,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich renders a. It never fails: a fault in one field is recorded in the
// result and that field falls back to its "(null)" rendering, leaving the
// other fields untouched.
func (e *Enricher) Enrich(ctx context.Context, a article.Article) Result {
	res := Result{Article: article.EnrichedArticle{
		Title:    a.Title,
		Abstract: a.Abstract,
	}}

	res.Article.Authors = e.field(&res, article.FieldAuthors, func() (string, []Fault) {
		return e.renderAuthors(ctx, a)
	}, func() string { return nullNames(a.Authors) })

	res.Article.Institutions = e.field(&res, article.FieldInstitutions, func() (string, []Fault) {
		return e.renderInstitutions(a.Institutions)
	}, func() string { return nullNames(a.Institutions) })

	res.Article.Journal = e.field(&res, article.FieldJournal, func() (string, []Fault) {
		return e.renderJournal(a.Journal), nil
	}, func() string { return annotate(a.Journal, nullLabel) })

	return res
}

// field runs render with panic recovery. Soft faults returned by render are
// kept alongside its output; a panic discards the output in favour of fallback.
func (e *Enricher) field(res *Result, name string, render func() (string, []Fault), fallback func() string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			e.logger.Error("enrichment failed, using fallback",
				zap.String("field", name), zap.Error(err))
			res.Faults = append(res.Faults, Fault{Field: name, Err: err})
			out = fallback()
		}
	}()

	out, faults := render()
	for _, f := range faults {
		e.logger.Warn("enrichment degraded",
			zap.String("field", f.Field), zap.Error(f.Err))
	}
	res.Faults = append(res.Faults, faults...)
	return out
}

func (e *Enricher) renderAuthors(ctx context.Context, a article.Article) (string, []Fault) {
	var found []scholar.AuthorInfo
	if e.authors != nil {
		found = e.authors.LookupAuthorsByTitle(ctx, a.Title)
	}
	if len(found) == 0 {
		e.logger.Debug("no authors found, rendering listed names", zap.String("title", a.Title))
		return nullNames(a.Authors), nil
	}

	var faults []Fault
	parts := make([]string, len(found))
	for i, info := range found {
		if info.HIndex == nil {
			faults = append(faults, Fault{
				Field: article.FieldAuthors,
				Err:   fmt.Errorf("author %s (%s) has no h-index", info.Name, info.ID),
			})
			parts[i] = annotate(info.Name, nullLabel)
			continue
		}
		label, err := reputation.HIndexLabel(*info.HIndex)
		if err != nil {
			faults = append(faults, Fault{
				Field: article.FieldAuthors,
				Err:   fmt.Errorf("author %s (%s): %w", info.Name, info.ID, err),
			})
			parts[i] = annotate(info.Name, nullLabel)
			continue
		}
		parts[i] = annotate(info.Name, "("+label+")")
	}
	return strings.Join(parts, separator), faults
}

func (e *Enricher) renderInstitutions(affiliations []string) (string, []Fault) {
	var faults []Fault
	parts := make([]string, len(affiliations))
	for i, aff := range affiliations {
		avg, ok := e.institutions.Lookup(reputation.NormalizeInstitution(aff))
		if !ok {
			parts[i] = annotate(aff, nullLabel)
			continue
		}
		label, err := reputation.AverageCitationLabel(avg)
		if err != nil {
			faults = append(faults, Fault{
				Field: article.FieldInstitutions,
				Err:   fmt.Errorf("institution %q: %w", aff, err),
			})
			parts[i] = annotate(aff, nullLabel)
			continue
		}
		parts[i] = annotate(aff, "("+label+")")
	}
	return strings.Join(parts, separator), faults
}

func (e *Enricher) renderJournal(journal string) string {
	quartile, ok := e.journals.Lookup(journal)
	if !ok {
		return annotate(journal, nullLabel)
	}
	if !e.cachedQuartile {
		quartile = journal
	}
	return annotate(journal, "("+reputation.QuartileLabel(quartile)+")")
}

func annotate(name, label string) string {
	return name + " " + label
}

func nullNames(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = annotate(n, nullLabel)
	}
	return strings.Join(parts, separator)
}
