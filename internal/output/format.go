// Package output renders screening results as plain text, styled terminal
// cards, JSON or CSV.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/tigerchen52/pub-guard-llm/internal/cache"
	"github.com/tigerchen52/pub-guard-llm/internal/enrich"
	"github.com/tigerchen52/pub-guard-llm/internal/guard"
	"github.com/tigerchen52/pub-guard-llm/internal/history"
	"github.com/tigerchen52/pub-guard-llm/internal/scholar"
)

// Config selects the output format. JSON wins over Human; with neither set
// output is plain text.
type Config struct {
	JSON  bool
	Human bool
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	cardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("99")).Padding(0, 1)
)

const maxTitleRunes = 90

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatResults prints screening results. Plain text prints one answer per
// result, prefixed with the title when there are several.
func FormatResults(w io.Writer, results []*guard.Result, cfg Config) error {
	switch {
	case cfg.JSON:
		if len(results) == 1 {
			return writeJSON(w, results[0])
		}
		return writeJSON(w, results)
	case cfg.Human:
		return formatResultsHuman(w, results)
	}

	for _, r := range results {
		if len(results) > 1 {
			fmt.Fprintf(w, "%s\t", r.Title)
		}
		fmt.Fprintln(w, r.Answer)
	}
	return nil
}

func formatResultsHuman(w io.Writer, results []*guard.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No articles screened.")
		return nil
	}
	for _, r := range results {
		var b strings.Builder
		b.WriteString(titleStyle.Render(truncate(r.Title, maxTitleRunes)))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Journal: "), r.Journal)
		if r.Model != "" {
			fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Model:   "), r.Model)
		}
		status := okStyle.Render(string(r.Category))
		if !r.OK() {
			status = errorStyle.Render(string(r.Category))
		}
		fmt.Fprintf(&b, "%s %s (%s)\n", labelStyle.Render("Outcome: "), status, r.Duration.Round(time.Millisecond))
		for _, f := range r.Faults {
			fmt.Fprintf(&b, "%s %s\n", warnStyle.Render("degraded:"), f)
		}
		b.WriteString("\n")
		b.WriteString(r.Answer)
		fmt.Fprintln(w, cardStyle.Render(b.String()))
	}
	return nil
}

// FormatEnriched prints an enriched article and its faults.
func FormatEnriched(w io.Writer, res enrich.Result, cfg Config) error {
	if cfg.JSON {
		faults := make([]string, len(res.Faults))
		for i, f := range res.Faults {
			faults[i] = f.Error()
		}
		return writeJSON(w, struct {
			Article any      `json:"article"`
			Faults  []string `json:"faults,omitempty"`
		}{res.Article, faults})
	}

	a := res.Article
	if cfg.Human {
		var b strings.Builder
		b.WriteString(titleStyle.Render(truncate(a.Title, maxTitleRunes)))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Authors:     "), a.Authors)
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Institutions:"), a.Institutions)
		fmt.Fprintf(&b, "%s %s", labelStyle.Render("Journal:     "), a.Journal)
		for _, f := range res.Faults {
			fmt.Fprintf(&b, "\n%s %s", warnStyle.Render("degraded:"), f.Error())
		}
		fmt.Fprintln(w, cardStyle.Render(b.String()))
		return nil
	}

	fmt.Fprintf(w, "Title: %s\nAuthors: %s\nInstitutions: %s\nJournal: %s\n",
		a.Title, a.Authors, a.Institutions, a.Journal)
	for _, f := range res.Faults {
		fmt.Fprintf(w, "Fault: %s\n", f.Error())
	}
	return nil
}

// FormatAuthors prints author records from Semantic Scholar.
func FormatAuthors(w io.Writer, authors []scholar.AuthorInfo, cfg Config) error {
	if cfg.JSON {
		if authors == nil {
			authors = []scholar.AuthorInfo{}
		}
		return writeJSON(w, authors)
	}
	if len(authors) == 0 {
		fmt.Fprintln(w, "No authors found.")
		return nil
	}

	for _, a := range authors {
		if cfg.Human {
			line := fmt.Sprintf("%s  %s", titleStyle.Render(a.Name), labelStyle.Render(a.ID))
			fmt.Fprintln(w, line)
			fmt.Fprintf(w, "   h-index %s · papers %s · citations %s\n",
				optIntOr(a.HIndex, "?"), optIntOr(a.PaperCount, "?"), optIntOr(a.CitationCount, "?"))
			if a.Affiliations != "" {
				fmt.Fprintf(w, "   %s\n", labelStyle.Render(a.Affiliations))
			}
			continue
		}
		fmt.Fprintf(w, "%s\t%s\th-index=%s\n", a.ID, a.Name, optIntOr(a.HIndex, "null"))
	}
	return nil
}

// FormatCacheStats prints how the caches were loaded.
func FormatCacheStats(w io.Writer, stats []cache.Stats, cfg Config) error {
	if cfg.JSON {
		return writeJSON(w, stats)
	}
	for _, s := range stats {
		state := fmt.Sprintf("%d loaded, %d skipped of %d lines", s.Loaded, s.Skipped, s.Lines)
		if !s.Found {
			state = "missing"
		}
		if cfg.Human {
			style := okStyle
			if !s.Found || s.Skipped > 0 {
				style = warnStyle
			}
			state = style.Render(state)
		}
		fmt.Fprintf(w, "%s: %s\n", s.Path, state)
	}
	return nil
}

// FormatHistory prints recorded screenings.
func FormatHistory(w io.Writer, entries []history.Entry, cfg Config) error {
	if cfg.JSON {
		if entries == nil {
			entries = []history.Entry{}
		}
		return writeJSON(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No screenings recorded.")
		return nil
	}
	for _, e := range entries {
		when := e.CreatedAt.Local().Format("2006-01-02 15:04")
		title := truncate(e.Title, 60)
		answer := truncate(firstLine(e.Answer), 60)
		if cfg.Human {
			cat := okStyle.Render(string(e.Category))
			if e.Category != guard.CategoryOK {
				cat = errorStyle.Render(string(e.Category))
			}
			fmt.Fprintf(w, "%s  %s  %s\n   %s\n", labelStyle.Render(when), cat, titleStyle.Render(title), answer)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, when, e.Category, title, answer)
	}
	return nil
}

func optIntOr(v *int, def string) string {
	if v == nil {
		return def
	}
	return fmt.Sprint(*v)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
