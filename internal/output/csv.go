package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tigerchen52/pub-guard-llm/internal/guard"
	"github.com/tigerchen52/pub-guard-llm/internal/history"
	"github.com/tigerchen52/pub-guard-llm/internal/scholar"
)

// WriteResultsCSV exports screening results to CSV.
// Columns: ID,Title,Journal,Model,Category,Answer,Faults,DurationMS
func WriteResultsCSV(path string, results []*guard.Result) error {
	w, f, err := createCSV(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w.Write([]string{"ID", "Title", "Journal", "Model", "Category", "Answer", "Faults", "DurationMS"})

	for _, r := range results {
		w.Write([]string{
			r.ID,
			r.Title,
			r.Journal,
			r.Model,
			string(r.Category),
			r.Answer,
			strings.Join(r.Faults, "; "),
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
		})
	}

	w.Flush()
	return w.Error()
}

// WriteHistoryCSV exports recorded screenings to CSV.
// Columns: ID,CreatedAt,Title,Journal,Model,Category,Answer,Faults
func WriteHistoryCSV(path string, entries []history.Entry) error {
	w, f, err := createCSV(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w.Write([]string{"ID", "CreatedAt", "Title", "Journal", "Model", "Category", "Answer", "Faults"})

	for _, e := range entries {
		w.Write([]string{
			e.ID,
			e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			e.Title,
			e.Journal,
			e.Model,
			string(e.Category),
			e.Answer,
			strings.Join(e.Faults, "; "),
		})
	}

	w.Flush()
	return w.Error()
}

// WriteAuthorsCSV exports author records to CSV. Unknown counts are empty.
// Columns: AuthorID,Name,Affiliations,PaperCount,CitationCount,HIndex
func WriteAuthorsCSV(path string, authors []scholar.AuthorInfo) error {
	w, f, err := createCSV(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w.Write([]string{"AuthorID", "Name", "Affiliations", "PaperCount", "CitationCount", "HIndex"})

	for _, a := range authors {
		w.Write([]string{
			a.ID,
			a.Name,
			a.Affiliations,
			optInt(a.PaperCount),
			optInt(a.CitationCount),
			optInt(a.HIndex),
		})
	}

	w.Flush()
	return w.Error()
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func createCSV(path string) (*csv.Writer, *os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating CSV file: %w", err)
	}
	return csv.NewWriter(f), f, nil
}
