package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tigerchen52/pub-guard-llm/internal/article"
)

// articleFlags are the input flags shared by predict, enrich and prompt.
type articleFlags struct {
	file         string
	input        string
	title        string
	abstract     string
	authors      []string
	institutions []string
	journal      string

	cmd *cobra.Command
}

func (f *articleFlags) register(cmd *cobra.Command) {
	f.cmd = cmd
	cmd.Flags().StringVar(&f.file, "article", "", "Article JSON file")
	cmd.Flags().StringVar(&f.input, "input", "", "JSONL file with one article per line (- for stdin)")
	cmd.Flags().StringVar(&f.title, "title", "", "Article title")
	cmd.Flags().StringVar(&f.abstract, "abstract", "", "Article abstract")
	cmd.Flags().StringArrayVar(&f.authors, "author", nil, "Author name (repeatable)")
	cmd.Flags().StringArrayVar(&f.institutions, "institution", nil, "Author affiliation (repeatable)")
	cmd.Flags().StringVar(&f.journal, "journal", "", "Journal name")
	cmd.MarkFlagsMutuallyExclusive("article", "input")
}

// fieldFlags maps each article field to the flag that supplies it.
var fieldFlags = []struct{ field, flag string }{
	{article.FieldTitle, "title"},
	{article.FieldAbstract, "abstract"},
	{article.FieldAuthors, "author"},
	{article.FieldInstitutions, "institution"},
	{article.FieldJournal, "journal"},
}

// given reports whether a field flag was passed, even with an empty value.
func (f *articleFlags) given(name string) bool {
	return f.cmd != nil && f.cmd.Flags().Changed(name)
}

func (f *articleFlags) fromFlags() bool {
	for _, ff := range fieldFlags {
		if f.given(ff.flag) {
			return true
		}
	}
	return false
}

// flagArticle builds an article from the field flags. An omitted flag is a
// missing field; a flag passed with an empty value is empty content.
func (f *articleFlags) flagArticle() (article.Article, error) {
	var missing []string
	for _, ff := range fieldFlags {
		if !f.given(ff.flag) {
			missing = append(missing, ff.field)
		}
	}
	if len(missing) > 0 {
		return article.Article{}, &article.MissingFieldsError{Fields: missing}
	}
	a := article.Article{
		Title:        f.title,
		Abstract:     f.abstract,
		Authors:      nonNil(f.authors),
		Institutions: nonNil(f.institutions),
		Journal:      f.journal,
	}
	return a, a.Validate()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// articles resolves the input flags into the articles to process.
func (f *articleFlags) articles(stdin io.Reader) ([]article.Article, error) {
	switch {
	case f.file != "":
		a, err := article.ReadFile(f.file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.file, err)
		}
		return []article.Article{a}, nil

	case f.input == "-":
		return article.ReadLines(stdin)

	case f.input != "":
		file, err := os.Open(f.input)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer file.Close()
		articles, err := article.ReadLines(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.input, err)
		}
		return articles, nil

	case f.fromFlags():
		a, err := f.flagArticle()
		if err != nil {
			return nil, err
		}
		return []article.Article{a}, nil
	}
	return nil, errNoArticle
}

// single returns the one article a command operates on.
func (f *articleFlags) single(stdin io.Reader) (article.Article, error) {
	articles, err := f.articles(stdin)
	if err != nil {
		return article.Article{}, err
	}
	if len(articles) != 1 {
		return article.Article{}, fmt.Errorf("expected one article, got %d", len(articles))
	}
	return articles[0], nil
}
