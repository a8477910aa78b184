// Package article defines the paper metadata screened by pubguard.
package article

import (
	"errors"
	"fmt"
	"strings"
)

// Field names as they appear in article JSON documents.
const (
	FieldTitle        = "Title"
	FieldAbstract     = "Abstract"
	FieldAuthors      = "Authors"
	FieldInstitutions = "Institutions"
	FieldJournal      = "Journal"
)

// RequiredFields lists every field an Article must carry, in canonical order.
var RequiredFields = []string{FieldTitle, FieldAbstract, FieldAuthors, FieldInstitutions, FieldJournal}

// ErrMissingField is matched by MissingFieldsError via errors.Is.
var ErrMissingField = errors.New("missing required field")

// MissingFieldsError reports which required fields were absent.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField, strings.Join(e.Fields, ", "))
}

// Is lets errors.Is(err, ErrMissingField) match.
func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrMissingField
}

// Article is the raw metadata of a paper.
type Article struct {
	Title        string   `json:"Title"`
	Abstract     string   `json:"Abstract"`
	Authors      []string `json:"Authors"`
	Institutions []string `json:"Institutions"`
	Journal      string   `json:"Journal"`
}

// Validate checks that all required fields are present. A field is missing
// when its key was absent or null, which for a struct value can only happen
// to the list fields: a nil slice is missing, an empty one is not. String
// fields are always present; an empty Title, Abstract or Journal is valid
// content, as it is for Parse.
func (a Article) Validate() error {
	var missing []string
	if a.Authors == nil {
		missing = append(missing, FieldAuthors)
	}
	if a.Institutions == nil {
		missing = append(missing, FieldInstitutions)
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

// EnrichedArticle carries the article with Authors, Institutions and Journal
// rendered as annotated strings.
type EnrichedArticle struct {
	Title        string `json:"Title"`
	Abstract     string `json:"Abstract"`
	Authors      string `json:"Authors"`
	Institutions string `json:"Institutions"`
	Journal      string `json:"Journal"`
}

// LabeledExample is a previously judged article used for few-shot prompting.
type LabeledExample struct {
	EnrichedArticle
	IsRetracted string `json:"IsRetracted"`
}
