// Input checks for article text placed into screening prompts.
//
// Article fields come from arbitrary documents. Before they reach a model they
// are checked for chat control tokens or instruction-override phrases that
// would let the paper steer its own verdict. Fields are passed on exactly as
// given; the checks only accept or reject. This is not a complete defense
// against prompt injection; it rejects the obvious attempts.
package llm

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/tigerchen52/pub-guard-llm/internal/article"
)

// Default limits on a single field, in bytes. The rendered Authors and
// Institutions of a large collaboration run far longer than any title or
// abstract.
const (
	MaxFieldLength     = 20000
	MaxListFieldLength = 500000
)

// Rejection reasons, all matching ErrInvalidInput.
var (
	ErrFieldTooLong    = fmt.Errorf("%w: field too long", ErrInvalidInput)
	ErrChatMarkup      = fmt.Errorf("%w: chat control tokens detected", ErrInvalidInput)
	ErrPromptInjection = fmt.Errorf("%w: injection pattern detected", ErrInvalidInput)
)

// chatMarkupPattern matches special tokens of common chat templates.
var chatMarkupPattern = regexp.MustCompile(`(?i)<\|?(system|endoftext|im_start|im_end|eot_id|start_header_id|end_header_id)\|?>`)

// Patterns that suggest prompt injection attempts. Phrases common in
// scientific prose, such as "act as a", are not listed.
var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|context)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|context)`),
	regexp.MustCompile(`(?i)forget\s+(everything|all|what)\s+(you|i)\s+(told|said)`),
	regexp.MustCompile(`(?i)new\s+instructions?:\s*`),
	regexp.MustCompile(`(?i)system\s*:\s*you\s+are`),
	regexp.MustCompile(`(?i)override\s+(previous|system|safety)\s+(instructions?|prompts?)`),
	regexp.MustCompile(`(?i)\[\[.*?(system|admin|root).*?\]\]`),
	regexp.MustCompile(`(?i)label\s*\(answer\s+yes\s+or\s+no\)\s*:`),
}

// SanitizeConfig controls field validation.
type SanitizeConfig struct {
	// MaxFieldLength bounds Title, Abstract and Journal; zero selects
	// MaxFieldLength.
	MaxFieldLength int
	// MaxListFieldLength bounds the rendered Authors and Institutions; zero
	// selects MaxListFieldLength.
	MaxListFieldLength int
	// BlockPromptInjection rejects instruction-override phrases.
	BlockPromptInjection bool
}

// DefaultSanitizeConfig returns the configuration used by the screening engine.
func DefaultSanitizeConfig() SanitizeConfig {
	return SanitizeConfig{
		MaxFieldLength:       MaxFieldLength,
		MaxListFieldLength:   MaxListFieldLength,
		BlockPromptInjection: true,
	}
}

// CheckField validates one field of text no longer than maxLen bytes (zero
// selects MaxFieldLength). Patterns are matched against the NFC form with
// control characters removed, so invisible characters cannot split a token.
// Rejections wrap ErrInvalidInput.
func CheckField(text string, maxLen int, cfg SanitizeConfig) error {
	if maxLen <= 0 {
		maxLen = MaxFieldLength
	}
	if len(text) > maxLen {
		return fmt.Errorf("%w (%d > %d bytes)", ErrFieldTooLong, len(text), maxLen)
	}

	view := norm.NFC.String(stripControlChars(text))

	// Chat markup is always refused: it breaks answer extraction.
	if chatMarkupPattern.MatchString(view) {
		return ErrChatMarkup
	}

	if cfg.BlockPromptInjection && containsPromptInjection(view) {
		return ErrPromptInjection
	}
	return nil
}

// CheckArticle validates every field of an enriched article. The error names
// the offending field.
func CheckArticle(a article.EnrichedArticle, cfg SanitizeConfig) error {
	listMax := cfg.MaxListFieldLength
	if listMax <= 0 {
		listMax = MaxListFieldLength
	}
	fields := []struct {
		name   string
		text   string
		maxLen int
	}{
		{article.FieldTitle, a.Title, cfg.MaxFieldLength},
		{article.FieldAbstract, a.Abstract, cfg.MaxFieldLength},
		{article.FieldAuthors, a.Authors, listMax},
		{article.FieldInstitutions, a.Institutions, listMax},
		{article.FieldJournal, a.Journal, cfg.MaxFieldLength},
	}
	for _, f := range fields {
		if err := CheckField(f.text, f.maxLen, cfg); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}

// stripControlChars removes non-printable control characters except common whitespace.
func stripControlChars(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			result.WriteRune(r)
			continue
		}
		if !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// containsPromptInjection checks for prompt injection patterns.
func containsPromptInjection(s string) bool {
	for _, pattern := range promptInjectionPatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}
