// Package prompt renders enriched articles into the retraction-screening
// prompt and extracts the model's answer from generated text.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tigerchen52/pub-guard-llm/internal/article"
)

const preamble = "You are tasked with determining whether a given research paper should be retracted.\n" +
	"To make this judgment, analyze the provided title, abstract, author information, " +
	"institutional affiliation, and publishing journal.\n" +
	"Here are some factors to consider: (1) the reputation of the journal (whether it is a top journal with a rigorous peer review process)\n" +
	"(2) the reputation of the authors and their affiliations (whether the authors tend to have misconduct in their research)\n" +
	"(3) the integrity of the title and abstract (e.g., research topic, using made-up data, plagiarism, etc)\n" +
	"In addition, if check if Email addresses are provided, check if it conforms to institutional format. " +
	"Otherwise, no need to make comments about the Email adresses\n"

const (
	examplesHeader = "Use the examples below as guidance:\n"
	targetHeader   = "Analyze the following paper:\n"
	request        = "Please first provide your prediction of whether this paper should be retracted " +
		"and then provide your assessment and explanation.\n"
	// LabelCue closes every prompt; the model's answer follows it.
	LabelCue = "Label (answer Yes or No): "
)

// Format builds the screening prompt for a. The first kShot examples are
// rendered as guidance; a negative kShot is treated as zero. The result
// contains no model-specific markup.
func Format(a article.EnrichedArticle, examples []article.LabeledExample, kShot int) string {
	n := min(max(kShot, 0), len(examples))

	var b strings.Builder
	b.WriteString(preamble)
	if n > 0 {
		b.WriteString(examplesHeader)
		for _, ex := range examples[:n] {
			writeFields(&b, "Example:\n", ex.EnrichedArticle)
			fmt.Fprintf(&b, "Label: %s\n\n", ex.IsRetracted)
		}
	}
	writeFields(&b, targetHeader, a)
	b.WriteString(request)
	b.WriteString(LabelCue)
	return b.String()
}

func writeFields(b *strings.Builder, header string, a article.EnrichedArticle) {
	b.WriteString(header)
	fmt.Fprintf(b, "Title: %s\n", a.Title)
	fmt.Fprintf(b, "Abstract: %s\n", a.Abstract)
	fmt.Fprintf(b, "Authors: %s\n", a.Authors)
	fmt.Fprintf(b, "Institutions: %s\n", a.Institutions)
	fmt.Fprintf(b, "Journal: %s\n", a.Journal)
}

// Turn is one message of a ShareGPT-style conversation.
type Turn struct {
	From  string `json:"from"`
	Value string `json:"value"`
}

// Speaker roles used in conversations.
const (
	RoleHuman  = "human"
	RoleGPT    = "gpt"
	RoleSystem = "system"
)

// Conversation wraps a prompt as a single human turn.
func Conversation(prompt string) []Turn {
	return []Turn{{From: RoleHuman, Value: prompt}}
}

const assistantMarker = "<|im_start|>assistant\n"

var assistantTurn = regexp.MustCompile(`(?s)<\|im_start\|>assistant\n(.*?)(?:<\|im_end\|>|$)`)

// ExtractAnswer returns the assistant's reply from generated text: the text
// after the first assistant marker up to the end marker or end of input,
// trimmed. Text without any assistant marker is taken to be the reply itself,
// as returned by chat APIs. The boolean is false when no non-empty reply exists.
func ExtractAnswer(raw string) (string, bool) {
	var answer string
	if strings.Contains(raw, assistantMarker) {
		m := assistantTurn.FindStringSubmatch(raw)
		if m == nil {
			return "", false
		}
		answer = strings.TrimSpace(m[1])
	} else {
		answer = strings.TrimSpace(raw)
	}
	return answer, answer != ""
}
