// Package enrich adds retrieval-friendly wording to chunks before they are
// embedded, and to queries before they are searched.
package enrich

import (
	"fmt"
	"sort"
	"strings"
)

// maxQuestions caps the COMMON QUESTIONS block of a policy chunk.
const maxQuestions = 5

// Enricher appends synonyms and derived phrases to chunk text. Output is a
// pure function of the input and the term table.
type Enricher struct {
	terms Terms
}

// NewEnricher creates an Enricher over terms.
func NewEnricher(terms Terms) *Enricher {
	return &Enricher{terms: terms}
}

// EnrichPolicy prefixes a policy chunk with its section title and path and
// appends related terms and common questions found in the chunk.
func (e *Enricher) EnrichPolicy(text, title, path string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "POLICY: %s\nPATH: %s\n\n%s", title, path, text)

	lower := strings.ToLower(text)
	var related []string
	for _, g := range e.terms.Policy {
		if strings.Contains(lower, strings.ToLower(g.Term)) {
			related = append(related, g.Synonyms...)
		}
	}
	if related = uniqueSorted(related); len(related) > 0 {
		fmt.Fprintf(&b, "\n\nRELATED TERMS: %s", strings.Join(related, " "))
	}

	if questions := e.questions(title, lower); len(questions) > 0 {
		fmt.Fprintf(&b, "\n\nCOMMON QUESTIONS:\n%s", strings.Join(questions, "\n"))
	}
	return b.String()
}

// questions returns the templates of the first topic mentioned in the title
// or the (lowercased) content.
func (e *Enricher) questions(title, lowerContent string) []string {
	lowerTitle := strings.ToLower(title)
	for _, g := range e.terms.Questions {
		term := strings.ToLower(g.Term)
		if strings.Contains(lowerTitle, term) || strings.Contains(lowerContent, term) {
			if len(g.Questions) > maxQuestions {
				return g.Questions[:maxQuestions]
			}
			return g.Questions
		}
	}
	return nil
}

// EnrichCatalog appends the synonyms of category to a catalog chunk.
func (e *Enricher) EnrichCatalog(text, category string) string {
	synonyms := e.terms.CategorySynonyms(category)
	if len(synonyms) == 0 {
		return text
	}
	return fmt.Sprintf("%s\nCATEGORY TERMS: %s %s", text, category, strings.Join(synonyms, " "))
}

func uniqueSorted(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
