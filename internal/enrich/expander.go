package enrich

import (
	"context"
	"strings"
)

// StaticExpander expands queries from the term table without calling a model.
// It appends the canonical category and policy vocabulary for every alias
// found in the query.
type StaticExpander struct {
	terms Terms
}

func NewStaticExpander(terms Terms) *StaticExpander {
	return &StaticExpander{terms: terms}
}

// Expand never fails; a query with no known terms is returned unchanged.
func (s *StaticExpander) Expand(_ context.Context, query string) (string, error) {
	lower := strings.ToLower(query)

	var extra []string
	for _, g := range s.terms.CategoryAliases {
		if containsAny(lower, g.Synonyms) || containsWord(lower, strings.ToLower(g.Term)) {
			extra = append(extra, g.Term)
			extra = append(extra, s.terms.CategorySynonyms(g.Term)...)
		}
	}
	for _, g := range s.terms.Policy {
		if strings.Contains(lower, g.Term) || containsAny(lower, g.Synonyms) {
			extra = append(extra, g.Term, g.Synonyms[0])
		}
	}

	var missing []string
	seen := make(map[string]struct{})
	for _, term := range extra {
		key := strings.ToLower(term)
		if _, ok := seen[key]; ok || containsWord(lower, key) {
			continue
		}
		seen[key] = struct{}{}
		missing = append(missing, term)
	}
	if len(missing) == 0 {
		return query, nil
	}
	return query + " " + strings.Join(missing, " "), nil
}

func containsAny(lower string, terms []string) bool {
	for _, t := range terms {
		if containsWord(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// containsWord reports whether term occurs in s on word boundaries.
func containsWord(s, term string) bool {
	if term == "" {
		return false
	}
	for i := 0; ; {
		j := strings.Index(s[i:], term)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(term)
		if boundary(s, start-1) && boundary(s, end) {
			return true
		}
		i = start + 1
		if i >= len(s) {
			return false
		}
	}
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return c == ' ' || c == ',' || c == '.' || c == '?' || c == '!' || c == '-' || c == '/' || c == '\t' || c == '\n'
}
