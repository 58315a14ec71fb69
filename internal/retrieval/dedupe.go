package retrieval

import "github.com/bull/techplus-rag/internal/domain"

// Dedupe keeps the first candidate of every source entity, in input order.
// Since input is similarity-ordered the kept one is the most similar chunk.
// It stops once keep entities are collected; keep <= 0 means no limit.
func Dedupe(candidates []domain.Candidate, keep int) []domain.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))

	for _, c := range candidates {
		if _, ok := seen[c.SourceEntityID]; ok {
			continue
		}
		seen[c.SourceEntityID] = struct{}{}
		out = append(out, c)

		if keep > 0 && len(out) >= keep {
			break
		}
	}
	return out
}
