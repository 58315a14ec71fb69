// Package retrieval turns a customer query into a short list of distinct,
// relevance-ordered results: over-fetch from the vector index, collapse
// duplicate entities, then let a relevance scorer reorder what is left.
// Every stage degrades to the previous stage's output on failure.
package retrieval

import (
	"context"
	"time"

	"github.com/bull/techplus-rag/internal/domain"
)

// VectorIndex answers similarity queries. Matches are ordered by descending
// similarity.
type VectorIndex interface {
	Query(ctx context.Context, text string, topK int, filter domain.Filter) ([]domain.Match, error)
}

// SectionSource lists every chunk of one source entity in chunk order.
type SectionSource interface {
	ScrollEntity(ctx context.Context, entityID string) ([]domain.Match, error)
}

// Scorer grades candidates against a query. The reply is untrusted text.
type Scorer interface {
	Score(ctx context.Context, query string, candidates []domain.ScoredCandidate) (string, error)
}

// QueryExpander rewrites a query before it reaches the index.
type QueryExpander interface {
	Expand(ctx context.Context, query string) (string, error)
}

// Recorder receives search telemetry.
type Recorder interface {
	SearchCompleted(corpus string, elapsed time.Duration)
	StageFallback(stage string)
	StageCandidates(stage string, n int)
}

type nopRecorder struct{}

func (nopRecorder) SearchCompleted(string, time.Duration) {}
func (nopRecorder) StageFallback(string)                  {}
func (nopRecorder) StageCandidates(string, int)           {}
