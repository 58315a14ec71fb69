package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/bull/techplus-rag/internal/domain"
)

const (
	// DefaultRerankTimeout bounds a single scorer call.
	DefaultRerankTimeout = 15 * time.Second

	// DefaultMaxCandidates caps how many candidates are sent to the scorer.
	DefaultMaxCandidates = 30

	// DefaultMaxCandidateText caps the text of each candidate sent to the scorer, in runes.
	DefaultMaxCandidateText = 1500
)

// Reranker reorders candidates with a relevance scorer. It never fails: when
// the scorer errors, times out, or replies with nothing usable, the input
// order is kept.
type Reranker struct {
	scorer        Scorer
	timeout       time.Duration
	maxCandidates int
	maxText       int
	logger        *slog.Logger
}

// RerankerOption configures a Reranker.
type RerankerOption func(*Reranker)

// WithRerankTimeout bounds a single scorer call.
func WithRerankTimeout(d time.Duration) RerankerOption {
	return func(r *Reranker) { r.timeout = d }
}

// WithMaxCandidates caps how many of the leading candidates the scorer sees.
// Zero or negative sends them all.
func WithMaxCandidates(n int) RerankerOption {
	return func(r *Reranker) { r.maxCandidates = n }
}

// WithMaxCandidateText truncates each candidate's text to n runes before
// scoring.
func WithMaxCandidateText(n int) RerankerOption {
	return func(r *Reranker) { r.maxText = n }
}

// NewReranker creates a Reranker. A nil scorer makes Rerank a truncating
// pass-through.
func NewReranker(scorer Scorer, logger *slog.Logger, opts ...RerankerOption) *Reranker {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reranker{
		scorer:        scorer,
		timeout:       DefaultRerankTimeout,
		maxCandidates: DefaultMaxCandidates,
		maxText:       DefaultMaxCandidateText,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enabled reports whether a scorer is configured.
func (r *Reranker) Enabled() bool { return r != nil && r.scorer != nil }

// Rerank returns at most n results ordered by descending relevance. Results
// the scorer placed have Reranked set; the rest back-fill in input order.
// Rerank panics if n is negative.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.Candidate, n int) []domain.RankedResult {
	if n < 0 {
		panic("retrieval: negative result count")
	}
	if n == 0 || len(candidates) == 0 {
		return []domain.RankedResult{}
	}
	if !r.Enabled() {
		return passThrough(candidates, n)
	}

	pool := candidates
	if r.maxCandidates > 0 && len(pool) > r.maxCandidates {
		pool = pool[:r.maxCandidates]
	}

	var raw string
	err := guarded(ctx, r.timeout, func(ctx context.Context) error {
		var err error
		raw, err = r.scorer.Score(ctx, query, r.payload(pool))
		return err
	})
	if err != nil {
		r.logger.Warn("Rerank failed, keeping retrieval order", "error", err, "candidates", len(pool))
		return passThrough(candidates, n)
	}

	rankings, err := extractRankings(raw)
	if err != nil {
		r.logger.Warn("Rerank output unusable, keeping retrieval order", "error", err, "output", truncateRunes(raw, 200))
		return passThrough(candidates, n)
	}

	ordered := orderRankings(rankings, pool)
	if len(ordered) == 0 {
		r.logger.Warn("Rerank output named no known candidates, keeping retrieval order")
		return passThrough(candidates, n)
	}

	results := make([]domain.RankedResult, 0, n)
	placed := make(map[int]bool, len(ordered))
	for _, o := range ordered {
		if len(results) == n {
			break
		}
		res := domain.NewRankedResult(pool[o.pos])
		res.Reranked = true
		if o.hasScore {
			res.RankScore = o.score
		}
		results = append(results, res)
		placed[o.pos] = true
	}
	for i, c := range candidates {
		if len(results) == n {
			break
		}
		if placed[i] {
			continue
		}
		results = append(results, domain.NewRankedResult(c))
	}
	return results
}

func (r *Reranker) payload(pool []domain.Candidate) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, len(pool))
	for i, c := range pool {
		out[i] = domain.ScoredCandidate{
			ID:       c.ChunkID,
			Content:  truncateRunes(c.Text, r.maxText),
			Score:    c.RawScore,
			Metadata: c.Metadata,
		}
	}
	return out
}

type placement struct {
	pos      int
	score    float64
	hasScore bool
}

// orderRankings maps scorer ids back to pool positions, dropping unknown and
// repeated ids. When any item carries a score, scored items sort first by
// descending score with ties in input order; otherwise the scorer's order
// stands.
func orderRankings(rankings []ranking, pool []domain.Candidate) []placement {
	positions := make(map[string]int, len(pool))
	for i, c := range pool {
		if _, ok := positions[c.ChunkID]; !ok {
			positions[c.ChunkID] = i
		}
	}

	seen := make(map[int]bool, len(rankings))
	out := make([]placement, 0, len(rankings))
	anyScore := false
	for _, rk := range rankings {
		pos, ok := positions[rk.ID]
		if !ok || seen[pos] {
			continue
		}
		seen[pos] = true
		out = append(out, placement{pos: pos, score: rk.Score, hasScore: rk.HasScore})
		anyScore = anyScore || rk.HasScore
	}

	if anyScore {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if a.hasScore != b.hasScore {
				return a.hasScore
			}
			if a.hasScore && a.score != b.score {
				return a.score > b.score
			}
			return a.pos < b.pos
		})
	}
	return out
}

func passThrough(candidates []domain.Candidate, n int) []domain.RankedResult {
	n = min(n, len(candidates))
	out := make([]domain.RankedResult, n)
	for i := 0; i < n; i++ {
		out[i] = domain.NewRankedResult(candidates[i])
	}
	return out
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
