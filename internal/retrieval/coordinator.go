package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bull/techplus-rag/internal/domain"
)

const (
	// DefaultOverFetch multiplies the requested result count when querying
	// the index, since dedup and rerank both drop candidates.
	DefaultOverFetch = 3

	// DefaultQueryTimeout bounds one vector index call.
	DefaultQueryTimeout = 10 * time.Second
	// DefaultExpandTimeout bounds one query expansion.
	DefaultExpandTimeout = 5 * time.Second

	// DefaultParallelism bounds concurrent searches in SearchMany.
	DefaultParallelism = 4
)

// Request is one search in a SearchMany fan-out.
type Request struct {
	Query  string
	Filter domain.Filter
	N      int
}

// Coordinator runs the online search path: expand, query, dedupe, rerank.
type Coordinator struct {
	index    VectorIndex
	reranker *Reranker
	expander QueryExpander
	recorder Recorder
	logger   *slog.Logger

	overFetch     int
	queryTimeout  time.Duration
	expandTimeout time.Duration
	parallelism   int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithReranker sets the reranker applied after dedup.
func WithReranker(r *Reranker) Option {
	return func(c *Coordinator) { c.reranker = r }
}

// WithExpander sets the query expander. Without one the query is sent to
// the index as typed.
func WithExpander(e QueryExpander) Option {
	return func(c *Coordinator) { c.expander = e }
}

// WithRecorder sets the sink for search outcomes. Nil is ignored.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithLogger sets the logger used for fallbacks. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOverFetch sets the over-fetch multiplier. It panics if n < 1.
func WithOverFetch(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("retrieval: over-fetch must be >= 1, got %d", n))
	}
	return func(c *Coordinator) { c.overFetch = n }
}

// WithQueryTimeout bounds each index call. Zero or negative disables the
// bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.queryTimeout = d }
}

// WithExpandTimeout bounds each expander call.
func WithExpandTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.expandTimeout = d }
}

// WithParallelism caps concurrent searches in SearchMany. Values below 1
// keep DefaultParallelism.
func WithParallelism(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

// NewCoordinator creates a Coordinator over index. Without a reranker the
// deduplicated retrieval order is returned as is.
func NewCoordinator(index VectorIndex, opts ...Option) *Coordinator {
	c := &Coordinator{
		index:         index,
		recorder:      nopRecorder{},
		logger:        slog.Default(),
		overFetch:     DefaultOverFetch,
		queryTimeout:  DefaultQueryTimeout,
		expandTimeout: DefaultExpandTimeout,
		parallelism:   DefaultParallelism,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.reranker == nil {
		c.reranker = NewReranker(nil, c.logger)
	}
	return c
}

// Search returns up to n distinct results for query. It never returns an
// error: a failed expansion falls back to the raw query, a failed index
// query yields no results, and a failed rerank keeps retrieval order.
// Search panics if n is negative.
func (c *Coordinator) Search(ctx context.Context, query string, filter domain.Filter, n int) []domain.RankedResult {
	if n < 0 {
		panic(fmt.Sprintf("retrieval: negative result count %d", n))
	}
	start := time.Now()
	corpus := corpusLabel(filter)
	defer func() { c.recorder.SearchCompleted(corpus, time.Since(start)) }()

	if n == 0 || strings.TrimSpace(query) == "" {
		return []domain.RankedResult{}
	}

	text := c.expand(ctx, query)
	k := n * c.overFetch

	var matches []domain.Match
	err := guarded(ctx, c.queryTimeout, func(ctx context.Context) error {
		var err error
		matches, err = c.index.Query(ctx, text, k, filter)
		return err
	})
	if err != nil {
		c.logger.Warn("Index query failed, returning no results", "corpus", corpus, "error", err)
		c.recorder.StageFallback("query")
		return []domain.RankedResult{}
	}
	c.recorder.StageCandidates("retrieved", len(matches))

	candidates := make([]domain.Candidate, len(matches))
	for i, m := range matches {
		candidates[i] = domain.CandidateFromMatch(m)
	}
	unique := Dedupe(candidates, k)
	c.recorder.StageCandidates("deduped", len(unique))

	results := c.reranker.Rerank(ctx, text, unique, n)
	if c.reranker.Enabled() && len(results) > 0 && !results[0].Reranked {
		c.recorder.StageFallback("rerank")
	}

	c.logger.Debug("Search completed",
		"corpus", corpus,
		"query", query,
		"expanded", text,
		"retrieved", len(matches),
		"unique", len(unique),
		"results", len(results),
		"elapsed", time.Since(start))
	return results
}

func (c *Coordinator) expand(ctx context.Context, query string) string {
	if c.expander == nil {
		return query
	}
	var expanded string
	err := guarded(ctx, c.expandTimeout, func(ctx context.Context) error {
		var err error
		expanded, err = c.expander.Expand(ctx, query)
		return err
	})
	if err != nil || strings.TrimSpace(expanded) == "" {
		if err != nil {
			c.logger.Warn("Query expansion failed, using raw query", "error", err)
		}
		c.recorder.StageFallback("expand")
		return query
	}
	return expanded
}

// SearchMany runs independent searches concurrently and returns their results
// in request order. It panics if any request asks for a negative count.
func (c *Coordinator) SearchMany(ctx context.Context, reqs []Request) [][]domain.RankedResult {
	for _, req := range reqs {
		if req.N < 0 {
			panic(fmt.Sprintf("retrieval: negative result count %d", req.N))
		}
	}

	out := make([][]domain.RankedResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for i, req := range reqs {
		g.Go(func() error {
			out[i] = c.Search(gctx, req.Query, req.Filter, req.N)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// SectionText reassembles a policy section from its chunks, dropping the
// paragraphs each chunk repeats from the one before it.
func (c *Coordinator) SectionText(ctx context.Context, entityID string) (domain.PolicyHit, string, error) {
	src, ok := c.index.(SectionSource)
	if !ok {
		return domain.PolicyHit{}, "", fmt.Errorf("index cannot list section chunks")
	}

	var matches []domain.Match
	err := guarded(ctx, c.queryTimeout, func(ctx context.Context) error {
		var err error
		matches, err = src.ScrollEntity(ctx, entityID)
		return err
	})
	if err != nil {
		return domain.PolicyHit{}, "", domain.WrapError(domain.ErrIndexUnavailable, "section text", err)
	}
	if len(matches) == 0 {
		return domain.PolicyHit{}, "", domain.WrapError(domain.ErrNotFound, "section text",
			fmt.Errorf("no chunks for %q", entityID))
	}

	hit, _ := domain.HitFromMetadata(entityID, matches[0].Metadata).(domain.PolicyHit)
	return hit, mergeOverlapping(matches, "\n"), nil
}

// mergeOverlapping joins chunk texts in order, dropping from each chunk the
// number of leading units recorded under domain.MetaOverlapUnits. Chunks
// without the key are joined whole.
func mergeOverlapping(chunks []domain.Match, sep string) string {
	var merged []string
	for i, c := range chunks {
		units := strings.Split(c.Text, sep)
		skip := 0
		if i > 0 {
			skip, _ = c.Metadata.Int(domain.MetaOverlapUnits)
			skip = max(min(skip, len(units)), 0)
		}
		merged = append(merged, units[skip:]...)
	}
	return strings.Join(merged, sep)
}

func corpusLabel(f domain.Filter) string {
	if f.Kind == "" {
		return "all"
	}
	return string(f.Kind)
}
