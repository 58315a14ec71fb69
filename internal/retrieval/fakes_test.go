package retrieval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bull/techplus-rag/internal/domain"
)

type fakeIndex struct {
	mu      sync.Mutex
	matches []domain.Match
	err     error
	delay   time.Duration
	calls   []fakeQuery
	chunks  map[string][]domain.Match
}

type fakeQuery struct {
	text   string
	topK   int
	filter domain.Filter
}

func (f *fakeIndex) Query(ctx context.Context, text string, topK int, filter domain.Filter) ([]domain.Match, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeQuery{text: text, topK: topK, filter: filter})
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Match
	for _, m := range f.matches {
		if filter.Matches(m.Metadata) {
			out = append(out, m)
		}
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (f *fakeIndex) ScrollEntity(_ context.Context, entityID string) ([]domain.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks[entityID], nil
}

type fakeScorer struct {
	reply string
	err   error
	panic bool
	delay time.Duration
	got   []domain.ScoredCandidate
}

func (f *fakeScorer) Score(ctx context.Context, _ string, candidates []domain.ScoredCandidate) (string, error) {
	f.got = candidates
	if f.panic {
		panic("scorer exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

type fakeExpander struct {
	out string
	err error
}

func (f fakeExpander) Expand(context.Context, string) (string, error) { return f.out, f.err }

type fakeRecorder struct {
	mu        sync.Mutex
	searches  map[string]int
	fallbacks map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{searches: map[string]int{}, fallbacks: map[string]int{}}
}

func (r *fakeRecorder) SearchCompleted(corpus string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches[corpus]++
}

func (r *fakeRecorder) StageFallback(stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks[stage]++
}

func (r *fakeRecorder) StageCandidates(string, int) {}

// candidates builds n candidates c0..c(n-1), each its own entity, with
// descending raw scores.
func candidates(n int) []domain.Candidate {
	out := make([]domain.Candidate, n)
	for i := range out {
		out[i] = domain.Candidate{
			ChunkID:        fmt.Sprintf("c%d", i),
			SourceEntityID: fmt.Sprintf("e%d", i),
			Text:           fmt.Sprintf("text %d", i),
			RawScore:       1 - float64(i)/10,
			Metadata:       domain.Metadata{},
		}
	}
	return out
}

func chunkIDs(results []domain.RankedResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ChunkID
	}
	return ids
}
