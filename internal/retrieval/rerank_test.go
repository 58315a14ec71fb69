package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerank_OrdersByScore(t *testing.T) {
	scorer := &fakeScorer{reply: `{"rankings": [{"id": "c2", "score": 9}, {"id": "c0", "score": 3}, {"id": "c1", "score": 7}]}`}
	r := NewReranker(scorer, nil)

	results := r.Rerank(context.Background(), "q", candidates(4), 3)

	assert.Equal(t, []string{"c2", "c1", "c0"}, chunkIDs(results))
	assert.True(t, results[0].Reranked)
	assert.Equal(t, 9.0, results[0].RankScore)
}

func TestRerank_EqualScoresKeepInputOrder(t *testing.T) {
	scorer := &fakeScorer{reply: `{"rankings": [{"id": "c3", "score": 5}, {"id": "c1", "score": 5}, {"id": "c2", "score": 8}]}`}
	r := NewReranker(scorer, nil)

	results := r.Rerank(context.Background(), "q", candidates(4), 3)

	assert.Equal(t, []string{"c2", "c1", "c3"}, chunkIDs(results))
}

func TestRerank_UnscoredKeepsScorerOrder(t *testing.T) {
	scorer := &fakeScorer{reply: `["c3", "c0", "c2"]`}
	r := NewReranker(scorer, nil)

	results := r.Rerank(context.Background(), "q", candidates(4), 2)

	assert.Equal(t, []string{"c3", "c0"}, chunkIDs(results))
}

func TestRerank_BackfillsUnnamedInInputOrder(t *testing.T) {
	scorer := &fakeScorer{reply: `{"rankings": [{"id": "c3", "score": 9}, {"id": "unknown", "score": 10}, {"id": "c3", "score": 1}]}`}
	r := NewReranker(scorer, nil)

	results := r.Rerank(context.Background(), "q", candidates(5), 3)

	assert.Equal(t, []string{"c3", "c0", "c1"}, chunkIDs(results))
	assert.True(t, results[0].Reranked)
	assert.False(t, results[1].Reranked)
	assert.Equal(t, 1.0, results[1].RankScore)
}

func TestRerank_FallbackKeepsInputOrder(t *testing.T) {
	tests := []struct {
		name   string
		scorer *fakeScorer
	}{
		{"scorer error", &fakeScorer{err: errors.New("boom")}},
		{"malformed output", &fakeScorer{reply: "I think the second one is best."}},
		{"no known ids", &fakeScorer{reply: `{"rankings": [{"id": "zzz", "score": 3}]}`}},
		{"empty list", &fakeScorer{reply: `{"rankings": []}`}},
		{"panic", &fakeScorer{panic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReranker(tt.scorer, nil)
			results := r.Rerank(context.Background(), "q", candidates(5), 3)

			assert.Equal(t, []string{"c0", "c1", "c2"}, chunkIDs(results))
			for _, res := range results {
				assert.False(t, res.Reranked)
			}
		})
	}
}

func TestRerank_Timeout(t *testing.T) {
	scorer := &fakeScorer{delay: time.Second, reply: `["c1"]`}
	r := NewReranker(scorer, nil, WithRerankTimeout(20*time.Millisecond))

	start := time.Now()
	results := r.Rerank(context.Background(), "q", candidates(3), 2)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, []string{"c0", "c1"}, chunkIDs(results))
}

func TestRerank_FewerCandidatesThanRequested(t *testing.T) {
	r := NewReranker(&fakeScorer{reply: `["c1", "c0"]`}, nil)

	results := r.Rerank(context.Background(), "q", candidates(2), 5)

	assert.Equal(t, []string{"c1", "c0"}, chunkIDs(results))
}

func TestRerank_CapsPayload(t *testing.T) {
	scorer := &fakeScorer{reply: `["c1"]`}
	r := NewReranker(scorer, nil, WithMaxCandidates(3), WithMaxCandidateText(4))

	in := candidates(6)
	in[0].Text = "Bảo hành mười hai tháng"
	results := r.Rerank(context.Background(), "q", in, 5)

	require.Len(t, scorer.got, 3)
	assert.Equal(t, "Bảo ", scorer.got[0].Content)
	assert.LessOrEqual(t, utf8.RuneCountInString(scorer.got[0].Content), 4)
	// Candidates beyond the cap still back-fill.
	assert.Equal(t, []string{"c1", "c0", "c2", "c3", "c4"}, chunkIDs(results))
}

func TestRerank_ZeroAndEmpty(t *testing.T) {
	scorer := &fakeScorer{reply: `["c0"]`}
	r := NewReranker(scorer, nil)

	assert.Empty(t, r.Rerank(context.Background(), "q", candidates(3), 0))
	assert.Empty(t, r.Rerank(context.Background(), "q", nil, 3))
	assert.Nil(t, scorer.got)
}

func TestRerank_NilScorerPassesThrough(t *testing.T) {
	r := NewReranker(nil, nil)

	results := r.Rerank(context.Background(), "q", candidates(4), 2)

	assert.Equal(t, []string{"c0", "c1"}, chunkIDs(results))
	assert.False(t, r.Enabled())
}

func TestRerank_NegativeCountPanics(t *testing.T) {
	r := NewReranker(nil, nil)
	assert.Panics(t, func() { r.Rerank(context.Background(), "q", candidates(1), -1) })
}
