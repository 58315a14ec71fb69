package retrieval

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bull/techplus-rag/internal/domain"
)

func cand(chunk, entity string) domain.Candidate {
	return domain.Candidate{ChunkID: chunk, SourceEntityID: entity}
}

func TestDedupe_KeepsFirstOccurrence(t *testing.T) {
	in := []domain.Candidate{
		cand("1", "p1"), cand("2", "p2"), cand("3", "p1"), cand("4", "p3"), cand("5", "p2"),
	}

	out := Dedupe(in, 0)

	assert.Equal(t, []domain.Candidate{cand("1", "p1"), cand("2", "p2"), cand("4", "p3")}, out)
}

func TestDedupe_StopsAtKeep(t *testing.T) {
	in := []domain.Candidate{cand("1", "p1"), cand("2", "p1"), cand("3", "p2"), cand("4", "p3")}

	out := Dedupe(in, 2)

	assert.Equal(t, []domain.Candidate{cand("1", "p1"), cand("3", "p2")}, out)
}

func TestDedupe_Empty(t *testing.T) {
	assert.Empty(t, Dedupe(nil, 5))
}

// TestDedupe_Idempotent checks dedupe(dedupe(x)) == dedupe(x) on random input.
func TestDedupe_Idempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(30)
		in := make([]domain.Candidate, n)
		for i := range in {
			in[i] = cand(string(rune('a'+i)), string(rune('A'+rng.Intn(8))))
		}

		once := Dedupe(in, 0)
		twice := Dedupe(once, 0)
		if !assert.Equal(t, once, twice, "trial %d", trial) {
			return
		}

		seen := map[string]bool{}
		for _, c := range once {
			if seen[c.SourceEntityID] {
				t.Fatalf("trial %d: duplicate entity %s", trial, c.SourceEntityID)
			}
			seen[c.SourceEntityID] = true
		}
	}
}
