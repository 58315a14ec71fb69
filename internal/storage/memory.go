package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/bull/techplus-rag/internal/domain"
)

type memoryEntry struct {
	chunk  domain.Chunk
	meta   domain.Metadata
	vector []float32
	seq    uint64
}

// MemoryIndex is an in-process vector index using brute-force cosine
// similarity. Ties keep insertion order.
type MemoryIndex struct {
	embedder Embedder

	mu      sync.RWMutex
	entries []memoryEntry
	byID    map[string]int
	nextSeq uint64
}

func NewMemoryIndex(embedder Embedder) *MemoryIndex {
	return &MemoryIndex{
		embedder: embedder,
		byID:     make(map[string]int),
	}
}

// Upsert embeds chunks and stores them. A chunk whose ID is already present
// replaces the stored one in place.
func (m *MemoryIndex) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	vectors, err := embedChunks(ctx, m.embedder, chunks)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range chunks {
		e := memoryEntry{chunk: c, meta: chunkPayload(c), vector: vectors[i]}
		if pos, ok := m.byID[c.ID]; ok {
			e.seq = m.entries[pos].seq
			m.entries[pos] = e
			continue
		}
		e.seq = m.nextSeq
		m.nextSeq++
		m.byID[c.ID] = len(m.entries)
		m.entries = append(m.entries, e)
	}
	return nil
}

// DeleteDocument removes every chunk that belongs to documentID except the
// chunks whose IDs are listed in keep.
func (m *MemoryIndex) DeleteDocument(_ context.Context, documentID string, keep ...string) error {
	retain := make(map[string]bool, len(keep))
	for _, id := range keep {
		retain[id] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.chunk.DocumentID != documentID || retain[e.chunk.ID] {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	m.byID = make(map[string]int, len(kept))
	for i, e := range kept {
		m.byID[e.chunk.ID] = i
	}
	return nil
}

// Query returns up to topK chunks most similar to text that satisfy filter.
func (m *MemoryIndex) Query(ctx context.Context, text string, topK int, filter domain.Filter) ([]domain.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	vectors, err := m.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "memory query", err)
	}
	if len(vectors) != 1 {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "memory query",
			fmt.Errorf("got %d vectors", len(vectors)))
	}
	query := vectors[0]

	type scored struct {
		entry memoryEntry
		score float64
	}

	m.mu.RLock()
	hits := make([]scored, 0, len(m.entries))
	for _, e := range m.entries {
		if !filter.Matches(e.meta) {
			continue
		}
		hits = append(hits, scored{entry: e, score: cosine(query, e.vector)})
	}
	m.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].entry.seq < hits[j].entry.seq
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	matches := make([]domain.Match, len(hits))
	for i, h := range hits {
		matches[i] = domain.Match{
			ID:       h.entry.chunk.ID,
			Text:     h.entry.chunk.Text,
			Metadata: h.entry.meta.Clone(),
			Score:    h.score,
		}
	}
	return matches, nil
}

// ScrollEntity returns every chunk of a source entity ordered by chunk index.
func (m *MemoryIndex) ScrollEntity(_ context.Context, entityID string) ([]domain.Match, error) {
	m.mu.RLock()
	var matches []domain.Match
	for _, e := range m.entries {
		if e.chunk.SourceEntityID != entityID {
			continue
		}
		matches = append(matches, domain.Match{
			ID:       e.chunk.ID,
			Text:     e.chunk.Text,
			Metadata: e.meta.Clone(),
		})
	}
	m.mu.RUnlock()

	sortByChunkIndex(matches)
	return matches, nil
}

// Stats reports the number of stored chunks.
func (m *MemoryIndex) Stats(_ context.Context) (*CollectionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &CollectionInfo{PointsCount: uint64(len(m.entries))}, nil
}

func (m *MemoryIndex) Health(context.Context) error { return nil }

func (m *MemoryIndex) Close() error { return nil }

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
