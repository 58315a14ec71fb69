package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/techplus-rag/internal/domain"
	"github.com/bull/techplus-rag/internal/embedding"
)

func testChunk(id, doc, entity, text string, seq int, md domain.Metadata) domain.Chunk {
	return domain.Chunk{
		ID:             id,
		DocumentID:     doc,
		SourceEntityID: entity,
		Text:           text,
		SequenceIndex:  seq,
		Metadata:       md,
	}
}

func seededIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex(embedding.NewHashEmbedder(128))
	err := idx.Upsert(context.Background(), []domain.Chunk{
		testChunk("c1", "product-1", "1", "AMD Ryzen 7 7800X3D gaming processor", 0,
			domain.Metadata{domain.MetaKind: "catalog_item", domain.MetaCategory: "CPU", domain.MetaPrice: 449.0}),
		testChunk("c2", "product-2", "2", "NVIDIA RTX 4070 graphics card", 0,
			domain.Metadata{domain.MetaKind: "catalog_item", domain.MetaCategory: "GPU", domain.MetaPrice: 599.0}),
		testChunk("c3", "policy", "policy#1", "Warranty covers manufacturing defects", 0,
			domain.Metadata{domain.MetaKind: "policy", domain.MetaTitle: "Warranty"}),
		testChunk("c4", "policy", "policy#1", "Bring the invoice for warranty claims", 1,
			domain.Metadata{domain.MetaKind: "policy", domain.MetaTitle: "Warranty"}),
	})
	require.NoError(t, err)
	return idx
}

func TestMemoryIndex_QueryRanksBySimilarity(t *testing.T) {
	idx := seededIndex(t)

	matches, err := idx.Query(context.Background(), "gaming processor", 2, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "c1", matches[0].ID)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
	assert.Equal(t, "1", matches[0].Metadata.String(domain.MetaSourceEntityID))
}

func TestMemoryIndex_QueryFilter(t *testing.T) {
	idx := seededIndex(t)
	ctx := context.Background()

	matches, err := idx.Query(ctx, "card", 10, domain.Filter{Kind: domain.KindCatalogItem, MaxPrice: 500})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "c1", matches[0].ID)

	matches, err = idx.Query(ctx, "warranty", 10, domain.Filter{Kind: domain.KindPolicy})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, "policy", m.Metadata.String(domain.MetaKind))
	}
}

func TestMemoryIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx := NewMemoryIndex(embedding.NewHashEmbedder(64))
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		testChunk("a", "d", "a", "same text", 0, nil),
		testChunk("b", "d", "b", "same text", 0, nil),
		testChunk("c", "d", "c", "same text", 0, nil),
	}))

	matches, err := idx.Query(ctx, "same text", 3, domain.Filter{})
	require.NoError(t, err)
	ids := []string{matches[0].ID, matches[1].ID, matches[2].ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestMemoryIndex_UpsertIsIdempotent(t *testing.T) {
	idx := seededIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		testChunk("c1", "product-1", "1", "AMD Ryzen 7 7800X3D updated", 0, nil),
	}))

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), stats.PointsCount)
}

func TestMemoryIndex_DeleteDocument(t *testing.T) {
	idx := seededIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.DeleteDocument(ctx, "policy"))

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.PointsCount)

	matches, err := idx.Query(ctx, "warranty", 10, domain.Filter{Kind: domain.KindPolicy})
	require.NoError(t, err)
	assert.Empty(t, matches)

	// Re-upserting after a delete must still resolve IDs correctly.
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		testChunk("c2", "product-2", "2", "NVIDIA RTX 4070 SUPER", 0, nil),
	}))
	stats, err = idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.PointsCount)
}

func TestMemoryIndex_DeleteDocumentKeepsListed(t *testing.T) {
	idx := seededIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.DeleteDocument(ctx, "policy", "c3"))

	matches, err := idx.ScrollEntity(ctx, "policy#1")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "c3", matches[0].ID)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.PointsCount)
}

func TestMemoryIndex_CategoryFilterIgnoresCase(t *testing.T) {
	idx := seededIndex(t)

	matches, err := idx.Query(context.Background(), "card", 10, domain.Filter{Category: " gpu"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "c2", matches[0].ID)
	assert.Equal(t, "GPU", matches[0].Metadata.String(domain.MetaCategory))
}

func TestMemoryIndex_ScrollEntityOrdersByChunkIndex(t *testing.T) {
	idx := NewMemoryIndex(embedding.NewHashEmbedder(64))
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		testChunk("x2", "policy", "policy#3", "third", 2, nil),
		testChunk("x0", "policy", "policy#3", "first", 0, nil),
		testChunk("x1", "policy", "policy#3", "second", 1, nil),
		testChunk("y0", "policy", "policy#4", "other", 0, nil),
	}))

	matches, err := idx.ScrollEntity(ctx, "policy#3")
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "first", matches[0].Text)
	assert.Equal(t, "second", matches[1].Text)
	assert.Equal(t, "third", matches[2].Text)
}

func TestMemoryIndex_ZeroTopK(t *testing.T) {
	idx := seededIndex(t)
	matches, err := idx.Query(context.Background(), "anything", 0, domain.Filter{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

type badEmbedder struct{}

func (badEmbedder) Dimension() int { return 4 }
func (badEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 2}
	}
	return out, nil
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx := NewMemoryIndex(badEmbedder{})
	err := idx.Upsert(context.Background(), []domain.Chunk{testChunk("a", "d", "a", "text", 0, nil)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestToPayloadNormalizesTypes(t *testing.T) {
	payload := toPayload(domain.Metadata{
		"int":    3,
		"float":  float32(1.5),
		"list":   []string{"a", "b"},
		"nil":    nil,
		"string": "s",
	})

	assert.Equal(t, int64(3), payload["int"])
	assert.Equal(t, 1.5, payload["float"])
	assert.Equal(t, []any{"a", "b"}, payload["list"])
	assert.Equal(t, "s", payload["string"])
	_, ok := payload["nil"]
	assert.False(t, ok)
}

func TestBuildFilter(t *testing.T) {
	assert.Nil(t, buildFilter(domain.Filter{}))

	f := buildFilter(domain.Filter{
		Kind:     domain.KindCatalogItem,
		Category: "GPU",
		MaxPrice: 800,
		Fields:   map[string]string{domain.MetaBrand: "ASUS"},
	})
	require.NotNil(t, f)
	assert.Len(t, f.Must, 4)
}
