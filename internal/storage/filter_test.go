package storage

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/techplus-rag/internal/domain"
)

func TestBuildFilter_Empty(t *testing.T) {
	assert.Nil(t, buildFilter(domain.Filter{}))
}

func TestBuildFilter_CategoryUsesNormalizedKey(t *testing.T) {
	f := buildFilter(domain.Filter{Kind: domain.KindCatalogItem, Category: "GPU"})
	require.NotNil(t, f)
	require.Len(t, f.GetMust(), 2)

	kind := f.GetMust()[0].GetField()
	assert.Equal(t, domain.MetaKind, kind.GetKey())
	assert.Equal(t, "catalog_item", kind.GetMatch().GetKeyword())

	category := f.GetMust()[1].GetField()
	assert.Equal(t, payloadCategoryKey, category.GetKey())
	assert.Equal(t, "gpu", category.GetMatch().GetKeyword())
}

func TestBuildFilter_PriceRange(t *testing.T) {
	f := buildFilter(domain.Filter{MaxPrice: 500})
	require.NotNil(t, f)
	require.Len(t, f.GetMust(), 1)

	r := f.GetMust()[0].GetField().GetRange()
	assert.Nil(t, r.Gte)
	require.NotNil(t, r.Lte)
	assert.Equal(t, 500.0, r.GetLte())
}

func TestToMatch_HidesInternalPayload(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		payloadText:           "RTX 4070",
		payloadCategoryKey:    "gpu",
		domain.MetaCategory:   "GPU",
		domain.MetaChunkIndex: int64(2),
	})

	m := toMatch(qdrant.NewIDUUID("0d8c0a43-7d55-4d59-9a3a-0f1d0c3f5a10"), payload, 0.5)
	assert.Equal(t, "RTX 4070", m.Text)
	assert.Equal(t, "GPU", m.Metadata.String(domain.MetaCategory))
	assert.NotContains(t, m.Metadata, payloadCategoryKey)
	assert.NotContains(t, m.Metadata, payloadText)
	assert.Equal(t, 0.5, m.Score)
}
