package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(64)
	vecs, err := e.Embed(context.Background(), []string{
		"card đồ họa RTX 4070",
		"Card đồ họa rtx 4070!",
		"chính sách đổi trả",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 4)

	for _, v := range vecs {
		assert.Len(t, v, 64)
	}

	assert.InDelta(t, 1.0, cosine(vecs[0], vecs[1]), 1e-6, "case and punctuation must not matter")
	assert.Less(t, cosine(vecs[0], vecs[2]), 0.9)

	var norm float64
	for _, x := range vecs[0] {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)

	for _, x := range vecs[3] {
		assert.Zero(t, x)
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"bảo", "hành", "36", "tháng"}, tokenize("Bảo hành: 36 tháng."))
}
