// Package storage implements the vector index the retrieval pipeline queries:
// a qdrant-backed index for production and an in-memory one for offline use.
package storage

import (
	"context"
	"fmt"

	"github.com/bull/techplus-rag/internal/domain"
)

// DefaultCollection is the single qdrant collection for both corpora. The
// "kind" payload field tells catalog chunks and policy chunks apart.
const DefaultCollection = "techplus_chunks"

// vectorName is the named vector every chunk is stored under.
const vectorName = "content"

// Payload keys that are not metadata.
const (
	payloadText = "text"
	// payloadCategoryKey holds domain.CategoryKey of the category so filters
	// match regardless of case.
	payloadCategoryKey = "category_key"
)

// Embedder turns texts into vectors. Both embedding.Embedder and
// embedding.HashEmbedder satisfy it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// embedChunks embeds the IndexText of every chunk, falling back to Text for
// chunks that were not enriched.
func embedChunks(ctx context.Context, embedder Embedder, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.IndexText
		if texts[i] == "" {
			texts[i] = c.Text
		}
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i, v := range vectors {
		if len(v) != embedder.Dimension() {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), embedder.Dimension())
		}
	}
	return vectors, nil
}

// chunkPayload is the metadata stored alongside a chunk. Identity fields are
// written last so metadata cannot override them.
func chunkPayload(c domain.Chunk) domain.Metadata {
	md := c.Metadata.Clone()
	md[domain.MetaDocumentID] = c.DocumentID
	md[domain.MetaSourceEntityID] = c.SourceEntityID
	md[domain.MetaChunkIndex] = c.SequenceIndex
	return md
}
