package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/techplus-rag/internal/catalog"
	"github.com/bull/techplus-rag/internal/chunking"
	"github.com/bull/techplus-rag/internal/domain"
	"github.com/bull/techplus-rag/internal/embedding"
	"github.com/bull/techplus-rag/internal/enrich"
	"github.com/bull/techplus-rag/internal/markdown"
	"github.com/bull/techplus-rag/internal/retrieval"
	"github.com/bull/techplus-rag/internal/storage"
)

type recordedIngest struct {
	kind   string
	chunks int
	err    error
}

type fakeRecorder struct {
	calls []recordedIngest
}

func (r *fakeRecorder) DocumentIngested(kind string, chunks int, err error) {
	r.calls = append(r.calls, recordedIngest{kind, chunks, err})
}

// flakyIndex wraps a MemoryIndex and fails writes while down is set.
type flakyIndex struct {
	*storage.MemoryIndex
	down    bool
	deleted []string
}

func (f *flakyIndex) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if f.down {
		return errors.New("index down")
	}
	return f.MemoryIndex.Upsert(ctx, chunks)
}

func (f *flakyIndex) DeleteDocument(ctx context.Context, id string, keep ...string) error {
	f.deleted = append(f.deleted, id)
	return f.MemoryIndex.DeleteDocument(ctx, id, keep...)
}

func newTestPipeline(index Index, parserOpts ...markdown.Option) *Pipeline {
	return NewPipeline(
		markdown.NewParser(parserOpts...),
		chunking.New(512, 1, chunking.WithUnit(chunking.Paragraphs)),
		chunking.New(1000, 2),
		enrich.NewEnricher(enrich.DefaultTerms()),
		index,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func warrantyPolicy() string {
	var b strings.Builder
	b.WriteString("# Store Policies\n\n")
	b.WriteString("## Shipping\n\nOrders ship within two business days from our Hanoi warehouse.\n\n")
	b.WriteString("## Warranty\n\n")
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, "Paragraph %d of the warranty. ", i)
		b.WriteString(strings.Repeat("Coverage applies to parts and labour for defects. ", 2))
		b.WriteString("Keep your invoice.\n\n")
	}
	b.WriteString("## Returns\n\nUnopened items can be returned within seven days.\n")
	return b.String()
}

// TestPipeline_WarrantySection ingests a three section policy and checks the
// chunks of the long section.
func TestPipeline_WarrantySection(t *testing.T) {
	index := storage.NewMemoryIndex(embedding.NewHashEmbedder(128))
	p := newTestPipeline(index)

	doc := domain.Document{ID: "policy/store.md", Kind: domain.KindPolicy, RawText: warrantyPolicy()}
	chunks, err := p.Chunks(doc)
	require.NoError(t, err)

	var warranty []domain.Chunk
	for _, c := range chunks {
		if c.Metadata.String(domain.MetaTitle) == "Warranty" {
			warranty = append(warranty, c)
		}
	}
	require.GreaterOrEqual(t, len(warranty), 3)

	for i, c := range warranty {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 512)
		assert.True(t, strings.HasSuffix(c.Metadata.String(domain.MetaPath), "Warranty"))
		assert.Equal(t, "Store Policies / Warranty", c.Metadata.String(domain.MetaPath))
		assert.Equal(t, i, c.SequenceIndex)
		assert.Equal(t, "policy/store.md#2", c.SourceEntityID)
		assert.True(t, strings.HasPrefix(c.IndexText, "POLICY: Warranty"))
	}

	// Consecutive chunks share one paragraph of overlap.
	first := strings.Split(warranty[0].Text, "\n")
	second := strings.Split(warranty[1].Text, "\n")
	assert.Equal(t, first[len(first)-1], second[0])

	n, err := p.Ingest(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), n)

	matches, err := index.Query(context.Background(), "warranty coverage", 5, domain.Filter{Kind: domain.KindPolicy})
	require.NoError(t, err)
	assert.NotEmpty(t, matches)
}

func TestPipeline_SkipsEmptySections(t *testing.T) {
	p := newTestPipeline(storage.NewMemoryIndex(embedding.NewHashEmbedder(64)))

	chunks, err := p.Chunks(domain.Document{ID: "policy/a.md", Kind: domain.KindPolicy, RawText: warrantyPolicy()})
	require.NoError(t, err)
	for _, c := range chunks {
		assert.NotEqual(t, "Store Policies", c.Metadata.String(domain.MetaTitle))
	}
}

func TestPipeline_ChunkIDsAreDeterministic(t *testing.T) {
	p := newTestPipeline(storage.NewMemoryIndex(embedding.NewHashEmbedder(64)))
	doc := domain.Document{ID: "policy/store.md", Kind: domain.KindPolicy, RawText: warrantyPolicy()}

	a, err := p.Chunks(doc)
	require.NoError(t, err)
	b, err := p.Chunks(doc)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	seen := make(map[string]bool)
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.False(t, seen[a[i].ID], "duplicate chunk id %s", a[i].ID)
		seen[a[i].ID] = true
	}
}

// TestPipeline_Ingest_ReplacesDocument verifies re-ingestion leaves no stale
// chunks behind when a document shrinks.
func TestPipeline_Ingest_ReplacesDocument(t *testing.T) {
	ctx := context.Background()
	index := storage.NewMemoryIndex(embedding.NewHashEmbedder(64))
	p := newTestPipeline(index)

	_, err := p.Ingest(ctx, domain.Document{ID: "policy/store.md", Kind: domain.KindPolicy, RawText: warrantyPolicy()})
	require.NoError(t, err)

	n, err := p.Ingest(ctx, domain.Document{
		ID:      "policy/store.md",
		Kind:    domain.KindPolicy,
		RawText: "# Returns\n\nReturns are accepted within seven days.\n",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.PointsCount)
}

func TestPipeline_CatalogChunks(t *testing.T) {
	p := newTestPipeline(storage.NewMemoryIndex(embedding.NewHashEmbedder(64)))

	product := catalog.Product{
		ID:       "cpu-7800x3d",
		Name:     "Ryzen 7 7800X3D",
		Brand:    "AMD",
		Model:    "7800X3D",
		Category: "CPU",
		Price:    449,
		Stock:    3,
		Specs:    map[string]any{"cores": 8, "socket": "AM5"},
	}
	chunks, err := p.Chunks(product.Document())
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.Equal(t, "cpu-7800x3d", c.SourceEntityID)
		assert.Equal(t, product.DocumentID(), c.DocumentID)
		assert.Equal(t, string(domain.KindCatalogItem), c.Metadata.String(domain.MetaKind))
		assert.Equal(t, "CPU", c.Metadata.String(domain.MetaCategory))
		assert.Contains(t, c.IndexText, c.Text)
	}
}

func TestPipeline_UnknownKind(t *testing.T) {
	p := newTestPipeline(storage.NewMemoryIndex(embedding.NewHashEmbedder(64)))

	_, err := p.Chunks(domain.Document{ID: "x", Kind: "faq", RawText: "hello"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = p.Chunks(domain.Document{Kind: domain.KindPolicy, RawText: "# A\n\nb"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestPipeline_IngestAll_CollectsFailures checks that a malformed document is
// reported without affecting the others.
func TestPipeline_IngestAll_CollectsFailures(t *testing.T) {
	ctx := context.Background()
	index := storage.NewMemoryIndex(embedding.NewHashEmbedder(64))
	p := newTestPipeline(index, markdown.WithStrictPreamble())
	rec := &fakeRecorder{}
	p.SetRecorder(rec)

	docs := []domain.Document{
		{ID: "policy/good.md", Kind: domain.KindPolicy, RawText: "# Shipping\n\nFree over $100.\n"},
		{ID: "policy/bad.md", Kind: domain.KindPolicy, RawText: "Intro before any heading.\n\n# Title\n\nBody.\n"},
		{ID: "policy/other.md", Kind: domain.KindPolicy, RawText: "# Returns\n\nSeven days.\n"},
	}

	result, err := p.IngestAll(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalDocs)
	assert.Equal(t, 2, result.SuccessfulDocs)
	assert.Equal(t, 2, result.TotalChunks)
	require.Len(t, result.FailedDocs, 1)
	assert.Equal(t, "policy/bad.md", result.FailedDocs[0].ID)
	assert.Contains(t, result.FailedDocs[0].Reason, "malformed")

	require.Len(t, rec.calls, 3)
	assert.ErrorIs(t, rec.calls[1].err, domain.ErrMalformedDocument)

	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.PointsCount)
}

func TestPipeline_Ingest_StoreError(t *testing.T) {
	index := &flakyIndex{MemoryIndex: storage.NewMemoryIndex(embedding.NewHashEmbedder(64)), down: true}
	p := newTestPipeline(index)

	_, err := p.Ingest(context.Background(), domain.Document{ID: "policy/a.md", Kind: domain.KindPolicy, RawText: "# A\n\nbody"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store chunks")
	assert.Empty(t, index.deleted)
}

// TestPipeline_Ingest_FailedWriteKeepsPreviousVersion checks that a document
// whose new chunks cannot be stored stays searchable in its old form.
func TestPipeline_Ingest_FailedWriteKeepsPreviousVersion(t *testing.T) {
	ctx := context.Background()
	index := &flakyIndex{MemoryIndex: storage.NewMemoryIndex(embedding.NewHashEmbedder(64))}
	p := newTestPipeline(index)

	doc := domain.Document{ID: "policy/store.md", Kind: domain.KindPolicy, RawText: warrantyPolicy()}
	n, err := p.Ingest(ctx, doc)
	require.NoError(t, err)

	index.down = true
	_, err = p.Ingest(ctx, domain.Document{ID: doc.ID, Kind: domain.KindPolicy, RawText: "# Returns\n\nSeven days.\n"})
	require.Error(t, err)

	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), stats.PointsCount)

	matches, err := index.ScrollEntity(ctx, "policy/store.md#2")
	require.NoError(t, err)
	assert.NotEmpty(t, matches)
}

func TestPipeline_RecordsOverlapUnits(t *testing.T) {
	p := newTestPipeline(storage.NewMemoryIndex(embedding.NewHashEmbedder(64)))

	chunks, err := p.Chunks(domain.Document{ID: "policy/store.md", Kind: domain.KindPolicy, RawText: warrantyPolicy()})
	require.NoError(t, err)

	var warranty []domain.Chunk
	for _, c := range chunks {
		if c.SourceEntityID == "policy/store.md#2" {
			warranty = append(warranty, c)
		}
	}
	require.GreaterOrEqual(t, len(warranty), 2)

	for i, c := range warranty {
		overlap, ok := c.Metadata.Int(domain.MetaOverlapUnits)
		require.True(t, ok)
		if i == 0 {
			assert.Equal(t, 0, overlap)
		} else {
			assert.Equal(t, 1, overlap)
		}
	}
}

func TestPipeline_IngestAll_Cancelled(t *testing.T) {
	p := newTestPipeline(storage.NewMemoryIndex(embedding.NewHashEmbedder(64)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.IngestAll(ctx, []domain.Document{{ID: "policy/a.md", Kind: domain.KindPolicy, RawText: "# A\n\nb"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.SuccessfulDocs)
}

func TestPolicyFiles_Documents(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "store")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	returns := filepath.Join(sub, "returns.md")
	require.NoError(t, os.WriteFile(returns, []byte("# Returns\n\nSeven days.\n"), 0o644))

	docs, err := PolicyFiles{Root: dir, Paths: []string{returns}}.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "policy/store/returns.md", docs[0].ID)
	assert.Equal(t, domain.KindPolicy, docs[0].Kind)

	docs, err = PolicyFiles{Paths: []string{returns}}.Documents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "policy/returns.md", docs[0].ID)

	_, err = PolicyFiles{Paths: []string{filepath.Join(dir, "missing.md")}}.Documents(context.Background())
	assert.Error(t, err)
}

func TestCatalogFile_Documents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	data := `[{"id":"gpu-1","name":"RTX 4070","brand":"NVIDIA","category":"GPU","price":599,"stock":2}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	docs, err := CatalogFile{Path: path}.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "product-gpu-1", docs[0].ID)
	assert.Equal(t, domain.KindCatalogItem, docs[0].Kind)
}

// TestPipeline_SectionTextRestoresBody ingests a section whose lines repeat
// across chunk boundaries and reads it back whole.
func TestPipeline_SectionTextRestoresBody(t *testing.T) {
	ctx := context.Background()
	index := storage.NewMemoryIndex(embedding.NewHashEmbedder(64))
	p := NewPipeline(
		markdown.NewParser(),
		chunking.New(24, 2, chunking.WithUnit(chunking.Paragraphs)),
		chunking.New(1000, 2),
		enrich.NewEnricher(enrich.DefaultTerms()),
		index,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	raw := "# Đổi trả\n\nĐiều kiện đổi trả:\n\n- Có\n- Có\n- Có\n- Không\n\nCó.\n\nCó.\n\nCó.\n\nLiên hệ cửa hàng.\n"
	body := []string{"Điều kiện đổi trả:", "- Có", "- Có", "- Có", "- Không", "Có.", "Có.", "Có.", "Liên hệ cửa hàng."}

	n, err := p.Ingest(ctx, domain.Document{ID: "policy/returns.md", Kind: domain.KindPolicy, RawText: raw})
	require.NoError(t, err)
	require.Greater(t, n, 1)

	hit, text, err := retrieval.NewCoordinator(index).SectionText(ctx, "policy/returns.md#0")
	require.NoError(t, err)
	assert.Equal(t, "Đổi trả", hit.Title)
	assert.Equal(t, strings.Join(body, "\n"), text)
}
