// Package indexer turns catalog and policy documents into chunks and writes
// them to the vector index.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bull/techplus-rag/internal/chunking"
	"github.com/bull/techplus-rag/internal/domain"
	"github.com/bull/techplus-rag/internal/enrich"
	"github.com/bull/techplus-rag/internal/markdown"
)

// chunkNamespace seeds the deterministic chunk ids.
var chunkNamespace = uuid.MustParse("7b0c9f3e-5d1a-4c2e-9a67-1f3e2d4c5b6a")

// Index is the write side of the vector index. DeleteDocument removes the
// chunks of documentID whose IDs are not in keep.
type Index interface {
	Upsert(ctx context.Context, chunks []domain.Chunk) error
	DeleteDocument(ctx context.Context, documentID string, keep ...string) error
}

// Recorder receives per-document ingestion outcomes.
type Recorder interface {
	DocumentIngested(kind string, chunks int, err error)
}

type nopRecorder struct{}

func (nopRecorder) DocumentIngested(string, int, error) {}

// IndexResult contains statistics about an indexing operation.
type IndexResult struct {
	TotalDocs      int
	TotalChunks    int
	SuccessfulDocs int
	FailedDocs     []FailedDoc
	CommitSHA      string
	Duration       time.Duration
}

// FailedDoc represents a document that failed to index.
type FailedDoc struct {
	ID     string
	Reason string
}

// Pipeline orchestrates parsing, chunking, enrichment and storage.
type Pipeline struct {
	parser         *markdown.Parser
	policyChunker  *chunking.Chunker
	catalogChunker *chunking.Chunker
	enricher       *enrich.Enricher
	index          Index
	recorder       Recorder
	logger         *slog.Logger
}

// NewPipeline creates a new indexing pipeline with the given components.
// policyChunker should split by paragraphs and catalogChunker by sentences.
func NewPipeline(
	parser *markdown.Parser,
	policyChunker *chunking.Chunker,
	catalogChunker *chunking.Chunker,
	enricher *enrich.Enricher,
	index Index,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		parser:         parser,
		policyChunker:  policyChunker,
		catalogChunker: catalogChunker,
		enricher:       enricher,
		index:          index,
		recorder:       nopRecorder{},
		logger:         logger,
	}
}

// SetRecorder installs r as the ingestion metrics sink.
func (p *Pipeline) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	p.recorder = r
}

// Chunks splits doc into enriched chunks without touching the index.
func (p *Pipeline) Chunks(doc domain.Document) ([]domain.Chunk, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: document has no id", domain.ErrInvalidInput)
	}

	switch doc.Kind {
	case domain.KindPolicy:
		return p.policyChunks(doc)
	case domain.KindCatalogItem:
		return p.catalogChunks(doc), nil
	default:
		return nil, fmt.Errorf("%w: document %s has unknown kind %q", domain.ErrInvalidInput, doc.ID, doc.Kind)
	}
}

func (p *Pipeline) policyChunks(doc domain.Document) ([]domain.Chunk, error) {
	sections, err := p.parser.Parse([]byte(doc.RawText))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", doc.ID, err)
	}

	var chunks []domain.Chunk
	for _, s := range sections {
		if s.Body == "" {
			continue
		}
		entityID := doc.ID + "#" + strconv.Itoa(s.Index)

		for seq, piece := range p.policyChunker.ChunkPieces(s.Body) {
			md := doc.Metadata.Clone()
			md[domain.MetaKind] = string(domain.KindPolicy)
			md[domain.MetaTitle] = s.Title
			md[domain.MetaPath] = s.Path
			md[domain.MetaLevel] = s.Level
			md[domain.MetaOverlapUnits] = piece.Overlap

			chunks = append(chunks, domain.Chunk{
				ID:             chunkID(doc.ID, entityID, seq),
				DocumentID:     doc.ID,
				SourceEntityID: entityID,
				Text:           piece.Text,
				IndexText:      p.enricher.EnrichPolicy(piece.Text, s.Title, s.Path),
				SequenceIndex:  seq,
				Metadata:       md,
			})
		}
	}
	return chunks, nil
}

func (p *Pipeline) catalogChunks(doc domain.Document) []domain.Chunk {
	entityID := doc.Metadata.String(domain.MetaProductID)
	if entityID == "" {
		entityID = doc.ID
	}
	category := doc.Metadata.String(domain.MetaCategory)

	var chunks []domain.Chunk
	for seq, piece := range p.catalogChunker.ChunkPieces(doc.RawText) {
		md := doc.Metadata.Clone()
		md[domain.MetaKind] = string(domain.KindCatalogItem)
		md[domain.MetaOverlapUnits] = piece.Overlap

		chunks = append(chunks, domain.Chunk{
			ID:             chunkID(doc.ID, entityID, seq),
			DocumentID:     doc.ID,
			SourceEntityID: entityID,
			Text:           piece.Text,
			IndexText:      p.enricher.EnrichCatalog(piece.Text, category),
			SequenceIndex:  seq,
			Metadata:       md,
		})
	}
	return chunks
}

// chunkID is stable across runs so re-ingesting a document overwrites the
// same points.
func chunkID(documentID, entityID string, seq int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(documentID+"/"+entityID+"/"+strconv.Itoa(seq))).String()
}

// Ingest replaces everything indexed for doc with its fresh chunks and
// returns the number of chunks written. Chunks are written before stale ones
// are removed, so a failed write leaves the previous version searchable. A
// parse error leaves the index untouched.
func (p *Pipeline) Ingest(ctx context.Context, doc domain.Document) (int, error) {
	chunks, err := p.Chunks(doc)
	if err != nil {
		p.recorder.DocumentIngested(string(doc.Kind), 0, err)
		return 0, err
	}
	p.logger.Debug("Chunked document", "id", doc.ID, "chunks", len(chunks))

	if len(chunks) > 0 {
		if err := p.index.Upsert(ctx, chunks); err != nil {
			err = fmt.Errorf("store chunks: %w", err)
			p.recorder.DocumentIngested(string(doc.Kind), 0, err)
			return 0, err
		}
	}

	keep := make([]string, len(chunks))
	for i, c := range chunks {
		keep[i] = c.ID
	}
	if err := p.index.DeleteDocument(ctx, doc.ID, keep...); err != nil {
		err = fmt.Errorf("delete stale chunks: %w", err)
		p.recorder.DocumentIngested(string(doc.Kind), 0, err)
		return 0, err
	}

	p.recorder.DocumentIngested(string(doc.Kind), len(chunks), nil)
	p.logger.Info("Indexed document", "id", doc.ID, "kind", doc.Kind, "chunks", len(chunks))
	return len(chunks), nil
}

// IngestAll indexes docs one by one. A failing document is recorded in the
// result and does not stop the others; only a cancelled context aborts.
func (p *Pipeline) IngestAll(ctx context.Context, docs []domain.Document) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{TotalDocs: len(docs)}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		n, err := p.Ingest(ctx, doc)
		if err != nil {
			p.logger.Warn("Failed to index document", "id", doc.ID, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{
				ID:     doc.ID,
				Reason: err.Error(),
			})
			continue
		}
		result.SuccessfulDocs++
		result.TotalChunks += n
	}

	result.Duration = time.Since(start)
	p.logger.Info("Indexing complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result, nil
}

// IndexSource loads every document from src and ingests it.
func (p *Pipeline) IndexSource(ctx context.Context, src DocumentSource) (*IndexResult, error) {
	docs, err := src.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	p.logger.Info("Found documents", "count", len(docs))

	result, err := p.IngestAll(ctx, docs)
	if result != nil && len(docs) > 0 {
		result.CommitSHA = docs[0].Metadata.String(domain.MetaCommitSHA)
	}
	return result, err
}
