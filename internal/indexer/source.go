package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bull/techplus-rag/internal/catalog"
	"github.com/bull/techplus-rag/internal/domain"
)

// DocumentSource supplies documents to ingest. github.Fetcher implements it
// for policies kept in a repository.
type DocumentSource interface {
	Documents(ctx context.Context) ([]domain.Document, error)
}

// PolicyFiles reads policy markdown from local files. Paths are relative to
// Root when it is set, which keeps document ids in line with the ones a
// repository fetch would produce.
type PolicyFiles struct {
	Root  string
	Paths []string
}

// Documents implements DocumentSource.
func (s PolicyFiles) Documents(ctx context.Context) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(s.Paths))
	for _, p := range s.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}

		rel := filepath.Base(p)
		if s.Root != "" {
			if r, err := filepath.Rel(s.Root, p); err == nil {
				rel = r
			}
		}

		docs = append(docs, domain.Document{
			ID:       domain.PolicyDocumentID(filepath.ToSlash(rel)),
			Kind:     domain.KindPolicy,
			RawText:  string(content),
			Metadata: domain.Metadata{domain.MetaSourceURL: "file://" + filepath.ToSlash(p)},
		})
	}
	return docs, nil
}

// CatalogFile reads a JSON product export.
type CatalogFile struct {
	Path string
}

// Documents implements DocumentSource.
func (s CatalogFile) Documents(_ context.Context) ([]domain.Document, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	products, err := catalog.LoadProducts(f)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, len(products))
	for i, p := range products {
		docs[i] = p.Document()
	}
	return docs, nil
}
