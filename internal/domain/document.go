// Package domain holds the types shared by the ingestion and retrieval sides
// of the store assistant: documents, chunks, candidates and ranked results.
package domain

import (
	"path"
	"strconv"
	"strings"
)

// Kind distinguishes the two corpora that share one vector index.
type Kind string

const (
	KindCatalogItem Kind = "catalog_item"
	KindPolicy      Kind = "policy"
)

// Valid reports whether k names a known corpus.
func (k Kind) Valid() bool {
	return k == KindCatalogItem || k == KindPolicy
}

// Well-known metadata keys. Metadata is passed through retrieval unchanged,
// so every adapter agrees on these names.
const (
	MetaKind           = "kind"
	MetaDocumentID     = "document_id"
	MetaSourceEntityID = "source_entity_id"
	MetaChunkIndex     = "chunk_index"
	MetaTitle          = "title"
	MetaPath           = "path"
	MetaLevel          = "level"
	MetaCategory       = "category"
	MetaPrice          = "price"
	MetaProductID      = "product_id"
	MetaName           = "name"
	MetaBrand          = "brand"
	MetaModel          = "model"
	MetaStock          = "stock"
	MetaSourceURL      = "source_url"
	MetaCommitSHA      = "commit_sha"
	// MetaOverlapUnits is the number of leading units a chunk repeats from
	// the chunk before it.
	MetaOverlapUnits = "overlap_units"
)

// Metadata is the free-form key/value map attached to every chunk.
type Metadata map[string]any

// Clone returns a shallow copy of m.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// String returns the value under key as a string, or "" when absent.
func (m Metadata) String(key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Float returns the numeric value under key. Index adapters may round-trip
// integers as int64 and prices as float64, so both are accepted.
func (m Metadata) Float(key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Int returns the integer value under key.
func (m Metadata) Int(key string) (int, bool) {
	f, ok := m.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Document is one unit of ingestion: a single catalog item or the policy
// document. Re-ingesting a document replaces all of its chunks.
type Document struct {
	ID       string
	Kind     Kind
	RawText  string
	Metadata Metadata
}

// PolicyDocumentID is the document id of a policy file, derived from its path
// relative to the policy directory so that local and fetched copies of the
// same file replace each other.
func PolicyDocumentID(filePath string) string {
	p := path.Clean(strings.ReplaceAll(filePath, "\\", "/"))
	return "policy/" + strings.TrimPrefix(p, "/")
}

// Chunk is an indexed, retrievable unit derived from a Document.
type Chunk struct {
	ID             string
	DocumentID     string
	SourceEntityID string
	// Text is the chunk as produced by the chunker.
	Text string
	// IndexText is Text after enrichment; it is what gets embedded.
	IndexText     string
	SequenceIndex int
	Metadata      Metadata
}
