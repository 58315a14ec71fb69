package domain

import "strings"

// Filter narrows a vector query. Zero-valued fields do not constrain.
type Filter struct {
	Kind     Kind
	Category string
	MinPrice float64
	MaxPrice float64
	// Fields are exact keyword matches on arbitrary metadata keys.
	Fields map[string]string
}

// Match is one hit returned by a VectorIndex query. Score is a similarity:
// higher means closer to the query.
type Match struct {
	ID       string
	Text     string
	Metadata Metadata
	Score    float64
}

// Matches reports whether md satisfies f. Index adapters that cannot push
// a filter down use this to post-filter.
func (f Filter) Matches(md Metadata) bool {
	if f.Kind != "" && md.String(MetaKind) != string(f.Kind) {
		return false
	}
	if f.Category != "" && CategoryKey(md.String(MetaCategory)) != CategoryKey(f.Category) {
		return false
	}
	if f.MinPrice > 0 || f.MaxPrice > 0 {
		price, ok := md.Float(MetaPrice)
		if !ok {
			return false
		}
		if f.MinPrice > 0 && price < f.MinPrice {
			return false
		}
		if f.MaxPrice > 0 && price > f.MaxPrice {
			return false
		}
	}
	for k, v := range f.Fields {
		if md.String(k) != v {
			return false
		}
	}
	return true
}

// CategoryKey is the normalized form categories are compared by, so "GPU"
// and " gpu" select the same products in every index.
func CategoryKey(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// Candidate is one retrieval hit before dedup and reranking.
type Candidate struct {
	ChunkID        string
	SourceEntityID string
	Text           string
	RawScore       float64
	Metadata       Metadata
}

// CandidateFromMatch resolves the source entity of m. The entity key is
// source_entity_id, then product_id, then title, then the chunk id.
func CandidateFromMatch(m Match) Candidate {
	entity := m.Metadata.String(MetaSourceEntityID)
	if entity == "" {
		entity = m.Metadata.String(MetaProductID)
	}
	if entity == "" {
		entity = m.Metadata.String(MetaTitle)
	}
	if entity == "" {
		entity = m.ID
	}
	return Candidate{
		ChunkID:        m.ID,
		SourceEntityID: entity,
		Text:           m.Text,
		RawScore:       m.Score,
		Metadata:       m.Metadata,
	}
}

// ScoredCandidate is the view of a candidate handed to a relevance scorer.
type ScoredCandidate struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// RankedResult is a candidate after reranking. RankScore is the scorer's
// relevance when Reranked is true and the retrieval similarity otherwise.
type RankedResult struct {
	SourceEntityID string
	ChunkID        string
	Text           string
	Metadata       Metadata
	RankScore      float64
	Reranked       bool
	Hit            Hit
}

// NewRankedResult wraps c without a scorer opinion.
func NewRankedResult(c Candidate) RankedResult {
	return RankedResult{
		SourceEntityID: c.SourceEntityID,
		ChunkID:        c.ChunkID,
		Text:           c.Text,
		Metadata:       c.Metadata,
		RankScore:      c.RawScore,
		Hit:            HitFromMetadata(c.SourceEntityID, c.Metadata),
	}
}

// Hit is the corpus-specific view of a result: either a CatalogHit or a
// PolicyHit. Switch on the concrete type.
type Hit interface {
	Kind() Kind
	isHit()
}

// CatalogHit describes a product result.
type CatalogHit struct {
	ProductID string
	Name      string
	Brand     string
	Model     string
	Category  string
	Price     float64
	Stock     int
}

func (CatalogHit) Kind() Kind { return KindCatalogItem }
func (CatalogHit) isHit()     {}

// DisplayName is "brand model" when both are known, falling back to whichever
// part exists and then to the catalog name.
func (h CatalogHit) DisplayName() string {
	switch {
	case h.Brand != "" && h.Model != "":
		return h.Brand + " " + h.Model
	case h.Model != "":
		return h.Model
	case h.Brand != "":
		return h.Brand
	case h.Name != "":
		return h.Name
	default:
		return "Unknown Product"
	}
}

// PolicyHit describes a policy section result.
type PolicyHit struct {
	SectionID string
	Title     string
	Path      string
	Level     int
}

func (PolicyHit) Kind() Kind { return KindPolicy }
func (PolicyHit) isHit()     {}

// HitFromMetadata builds the typed view of a result from its metadata.
// Results with no recognisable kind are treated as policy hits when they
// carry a path and as catalog hits otherwise.
func HitFromMetadata(entityID string, md Metadata) Hit {
	kind := Kind(md.String(MetaKind))
	if kind == "" {
		if md.String(MetaPath) != "" {
			kind = KindPolicy
		} else {
			kind = KindCatalogItem
		}
	}

	if kind == KindPolicy {
		level, _ := md.Int(MetaLevel)
		return PolicyHit{
			SectionID: entityID,
			Title:     md.String(MetaTitle),
			Path:      md.String(MetaPath),
			Level:     level,
		}
	}

	price, _ := md.Float(MetaPrice)
	stock, _ := md.Int(MetaStock)
	productID := md.String(MetaProductID)
	if productID == "" {
		productID = entityID
	}
	return CatalogHit{
		ProductID: productID,
		Name:      md.String(MetaName),
		Brand:     md.String(MetaBrand),
		Model:     md.String(MetaModel),
		Category:  md.String(MetaCategory),
		Price:     price,
		Stock:     stock,
	}
}
