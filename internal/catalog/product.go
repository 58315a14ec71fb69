// Package catalog models the store's product catalog and renders each
// product as a retrieval document.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bull/techplus-rag/internal/domain"
)

// Product is one catalog item as exported by the store's product database.
// Price is in USD.
type Product struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Brand    string         `json:"brand"`
	Model    string         `json:"model"`
	Category string         `json:"category"`
	Price    float64        `json:"price"`
	Stock    int            `json:"stock"`
	Specs    map[string]any `json:"specs"`
}

// LoadProducts decodes a JSON array of products and rejects entries without
// an ID or category.
func LoadProducts(r io.Reader) ([]Product, error) {
	var products []Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	for i, p := range products {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("%w: product %d has no id", domain.ErrInvalidInput, i)
		}
		if strings.TrimSpace(p.Category) == "" {
			return nil, fmt.Errorf("%w: product %s has no category", domain.ErrInvalidInput, p.ID)
		}
	}
	return products, nil
}

// DocumentID is the ingestion document id of a product.
func (p Product) DocumentID() string {
	return "product-" + p.ID
}

// Document renders p as a catalog_item document. Metadata carries the fields
// callers need back from search results.
func (p Product) Document() domain.Document {
	return domain.Document{
		ID:      p.DocumentID(),
		Kind:    domain.KindCatalogItem,
		RawText: p.render(),
		Metadata: domain.Metadata{
			domain.MetaProductID: p.ID,
			domain.MetaName:      p.Name,
			domain.MetaBrand:     p.Brand,
			domain.MetaModel:     p.Model,
			domain.MetaCategory:  p.Category,
			domain.MetaPrice:     p.Price,
			domain.MetaStock:     p.Stock,
		},
	}
}

func (p Product) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "PRODUCT: %s %s %s\n", p.Name, p.Brand, p.Model)
	fmt.Fprintf(&b, "CATEGORY: %s\n", p.Category)
	fmt.Fprintf(&b, "BRAND: %s\n", p.Brand)
	fmt.Fprintf(&b, "MODEL: %s\n", p.Model)
	fmt.Fprintf(&b, "PRICE: $%s USD (%s)\n", formatNumber(p.Price), FormatVND(USDToVND(p.Price)))

	if specs := p.specLines(); len(specs) > 0 {
		b.WriteString("SPECIFICATIONS:\n")
		for _, line := range specs {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	switch strings.ToUpper(p.Category) {
	case "CPU":
		fmt.Fprintf(&b, "PERFORMANCE: %s cores %s threads processor performance computing power\n",
			p.spec("cores"), p.spec("threads"))
	case "GPU":
		fmt.Fprintf(&b, "GRAPHICS PERFORMANCE: %sGB VRAM graphics performance gaming rendering\n", p.spec("memory"))
	case "STORAGE":
		fmt.Fprintf(&b, "STORAGE CAPACITY: %s data storage space\n", p.spec("capacity"))
	}

	if socket := p.spec("socket"); socket != "" {
		fmt.Fprintf(&b, "COMPATIBILITY: %s socket compatible\n", socket)
	}
	fmt.Fprintf(&b, "AVAILABILITY: %d in stock", p.Stock)
	return b.String()
}

// specLines renders specs as "- key: value" lines sorted by key.
func (p Product) specLines() []string {
	keys := make([]string, 0, len(p.Specs))
	for k := range p.Specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %s", k, p.spec(k)))
	}
	return lines
}

func (p Product) spec(key string) string {
	v, ok := p.Specs[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case float64:
		return formatNumber(val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}
