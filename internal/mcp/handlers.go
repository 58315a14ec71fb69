package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/techplus-rag/internal/catalog"
	"github.com/bull/techplus-rag/internal/domain"
	"github.com/bull/techplus-rag/internal/retrieval"
	"github.com/bull/techplus-rag/internal/session"
)

const (
	defaultCatalogResults = 5
	defaultPolicyResults  = 3
	defaultPerCategory    = 2
	maxResultsLimit       = 20
	maxPerCategory        = 5
)

// clamp applies the default for unset or negative counts and caps the rest.
func clamp(n, def, limit int) int {
	if n <= 0 {
		return def
	}
	return min(n, limit)
}

// sessionID prefers the caller's explicit id, then the transport session.
func sessionID(req *mcp.CallToolRequest, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if req != nil && req.Session != nil {
		return req.Session.ID()
	}
	return ""
}

func toProductResult(r domain.RankedResult) (ProductResult, bool) {
	hit, ok := r.Hit.(domain.CatalogHit)
	if !ok {
		return ProductResult{}, false
	}
	return ProductResult{
		ProductID:   hit.ProductID,
		DisplayName: hit.DisplayName(),
		Name:        hit.Name,
		Brand:       hit.Brand,
		Model:       hit.Model,
		Category:    hit.Category,
		PriceUSD:    hit.Price,
		PriceVND:    catalog.FormatVND(catalog.USDToVND(hit.Price)),
		Stock:       hit.Stock,
		Score:       r.RankScore,
		Reranked:    r.Reranked,
		Snippet:     r.Text,
	}, true
}

// makeSearchCatalogHandler creates the search_catalog tool handler.
// The returned products become the session's recently advised list.
func makeSearchCatalogHandler(searcher Searcher, sessions *session.Store) func(
	context.Context, *mcp.CallToolRequest, SearchCatalogInput,
) (*mcp.CallToolResult, SearchCatalogOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchCatalogInput) (
		*mcp.CallToolResult, SearchCatalogOutput, error,
	) {
		query := strings.TrimSpace(input.Query)
		if query == "" {
			return nil, SearchCatalogOutput{}, errors.New("query is required")
		}
		if input.MaxPrice > 0 && input.MinPrice > input.MaxPrice {
			return nil, SearchCatalogOutput{}, fmt.Errorf("min_price %.2f exceeds max_price %.2f", input.MinPrice, input.MaxPrice)
		}

		filter := domain.Filter{
			Kind:     domain.KindCatalogItem,
			Category: input.Category,
			MinPrice: input.MinPrice,
			MaxPrice: input.MaxPrice,
		}
		ranked := searcher.Search(ctx, query, filter, clamp(input.MaxResults, defaultCatalogResults, maxResultsLimit))

		results := make([]ProductResult, 0, len(ranked))
		for _, r := range ranked {
			if p, ok := toProductResult(r); ok {
				results = append(results, p)
			}
		}
		sessions.Get(sessionID(req, input.SessionID)).Remember(ranked)

		if len(results) == 0 {
			return nil, SearchCatalogOutput{
				Results: []ProductResult{},
				Message: "No matching products found. Try a broader query or fewer filters.",
			}, nil
		}
		return nil, SearchCatalogOutput{Results: results}, nil
	}
}

// makeSearchPolicyHandler creates the search_policy tool handler.
func makeSearchPolicyHandler(searcher Searcher) func(
	context.Context, *mcp.CallToolRequest, SearchPolicyInput,
) (*mcp.CallToolResult, SearchPolicyOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchPolicyInput) (
		*mcp.CallToolResult, SearchPolicyOutput, error,
	) {
		query := strings.TrimSpace(input.Query)
		if query == "" {
			return nil, SearchPolicyOutput{}, errors.New("query is required")
		}

		ranked := searcher.Search(ctx, query, domain.Filter{Kind: domain.KindPolicy},
			clamp(input.MaxResults, defaultPolicyResults, maxResultsLimit))

		results := make([]PolicyResult, 0, len(ranked))
		for _, r := range ranked {
			hit, ok := r.Hit.(domain.PolicyHit)
			if !ok {
				continue
			}
			results = append(results, PolicyResult{
				SectionID: hit.SectionID,
				Title:     hit.Title,
				Path:      hit.Path,
				Score:     r.RankScore,
				Reranked:  r.Reranked,
				Text:      r.Text,
			})
		}

		if len(results) == 0 {
			return nil, SearchPolicyOutput{
				Results: []PolicyResult{},
				Message: "No matching policy sections found.",
			}, nil
		}
		return nil, SearchPolicyOutput{Results: results}, nil
	}
}

// makePolicySectionHandler creates the policy_section tool handler.
// Unknown sections are reported with Found=false rather than as an error.
func makePolicySectionHandler(searcher Searcher) func(
	context.Context, *mcp.CallToolRequest, PolicySectionInput,
) (*mcp.CallToolResult, PolicySectionOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input PolicySectionInput) (
		*mcp.CallToolResult, PolicySectionOutput, error,
	) {
		if input.SectionID == "" {
			return nil, PolicySectionOutput{}, errors.New("section_id is required")
		}

		hit, text, err := searcher.SectionText(ctx, input.SectionID)
		if err != nil {
			if domain.IsKind(err, domain.ErrNotFound) {
				return nil, PolicySectionOutput{SectionID: input.SectionID, Found: false}, nil
			}
			return nil, PolicySectionOutput{}, fmt.Errorf("failed to read section: %w", err)
		}

		content := text
		if hit.Path != "" {
			content = fmt.Sprintf("<!-- Section: %s -->\n\n%s", hit.Path, text)
		}
		return nil, PolicySectionOutput{
			SectionID: input.SectionID,
			Title:     hit.Title,
			Path:      hit.Path,
			Content:   content,
			Found:     true,
		}, nil
	}
}

// makeRecommendBuildHandler creates the recommend_build tool handler.
// Flow:
// 1. One catalog search per component category, run concurrently
// 2. Keep the top options of each category
// 3. Estimate the build total from each category's first option
// 4. Remember every option as the session's advised products
func makeRecommendBuildHandler(searcher Searcher, sessions *session.Store) func(
	context.Context, *mcp.CallToolRequest, RecommendBuildInput,
) (*mcp.CallToolResult, RecommendBuildOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RecommendBuildInput) (
		*mcp.CallToolResult, RecommendBuildOutput, error,
	) {
		if input.BudgetUSD < 0 {
			return nil, RecommendBuildOutput{}, fmt.Errorf("budget_usd must not be negative, got %.2f", input.BudgetUSD)
		}

		categories := input.Categories
		if len(categories) == 0 {
			categories = session.PCComponents
		}
		perCategory := clamp(input.PerCategory, defaultPerCategory, maxPerCategory)
		purpose := strings.TrimSpace(input.Purpose)

		reqs := make([]retrieval.Request, len(categories))
		for i, cat := range categories {
			reqs[i] = retrieval.Request{
				Query: strings.TrimSpace(cat + " " + purpose),
				Filter: domain.Filter{
					Kind:     domain.KindCatalogItem,
					Category: cat,
					MaxPrice: input.BudgetUSD,
				},
				N: perCategory,
			}
		}

		var (
			out     RecommendBuildOutput
			advised []domain.RankedResult
			missing []string
		)
		for i, ranked := range searcher.SearchMany(ctx, reqs) {
			comp := BuildComponent{Category: categories[i], Options: []ProductResult{}}
			for _, r := range ranked {
				if p, ok := toProductResult(r); ok {
					comp.Options = append(comp.Options, p)
					advised = append(advised, r)
				}
			}
			if len(comp.Options) == 0 {
				missing = append(missing, categories[i])
			} else {
				out.EstimatedTotalUSD += comp.Options[0].PriceUSD
			}
			out.Components = append(out.Components, comp)
		}

		out.EstimatedTotalVND = catalog.FormatVND(catalog.USDToVND(out.EstimatedTotalUSD))
		out.WithinBudget = input.BudgetUSD == 0 || out.EstimatedTotalUSD <= input.BudgetUSD
		if len(missing) > 0 {
			out.Message = "No options found for: " + strings.Join(missing, ", ")
		}

		sessions.Get(sessionID(req, input.SessionID)).Remember(advised)
		return nil, out, nil
	}
}

// makeRecentlyAdvisedHandler creates the recently_advised tool handler.
func makeRecentlyAdvisedHandler(sessions *session.Store) func(
	context.Context, *mcp.CallToolRequest, RecentlyAdvisedInput,
) (*mcp.CallToolResult, RecentlyAdvisedOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RecentlyAdvisedInput) (
		*mcp.CallToolResult, RecentlyAdvisedOutput, error,
	) {
		sc := sessions.Get(sessionID(req, input.SessionID))

		hits := sc.RecentlyAdvised()
		products := make([]AdvisedProduct, len(hits))
		for i, h := range hits {
			products[i] = AdvisedProduct{
				ProductID:   h.ProductID,
				DisplayName: h.DisplayName(),
				Category:    h.Category,
				PriceUSD:    h.Price,
			}
		}

		return nil, RecentlyAdvisedOutput{
			Products:  products,
			Count:     len(products),
			IsPCBuild: sc.IsPCBuild(),
		}, nil
	}
}

// makeIndexHealthHandler creates the index_health tool handler.
// An unreachable index is reported in the output, not as a tool error.
func makeIndexHealthHandler(index IndexStatus) func(
	context.Context, *mcp.CallToolRequest, IndexHealthInput,
) (*mcp.CallToolResult, IndexHealthOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexHealthInput) (
		*mcp.CallToolResult, IndexHealthOutput, error,
	) {
		return nil, checkIndex(ctx, index), nil
	}
}
