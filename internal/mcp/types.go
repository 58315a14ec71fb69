// Package mcp exposes catalog search, policy lookup and build recommendations
// to assistants over the Model Context Protocol.
package mcp

// SearchCatalogInput defines the input parameters for the search_catalog tool.
type SearchCatalogInput struct {
	// Query is the customer's request in natural language.
	Query string `json:"query" jsonschema:"what the customer is looking for, e.g. gaming laptop under 1500"`
	// Category restricts results to one catalog category.
	Category string  `json:"category,omitempty" jsonschema:"catalog category such as CPU, GPU, Laptop or Monitor"`
	MinPrice float64 `json:"min_price,omitempty" jsonschema:"minimum price in USD"`
	MaxPrice float64 `json:"max_price,omitempty" jsonschema:"maximum price in USD"`
	// MaxResults is the maximum number of products to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"maximum number of products to return (1-20, default 5)"`
	// SessionID identifies the conversation whose advised products are remembered.
	SessionID string `json:"session_id,omitempty" jsonschema:"conversation id used to remember advised products"`
}

// SearchCatalogOutput contains the matching products.
type SearchCatalogOutput struct {
	Results []ProductResult `json:"results"`
	// Message provides informational context (e.g., "No matching products found").
	Message string `json:"message,omitempty"`
}

// ProductResult is one product match.
type ProductResult struct {
	ProductID   string  `json:"product_id"`
	DisplayName string  `json:"display_name"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand,omitempty"`
	Model       string  `json:"model,omitempty"`
	Category    string  `json:"category"`
	PriceUSD    float64 `json:"price_usd"`
	PriceVND    string  `json:"price_vnd"`
	Stock       int     `json:"stock"`
	// Score is the reranker relevance when Reranked is set, otherwise the
	// vector similarity.
	Score    float64 `json:"score"`
	Reranked bool    `json:"reranked"`
	// Snippet is the matching chunk of the product description.
	Snippet string `json:"snippet"`
}

// SearchPolicyInput defines the input parameters for the search_policy tool.
type SearchPolicyInput struct {
	Query      string `json:"query" jsonschema:"question about store policy, e.g. how long is the laptop warranty"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of sections to return (1-20, default 3)"`
}

// SearchPolicyOutput contains the matching policy sections.
type SearchPolicyOutput struct {
	Results []PolicyResult `json:"results"`
	Message string         `json:"message,omitempty"`
}

// PolicyResult is one policy section match. Text is the matching chunk only;
// use policy_section for the whole section.
type PolicyResult struct {
	SectionID string  `json:"section_id"`
	Title     string  `json:"title"`
	Path      string  `json:"path"`
	Score     float64 `json:"score"`
	Reranked  bool    `json:"reranked"`
	Text      string  `json:"text"`
}

// PolicySectionInput defines the input parameters for the policy_section tool.
type PolicySectionInput struct {
	SectionID string `json:"section_id" jsonschema:"section id returned by search_policy"`
}

// PolicySectionOutput contains a whole policy section.
type PolicySectionOutput struct {
	SectionID string `json:"section_id"`
	Title     string `json:"title"`
	Path      string `json:"path"`
	Content   string `json:"content"`
	// Found indicates whether the section exists.
	Found bool `json:"found"`
}

// RecommendBuildInput defines the input parameters for the recommend_build tool.
type RecommendBuildInput struct {
	// Purpose describes the intended use, e.g. "gaming at 1440p".
	Purpose   string  `json:"purpose" jsonschema:"what the PC will be used for"`
	BudgetUSD float64 `json:"budget_usd,omitempty" jsonschema:"total budget in USD; no component may exceed it"`
	// Categories overrides the default component list.
	Categories  []string `json:"categories,omitempty" jsonschema:"component categories to include (default CPU, Motherboard, RAM, GPU, Storage, PSU)"`
	PerCategory int      `json:"per_category,omitempty" jsonschema:"options to return per component (1-5, default 2)"`
	SessionID   string   `json:"session_id,omitempty" jsonschema:"conversation id used to remember advised products"`
}

// RecommendBuildOutput contains options for each component.
type RecommendBuildOutput struct {
	Components []BuildComponent `json:"components"`
	// EstimatedTotalUSD sums the top option of every component.
	EstimatedTotalUSD float64 `json:"estimated_total_usd"`
	EstimatedTotalVND string  `json:"estimated_total_vnd"`
	WithinBudget      bool    `json:"within_budget"`
	Message           string  `json:"message,omitempty"`
}

// BuildComponent lists the options found for one category.
type BuildComponent struct {
	Category string          `json:"category"`
	Options  []ProductResult `json:"options"`
}

// RecentlyAdvisedInput defines the input parameters for the recently_advised tool.
type RecentlyAdvisedInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"conversation id; defaults to the current session"`
}

// RecentlyAdvisedOutput lists the products last recommended in a session.
type RecentlyAdvisedOutput struct {
	Products  []AdvisedProduct `json:"products"`
	Count     int              `json:"count"`
	IsPCBuild bool             `json:"is_pc_build"`
}

// AdvisedProduct is a product remembered from an earlier answer.
type AdvisedProduct struct {
	ProductID   string  `json:"product_id"`
	DisplayName string  `json:"display_name"`
	Category    string  `json:"category"`
	PriceUSD    float64 `json:"price_usd"`
}

// IndexHealthInput takes no parameters.
type IndexHealthInput struct{}

// IndexHealthOutput reports index connectivity and size.
type IndexHealthOutput struct {
	Status      string `json:"status"`
	Qdrant      string `json:"qdrant"`
	PointsCount uint64 `json:"points_count"`
	Timestamp   string `json:"timestamp"`
	Error       string `json:"error,omitempty"`
}
