package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"github.com/bull/techplus-rag/internal/enrich"
	"github.com/bull/techplus-rag/internal/resilience"
)

// Expander rewrites customer queries, usually Vietnamese, into English
// catalog vocabulary before the vector search.
type Expander struct {
	chat
	terms enrich.Terms
}

// NewExpander creates a query expander with the given OpenAI client. The
// prompt lists the categories and brands of terms.
func NewExpander(client *openai.Client, cfg Config, terms enrich.Terms, exec *resilience.Executor, logger *slog.Logger) *Expander {
	return &Expander{chat: newChat(client, cfg, exec, logger), terms: terms}
}

// Expand returns the expanded query. An empty reply is an error so that the
// caller falls back to the original query.
func (e *Expander) Expand(ctx context.Context, query string) (string, error) {
	out, err := e.complete(ctx, "openai.expand", openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(expansionPrompt(query, e.terms)),
		},
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(200),
	})
	if err != nil {
		return "", err
	}

	out = strings.Trim(strings.TrimSpace(out), `"`)
	if out == "" {
		return "", fmt.Errorf("expansion returned empty text")
	}
	return out, nil
}

func expansionPrompt(query string, terms enrich.Terms) string {
	var categories, brands strings.Builder
	for _, g := range terms.CategoryAliases {
		fmt.Fprintf(&categories, "- %s: %s\n", g.Term, strings.Join(g.Synonyms, ", "))
	}
	for _, g := range terms.Brands {
		fmt.Fprintf(&brands, "- %s: %s\n", g.Term, strings.Join(g.Synonyms, ", "))
	}

	return fmt.Sprintf(`You are a bilingual Vietnamese-English computer hardware expert.
A customer typed a search query, possibly in Vietnamese. Rewrite it by adding the
matching English technical terms so it finds products in an English catalog.

Query: %q

PRODUCT CATEGORIES:
%s
COMMON BRANDS:
%s
Rules:
1. Identify the product category the customer is looking for and add its English name
2. Translate any technical specifications into English terms
3. Convert prices to USD (1 million VND = 40 USD)
4. "chip" refers to a CPU or processor
5. Return only the rewritten query text, without any explanation

Example: for "cần card đồ họa chơi game tốt dưới 5 triệu" return
"Graphics Card gaming performance budget affordable below 200 USD"`, query, categories.String(), brands.String())
}
