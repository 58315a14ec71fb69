package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"

	"github.com/bull/techplus-rag/internal/domain"
	"github.com/bull/techplus-rag/internal/resilience"
)

// Scorer asks a chat model to grade candidates against a query. The reply is
// returned verbatim; callers must extract the rankings defensively.
type Scorer struct {
	chat
}

// NewScorer creates a relevance scorer with the given OpenAI client.
func NewScorer(client *openai.Client, cfg Config, exec *resilience.Executor, logger *slog.Logger) *Scorer {
	return &Scorer{chat: newChat(client, cfg, exec, logger)}
}

// Score returns the model's raw reply for query and candidates.
func (s *Scorer) Score(ctx context.Context, query string, candidates []domain.ScoredCandidate) (string, error) {
	payload, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode candidates: %w", err)
	}

	prompt := rankingPrompt(query, s.truncateContent(string(payload)))

	return s.complete(ctx, "openai.rerank", openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.2),
		MaxTokens:   openai.Int(1000),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
}

func rankingPrompt(query, items string) string {
	return fmt.Sprintf(`You are a computer hardware expert. Analyze these product or policy descriptions and rerank them based on
how well they match the query: %q.

Consider:
1. Query intent and relevance to the content
2. Specific details mentioned in the query
3. Price or time considerations (if mentioned)
4. Brand or specificity preferences (if mentioned)

For each item, assign a score from 0-10 where 10 is perfect match.

Items to evaluate:
%s

Return a JSON object with a "rankings" array containing reranked IDs and scores:
{"rankings": [{"id": "item_id", "score": 10}]}`, query, items)
}
