// Package llm holds the chat-model adapters of the search path: a relevance
// scorer used by the reranker and a bilingual query expander.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/openai/openai-go"

	"github.com/bull/techplus-rag/internal/resilience"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = openai.ChatModelGPT4o

// DefaultMaxTokens is the maximum prompt content length before truncation (in tokens).
const DefaultMaxTokens = 16000

// Config configures the chat adapters.
type Config struct {
	Model string
	// MaxTokens bounds the candidate payload embedded in prompts.
	MaxTokens int
}

type chat struct {
	client    *openai.Client
	model     string
	maxTokens int
	exec      *resilience.Executor
	logger    *slog.Logger
}

func newChat(client *openai.Client, cfg Config, exec *resilience.Executor, logger *slog.Logger) chat {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return chat{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		exec:      exec,
		logger:    logger,
	}
}

// complete sends a single user message and returns the first choice.
func (c chat) complete(ctx context.Context, operation string, params openai.ChatCompletionNewParams) (string, error) {
	params.Model = openai.ChatModel(c.model)

	var content string
	err := c.exec.Execute(ctx, operation, func(ctx context.Context) error {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return fmt.Errorf("chat completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("chat completion returned no choices")
		}
		content = resp.Choices[0].Message.Content
		return nil
	}, nil)
	if err != nil {
		return "", err
	}
	return content, nil
}

// truncateContent truncates content to fit within token limits.
// Uses rough estimate of 4 characters per token and never splits a rune.
func (c chat) truncateContent(content string) string {
	maxChars := c.maxTokens * 4

	if len(content) <= maxChars {
		return content
	}

	c.logger.Warn("Truncating prompt content",
		"from", len(content), "to", maxChars, "estimated_tokens", c.maxTokens)

	cut := maxChars
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
