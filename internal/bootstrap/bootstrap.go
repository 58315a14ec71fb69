// Package bootstrap wires configuration into the ingestion pipeline and the
// search coordinator shared by the CLI and the MCP server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"

	"github.com/bull/techplus-rag/internal/chunking"
	"github.com/bull/techplus-rag/internal/config"
	"github.com/bull/techplus-rag/internal/domain"
	"github.com/bull/techplus-rag/internal/embedding"
	"github.com/bull/techplus-rag/internal/enrich"
	"github.com/bull/techplus-rag/internal/github"
	"github.com/bull/techplus-rag/internal/indexer"
	"github.com/bull/techplus-rag/internal/llm"
	"github.com/bull/techplus-rag/internal/markdown"
	"github.com/bull/techplus-rag/internal/metrics"
	"github.com/bull/techplus-rag/internal/resilience"
	"github.com/bull/techplus-rag/internal/retrieval"
	"github.com/bull/techplus-rag/internal/session"
	"github.com/bull/techplus-rag/internal/storage"
)

// ServiceName labels logs and metrics.
const ServiceName = "techplus-rag"

// Index is what the application needs from a vector index. Both
// storage.QdrantIndex and storage.MemoryIndex implement it.
type Index interface {
	Upsert(ctx context.Context, chunks []domain.Chunk) error
	DeleteDocument(ctx context.Context, documentID string, keep ...string) error
	Query(ctx context.Context, text string, topK int, filter domain.Filter) ([]domain.Match, error)
	ScrollEntity(ctx context.Context, entityID string) ([]domain.Match, error)
	Stats(ctx context.Context) (*storage.CollectionInfo, error)
	Health(ctx context.Context) error
	Close() error
}

// App holds the assembled components.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Index       Index
	Metrics     *metrics.SearchMetrics
	Pipeline    *indexer.Pipeline
	Coordinator *retrieval.Coordinator
	Sessions    *session.Store
	Parser      *markdown.Parser

	closeFn func()
}

// New connects to qdrant and OpenAI as configured and assembles the App.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		ec     *embedding.Client
		client *openai.Client
	)
	if cfg.NeedsOpenAI() {
		var err error
		ec, err = embedding.NewClient(embedding.ClientConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		client = ec.Client()
	}

	embedder, err := NewEmbedder(cfg.Embedding, ec)
	if err != nil {
		return nil, err
	}

	index, err := storage.NewQdrantIndex(storage.QdrantConfig{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
		Collection: cfg.Qdrant.Collection,
	}, embedder, resilience.NewExecutor(searchExecutorConfig(cfg.Breaker), logger), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant: %w", err)
	}
	if err := index.EnsureCollection(ctx); err != nil {
		index.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	return Assemble(cfg, index, client, logger)
}

// Assemble builds the App over an already connected index. client may be nil
// when the configuration does not use OpenAI chat models.
func Assemble(cfg config.Config, index Index, client *openai.Client, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	needsChat := cfg.Retrieval.RerankEnabled || cfg.Retrieval.Expansion == "llm"
	if client == nil && needsChat {
		return nil, errors.New("reranking and llm query expansion need an OpenAI client")
	}

	terms := enrich.DefaultTerms()
	m := metrics.NewSearchMetrics(ServiceName)
	parser := markdown.NewParser()

	pipeline := indexer.NewPipeline(
		parser,
		chunking.New(cfg.Policy.MaxSize, cfg.Policy.Overlap, chunking.WithUnit(chunking.Paragraphs)),
		chunking.New(cfg.Catalog.MaxSize, cfg.Catalog.Overlap),
		enrich.NewEnricher(terms),
		index,
		logger,
	)
	pipeline.SetRecorder(m)

	chatExec := resilience.NewExecutor(searchExecutorConfig(cfg.Breaker), logger)
	chatCfg := llm.Config{Model: cfg.OpenAI.ChatModel}

	opts := []retrieval.Option{
		retrieval.WithLogger(logger),
		retrieval.WithRecorder(m),
		retrieval.WithOverFetch(cfg.Retrieval.OverFetch),
		retrieval.WithQueryTimeout(cfg.Retrieval.QueryTimeout),
		retrieval.WithExpandTimeout(cfg.Retrieval.ExpandTimeout),
		retrieval.WithParallelism(cfg.Retrieval.Parallelism),
	}
	if cfg.Retrieval.RerankEnabled {
		scorer := llm.NewScorer(client, chatCfg, chatExec, logger)
		opts = append(opts, retrieval.WithReranker(retrieval.NewReranker(scorer, logger,
			retrieval.WithRerankTimeout(cfg.Retrieval.RerankTimeout),
			retrieval.WithMaxCandidates(cfg.Retrieval.RerankCandidates),
		)))
	}
	switch cfg.Retrieval.Expansion {
	case "llm":
		opts = append(opts, retrieval.WithExpander(llm.NewExpander(client, chatCfg, terms, chatExec, logger)))
	case "static":
		opts = append(opts, retrieval.WithExpander(enrich.NewStaticExpander(terms)))
	}

	return &App{
		Config:      cfg,
		Logger:      logger,
		Index:       index,
		Metrics:     m,
		Pipeline:    pipeline,
		Coordinator: retrieval.NewCoordinator(index, opts...),
		Sessions:    session.NewStore(session.WithIdleTimeout(cfg.Server.SessionIdleTimeout)),
		Parser:      parser,
		closeFn: func() {
			_ = index.Close()
		},
	}, nil
}

// NewEmbedder returns the configured embedder. The hash provider needs no
// network and is meant for local runs and tests.
func NewEmbedder(cfg config.EmbeddingConfig, client *embedding.Client) (storage.Embedder, error) {
	switch cfg.Provider {
	case "hash":
		return embedding.NewHashEmbedder(cfg.Dimension), nil
	case "openai":
		if client == nil {
			return nil, errors.New("openai embeddings need an OpenAI client")
		}
		return embedding.NewEmbedder(client, embedding.Config{
			Model:             cfg.Model,
			Dimension:         cfg.Dimension,
			BatchSize:         cfg.BatchSize,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// PolicySource returns a fetcher for the configured GitHub policy directory.
func (a *App) PolicySource(ctx context.Context) (*github.Fetcher, error) {
	gh := a.Config.GitHub
	if gh.Owner == "" || gh.Repo == "" {
		return nil, errors.New("github.owner and github.repo must be set")
	}
	client, err := github.NewClient(ctx, gh.Token)
	if err != nil {
		return nil, fmt.Errorf("create github client: %w", err)
	}
	return github.NewFetcher(client, gh.Owner, gh.Repo, gh.Path, gh.Ref), nil
}

// Close releases the index connection.
func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// searchExecutorConfig applies the breaker settings to a single-attempt
// executor. Zero values fall back to the resilience defaults.
func searchExecutorConfig(b config.BreakerConfig) resilience.Config {
	cfg := resilience.SearchConfig()
	cfg.Breaker.Enabled = b.Enabled
	cfg.Breaker.MinRequests = b.MinRequests
	cfg.Breaker.FailureRatio = b.FailureRatio
	cfg.Breaker.OpenTimeout = b.OpenTimeout
	return cfg
}
