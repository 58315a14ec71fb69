// Package config loads the service configuration: built-in defaults, then an
// optional YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// QdrantConfig contains connection details for the Qdrant vector store.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
}

// OpenAIConfig configures the OpenAI-compatible API used for embeddings,
// reranking and query expansion.
type OpenAIConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	ChatModel string `yaml:"chat_model"`
}

// EmbeddingConfig selects the embedder. Provider is "openai" or "hash".
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"`
	Model             string  `yaml:"model"`
	Dimension         int     `yaml:"dimension"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ChunkingConfig holds the chunk limits for one corpus. MaxSize is in
// characters, Overlap in units (sentences or paragraphs).
type ChunkingConfig struct {
	MaxSize int `yaml:"max_size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig tunes the online search path.
type RetrievalConfig struct {
	OverFetch        int           `yaml:"over_fetch"`
	QueryTimeout     time.Duration `yaml:"query_timeout"`
	RerankTimeout    time.Duration `yaml:"rerank_timeout"`
	ExpandTimeout    time.Duration `yaml:"expand_timeout"`
	RerankEnabled    bool          `yaml:"rerank_enabled"`
	RerankCandidates int           `yaml:"rerank_candidates"`
	// Expansion is "llm", "static" or "none".
	Expansion   string `yaml:"expansion"`
	Parallelism int    `yaml:"parallelism"`
}

// BreakerConfig tunes the circuit breakers around external calls.
type BreakerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio"`
	OpenTimeout  time.Duration `yaml:"open_timeout"`
}

// GitHubConfig locates the policy markdown in a GitHub repository.
type GitHubConfig struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Path  string `yaml:"path"`
	Ref   string `yaml:"ref"`
	Token string `yaml:"token"`
}

// ServerConfig configures the MCP server process.
type ServerConfig struct {
	// Mode is "stdio" or "http".
	Mode string `yaml:"mode"`
	Addr string `yaml:"addr"`
	// MetricsAddr serves /metrics in stdio mode; empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`
	// SessionIdleTimeout evicts conversation state not used for this long.
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
}

// Config is the root configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Catalog   ChunkingConfig  `yaml:"catalog"`
	Policy    ChunkingConfig  `yaml:"policy"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	GitHub    GitHubConfig    `yaml:"github"`
	Server    ServerConfig    `yaml:"server"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "techplus_chunks",
		},
		OpenAI: OpenAIConfig{
			ChatModel: "gpt-4o",
		},
		Embedding: EmbeddingConfig{
			Provider:          "openai",
			Model:             "text-embedding-3-small",
			Dimension:         1536,
			BatchSize:         500,
			RequestsPerSecond: 5,
		},
		Catalog: ChunkingConfig{MaxSize: 1000, Overlap: 2},
		Policy:  ChunkingConfig{MaxSize: 512, Overlap: 1},
		Retrieval: RetrievalConfig{
			OverFetch:        3,
			QueryTimeout:     10 * time.Second,
			RerankTimeout:    15 * time.Second,
			ExpandTimeout:    5 * time.Second,
			RerankEnabled:    true,
			RerankCandidates: 30,
			Expansion:        "llm",
			Parallelism:      4,
		},
		Breaker: BreakerConfig{
			Enabled:      true,
			MinRequests:  10,
			FailureRatio: 0.5,
			OpenTimeout:  30 * time.Second,
		},
		GitHub: GitHubConfig{
			Path: "policies",
			Ref:  "main",
		},
		Server: ServerConfig{
			Mode:               "stdio",
			Addr:               "0.0.0.0:8080",
			SessionIdleTimeout: time.Hour,
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error; an empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.Qdrant.Host = getEnv("QDRANT_HOST", cfg.Qdrant.Host)
	cfg.Qdrant.Port = getEnvInt("QDRANT_PORT", cfg.Qdrant.Port)
	cfg.Qdrant.APIKey = getEnv("QDRANT_API_KEY", cfg.Qdrant.APIKey)
	cfg.Qdrant.UseTLS = getEnvBool("QDRANT_USE_TLS", cfg.Qdrant.UseTLS)
	cfg.Qdrant.Collection = getEnv("QDRANT_COLLECTION", cfg.Qdrant.Collection)

	cfg.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.ChatModel = getEnv("OPENAI_MODEL", cfg.OpenAI.ChatModel)

	cfg.Embedding.Provider = getEnv("EMBEDDING_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.Model = getEnv("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.Dimension = getEnvInt("EMBEDDING_DIMENSION", cfg.Embedding.Dimension)
	cfg.Embedding.BatchSize = getEnvInt("EMBEDDING_BATCH_SIZE", cfg.Embedding.BatchSize)
	cfg.Embedding.RequestsPerSecond = getEnvFloat("EMBEDDING_RPS", cfg.Embedding.RequestsPerSecond)

	cfg.Catalog.MaxSize = getEnvInt("CATALOG_CHUNK_SIZE", cfg.Catalog.MaxSize)
	cfg.Catalog.Overlap = getEnvInt("CATALOG_CHUNK_OVERLAP", cfg.Catalog.Overlap)
	cfg.Policy.MaxSize = getEnvInt("POLICY_CHUNK_SIZE", cfg.Policy.MaxSize)
	cfg.Policy.Overlap = getEnvInt("POLICY_CHUNK_OVERLAP", cfg.Policy.Overlap)

	cfg.Retrieval.OverFetch = getEnvInt("RETRIEVAL_OVER_FETCH", cfg.Retrieval.OverFetch)
	cfg.Retrieval.QueryTimeout = getEnvDuration("RETRIEVAL_QUERY_TIMEOUT", cfg.Retrieval.QueryTimeout)
	cfg.Retrieval.RerankTimeout = getEnvDuration("RETRIEVAL_RERANK_TIMEOUT", cfg.Retrieval.RerankTimeout)
	cfg.Retrieval.ExpandTimeout = getEnvDuration("RETRIEVAL_EXPAND_TIMEOUT", cfg.Retrieval.ExpandTimeout)
	cfg.Retrieval.RerankEnabled = getEnvBool("RETRIEVAL_RERANK", cfg.Retrieval.RerankEnabled)
	cfg.Retrieval.RerankCandidates = getEnvInt("RETRIEVAL_RERANK_CANDIDATES", cfg.Retrieval.RerankCandidates)
	cfg.Retrieval.Expansion = getEnv("RETRIEVAL_EXPANSION", cfg.Retrieval.Expansion)
	cfg.Retrieval.Parallelism = getEnvInt("RETRIEVAL_PARALLELISM", cfg.Retrieval.Parallelism)

	cfg.Breaker.Enabled = getEnvBool("BREAKER_ENABLED", cfg.Breaker.Enabled)

	cfg.GitHub.Owner = getEnv("GITHUB_OWNER", cfg.GitHub.Owner)
	cfg.GitHub.Repo = getEnv("GITHUB_REPO", cfg.GitHub.Repo)
	cfg.GitHub.Path = getEnv("GITHUB_PATH", cfg.GitHub.Path)
	cfg.GitHub.Ref = getEnv("GITHUB_REF", cfg.GitHub.Ref)
	cfg.GitHub.Token = getEnv("GITHUB_TOKEN", cfg.GitHub.Token)

	cfg.Server.Mode = getEnv("SERVER_MODE", cfg.Server.Mode)
	cfg.Server.Addr = getEnv("SERVER_ADDR", cfg.Server.Addr)
	cfg.Server.MetricsAddr = getEnv("METRICS_ADDR", cfg.Server.MetricsAddr)
	cfg.Server.SessionIdleTimeout = getEnvDuration("SESSION_IDLE_TIMEOUT", cfg.Server.SessionIdleTimeout)
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Qdrant.Port <= 0 {
		errs = append(errs, fmt.Errorf("qdrant.port must be positive, got %d", c.Qdrant.Port))
	}
	if c.Qdrant.Collection == "" {
		errs = append(errs, errors.New("qdrant.collection must be set"))
	}
	switch c.Embedding.Provider {
	case "openai", "hash":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider must be openai or hash, got %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension))
	}
	for name, ch := range map[string]ChunkingConfig{"catalog": c.Catalog, "policy": c.Policy} {
		if ch.MaxSize <= 0 {
			errs = append(errs, fmt.Errorf("%s.max_size must be positive, got %d", name, ch.MaxSize))
		}
		if ch.Overlap < 0 {
			errs = append(errs, fmt.Errorf("%s.overlap must not be negative, got %d", name, ch.Overlap))
		}
	}
	if c.Retrieval.OverFetch < 1 {
		errs = append(errs, fmt.Errorf("retrieval.over_fetch must be at least 1, got %d", c.Retrieval.OverFetch))
	}
	switch c.Retrieval.Expansion {
	case "llm", "static", "none":
	default:
		errs = append(errs, fmt.Errorf("retrieval.expansion must be llm, static or none, got %q", c.Retrieval.Expansion))
	}
	switch c.Server.Mode {
	case "stdio", "http":
	default:
		errs = append(errs, fmt.Errorf("server.mode must be stdio or http, got %q", c.Server.Mode))
	}

	return errors.Join(errs...)
}

// NeedsOpenAI reports whether any configured component calls the OpenAI API.
func (c Config) NeedsOpenAI() bool {
	return c.Embedding.Provider == "openai" || c.Retrieval.RerankEnabled || c.Retrieval.Expansion == "llm"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
