// Package main provides ragctl, the CLI for ingesting the TechPlus catalog and
// policies and for trying searches against the index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/techplus-rag/internal/bootstrap"
	"github.com/bull/techplus-rag/internal/config"
	"github.com/bull/techplus-rag/internal/logging"
)

// appFactory builds the application from configuration. Tests replace it to
// run against an in-memory index.
type appFactory func(ctx context.Context, cfg config.Config, logger *slog.Logger) (*bootstrap.App, error)

// cli carries state shared by the subcommands.
type cli struct {
	configPath string
	newApp     appFactory
}

func newRootCmd(newApp appFactory) *cobra.Command {
	c := &cli{newApp: newApp}

	root := &cobra.Command{
		Use:   "ragctl",
		Short: "TechPlus catalog and policy indexing tool",
		Long: `CLI tool for managing the TechPlus product and policy index in Qdrant.

Configuration is read from --config (YAML) and overridden by environment
variables such as QDRANT_HOST, QDRANT_PORT, OPENAI_API_KEY, EMBEDDING_PROVIDER
and GITHUB_OWNER/GITHUB_REPO. A .env file in the working directory is loaded
first when present.`,
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.PersistentFlags().StringVar(&c.configPath, "config", "techplus.yaml", "path to the YAML config file")

	root.AddCommand(
		c.ingestPolicyCmd(),
		c.ingestCatalogCmd(),
		c.searchCmd(),
		c.outlineCmd(),
		c.resetCmd(),
	)
	return root
}

// app loads configuration and assembles the application.
func (c *cli) app(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.NewJSONLogger(bootstrap.ServiceName, cfg.LogLevel)
	return c.newApp(ctx, cfg, logger)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := newRootCmd(bootstrap.New).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
