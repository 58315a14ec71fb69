// Package main provides the MCP server entry point for the TechPlus store assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/techplus-rag/internal/bootstrap"
	"github.com/bull/techplus-rag/internal/config"
	"github.com/bull/techplus-rag/internal/logging"
	mcpserver "github.com/bull/techplus-rag/internal/mcp"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "techplus.yaml", "path to the YAML config file")
	flag.Parse()

	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	// Logs go to stderr so they never mix with the stdio transport.
	logger := logging.NewJSONLogger(bootstrap.ServiceName, cfg.LogLevel)

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	server := mcpserver.NewServer(&mcpserver.Config{
		Searcher: app.Coordinator,
		Sessions: app.Sessions,
		Index:    app.Index,
	})

	if cfg.Server.Mode == "http" {
		// HTTP mode: serve MCP over HTTP for remote clients
		mux := mcpserver.NewMux(server, app.Index, app.Metrics.Handler())
		logger.Info("Starting HTTP server", "addr", cfg.Server.Addr)
		return serve(ctx, &http.Server{Addr: cfg.Server.Addr, Handler: mux}, logger)
	}

	// Stdio mode: run MCP server over stdin/stdout for local clients,
	// with metrics and health on a side port when configured.
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.Metrics.Handler())
		mux.HandleFunc("/health", mcpserver.NewHealthHandler(app.Index))
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Server.MetricsAddr)
			if err := serve(ctx, &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}, logger); err != nil {
				logger.Warn("Metrics server error", "error", err)
			}
		}()
	}

	logger.Info("Starting TechPlus MCP server (stdio mode)")
	return server.Run(ctx)
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server", "addr", srv.Addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
