// ABOUTME: Main entry point for the docchat MCP server with stdio transport
// ABOUTME: Loads config, opens the stores and serves every docchat tool until stdin closes
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harper/docchat/internal/app"
	"github.com/harper/docchat/internal/config"
	"github.com/harper/docchat/internal/logging"
	"github.com/harper/docchat/internal/mcp"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if it exists (for API keys)
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = a.Close() }()

	if cfg.NeedsOpenAIKey() && cfg.OpenAIKey == "" {
		logger.Warn("OPENAI_API_KEY not set; ingest and chat tools will fail until it is")
	}

	server := mcpserver.NewMCPServer("docchat", version, mcpserver.WithToolCapabilities(false))
	mcp.RegisterTools(server, a, logger)

	logger.Info("MCP server starting on stdio")
	if err := mcpserver.NewStdioServer(server).Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
