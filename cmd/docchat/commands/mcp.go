// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Enables LLM agents to ingest documents and chat per session via stdio
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/docchat/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs docchat as an MCP (Model Context Protocol) server over stdio, so LLM
agents can ingest documents, chat, read history and reset sessions. Every
tool takes a session_id; sessions never see each other's documents.

Logs go to stderr; stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  docchat mcp

  # Configure in an MCP client's config file:
  # {
  #   "mcpServers": {
  #     "docchat": {
  #       "command": "docchat",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server and stops it when the command context is cancelled
func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if a.Config.NeedsOpenAIKey() && a.Config.OpenAIKey == "" {
		a.Logger.Warn("OPENAI_API_KEY not set; ingest and chat tools will fail until it is")
	}

	server := mcpserver.NewMCPServer("docchat", versionInfo.Version, mcpserver.WithToolCapabilities(false))
	mcp.RegisterTools(server, a, a.Logger)

	a.Logger.Info("MCP server starting on stdio", "history", a.Config.HistoryBackend, "vectors", a.Config.VectorBackend)

	stdio := mcpserver.NewStdioServer(server)
	if err := stdio.Listen(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout()); err != nil && cmd.Context().Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}

	a.Logger.Info("shutdown complete")
	return nil
}
