// ABOUTME: MCP tool definitions and registration for the docchat server
// ABOUTME: Every tool is scoped by a session_id argument
package mcp

import (
	"github.com/charmbracelet/log"
	"github.com/harper/docchat/internal/core"
	"github.com/harper/docchat/internal/logging"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Services is what the tools need from the application
type Services interface {
	Sessions() *core.Sessions
	Ingestor() (*core.Ingestor, error)
	Orchestrator() (*core.Orchestrator, error)
}

var sessionProperty = map[string]interface{}{
	"type":        "string",
	"description": "Conversation session id; documents and history are never shared across sessions",
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, services Services, logger *log.Logger) *Handlers {
	handlers := &Handlers{
		services: services,
		logger:   logging.Component(logger, "mcp"),
	}

	// 1. ingest_document - index a file or raw text into a session
	server.AddTool(mcp.Tool{
		Name:        "ingest_document",
		Description: "Index a document into a session so chat can answer from it. Pass either a path to a PDF, Markdown or text file, or the text itself. Re-ingesting the same document_ref replaces it.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty,
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path to a .pdf, .md or .txt file readable by the server",
				},
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Raw document text, used when path is not given",
				},
				"document_ref": map[string]interface{}{
					"type":        "string",
					"description": "Stable reference for the document (default: the path, or a generated id)",
				},
				"document_name": map[string]interface{}{
					"type":        "string",
					"description": "Human-readable document name",
				},
			},
			Required: []string{"session_id"},
		},
	}, handlers.IngestDocument)

	// 2. chat - answer a question from the session's documents and history
	server.AddTool(mcp.Tool{
		Name:        "chat",
		Description: "Ask a question in a session. Follow-up questions are rewritten against the session history before retrieval, and the exchange is recorded.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty,
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The user's question",
				},
			},
			Required: []string{"session_id", "query"},
		},
	}, handlers.Chat)

	// 3. get_history - read a session's conversation
	server.AddTool(mcp.Tool{
		Name:        "get_history",
		Description: "Get a session's conversation history, oldest first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty,
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Only the most recent N entries (default: all)",
					"default":     0,
				},
			},
			Required: []string{"session_id"},
		},
	}, handlers.GetHistory)

	// 4. list_documents - documents indexed in a session
	server.AddTool(mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents indexed in a session with their chunk counts.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty,
			},
			Required: []string{"session_id"},
		},
	}, handlers.ListDocuments)

	// 5. delete_document - drop one document from a session
	server.AddTool(mcp.Tool{
		Name:        "delete_document",
		Description: "Remove a document and all of its chunks from a session.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty,
				"document_ref": map[string]interface{}{
					"type":        "string",
					"description": "Reference of the document to delete",
				},
			},
			Required: []string{"session_id", "document_ref"},
		},
	}, handlers.DeleteDocument)

	// 6. reset_session - clear history and optionally documents
	server.AddTool(mcp.Tool{
		Name:        "reset_session",
		Description: "Clear a session's conversation history. Set drop_documents to also remove its indexed documents.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty,
				"drop_documents": map[string]interface{}{
					"type":        "boolean",
					"description": "Also delete the session's documents (default: false)",
					"default":     false,
				},
			},
			Required: []string{"session_id"},
		},
	}, handlers.ResetSession)

	// 7. list_sessions - sessions that have history
	server.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List sessions that have conversation history, most recently active first.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ListSessions)

	return handlers
}
