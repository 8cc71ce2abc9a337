// ABOUTME: MCP tool handler implementations for the docchat server
// ABOUTME: Tool failures are returned as error results; only protocol problems are Go errors
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/docchat/internal/core"
	"github.com/harper/docchat/internal/extract"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	services Services
	logger   *log.Logger
}

// IngestDocument handles the ingest_document tool
func (h *Handlers) IngestDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	path := request.GetString("path", "")
	doc := core.Document{
		SessionID: sessionID,
		Ref:       request.GetString("document_ref", ""),
		Name:      request.GetString("document_name", ""),
		Text:      request.GetString("text", ""),
	}

	switch {
	case path != "":
		extracted, err := extract.File(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read document: %v", err)), nil
		}
		doc.Text = extracted.Text
		if doc.Ref == "" {
			doc.Ref = path
		}
		if doc.Name == "" {
			doc.Name = extracted.Name
		}
	case strings.TrimSpace(doc.Text) == "":
		return mcp.NewToolResultError("either path or text is required"), nil
	}

	ingestor, err := h.services.Ingestor()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := ingestor.Ingest(ctx, doc)
	if err != nil {
		return h.toolError("ingest failed", err), nil
	}
	return jsonResult(result)
}

// Chat handles the chat tool
func (h *Handlers) Chat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	orchestrator, err := h.services.Orchestrator()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := orchestrator.Chat(ctx, sessionID, query)
	if err != nil {
		return h.toolError("chat failed", err), nil
	}

	response := map[string]interface{}{
		"answer":           result.Answer,
		"standalone_query": result.StandaloneQuery,
		"rewritten":        result.Rewritten,
		"context_status":   result.ContextStatus,
		"sources":          result.Sources,
		"persisted":        result.Persisted,
	}
	if result.PersistErr != nil {
		response["persist_error"] = result.PersistErr.Error()
	}
	return jsonResult(response)
}

// GetHistory handles the get_history tool
func (h *Handlers) GetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	limit := request.GetInt("limit", 0)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}

	entries, err := h.services.Sessions().History(ctx, sessionID, limit)
	if err != nil {
		return h.toolError("failed to read history", err), nil
	}

	turns := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		turns = append(turns, map[string]interface{}{
			"position":   e.Position,
			"role":       e.Role,
			"content":    e.Content,
			"created_at": e.CreatedAt,
		})
	}
	return jsonResult(map[string]interface{}{
		"session_id": sessionID,
		"entries":    turns,
	})
}

// ListDocuments handles the list_documents tool
func (h *Handlers) ListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	docs, err := h.services.Sessions().Documents(ctx, sessionID)
	if err != nil {
		return h.toolError("failed to list documents", err), nil
	}
	return jsonResult(map[string]interface{}{
		"session_id": sessionID,
		"documents":  docs,
	})
}

// DeleteDocument handles the delete_document tool
func (h *Handlers) DeleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	ref, err := request.RequireString("document_ref")
	if err != nil {
		return mcp.NewToolResultError("document_ref argument is required and must be a string"), nil
	}
	n, err := h.services.Sessions().DeleteDocument(ctx, sessionID, ref)
	if err != nil {
		return h.toolError("failed to delete document", err), nil
	}
	return jsonResult(map[string]interface{}{
		"session_id":     sessionID,
		"document_ref":   ref,
		"chunks_deleted": n,
	})
}

// ResetSession handles the reset_session tool
func (h *Handlers) ResetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	result, err := h.services.Sessions().Reset(ctx, sessionID, request.GetBool("drop_documents", false))
	if err != nil {
		return h.toolError("reset failed", err), nil
	}
	return jsonResult(result)
}

// ListSessions handles the list_sessions tool
func (h *Handlers) ListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := h.services.Sessions().List(ctx)
	if err != nil {
		return h.toolError("failed to list sessions", err), nil
	}
	out := make([]map[string]interface{}, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, map[string]interface{}{
			"session_id":    s.SessionID.String(),
			"entries":       s.Entries,
			"last_activity": s.LastActivity,
		})
	}
	return jsonResult(map[string]interface{}{"sessions": out})
}

// toolError logs the failure and reports it to the caller with its kind.
func (h *Handlers) toolError(msg string, err error) *mcp.CallToolResult {
	kind := core.KindOf(err)
	if core.IsValidation(err) {
		h.logger.Debug(msg, "kind", kind, "err", err)
	} else {
		h.logger.Error(msg, "kind", kind, "err", err)
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s (%s): %v", msg, kind, err))
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
