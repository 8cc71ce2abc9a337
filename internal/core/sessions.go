// ABOUTME: Session administration that needs no model: history, documents, listing and resets
// ABOUTME: The Orchestrator embeds it; tools that never chat can use it alone
package core

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/docchat/internal/logging"
	"github.com/harper/docchat/internal/models"
	"github.com/harper/docchat/internal/storage"
)

// Sessions reads and resets per-session state.
type Sessions struct {
	history storage.HistoryStore
	index   storage.VectorIndex
	logger  *log.Logger
}

// NewSessions creates a Sessions over the given stores. index may be nil.
func NewSessions(history storage.HistoryStore, index storage.VectorIndex) *Sessions {
	return &Sessions{history: history, index: index, logger: logging.Discard()}
}

// WithSessionsLogger sets the logger used for resets.
func (s *Sessions) WithSessionsLogger(l *log.Logger) *Sessions {
	s.logger = logging.Component(l, "sessions")
	return s
}

// History returns a session's conversation oldest-first.
func (s *Sessions) History(ctx context.Context, sessionID string, limit int) ([]models.HistoryEntry, error) {
	session, err := models.ParseSessionID(sessionID)
	if err != nil {
		return nil, newError(KindValidation, sessionID, "history", err, "")
	}
	entries, err := s.history.Read(ctx, session, limit)
	if err != nil {
		return nil, newError(KindRetrieval, sessionID, "history", err, "read history")
	}
	return entries, nil
}

// List summarizes every session that has history.
func (s *Sessions) List(ctx context.Context) ([]models.SessionSummary, error) {
	sessions, err := s.history.ListSessions(ctx)
	if err != nil {
		return nil, newError(KindRetrieval, "", "sessions", err, "list sessions")
	}
	return sessions, nil
}

var errNoIndex = errors.New("no vector index configured")

// Documents returns the documents indexed in a session.
func (s *Sessions) Documents(ctx context.Context, sessionID string) ([]models.DocumentInfo, error) {
	session, err := models.ParseSessionID(sessionID)
	if err != nil {
		return nil, newError(KindValidation, sessionID, "documents", err, "")
	}
	if s.index == nil {
		return nil, newError(KindConfig, sessionID, "documents", errNoIndex, "")
	}
	docs, err := s.index.ListDocuments(ctx, session)
	if err != nil {
		return nil, newError(KindIndex, sessionID, "documents", err, "list documents")
	}
	return docs, nil
}

// DeleteDocument removes one document from a session's index.
func (s *Sessions) DeleteDocument(ctx context.Context, sessionID, ref string) (int, error) {
	session, err := models.ParseSessionID(sessionID)
	if err != nil {
		return 0, newError(KindValidation, sessionID, "documents", err, "")
	}
	if strings.TrimSpace(ref) == "" {
		return 0, newError(KindValidation, sessionID, "documents", errors.New("document ref is required"), "")
	}
	if s.index == nil {
		return 0, newError(KindConfig, sessionID, "documents", errNoIndex, "")
	}
	n, err := s.index.DeleteDocument(ctx, session, ref)
	if err != nil {
		return 0, newError(KindIndex, sessionID, "documents", err, "delete document")
	}
	s.logger.Info("document deleted", "session", session, "document", ref, "chunks", n)
	return n, nil
}

// ResetResult reports what a reset removed.
type ResetResult struct {
	SessionID      string `json:"session_id"`
	EntriesDeleted int    `json:"entries_deleted"`
	ChunksDeleted  int    `json:"chunks_deleted"`
}

// Reset clears a session's history and, optionally, its documents.
func (s *Sessions) Reset(ctx context.Context, sessionID string, dropDocuments bool) (*ResetResult, error) {
	session, err := models.ParseSessionID(sessionID)
	if err != nil {
		return nil, newError(KindValidation, sessionID, "reset", err, "")
	}

	result := &ResetResult{SessionID: sessionID}
	if result.EntriesDeleted, err = s.history.Clear(ctx, session); err != nil {
		return nil, newError(KindPersistence, sessionID, "reset", err, "clear history")
	}
	if dropDocuments && s.index != nil {
		if result.ChunksDeleted, err = s.index.DeleteSession(ctx, session); err != nil {
			return nil, newError(KindIndex, sessionID, "reset", err, "delete chunks")
		}
	}
	s.logger.Info("session reset", "session", sessionID,
		"entries", result.EntriesDeleted, "chunks", result.ChunksDeleted)
	return result, nil
}
