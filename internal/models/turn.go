// ABOUTME: History entries and chat messages exchanged within a session
// ABOUTME: A completed turn is one user entry followed by one assistant entry
package models

import (
	"errors"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsHistoryRole reports whether r may be persisted as a history entry.
func (r Role) IsHistoryRole() bool {
	return r == RoleUser || r == RoleAssistant
}

// HistoryEntry is one persisted message in a session's conversation.
// Position is assigned by the store and is strictly increasing per store.
type HistoryEntry struct {
	ID        string    `json:"id" yaml:"id"`
	SessionID SessionID `json:"session_id" yaml:"session_id"`
	Position  int64     `json:"position" yaml:"position"`
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewHistoryEntry builds an unpersisted entry with a fresh ID.
func NewHistoryEntry(session SessionID, role Role, content string) (*HistoryEntry, error) {
	if session.IsZero() {
		return nil, ErrInvalidSessionID
	}
	if !role.IsHistoryRole() {
		return nil, errors.New("role must be user or assistant")
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("content cannot be empty")
	}
	return &HistoryEntry{
		ID:        generateEntryID(),
		SessionID: session,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func generateEntryID() string {
	return "msg_" + shortuuid.New()
}

// Message is a single chat message sent to a completion model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionOptions tunes one completion call.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// MessagesFromHistory converts history entries to chat messages.
func MessagesFromHistory(entries []HistoryEntry) []Message {
	msgs := make([]Message, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, Message{Role: e.Role, Content: e.Content})
	}
	return msgs
}

// SessionSummary describes a session known to a history store.
type SessionSummary struct {
	SessionID    SessionID `json:"session_id" yaml:"session_id"`
	Entries      int       `json:"entries" yaml:"entries"`
	LastActivity time.Time `json:"last_activity" yaml:"last_activity"`
}
