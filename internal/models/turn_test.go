// ABOUTME: Tests for HistoryEntry construction and role handling
// ABOUTME: Verifies validation of session, role and content
package models

import (
	"strings"
	"testing"
)

func TestNewHistoryEntry(t *testing.T) {
	session := MustSessionID("S1")

	tests := []struct {
		name    string
		session SessionID
		role    Role
		content string
		wantErr bool
		errMsg  string
	}{
		{name: "user entry", session: session, role: RoleUser, content: "Who wrote it?"},
		{name: "assistant entry", session: session, role: RoleAssistant, content: "Ada Lovelace."},
		{name: "system role rejected", session: session, role: RoleSystem, content: "x", wantErr: true, errMsg: "role"},
		{name: "unknown role rejected", session: session, role: Role("tool"), content: "x", wantErr: true, errMsg: "role"},
		{name: "blank content", session: session, role: RoleUser, content: " \n\t", wantErr: true, errMsg: "content"},
		{name: "zero session", session: SessionID{}, role: RoleUser, content: "hi", wantErr: true, errMsg: "session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewHistoryEntry(tt.session, tt.role, tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewHistoryEntry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %q, want to contain %q", err, tt.errMsg)
				}
				return
			}
			if !strings.HasPrefix(got.ID, "msg_") {
				t.Errorf("ID = %q, want msg_ prefix", got.ID)
			}
			if got.SessionID != tt.session || got.Role != tt.role || got.Content != tt.content {
				t.Errorf("unexpected entry %+v", got)
			}
			if got.CreatedAt.IsZero() {
				t.Error("CreatedAt should be set")
			}
		})
	}
}

func TestMessagesFromHistory(t *testing.T) {
	session := MustSessionID("S1")
	entries := []HistoryEntry{
		{SessionID: session, Position: 1, Role: RoleUser, Content: "q"},
		{SessionID: session, Position: 2, Role: RoleAssistant, Content: "a"},
	}

	msgs := MessagesFromHistory(entries)
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[1].Content != "a" {
		t.Errorf("unexpected messages %+v", msgs)
	}
}
