// ABOUTME: Conversation history storage for PostgreSQL
// ABOUTME: Positions come from a BIGSERIAL so order survives restarts and concurrent writers
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harper/docchat/internal/models"
	"github.com/harper/docchat/internal/storage"
)

// HistoryStore is a storage.HistoryStore on the docchat_history table
type HistoryStore struct {
	db *DB
}

var _ storage.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore creates a new HistoryStore
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Append stores one entry and returns it with its assigned position
func (s *HistoryStore) Append(ctx context.Context, session models.SessionID, role models.Role, content string) (*models.HistoryEntry, error) {
	if err := storage.CheckScope(session); err != nil {
		return nil, err
	}
	entry, err := models.NewHistoryEntry(session, role, content)
	if err != nil {
		return nil, err
	}
	if err := insertEntry(ctx, s.db.conn, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// AppendTurn stores a user entry and its assistant reply atomically
func (s *HistoryStore) AppendTurn(ctx context.Context, session models.SessionID, userContent, assistantContent string) ([]models.HistoryEntry, error) {
	if err := storage.CheckScope(session); err != nil {
		return nil, err
	}
	user, err := models.NewHistoryEntry(session, models.RoleUser, userContent)
	if err != nil {
		return nil, err
	}
	assistant, err := models.NewHistoryEntry(session, models.RoleAssistant, assistantContent)
	if err != nil {
		return nil, err
	}

	// Concurrent turns of one session would otherwise interleave their serial values.
	err = s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", session.String()); err != nil {
			return fmt.Errorf("failed to lock session: %w", err)
		}
		if err := insertEntry(ctx, tx, user); err != nil {
			return err
		}
		return insertEntry(ctx, tx, assistant)
	})
	if err != nil {
		return nil, err
	}
	return []models.HistoryEntry{*user, *assistant}, nil
}

func insertEntry(ctx context.Context, q rowQuerier, entry *models.HistoryEntry) error {
	err := q.QueryRowContext(ctx, `
		INSERT INTO docchat_history (id, session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq
	`, entry.ID, entry.SessionID.String(), string(entry.Role), entry.Content, entry.CreatedAt).Scan(&entry.Position)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// Read returns a session's entries oldest-first, limited to the most recent when limit > 0
func (s *HistoryStore) Read(ctx context.Context, session models.SessionID, limit int) ([]models.HistoryEntry, error) {
	if err := storage.CheckScope(session); err != nil {
		return nil, err
	}

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.conn.QueryContext(ctx, `
			SELECT seq, id, role, content, created_at FROM (
				SELECT seq, id, role, content, created_at
				FROM docchat_history
				WHERE session_id = $1
				ORDER BY seq DESC
				LIMIT $2
			) recent ORDER BY seq ASC
		`, session.String(), limit)
	} else {
		rows, err = s.db.conn.QueryContext(ctx, `
			SELECT seq, id, role, content, created_at
			FROM docchat_history
			WHERE session_id = $1
			ORDER BY seq ASC
		`, session.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		entry := models.HistoryEntry{SessionID: session}
		var role string
		if err := rows.Scan(&entry.Position, &entry.ID, &role, &entry.Content, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Role = models.Role(role)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Clear deletes every entry of a session
func (s *HistoryStore) Clear(ctx context.Context, session models.SessionID) (int, error) {
	if err := storage.CheckScope(session); err != nil {
		return 0, err
	}
	res, err := s.db.conn.ExecContext(ctx, "DELETE FROM docchat_history WHERE session_id = $1", session.String())
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ListSessions summarizes every session with history, most recently active first
func (s *HistoryStore) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT session_id, COUNT(*), MAX(created_at)
		FROM docchat_history
		GROUP BY session_id
		ORDER BY MAX(seq) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []models.SessionSummary
	for rows.Next() {
		var (
			summary models.SessionSummary
			id      string
		)
		if err := rows.Scan(&id, &summary.Entries, &summary.LastActivity); err != nil {
			return nil, err
		}
		if summary.SessionID, err = models.ParseSessionID(id); err != nil {
			return nil, err
		}
		sessions = append(sessions, summary)
	}
	return sessions, rows.Err()
}

// Close closes the underlying database
func (s *HistoryStore) Close() error {
	return s.db.Close()
}
