// ABOUTME: PostgreSQL connection and schema setup for docchat storage
// ABOUTME: Requires the pgvector extension for the chunk embedding column
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	conn *sql.DB
}

// Open connects to dsn and creates the docchat tables if needed
func Open(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres connection string is required")
	}
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.EnsureTables(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// EnsureTables creates the extension, tables and indexes
func (db *DB) EnsureTables(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS docchat_history (
			seq        BIGSERIAL PRIMARY KEY,
			id         TEXT        NOT NULL UNIQUE,
			session_id TEXT        NOT NULL,
			role       TEXT        NOT NULL CHECK (role IN ('user', 'assistant')),
			content    TEXT        NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_docchat_history_session ON docchat_history(session_id, seq)`,
		`CREATE TABLE IF NOT EXISTS docchat_chunks (
			seq            BIGSERIAL PRIMARY KEY,
			id             TEXT        NOT NULL UNIQUE,
			session_id     TEXT        NOT NULL,
			document_ref   TEXT        NOT NULL,
			document_name  TEXT        NOT NULL DEFAULT '',
			sequence_index INTEGER     NOT NULL,
			content        TEXT        NOT NULL,
			embedding      vector      NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_docchat_chunks_document ON docchat_chunks(session_id, document_ref)`,
		`CREATE TABLE IF NOT EXISTS docchat_index_meta (
			id         INTEGER     PRIMARY KEY CHECK (id = 1),
			model      TEXT        NOT NULL,
			dimension  INTEGER     NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, s := range stmts {
		if _, err := db.conn.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
