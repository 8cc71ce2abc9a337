// ABOUTME: Document chunk storage for PostgreSQL using pgvector
// ABOUTME: Cosine distance search filtered by session_id; score is 1 minus distance
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/harper/docchat/internal/models"
	"github.com/harper/docchat/internal/storage"
	"github.com/pgvector/pgvector-go"
)

// ChunkIndex is a storage.VectorIndex on the docchat_chunks table
type ChunkIndex struct {
	db *DB
}

var _ storage.VectorIndex = (*ChunkIndex)(nil)

// NewChunkIndex creates a new ChunkIndex
func NewChunkIndex(db *DB) *ChunkIndex {
	return &ChunkIndex{db: db}
}

func loadSpace(ctx context.Context, q rowQuerier, share bool) (models.EmbeddingSpace, bool, error) {
	query := "SELECT model, dimension FROM docchat_index_meta WHERE id = 1"
	if share {
		query += " FOR SHARE"
	}
	var space models.EmbeddingSpace
	err := q.QueryRowContext(ctx, query).Scan(&space.Model, &space.Dimension)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EmbeddingSpace{}, false, nil
	}
	if err != nil {
		return models.EmbeddingSpace{}, false, fmt.Errorf("failed to read embedding space: %w", err)
	}
	return space, true, nil
}

// EmbeddingSpace returns the space recorded for this index, if any
func (s *ChunkIndex) EmbeddingSpace(ctx context.Context) (models.EmbeddingSpace, bool, error) {
	return loadSpace(ctx, s.db.conn, false)
}

// EnsureEmbeddingSpace binds the index to space or verifies it matches
func (s *ChunkIndex) EnsureEmbeddingSpace(ctx context.Context, space models.EmbeddingSpace) error {
	if err := space.Validate(); err != nil {
		return err
	}
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		// The first writer wins; later ones see its row.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO docchat_index_meta (id, model, dimension, created_at)
			VALUES (1, $1, $2, $3)
			ON CONFLICT (id) DO NOTHING
		`, space.Model, space.Dimension, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to record embedding space: %w", err)
		}
		stored, _, err := loadSpace(ctx, tx, false)
		if err != nil {
			return err
		}
		return storage.CheckSpace(stored, space)
	})
}

// Upsert replaces the documents in chunks and inserts the new chunks in one transaction
func (s *ChunkIndex) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		space, ok, err := loadSpace(ctx, tx, true)
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrEmbeddingSpaceUnset
		}
		if err := storage.ValidateChunks(chunks, space); err != nil {
			return err
		}

		type docKey struct{ session, ref string }
		replaced := make(map[docKey]bool)
		for _, c := range chunks {
			key := docKey{c.SessionID.String(), c.DocumentRef}
			if replaced[key] {
				continue
			}
			replaced[key] = true
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM docchat_chunks WHERE session_id = $1 AND document_ref = $2",
				key.session, key.ref); err != nil {
				return fmt.Errorf("failed to replace document %s: %w", key.ref, err)
			}
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO docchat_chunks (id, session_id, document_ref, document_name, sequence_index, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare chunk insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now().UTC()
		for _, c := range chunks {
			createdAt := c.CreatedAt
			if createdAt.IsZero() {
				createdAt = now
			}
			if _, err := stmt.ExecContext(ctx, c.ID, c.SessionID.String(), c.DocumentRef, c.DocumentName,
				c.SequenceIndex, c.Text, pgvector.NewVector(c.Embedding), createdAt); err != nil {
				return fmt.Errorf("failed to insert chunk %d of %s: %w", c.SequenceIndex, c.DocumentRef, err)
			}
		}
		return nil
	})
}

// Search returns the k chunks of session closest to query by cosine distance
func (s *ChunkIndex) Search(ctx context.Context, session models.SessionID, query []float32, k int) ([]models.ScoredChunk, error) {
	if err := storage.CheckScope(session); err != nil {
		return nil, err
	}
	space, ok, err := loadSpace(ctx, s.db.conn, false)
	if err != nil {
		return nil, err
	}
	if !ok || k <= 0 {
		return []models.ScoredChunk{}, nil
	}
	if err := storage.ValidateQuery(session, query, space); err != nil {
		return nil, err
	}

	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT seq, id, document_ref, document_name, sequence_index, content, created_at,
		       1 - (embedding <=> $2) AS score
		FROM docchat_chunks
		WHERE session_id = $1
		ORDER BY embedding <=> $2, sequence_index, seq
		LIMIT $3
	`, session.String(), pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []models.ScoredChunk{}
	for rows.Next() {
		var hit models.ScoredChunk
		if err := rows.Scan(&hit.InsertSeq, &hit.ID, &hit.DocumentRef, &hit.DocumentName,
			&hit.SequenceIndex, &hit.Text, &hit.CreatedAt, &hit.Score); err != nil {
			return nil, err
		}
		hit.SessionID = session
		// pgvector yields NaN for a zero vector.
		if math.IsNaN(hit.Score) {
			hit.Score = 0
		}
		results = append(results, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return storage.Rank(results, k), nil
}

// ListDocuments summarizes the documents ingested into a session
func (s *ChunkIndex) ListDocuments(ctx context.Context, session models.SessionID) ([]models.DocumentInfo, error) {
	if err := storage.CheckScope(session); err != nil {
		return nil, err
	}
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT document_ref, MIN(document_name), COUNT(*), MIN(created_at)
		FROM docchat_chunks
		WHERE session_id = $1
		GROUP BY document_ref
		ORDER BY MIN(seq) ASC
	`, session.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	docs := []models.DocumentInfo{}
	for rows.Next() {
		var d models.DocumentInfo
		if err := rows.Scan(&d.DocumentRef, &d.DocumentName, &d.Chunks, &d.IngestedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes every chunk of one document
func (s *ChunkIndex) DeleteDocument(ctx context.Context, session models.SessionID, documentRef string) (int, error) {
	if err := storage.CheckScope(session); err != nil {
		return 0, err
	}
	res, err := s.db.conn.ExecContext(ctx,
		"DELETE FROM docchat_chunks WHERE session_id = $1 AND document_ref = $2", session.String(), documentRef)
	if err != nil {
		return 0, fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteSession removes every chunk of a session
func (s *ChunkIndex) DeleteSession(ctx context.Context, session models.SessionID) (int, error) {
	if err := storage.CheckScope(session); err != nil {
		return 0, err
	}
	res, err := s.db.conn.ExecContext(ctx, "DELETE FROM docchat_chunks WHERE session_id = $1", session.String())
	if err != nil {
		return 0, fmt.Errorf("failed to delete session chunks: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Close closes the underlying database
func (s *ChunkIndex) Close() error {
	return s.db.Close()
}
