// ABOUTME: Document chunk storage for SQLite
// ABOUTME: Stores vectors as BLOBs and answers session-filtered cosine similarity search
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/harper/docchat/internal/models"
	"github.com/harper/docchat/internal/storage"
)

// ChunkIndex is a VectorIndex backed by the chunks table.
// Search is an exact scan over one session's rows.
type ChunkIndex struct {
	db *DB
}

var _ storage.VectorIndex = (*ChunkIndex)(nil)

// NewChunkIndex creates a new ChunkIndex
func NewChunkIndex(db *DB) *ChunkIndex {
	return &ChunkIndex{db: db}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// EmbeddingSpace returns the space recorded for this index, if any
func (s *ChunkIndex) EmbeddingSpace(ctx context.Context) (models.EmbeddingSpace, bool, error) {
	return loadSpace(ctx, s.db.conn)
}

func loadSpace(ctx context.Context, q querier) (models.EmbeddingSpace, bool, error) {
	var space models.EmbeddingSpace
	err := q.QueryRowContext(ctx, "SELECT model, dimension FROM index_meta WHERE id = 1").
		Scan(&space.Model, &space.Dimension)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EmbeddingSpace{}, false, nil
	}
	if err != nil {
		return models.EmbeddingSpace{}, false, fmt.Errorf("failed to read embedding space: %w", err)
	}
	return space, true, nil
}

// EnsureEmbeddingSpace binds the index to space or verifies it matches
func (s *ChunkIndex) EnsureEmbeddingSpace(ctx context.Context, space models.EmbeddingSpace) error {
	if err := space.Validate(); err != nil {
		return err
	}
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		stored, ok, err := loadSpace(ctx, tx)
		if err != nil {
			return err
		}
		if ok {
			return storage.CheckSpace(stored, space)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO index_meta (id, model, dimension, created_at)
			VALUES (1, ?, ?, ?)
		`, space.Model, space.Dimension, time.Now().UTC())
		return err
	})
}

// Upsert replaces the documents in chunks and inserts the new chunks in one transaction
func (s *ChunkIndex) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		space, ok, err := loadSpace(ctx, tx)
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
				"DELETE FROM chunks WHERE session_id = ? AND document_ref = ?",
				key.session, key.ref); err != nil {
				return fmt.Errorf("failed to replace document %s: %w", key.ref, err)
			}
		}

		now := time.Now().UTC()
		for _, c := range chunks {
			createdAt := c.CreatedAt
			if createdAt.IsZero() {
				createdAt = now
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO chunks (id, session_id, document_ref, document_name, sequence_index, content, vector, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, c.ID, c.SessionID.String(), c.DocumentRef, c.DocumentName, c.SequenceIndex, c.Text,
				vectorToBlob(c.Embedding), createdAt)
			if err != nil {
				return fmt.Errorf("failed to insert chunk %d of %s: %w", c.SequenceIndex, c.DocumentRef, err)
			}
		}
		return nil
	})
}

// Search performs cosine similarity search over one session's chunks
func (s *ChunkIndex) Search(ctx context.Context, session models.SessionID, query []float32, k int) ([]models.ScoredChunk, error) {
	if err := storage.CheckScope(session); err != nil {
		return nil, err
	}
	space, ok, err := loadSpace(ctx, s.db.conn)
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
		SELECT seq, id, document_ref, document_name, sequence_index, content, vector, created_at
		FROM chunks
		WHERE session_id = ?
	`, session.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []models.ScoredChunk{}
	for rows.Next() {
		var (
			hit  models.ScoredChunk
			blob []byte
		)
		if err := rows.Scan(&hit.InsertSeq, &hit.ID, &hit.DocumentRef, &hit.DocumentName,
			&hit.SequenceIndex, &hit.Text, &blob, &hit.CreatedAt); err != nil {
			return nil, err
		}
		hit.SessionID = session
		hit.Score = models.CosineSimilarity(query, blobToVector(blob))
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
		SELECT c.document_ref, c.document_name, g.n, c.created_at
		FROM chunks c
		JOIN (
			SELECT MIN(seq) AS first_seq, COUNT(*) AS n
			FROM chunks
			WHERE session_id = ?
			GROUP BY document_ref
		) g ON c.seq = g.first_seq
		ORDER BY c.seq ASC
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
		"DELETE FROM chunks WHERE session_id = ? AND document_ref = ?", session.String(), documentRef)
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
	res, err := s.db.conn.ExecContext(ctx, "DELETE FROM chunks WHERE session_id = ?", session.String())
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

// vectorToBlob converts a float32 slice to binary blob
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to float32 slice
func blobToVector(blob []byte) []float32 {
	count := len(blob) / 4
	vector := make([]float32, count)
	for i := 0; i < count; i++ {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}
