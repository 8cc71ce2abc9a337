// ABOUTME: Storage contracts for the session-scoped vector index and conversation history
// ABOUTME: Shared sentinel errors and the ranking rule every index backend applies
package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/harper/docchat/internal/models"
)

var (
	// ErrUnscoped is returned when a scoped operation receives a zero SessionID.
	ErrUnscoped = errors.New("operation requires a session id")
	// ErrDimensionMismatch is returned for vectors that do not fit the index's space.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmbeddingSpaceMismatch is returned when an index built with one model is used with another.
	ErrEmbeddingSpaceMismatch = errors.New("embedding space mismatch")
	// ErrEmbeddingSpaceUnset is returned by writes before EnsureEmbeddingSpace.
	ErrEmbeddingSpaceUnset = errors.New("embedding space not set")
)

// VectorIndex stores embedded chunks and answers similarity searches.
// Every read and write is scoped to exactly one session.
type VectorIndex interface {
	// EmbeddingSpace reports the recorded space; ok is false until one is ensured.
	EmbeddingSpace(ctx context.Context) (space models.EmbeddingSpace, ok bool, err error)
	// EnsureEmbeddingSpace records the space on first use and rejects any other space afterwards.
	EnsureEmbeddingSpace(ctx context.Context, space models.EmbeddingSpace) error
	// Upsert makes all chunks visible together or none of them. Chunks of a
	// document_ref already present in the session are replaced.
	Upsert(ctx context.Context, chunks []models.Chunk) error
	// Search returns at most k chunks of session ordered by Rank.
	Search(ctx context.Context, session models.SessionID, query []float32, k int) ([]models.ScoredChunk, error)
	ListDocuments(ctx context.Context, session models.SessionID) ([]models.DocumentInfo, error)
	DeleteDocument(ctx context.Context, session models.SessionID, documentRef string) (int, error)
	DeleteSession(ctx context.Context, session models.SessionID) (int, error)
	Close() error
}

// HistoryStore persists the ordered conversation of each session.
type HistoryStore interface {
	Append(ctx context.Context, session models.SessionID, role models.Role, content string) (*models.HistoryEntry, error)
	// AppendTurn stores the user entry then the assistant entry in one transaction.
	AppendTurn(ctx context.Context, session models.SessionID, userContent, assistantContent string) ([]models.HistoryEntry, error)
	// Read returns entries oldest-first. A positive limit keeps only the most recent entries.
	Read(ctx context.Context, session models.SessionID, limit int) ([]models.HistoryEntry, error)
	// Clear deletes a session's history. Only an explicit reset calls it.
	Clear(ctx context.Context, session models.SessionID) (int, error)
	ListSessions(ctx context.Context) ([]models.SessionSummary, error)
	Close() error
}

// CheckScope rejects the zero SessionID.
func CheckScope(session models.SessionID) error {
	if session.IsZero() {
		return ErrUnscoped
	}
	return nil
}

// CheckSpace compares a requested space with the one an index was built with.
func CheckSpace(stored, requested models.EmbeddingSpace) error {
	if stored == requested {
		return nil
	}
	return fmt.Errorf("%w: index uses %s, embedder produces %s", ErrEmbeddingSpaceMismatch, stored, requested)
}

// ValidateChunks checks a batch before it is written to an index.
func ValidateChunks(chunks []models.Chunk, space models.EmbeddingSpace) error {
	for i, c := range chunks {
		if err := CheckScope(c.SessionID); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		if c.DocumentRef == "" {
			return fmt.Errorf("chunk %d: document ref cannot be empty", i)
		}
		if c.ID == "" {
			return fmt.Errorf("chunk %d: id cannot be empty", i)
		}
		if len(c.Embedding) != space.Dimension {
			return fmt.Errorf("chunk %d: %w: expected %d, got %d", i, ErrDimensionMismatch, space.Dimension, len(c.Embedding))
		}
	}
	return nil
}

// ValidateQuery checks a search request against the index's space.
func ValidateQuery(session models.SessionID, query []float32, space models.EmbeddingSpace) error {
	if err := CheckScope(session); err != nil {
		return err
	}
	if len(query) != space.Dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, space.Dimension, len(query))
	}
	return nil
}

// Rank orders hits by score descending, then sequence index, then insertion
// order, and truncates to k.
func Rank(hits []models.ScoredChunk, k int) []models.ScoredChunk {
	slices.SortStableFunc(hits, func(a, b models.ScoredChunk) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.SequenceIndex, b.SequenceIndex); c != 0 {
			return c
		}
		return cmp.Compare(a.InsertSeq, b.InsertSeq)
	})
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
