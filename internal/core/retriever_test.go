// ABOUTME: Tests for session-scoped retrieval
// ABOUTME: Covers empty sessions, score cutoffs, top-k bounds and scope checks
package core

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/harper/docchat/internal/models"
	"github.com/harper/docchat/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetriever_EmptySessionIsNotAnError(t *testing.T) {
	s := newTestStack(t, &scriptedCompleter{})
	r := NewRetriever(s.embedder, s.index)

	res, err := r.Retrieve(context.Background(), models.MustSessionID("empty"), "anything")
	require.NoError(t, err)
	assert.Equal(t, ContextNone, res.Status)
	assert.NotNil(t, res.Sources)
	assert.Empty(t, res.Sources)
}

func TestRetriever_FindsRelevantPassages(t *testing.T) {
	s := newTestStack(t, &scriptedCompleter{})
	s.ingest(t, "S1", "ada-birth", adaBirth)
	s.ingest(t, "S1", "plants", distraction)

	r := NewRetriever(s.embedder, s.index)
	res, err := r.Retrieve(context.Background(), models.MustSessionID("S1"), "When was Ada Lovelace born?")
	require.NoError(t, err)
	assert.Equal(t, ContextFound, res.Status)
	require.NotEmpty(t, res.Sources)
	assert.Equal(t, "ada-birth", res.Sources[0].DocumentRef)
	assert.Equal(t, "ada-birth.txt", res.Sources[0].DocumentName)
	assert.Equal(t, adaBirth, res.Sources[0].Text)
	for i := 1; i < len(res.Sources); i++ {
		assert.GreaterOrEqual(t, res.Sources[i-1].Score, res.Sources[i].Score)
	}
}

func TestRetriever_MinScoreCutoff(t *testing.T) {
	s := newTestStack(t, &scriptedCompleter{})
	s.ingest(t, "S1", "plants", distraction)

	r := NewRetriever(s.embedder, s.index, WithMinScore(0.5))
	res, err := r.Retrieve(context.Background(), models.MustSessionID("S1"), "When was Ada Lovelace born?")
	require.NoError(t, err)
	assert.Equal(t, ContextBelowThreshold, res.Status)
	assert.Empty(t, res.Sources)
}

func TestRetriever_MinScoreIsInclusive(t *testing.T) {
	index := &stubIndex{hits: []models.ScoredChunk{
		{Chunk: models.Chunk{DocumentRef: "a", Text: "kept"}, Score: 0.5},
		{Chunk: models.Chunk{DocumentRef: "b", Text: "dropped"}, Score: 0.49},
	}}
	r := NewRetriever(newHashEmbedder(t, 8), index, WithMinScore(0.5))

	res, err := r.Retrieve(context.Background(), models.MustSessionID("S1"), "q")
	require.NoError(t, err)
	assert.Equal(t, ContextFound, res.Status)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "kept", res.Sources[0].Text)
	assert.Equal(t, DefaultTopK, index.lastK)
}

func TestRetriever_TopK(t *testing.T) {
	s := newTestStack(t, &scriptedCompleter{})
	for i := range 6 {
		s.ingest(t, "S1", fmt.Sprintf("doc-%d", i), fmt.Sprintf("Shared words about lighthouses number %d.", i))
	}

	r := NewRetriever(s.embedder, s.index, WithTopK(3))
	assert.Equal(t, 3, r.TopK())
	res, err := r.Retrieve(context.Background(), models.MustSessionID("S1"), "lighthouses")
	require.NoError(t, err)
	assert.Len(t, res.Sources, 3)

	assert.Equal(t, DefaultTopK, NewRetriever(s.embedder, s.index, WithTopK(0)).TopK())
}

func TestRetriever_RejectsZeroSession(t *testing.T) {
	s := newTestStack(t, &scriptedCompleter{})
	r := NewRetriever(s.embedder, s.index)
	_, err := r.Retrieve(context.Background(), models.SessionID{}, "q")
	assert.ErrorIs(t, err, storage.ErrUnscoped)
}

func TestRetriever_LeavesEmptyIndexUnpinned(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t, &scriptedCompleter{})
	r := NewRetriever(s.embedder, s.index)
	res, err := r.Retrieve(ctx, models.MustSessionID("S1"), "q")
	require.NoError(t, err)
	assert.Equal(t, ContextNone, res.Status)

	_, ok, err := s.index.EmbeddingSpace(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A different embedder is still free to build the index.
	other := newHashEmbedder(t, 16)
	_, err = NewRetriever(other, s.index).Retrieve(ctx, models.MustSessionID("S1"), "q")
	require.NoError(t, err)
	space, err := other.Space(ctx)
	require.NoError(t, err)
	require.NoError(t, s.index.EnsureEmbeddingSpace(ctx, space))
}

func TestRetriever_RejectsForeignEmbeddingSpace(t *testing.T) {
	s := newTestStack(t, &scriptedCompleter{})
	s.ingest(t, "S1", "ada-birth", adaBirth)

	other := NewRetriever(newHashEmbedder(t, 16), s.index)
	_, err := other.Retrieve(context.Background(), models.MustSessionID("S1"), "q")
	assert.ErrorIs(t, err, storage.ErrEmbeddingSpaceMismatch)
}

func TestRetriever_NaNScoreFailsCutoff(t *testing.T) {
	index := &stubIndex{hits: []models.ScoredChunk{
		{Chunk: models.Chunk{DocumentRef: "a", Text: "unscored"}, Score: math.NaN()},
	}}
	r := NewRetriever(newHashEmbedder(t, 8), index, WithMinScore(0.9))

	res, err := r.Retrieve(context.Background(), models.MustSessionID("S1"), "Who is she?")
	require.NoError(t, err)
	assert.Equal(t, ContextBelowThreshold, res.Status)
	assert.Empty(t, res.Sources)
}

// stubIndex returns fixed hits and accepts any embedding space.
type stubIndex struct {
	storage.VectorIndex
	hits  []models.ScoredChunk
	lastK int
}

func (s *stubIndex) EmbeddingSpace(ctx context.Context) (models.EmbeddingSpace, bool, error) {
	return models.EmbeddingSpace{}, false, nil
}

func (s *stubIndex) EnsureEmbeddingSpace(ctx context.Context, space models.EmbeddingSpace) error {
	return nil
}

func (s *stubIndex) Search(ctx context.Context, session models.SessionID, query []float32, k int) ([]models.ScoredChunk, error) {
	s.lastK = k
	return s.hits, nil
}
