// ABOUTME: Conformance checks shared by every VectorIndex backend's tests
// ABOUTME: Covers session isolation, ranking, atomic replacement and embedding space checks
package storagetest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/harper/docchat/internal/models"
	"github.com/harper/docchat/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Dimension is the vector size used by the suite.
const Dimension = 8

// Space is the embedding space the suite binds indexes to.
var Space = models.EmbeddingSpace{Model: "storagetest", Dimension: Dimension}

// IndexFactory returns an index with no embedding space bound; the suite closes it.
type IndexFactory func(t *testing.T) storage.VectorIndex

// Vec builds a Dimension-sized vector with the given leading components.
func Vec(components ...float32) []float32 {
	v := make([]float32, Dimension)
	copy(v, components)
	return v
}

// Chunks builds a document's chunks with deterministic IDs.
func Chunks(session models.SessionID, ref string, vectors ...[]float32) []models.Chunk {
	out := make([]models.Chunk, 0, len(vectors))
	for i, v := range vectors {
		out = append(out, models.Chunk{
			ID:            models.ChunkID(session, ref, i),
			SessionID:     session,
			DocumentRef:   ref,
			DocumentName:  ref + ".txt",
			SequenceIndex: i,
			Text:          fmt.Sprintf("%s chunk %d", ref, i),
			Embedding:     v,
		})
	}
	return out
}

// RunVectorIndexTests runs the shared VectorIndex behaviour against a backend.
func RunVectorIndexTests(t *testing.T, open IndexFactory) {
	ctx := context.Background()

	setup := func(t *testing.T) storage.VectorIndex {
		idx := open(t)
		t.Cleanup(func() { _ = idx.Close() })
		require.NoError(t, idx.EnsureEmbeddingSpace(ctx, Space))
		return idx
	}

	t.Run("upsert before space is bound fails", func(t *testing.T) {
		idx := open(t)
		defer func() { _ = idx.Close() }()
		s := models.NewSessionID()

		err := idx.Upsert(ctx, Chunks(s, "doc", Vec(1)))
		assert.ErrorIs(t, err, storage.ErrEmbeddingSpaceUnset)
	})

	t.Run("embedding space is pinned", func(t *testing.T) {
		idx := setup(t)

		assert.NoError(t, idx.EnsureEmbeddingSpace(ctx, Space))
		err := idx.EnsureEmbeddingSpace(ctx, models.EmbeddingSpace{Model: "other", Dimension: Dimension})
		assert.ErrorIs(t, err, storage.ErrEmbeddingSpaceMismatch)
		err = idx.EnsureEmbeddingSpace(ctx, models.EmbeddingSpace{Model: Space.Model, Dimension: Dimension + 1})
		assert.ErrorIs(t, err, storage.ErrEmbeddingSpaceMismatch)
	})

	t.Run("dimension mismatch is rejected", func(t *testing.T) {
		idx := setup(t)
		s := models.NewSessionID()

		err := idx.Upsert(ctx, Chunks(s, "doc", []float32{1, 2, 3}))
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

		require.NoError(t, idx.Upsert(ctx, Chunks(s, "doc", Vec(1))))
		_, err = idx.Search(ctx, s, []float32{1, 2}, 4)
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	})

	t.Run("zero session is rejected", func(t *testing.T) {
		idx := setup(t)

		_, err := idx.Search(ctx, models.SessionID{}, Vec(1), 4)
		assert.ErrorIs(t, err, storage.ErrUnscoped)
		err = idx.Upsert(ctx, Chunks(models.SessionID{}, "doc", Vec(1)))
		assert.ErrorIs(t, err, storage.ErrUnscoped)
		_, err = idx.DeleteSession(ctx, models.SessionID{})
		assert.ErrorIs(t, err, storage.ErrUnscoped)
	})

	t.Run("empty session searches empty", func(t *testing.T) {
		idx := setup(t)

		hits, err := idx.Search(ctx, models.NewSessionID(), Vec(1), 4)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("zero vectors score zero", func(t *testing.T) {
		idx := setup(t)
		s := models.NewSessionID()
		require.NoError(t, idx.Upsert(ctx, Chunks(s, "doc", Vec(1, 0), Vec())))

		hits, err := idx.Search(ctx, s, Vec(), 4)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		for _, h := range hits {
			assert.Zero(t, h.Score, "chunk %d", h.SequenceIndex)
		}
		assert.Equal(t, 0, hits[0].SequenceIndex)

		hits, err = idx.Search(ctx, s, Vec(1, 0), 4)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, 0, hits[0].SequenceIndex)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
		assert.Zero(t, hits[1].Score)
	})

	t.Run("results are ranked and capped", func(t *testing.T) {
		idx := setup(t)
		s := models.NewSessionID()
		require.NoError(t, idx.Upsert(ctx, Chunks(s, "doc",
			Vec(0, 1),
			Vec(1, 0),
			Vec(1, 1),
			Vec(1, 0.1),
		)))

		hits, err := idx.Search(ctx, s, Vec(1, 0), 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, 1, hits[0].SequenceIndex)
		assert.Equal(t, 3, hits[1].SequenceIndex)
		assert.Equal(t, 2, hits[2].SequenceIndex)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
		for i := 1; i < len(hits); i++ {
			assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
		}
		assert.Equal(t, "doc chunk 1", hits[0].Text)
		assert.Equal(t, "doc", hits[0].DocumentRef)

		hits, err = idx.Search(ctx, s, Vec(1, 0), 10)
		require.NoError(t, err)
		assert.Len(t, hits, 4, "k larger than the session returns everything")
	})

	t.Run("ties break by sequence index", func(t *testing.T) {
		idx := setup(t)
		s := models.NewSessionID()
		same := Vec(0.5, 0.5)
		require.NoError(t, idx.Upsert(ctx, Chunks(s, "doc", same, same, same)))

		hits, err := idx.Search(ctx, s, same, 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		for i, h := range hits {
			assert.Equal(t, i, h.SequenceIndex)
		}
	})

	t.Run("search never crosses sessions", func(t *testing.T) {
		idx := setup(t)
		rng := rand.New(rand.NewPCG(42, 7))

		sessions := make([]models.SessionID, 6)
		for i := range sessions {
			sessions[i] = models.NewSessionID()
			var vecs [][]float32
			for j := 0; j < 5; j++ {
				vecs = append(vecs, randomVec(rng))
			}
			require.NoError(t, idx.Upsert(ctx, Chunks(sessions[i], fmt.Sprintf("doc-%d", i), vecs...)))
		}

		for trial := 0; trial < 30; trial++ {
			s := sessions[rng.IntN(len(sessions))]
			k := 1 + rng.IntN(12)
			hits, err := idx.Search(ctx, s, randomVec(rng), k)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(hits), min(k, 5))
			for _, h := range hits {
				assert.Equal(t, s, h.SessionID, "hit from another session")
			}
		}
	})

	t.Run("re-ingesting a document replaces its chunks", func(t *testing.T) {
		idx := setup(t)
		s := models.NewSessionID()
		require.NoError(t, idx.Upsert(ctx, Chunks(s, "doc", Vec(1), Vec(0, 1), Vec(0, 0, 1))))
		require.NoError(t, idx.Upsert(ctx, Chunks(s, "doc", Vec(1))))

		hits, err := idx.Search(ctx, s, Vec(1), 10)
		require.NoError(t, err)
		assert.Len(t, hits, 1)

		docs, err := idx.ListDocuments(ctx, s)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, 1, docs[0].Chunks)
	})

	t.Run("documents are listed and deleted per session", func(t *testing.T) {
		idx := setup(t)
		a, b := models.NewSessionID(), models.NewSessionID()
		require.NoError(t, idx.Upsert(ctx, Chunks(a, "alpha", Vec(1), Vec(1, 1))))
		require.NoError(t, idx.Upsert(ctx, Chunks(a, "beta", Vec(0, 1))))
		require.NoError(t, idx.Upsert(ctx, Chunks(b, "alpha", Vec(1))))

		docs, err := idx.ListDocuments(ctx, a)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		byRef := map[string]models.DocumentInfo{}
		for _, d := range docs {
			byRef[d.DocumentRef] = d
		}
		assert.Equal(t, 2, byRef["alpha"].Chunks)
		assert.Equal(t, "alpha.txt", byRef["alpha"].DocumentName)
		assert.Equal(t, 1, byRef["beta"].Chunks)

		n, err := idx.DeleteDocument(ctx, a, "alpha")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		hits, err := idx.Search(ctx, b, Vec(1), 10)
		require.NoError(t, err)
		assert.Len(t, hits, 1, "other session's document of the same ref survives")

		n, err = idx.DeleteSession(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		hits, err = idx.Search(ctx, a, Vec(1), 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("empty upsert is a no-op", func(t *testing.T) {
		idx := setup(t)
		assert.NoError(t, idx.Upsert(ctx, nil))
	})
}

func randomVec(rng *rand.Rand) []float32 {
	v := make([]float32, Dimension)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}
