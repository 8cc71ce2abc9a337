// ABOUTME: Tests for shared storage validation and ranking helpers
// ABOUTME: Verifies scope checks, space comparison and deterministic ordering
package storage

import (
	"errors"
	"testing"

	"github.com/harper/docchat/internal/models"
)

func TestCheckScope(t *testing.T) {
	if err := CheckScope(models.SessionID{}); !errors.Is(err, ErrUnscoped) {
		t.Errorf("CheckScope(zero) = %v, want ErrUnscoped", err)
	}
	if err := CheckScope(models.MustSessionID("S1")); err != nil {
		t.Errorf("CheckScope(S1) = %v", err)
	}
}

func TestCheckSpace(t *testing.T) {
	a := models.EmbeddingSpace{Model: "m", Dimension: 4}
	if err := CheckSpace(a, a); err != nil {
		t.Errorf("CheckSpace(same) = %v", err)
	}
	b := models.EmbeddingSpace{Model: "m", Dimension: 8}
	if err := CheckSpace(a, b); !errors.Is(err, ErrEmbeddingSpaceMismatch) {
		t.Errorf("CheckSpace(different) = %v, want ErrEmbeddingSpaceMismatch", err)
	}
}

func TestValidateChunks(t *testing.T) {
	space := models.EmbeddingSpace{Model: "m", Dimension: 2}
	s := models.MustSessionID("S1")
	good := models.Chunk{ID: "c1", SessionID: s, DocumentRef: "doc", Embedding: []float32{1, 0}}

	tests := []struct {
		name    string
		mutate  func(*models.Chunk)
		wantErr error
	}{
		{name: "valid", mutate: func(*models.Chunk) {}},
		{name: "zero session", mutate: func(c *models.Chunk) { c.SessionID = models.SessionID{} }, wantErr: ErrUnscoped},
		{name: "wrong dimension", mutate: func(c *models.Chunk) { c.Embedding = []float32{1} }, wantErr: ErrDimensionMismatch},
		{name: "no document", mutate: func(c *models.Chunk) { c.DocumentRef = "" }},
		{name: "no id", mutate: func(c *models.Chunk) { c.ID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := good
			tt.mutate(&c)
			err := ValidateChunks([]models.Chunk{c}, space)
			switch {
			case tt.name == "valid" && err != nil:
				t.Errorf("ValidateChunks() = %v", err)
			case tt.name != "valid" && err == nil:
				t.Error("ValidateChunks() should fail")
			case tt.wantErr != nil && !errors.Is(err, tt.wantErr):
				t.Errorf("ValidateChunks() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRank(t *testing.T) {
	hit := func(score float64, seq int, insert int64) models.ScoredChunk {
		return models.ScoredChunk{
			Chunk: models.Chunk{SequenceIndex: seq, InsertSeq: insert},
			Score: score,
		}
	}
	hits := []models.ScoredChunk{
		hit(0.5, 2, 1),
		hit(0.9, 5, 2),
		hit(0.5, 1, 9),
		hit(0.5, 1, 3),
		hit(0.1, 0, 4),
	}

	got := Rank(hits, 4)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	want := []struct {
		seq    int
		insert int64
	}{{5, 2}, {1, 3}, {1, 9}, {2, 1}}
	for i, w := range want {
		if got[i].SequenceIndex != w.seq || got[i].InsertSeq != w.insert {
			t.Errorf("position %d = (seq %d, insert %d), want (%d, %d)",
				i, got[i].SequenceIndex, got[i].InsertSeq, w.seq, w.insert)
		}
	}

	if len(Rank(nil, 3)) != 0 {
		t.Error("Rank(nil) should be empty")
	}
}
