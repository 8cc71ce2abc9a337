// ABOUTME: Chunk is an indexed fragment of an ingested document
// ABOUTME: Chunk IDs are derived from session, document and position so re-ingestion is stable
package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

var chunkNamespace = uuid.MustParse("6f1b2a8e-3c4d-5e6f-8a9b-0c1d2e3f4a5b")

// Chunk is one embedded piece of a document, owned by exactly one session.
type Chunk struct {
	ID            string    `json:"id"`
	SessionID     SessionID `json:"session_id"`
	DocumentRef   string    `json:"document_ref"`
	DocumentName  string    `json:"document_name,omitempty"`
	SequenceIndex int       `json:"sequence_index"`
	Text          string    `json:"text"`
	Embedding     []float32 `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	// InsertSeq is the index's insertion order, used as the last ranking tie-break.
	InsertSeq int64 `json:"-"`
}

// ChunkID returns the deterministic identifier of a document chunk.
func ChunkID(session SessionID, documentRef string, sequenceIndex int) string {
	key := session.String() + "\x00" + documentRef + "\x00" + strconv.Itoa(sequenceIndex)
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}

// ScoredChunk is a search hit with its cosine similarity to the query.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// DocumentInfo summarizes one ingested document within a session.
type DocumentInfo struct {
	DocumentRef  string    `json:"document_ref" yaml:"document_ref"`
	DocumentName string    `json:"document_name,omitempty" yaml:"document_name,omitempty"`
	Chunks       int       `json:"chunks" yaml:"chunks"`
	IngestedAt   time.Time `json:"ingested_at" yaml:"ingested_at"`
}
