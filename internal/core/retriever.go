// ABOUTME: Retriever embeds a standalone query and searches one session's chunks
// ABOUTME: Distinguishes a session with no documents from one with no relevant passages
package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/harper/docchat/internal/models"
	"github.com/harper/docchat/internal/storage"
)

const (
	DefaultTopK         = 4
	DefaultEmbedTimeout = 30 * time.Second
)

// ContextStatus describes what retrieval found for a query.
type ContextStatus string

const (
	// ContextNone means the session has no indexed chunks.
	ContextNone ContextStatus = "none"
	// ContextBelowThreshold means chunks exist but none scored at or above the cutoff.
	ContextBelowThreshold ContextStatus = "below_threshold"
	// ContextFound means at least one passage was retrieved.
	ContextFound ContextStatus = "found"
)

// Source is one retrieved passage with its provenance.
type Source struct {
	Text          string  `json:"text"`
	DocumentRef   string  `json:"document_ref"`
	DocumentName  string  `json:"document_name,omitempty"`
	SequenceIndex int     `json:"sequence_index"`
	Score         float64 `json:"score"`
}

// Retrieval is the outcome of one search.
type Retrieval struct {
	Query   string        `json:"query"`
	Status  ContextStatus `json:"status"`
	Sources []Source      `json:"sources"`
}

// Retriever composes an Embedder with a VectorIndex.
type Retriever struct {
	embedder Embedder
	index    storage.VectorIndex
	k        int
	minScore float64
	timeout  time.Duration

	spaceChecked atomic.Bool
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithTopK sets how many passages are retrieved.
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.k = k
		}
	}
}

// WithMinScore drops passages scoring below score. Zero disables the cutoff.
func WithMinScore(score float64) RetrieverOption {
	return func(r *Retriever) { r.minScore = score }
}

// WithEmbedTimeout bounds the query embedding call.
func WithEmbedTimeout(d time.Duration) RetrieverOption {
	return func(r *Retriever) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder Embedder, index storage.VectorIndex, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		embedder: embedder,
		index:    index,
		k:        DefaultTopK,
		timeout:  DefaultEmbedTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TopK returns the number of passages requested per search.
func (r *Retriever) TopK() int { return r.k }

// Retrieve returns the passages of session most similar to query.
// A session with no chunks yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, session models.SessionID, query string) (Retrieval, error) {
	if err := storage.CheckScope(session); err != nil {
		return Retrieval{}, err
	}
	if err := r.checkSpace(ctx); err != nil {
		return Retrieval{}, err
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.timeout)
	vector, err := r.embedder.Embed(embedCtx, query)
	cancel()
	if err != nil {
		return Retrieval{}, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := r.index.Search(ctx, session, vector, r.k)
	if err != nil {
		return Retrieval{}, fmt.Errorf("failed to search index: %w", err)
	}

	result := Retrieval{Query: query, Status: ContextNone, Sources: []Source{}}
	if len(hits) == 0 {
		return result, nil
	}

	for _, h := range hits {
		if r.minScore > 0 && !(h.Score >= r.minScore) {
			continue
		}
		result.Sources = append(result.Sources, Source{
			Text:          h.Text,
			DocumentRef:   h.DocumentRef,
			DocumentName:  h.DocumentName,
			SequenceIndex: h.SequenceIndex,
			Score:         h.Score,
		})
	}
	if len(result.Sources) == 0 {
		result.Status = ContextBelowThreshold
	} else {
		result.Status = ContextFound
	}
	return result, nil
}

// checkSpace verifies the embedder matches the space the index was built with.
// An index with no recorded space stays unpinned; ingestion records it.
func (r *Retriever) checkSpace(ctx context.Context) error {
	if r.spaceChecked.Load() {
		return nil
	}
	stored, ok, err := r.index.EmbeddingSpace(ctx)
	if err != nil {
		return fmt.Errorf("failed to read index embedding space: %w", err)
	}
	if !ok {
		return nil
	}
	space, err := r.embedder.Space(ctx)
	if err != nil {
		return fmt.Errorf("failed to determine embedding space: %w", err)
	}
	if err := storage.CheckSpace(stored, space); err != nil {
		return err
	}
	r.spaceChecked.Store(true)
	return nil
}
