// ABOUTME: Ingestor chunks a document, embeds the chunks and indexes them for one session
// ABOUTME: A document becomes searchable all at once or not at all
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/docchat/internal/logging"
	"github.com/harper/docchat/internal/models"
	"github.com/harper/docchat/internal/storage"
	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultEmbedBatch       = 32
	DefaultEmbedConcurrency = 4
)

// Document is raw extracted text to be indexed within a session.
type Document struct {
	SessionID string
	// Ref identifies the document within the session; re-ingesting a Ref replaces it.
	Ref  string
	Name string
	Text string
}

// IngestResult reports an indexed document.
type IngestResult struct {
	SessionID    string                `json:"session_id"`
	DocumentRef  string                `json:"document_ref"`
	DocumentName string                `json:"document_name,omitempty"`
	Chunks       int                   `json:"chunks"`
	Space        models.EmbeddingSpace `json:"embedding_space"`
	Duration     time.Duration         `json:"duration"`
}

// Ingestor runs the ingest path.
type Ingestor struct {
	chunker     *ChunkEngine
	embedder    Embedder
	index       storage.VectorIndex
	batchSize   int
	concurrency int
	logger      *log.Logger
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithEmbedBatch sets how many chunks go into one embedding call.
func WithEmbedBatch(n int) IngestorOption {
	return func(in *Ingestor) {
		if n > 0 {
			in.batchSize = n
		}
	}
}

// WithEmbedConcurrency caps concurrent embedding calls per document.
func WithEmbedConcurrency(n int) IngestorOption {
	return func(in *Ingestor) {
		if n > 0 {
			in.concurrency = n
		}
	}
}

// WithIngestLogger sets the logger; ingestion logs under the "ingest" prefix.
func WithIngestLogger(l *log.Logger) IngestorOption {
	return func(in *Ingestor) { in.logger = logging.Component(l, "ingest") }
}

// NewIngestor creates an Ingestor.
func NewIngestor(chunker *ChunkEngine, embedder Embedder, index storage.VectorIndex, opts ...IngestorOption) *Ingestor {
	in := &Ingestor{
		chunker:     chunker,
		embedder:    embedder,
		index:       index,
		batchSize:   DefaultEmbedBatch,
		concurrency: DefaultEmbedConcurrency,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest indexes doc. Nothing of doc is searchable unless every chunk was indexed.
func (in *Ingestor) Ingest(ctx context.Context, doc Document) (*IngestResult, error) {
	started := time.Now()
	const step = "ingest"

	session, err := models.ParseSessionID(doc.SessionID)
	if err != nil {
		return nil, newError(KindValidation, doc.SessionID, step, err, "")
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, newError(KindValidation, doc.SessionID, step, errors.New("document text is empty"), "")
	}
	ref := strings.TrimSpace(doc.Ref)
	if ref == "" {
		ref = "doc_" + shortuuid.New()
	}

	texts := in.chunker.Collect(doc.Text)

	space, err := in.embedder.Space(ctx)
	if err != nil {
		return nil, newError(KindIndex, doc.SessionID, step, err, "determine embedding space")
	}
	if err := in.index.EnsureEmbeddingSpace(ctx, space); err != nil {
		return nil, newError(indexErrorKind(err), doc.SessionID, step, err, "check embedding space")
	}

	vectors, err := in.embedAll(ctx, texts)
	if err != nil {
		return nil, newError(KindIndex, doc.SessionID, step, err, "embed chunks")
	}

	now := time.Now().UTC()
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		if err := space.ValidateVector(vectors[i]); err != nil {
			return nil, newError(KindConfig, doc.SessionID, step,
				fmt.Errorf("%w: %v", storage.ErrDimensionMismatch, err), "embedder output")
		}
		chunks[i] = models.Chunk{
			ID:            models.ChunkID(session, ref, i),
			SessionID:     session,
			DocumentRef:   ref,
			DocumentName:  doc.Name,
			SequenceIndex: i,
			Text:          text,
			Embedding:     vectors[i],
			CreatedAt:     now,
		}
	}

	if err := in.index.Upsert(ctx, chunks); err != nil {
		return nil, newError(indexErrorKind(err), doc.SessionID, step, err, "upsert chunks")
	}

	result := &IngestResult{
		SessionID:    session.String(),
		DocumentRef:  ref,
		DocumentName: doc.Name,
		Chunks:       len(chunks),
		Space:        space,
		Duration:     time.Since(started),
	}
	in.logger.Info("document indexed",
		"session", session, "document", ref, "chunks", result.Chunks,
		"space", space, "duration", result.Duration)
	return result, nil
}

// embedAll embeds texts in batches, a bounded number at a time, keeping input order.
func (in *Ingestor) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)

	for start := 0; start < len(texts); start += in.batchSize {
		end := min(start+in.batchSize, len(texts))
		g.Go(func() error {
			batch, err := in.embedder.EmbedMany(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("batch %d-%d: got %d vectors for %d texts", start, end, len(batch), end-start)
			}
			copy(vectors[start:end], batch)
			in.logger.Debug("embedded batch", "from", start, "to", end)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func indexErrorKind(err error) Kind {
	if errors.Is(err, storage.ErrEmbeddingSpaceMismatch) || errors.Is(err, storage.ErrDimensionMismatch) {
		return KindConfig
	}
	return KindIndex
}
