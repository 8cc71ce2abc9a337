// ABOUTME: Vector index backed by chromem-go with one collection per session
// ABOUTME: Sessions are isolated structurally; a search only ever opens its own collection
package chromem

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harper/docchat/internal/models"
	"github.com/harper/docchat/internal/storage"
	chromem "github.com/philippgille/chromem-go"
)

const (
	metaCollection = "docchat_index_meta"
	spaceDocID     = "embedding_space"
	sessionPrefix  = "session:"

	keyDocumentRef  = "document_ref"
	keyDocumentName = "document_name"
	keySequence     = "sequence_index"
	keyInsertSeq    = "insert_seq"
	keyCreatedAt    = "created_at"
	keyModel        = "model"
	keyDimension    = "dimension"
)

// Index is a storage.VectorIndex on a chromem-go database.
// Writers hold the lock exclusively so a replaced document is never half visible.
type Index struct {
	mu        sync.RWMutex
	db        *chromem.DB
	insertSeq atomic.Int64
}

var _ storage.VectorIndex = (*Index)(nil)

// New opens a persistent index under dir, or an in-memory one when dir is empty
func New(dir string) (*Index, error) {
	if dir == "" {
		return NewWithDB(chromem.NewDB()), nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create vector index dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vector index: %w", err)
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an existing chromem database
func NewWithDB(db *chromem.DB) *Index {
	idx := &Index{db: db}
	idx.insertSeq.Store(time.Now().UnixNano())
	return idx
}

func collectionName(session models.SessionID) string {
	return sessionPrefix + session.String()
}

// noEmbedding guards against chromem embedding text itself; every vector is supplied.
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("chromem index does not embed text")
}

func (i *Index) space(ctx context.Context) (models.EmbeddingSpace, bool, error) {
	col := i.db.GetCollection(metaCollection, noEmbedding)
	if col == nil || col.Count() == 0 {
		return models.EmbeddingSpace{}, false, nil
	}
	doc, err := col.GetByID(ctx, spaceDocID)
	if err != nil {
		return models.EmbeddingSpace{}, false, fmt.Errorf("failed to read embedding space: %w", err)
	}
	dim, err := strconv.Atoi(doc.Metadata[keyDimension])
	if err != nil {
		return models.EmbeddingSpace{}, false, fmt.Errorf("corrupt embedding space dimension: %w", err)
	}
	return models.EmbeddingSpace{Model: doc.Metadata[keyModel], Dimension: dim}, true, nil
}

// EmbeddingSpace returns the space recorded for this index, if any
func (i *Index) EmbeddingSpace(ctx context.Context) (models.EmbeddingSpace, bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.space(ctx)
}

// EnsureEmbeddingSpace binds the index to space or verifies it matches
func (i *Index) EnsureEmbeddingSpace(ctx context.Context, space models.EmbeddingSpace) error {
	if err := space.Validate(); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	stored, ok, err := i.space(ctx)
	if err != nil {
		return err
	}
	if ok {
		return storage.CheckSpace(stored, space)
	}

	col, err := i.db.GetOrCreateCollection(metaCollection, nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("failed to create meta collection: %w", err)
	}
	return col.AddDocument(ctx, chromem.Document{
		ID:        spaceDocID,
		Content:   space.String(),
		Embedding: []float32{1},
		Metadata: map[string]string{
			keyModel:     space.Model,
			keyDimension: strconv.Itoa(space.Dimension),
		},
	})
}

// Upsert replaces the documents in chunks and adds the new chunks.
// Everything is validated before the first write; a failed write removes what it added.
func (i *Index) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	space, ok, err := i.space(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrEmbeddingSpaceUnset
	}
	if err := storage.ValidateChunks(chunks, space); err != nil {
		return err
	}

	bySession := make(map[models.SessionID][]chromem.Document)
	refs := make(map[models.SessionID]map[string]bool)
	now := time.Now().UTC()
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		bySession[c.SessionID] = append(bySession[c.SessionID], chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Embedding: append([]float32(nil), c.Embedding...),
			Metadata: map[string]string{
				keyDocumentRef:  c.DocumentRef,
				keyDocumentName: c.DocumentName,
				keySequence:     strconv.Itoa(c.SequenceIndex),
				keyInsertSeq:    strconv.FormatInt(i.insertSeq.Add(1), 10),
				keyCreatedAt:    createdAt.Format(time.RFC3339Nano),
			},
		})
		if refs[c.SessionID] == nil {
			refs[c.SessionID] = make(map[string]bool)
		}
		refs[c.SessionID][c.DocumentRef] = true
	}

	for session, docs := range bySession {
		col, err := i.db.GetOrCreateCollection(collectionName(session), nil, noEmbedding)
		if err != nil {
			return fmt.Errorf("failed to open session collection: %w", err)
		}
		for ref := range refs[session] {
			if err := deleteWhere(ctx, col, map[string]string{keyDocumentRef: ref}); err != nil {
				return fmt.Errorf("failed to replace document %s: %w", ref, err)
			}
		}
		if err := col.AddDocuments(ctx, docs, 1); err != nil {
			ids := make([]string, len(docs))
			for j, d := range docs {
				ids[j] = d.ID
			}
			_ = col.Delete(ctx, nil, nil, ids...)
			return fmt.Errorf("failed to add chunks: %w", err)
		}
	}
	return nil
}

func deleteWhere(ctx context.Context, col *chromem.Collection, where map[string]string) error {
	if col.Count() == 0 {
		return nil
	}
	return col.Delete(ctx, where, nil)
}

// Search returns the k chunks of session most similar to query
func (i *Index) Search(ctx context.Context, session models.SessionID, query []float32, k int) ([]models.ScoredChunk, error) {
	if err := storage.CheckScope(session); err != nil {
		return nil, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	space, ok, err := i.space(ctx)
	if err != nil {
		return nil, err
	}
	if !ok || k <= 0 {
		return []models.ScoredChunk{}, nil
	}
	if err := storage.ValidateQuery(session, query, space); err != nil {
		return nil, err
	}

	col := i.db.GetCollection(collectionName(session), noEmbedding)
	if col == nil || col.Count() == 0 {
		return []models.ScoredChunk{}, nil
	}

	// chromem scans exhaustively anyway; taking every row lets Rank break ties at the k boundary.
	results, err := col.QueryEmbedding(ctx, query, col.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query session collection: %w", err)
	}

	hits := make([]models.ScoredChunk, 0, len(results))
	for _, r := range results {
		chunk, err := chunkFromMetadata(session, r.ID, r.Content, r.Metadata)
		if err != nil {
			return nil, err
		}
		score := float64(r.Similarity)
		// chromem normalizes a zero vector to NaN; score it like the other backends.
		if math.IsNaN(score) {
			score = 0
		}
		hits = append(hits, models.ScoredChunk{Chunk: chunk, Score: score})
	}
	return storage.Rank(hits, k), nil
}

func chunkFromMetadata(session models.SessionID, id, content string, meta map[string]string) (models.Chunk, error) {
	seq, err := strconv.Atoi(meta[keySequence])
	if err != nil {
		return models.Chunk{}, fmt.Errorf("chunk %s: bad sequence index: %w", id, err)
	}
	insertSeq, _ := strconv.ParseInt(meta[keyInsertSeq], 10, 64)
	createdAt, _ := time.Parse(time.RFC3339Nano, meta[keyCreatedAt])
	return models.Chunk{
		ID:            id,
		SessionID:     session,
		DocumentRef:   meta[keyDocumentRef],
		DocumentName:  meta[keyDocumentName],
		SequenceIndex: seq,
		Text:          content,
		CreatedAt:     createdAt,
		InsertSeq:     insertSeq,
	}, nil
}

// all returns every chunk of a session's collection
func (i *Index) all(ctx context.Context, session models.SessionID) ([]models.Chunk, error) {
	col := i.db.GetCollection(collectionName(session), noEmbedding)
	if col == nil || col.Count() == 0 {
		return nil, nil
	}
	space, ok, err := i.space(ctx)
	if err != nil || !ok {
		return nil, err
	}
	probe := make([]float32, space.Dimension)
	probe[0] = 1
	results, err := col.QueryEmbedding(ctx, probe, col.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to scan session collection: %w", err)
	}
	chunks := make([]models.Chunk, 0, len(results))
	for _, r := range results {
		c, err := chunkFromMetadata(session, r.ID, r.Content, r.Metadata)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// ListDocuments summarizes the documents ingested into a session
func (i *Index) ListDocuments(ctx context.Context, session models.SessionID) ([]models.DocumentInfo, error) {
	if err := storage.CheckScope(session); err != nil {
		return nil, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	chunks, err := i.all(ctx, session)
	if err != nil {
		return nil, err
	}

	type docAgg struct {
		info  models.DocumentInfo
		first int64
	}
	byRef := make(map[string]*docAgg)
	for _, c := range chunks {
		agg, ok := byRef[c.DocumentRef]
		if !ok {
			agg = &docAgg{info: models.DocumentInfo{DocumentRef: c.DocumentRef, DocumentName: c.DocumentName, IngestedAt: c.CreatedAt}, first: c.InsertSeq}
			byRef[c.DocumentRef] = agg
		}
		agg.info.Chunks++
		if c.InsertSeq < agg.first {
			agg.first = c.InsertSeq
		}
		if c.CreatedAt.Before(agg.info.IngestedAt) {
			agg.info.IngestedAt = c.CreatedAt
		}
	}

	aggs := make([]*docAgg, 0, len(byRef))
	for _, a := range byRef {
		aggs = append(aggs, a)
	}
	slices.SortFunc(aggs, func(a, b *docAgg) int { return cmp.Compare(a.first, b.first) })

	docs := make([]models.DocumentInfo, len(aggs))
	for j, a := range aggs {
		docs[j] = a.info
	}
	return docs, nil
}

// DeleteDocument removes every chunk of one document
func (i *Index) DeleteDocument(ctx context.Context, session models.SessionID, documentRef string) (int, error) {
	if err := storage.CheckScope(session); err != nil {
		return 0, err
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	col := i.db.GetCollection(collectionName(session), noEmbedding)
	if col == nil {
		return 0, nil
	}
	before := col.Count()
	if err := deleteWhere(ctx, col, map[string]string{keyDocumentRef: documentRef}); err != nil {
		return 0, fmt.Errorf("failed to delete document: %w", err)
	}
	return before - col.Count(), nil
}

// DeleteSession drops the session's collection
func (i *Index) DeleteSession(ctx context.Context, session models.SessionID) (int, error) {
	if err := storage.CheckScope(session); err != nil {
		return 0, err
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	col := i.db.GetCollection(collectionName(session), noEmbedding)
	if col == nil {
		return 0, nil
	}
	n := col.Count()
	if err := i.db.DeleteCollection(collectionName(session)); err != nil {
		return 0, fmt.Errorf("failed to delete session collection: %w", err)
	}
	return n, nil
}

// Close is a no-op; chromem persists each write as it happens
func (i *Index) Close() error {
	return nil
}
