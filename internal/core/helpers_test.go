// ABOUTME: Shared fakes and fixtures for core package tests
// ABOUTME: Builds an in-memory SQLite stack with a scripted completer and hashing embedder
package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/harper/docchat/internal/llm"
	"github.com/harper/docchat/internal/models"
	"github.com/harper/docchat/internal/storage"
	"github.com/harper/docchat/internal/storage/sqlite"
	"github.com/stretchr/testify/require"
)

const testDimension = 1024

// scriptedCompleter answers rewrite prompts with rewrite and everything else with answer.
type scriptedCompleter struct {
	rewrite func(conversation string) (string, error)
	answer  func(ctx context.Context, msgs []models.Message) (string, error)

	mu    sync.Mutex
	calls [][]models.Message
}

func (c *scriptedCompleter) Complete(ctx context.Context, msgs []models.Message, opts models.CompletionOptions) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, msgs)
	c.mu.Unlock()

	if len(msgs) == 2 && msgs[0].Content == rewriteSystemPrompt {
		if c.rewrite == nil {
			return "", errors.New("no rewrite scripted")
		}
		return c.rewrite(msgs[1].Content)
	}
	if c.answer == nil {
		return "stub answer", nil
	}
	return c.answer(ctx, msgs)
}

func (c *scriptedCompleter) rewriteCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, msgs := range c.calls {
		if len(msgs) == 2 && msgs[0].Content == rewriteSystemPrompt {
			out = append(out, msgs[1].Content)
		}
	}
	return out
}

func (c *scriptedCompleter) generationCalls() [][]models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]models.Message
	for _, msgs := range c.calls {
		if !(len(msgs) == 2 && msgs[0].Content == rewriteSystemPrompt) {
			out = append(out, msgs)
		}
	}
	return out
}

func (c *scriptedCompleter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// lastUserMessage returns the final user message content.
func lastUserMessage(msgs []models.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == models.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

// failingEmbedder reports a valid space but cannot embed.
type failingEmbedder struct {
	*llm.HashEmbedder
	err error
}

func (f failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, f.err
}

func (f failingEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, f.err
}

// shortEmbedder claims one dimension and returns vectors of another.
type shortEmbedder struct {
	*llm.HashEmbedder
}

func (s shortEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// failingHistory accepts reads but fails every append.
type failingHistory struct {
	storage.HistoryStore
	err error
}

func (f failingHistory) AppendTurn(ctx context.Context, session models.SessionID, user, assistant string) ([]models.HistoryEntry, error) {
	return nil, f.err
}

type testStack struct {
	db        *sqlite.DB
	history   *sqlite.HistoryStore
	index     *sqlite.ChunkIndex
	embedder  *llm.HashEmbedder
	completer *scriptedCompleter
	ingestor  *Ingestor
	orch      *Orchestrator
}

func newHashEmbedder(t *testing.T, dim int) *llm.HashEmbedder {
	t.Helper()
	h, err := llm.NewHashEmbedder(dim)
	require.NoError(t, err)
	return h
}

func newTestStack(t *testing.T, completer *scriptedCompleter, genOpts ...GeneratorOption) *testStack {
	t.Helper()
	db, err := sqlite.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := &testStack{
		db:        db,
		history:   sqlite.NewHistoryStore(db),
		index:     sqlite.NewChunkIndex(db),
		embedder:  newHashEmbedder(t, testDimension),
		completer: completer,
	}
	s.ingestor = NewIngestor(NewChunkEngine(), s.embedder, s.index)
	s.orch = NewOrchestrator(
		s.history,
		s.index,
		NewRewriter(completer),
		NewRetriever(s.embedder, s.index),
		NewGenerator(completer, genOpts...),
	)
	return s
}

func (s *testStack) ingest(t *testing.T, session, ref, text string) *IngestResult {
	t.Helper()
	res, err := s.ingestor.Ingest(context.Background(), Document{SessionID: session, Ref: ref, Name: ref + ".txt", Text: text})
	require.NoError(t, err)
	return res
}

// Documents about Ada Lovelace plus an unrelated distractor.
const (
	adaBio      = "Ada Lovelace was an English mathematician known for her notes on the Analytical Engine."
	adaBirth    = "Ada Lovelace was born on 10 December 1815 in London."
	distraction = "Photosynthesis converts sunlight into chemical energy inside plant leaves."
)

// adaCompleter resolves "she" to Ada Lovelace and answers from the context it is given.
func adaCompleter() *scriptedCompleter {
	return &scriptedCompleter{
		rewrite: func(conversation string) (string, error) {
			if strings.Contains(conversation, "Ada Lovelace") && strings.Contains(conversation, "When was she born?") {
				return "Standalone question: \"When was Ada Lovelace born?\"", nil
			}
			return "", errors.New("unexpected rewrite prompt")
		},
		answer: func(ctx context.Context, msgs []models.Message) (string, error) {
			system := msgs[0].Content
			question := lastUserMessage(msgs)
			switch {
			case strings.Contains(question, "born") && strings.Contains(system, "1815"):
				return "She was born on 10 December 1815.", nil
			case strings.Contains(system, "mathematician"):
				return "Ada Lovelace was an English mathematician.", nil
			default:
				return "I don't know.", nil
			}
		},
	}
}
