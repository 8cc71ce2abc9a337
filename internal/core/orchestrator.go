// ABOUTME: Orchestrator runs one chat turn through rewrite, retrieval, generation and persistence
// ABOUTME: Each step receives the turn so far and returns the next value; nothing is shared between turns
package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/docchat/internal/logging"
	"github.com/harper/docchat/internal/models"
	"github.com/harper/docchat/internal/storage"
)

const (
	DefaultHistoryWindow  = 10
	DefaultPersistTimeout = 10 * time.Second
)

// TurnState is a position in the chat turn state machine.
type TurnState int

const (
	StateReceived TurnState = iota
	StateRewritten
	StateRetrieved
	StateGenerated
	StatePersisted
	StateComplete
	StateFailed
)

func (s TurnState) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateRewritten:
		return "rewritten"
	case StateRetrieved:
		return "retrieved"
	case StateGenerated:
		return "generated"
	case StatePersisted:
		return "persisted"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChatResult is what a completed turn returns to the caller.
type ChatResult struct {
	SessionID       string        `json:"session_id"`
	Query           string        `json:"query"`
	StandaloneQuery string        `json:"standalone_query"`
	Rewritten       bool          `json:"rewritten"`
	Answer          string        `json:"answer"`
	ContextStatus   ContextStatus `json:"context_status"`
	Sources         []Source      `json:"sources"`
	Persisted       bool          `json:"persisted"`
	// PersistErr is set when the answer could not be recorded in history.
	PersistErr error         `json:"-"`
	Duration   time.Duration `json:"duration"`
}

// turn is the per-turn context handed from step to step by value.
type turn struct {
	state      TurnState
	session    models.SessionID
	query      string
	history    []models.HistoryEntry
	standalone string
	rewritten  bool
	retrieval  Retrieval
	answer     string
	started    time.Time
}

type stepFunc func(ctx context.Context, t turn) (turn, error)

// Orchestrator coordinates the chat path for any number of concurrent sessions.
type Orchestrator struct {
	*Sessions
	rewriter       *Rewriter
	retriever      *Retriever
	generator      *Generator
	historyWindow  int
	persistTimeout time.Duration
	logger         *log.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithHistoryWindow bounds how many recent entries the generator sees.
func WithHistoryWindow(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.historyWindow = n
		}
	}
}

// WithPersistTimeout bounds the history append after generation.
func WithPersistTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.persistTimeout = d
		}
	}
}

// WithLogger sets the logger; turns log under the "orchestrator" prefix.
func WithLogger(l *log.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logging.Component(l, "orchestrator")
		o.Sessions.WithSessionsLogger(l)
	}
}

// NewOrchestrator wires the chat path components together.
func NewOrchestrator(history storage.HistoryStore, index storage.VectorIndex, rewriter *Rewriter, retriever *Retriever, generator *Generator, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		Sessions:       NewSessions(history, index),
		rewriter:       rewriter,
		retriever:      retriever,
		generator:      generator,
		historyWindow:  DefaultHistoryWindow,
		persistTimeout: DefaultPersistTimeout,
		logger:         logging.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Chat answers query within session and records the exchange.
// Errors are *Error values; a persistence failure is reported on the result instead.
func (o *Orchestrator) Chat(ctx context.Context, sessionID, query string) (*ChatResult, error) {
	t, err := o.receive(sessionID, query)
	if err != nil {
		o.logger.Warn("turn rejected", "session", sessionID, "err", err)
		return nil, err
	}

	steps := []struct {
		state TurnState
		run   stepFunc
	}{
		{StateRewritten, o.rewrite},
		{StateRetrieved, o.retrieve},
		{StateGenerated, o.generate},
	}
	for _, step := range steps {
		started := time.Now()
		next, err := step.run(ctx, t)
		if err != nil {
			o.logger.Error("turn failed",
				"session", t.session, "state", StateFailed, "step", step.state,
				"duration", time.Since(started), "err", err)
			return nil, err
		}
		next.state = step.state
		o.logger.Debug("turn step", "session", t.session, "state", next.state, "duration", time.Since(started))
		t = next
	}

	t, persistErr := o.persist(ctx, t)
	result := &ChatResult{
		SessionID:       t.session.String(),
		Query:           t.query,
		StandaloneQuery: t.standalone,
		Rewritten:       t.rewritten,
		Answer:          t.answer,
		ContextStatus:   t.retrieval.Status,
		Sources:         t.retrieval.Sources,
		Persisted:       t.state == StatePersisted,
		Duration:        time.Since(t.started),
	}
	if persistErr != nil {
		result.PersistErr = persistErr
	}

	o.logger.Info("turn complete",
		"session", t.session, "state", StateComplete, "rewritten", t.rewritten,
		"context", t.retrieval.Status, "sources", len(t.retrieval.Sources),
		"persisted", result.Persisted, "duration", result.Duration)
	return result, nil
}

// receive validates input before any side effect.
func (o *Orchestrator) receive(sessionID, query string) (turn, error) {
	session, err := models.ParseSessionID(sessionID)
	if err != nil {
		return turn{}, newError(KindValidation, sessionID, StateReceived.String(), err, "")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return turn{}, newError(KindValidation, sessionID, StateReceived.String(), errors.New("query is required"), "")
	}
	return turn{state: StateReceived, session: session, query: query, started: time.Now()}, nil
}

func (o *Orchestrator) rewrite(ctx context.Context, t turn) (turn, error) {
	// Zero means no history is wanted, not all of it.
	if limit := max(o.rewriter.Window(), o.historyWindow); limit > 0 {
		history, err := o.history.Read(ctx, t.session, limit)
		if err != nil {
			return t, newError(KindRetrieval, t.session.String(), StateRewritten.String(), err, "read history")
		}
		t.history = history
	}

	standalone, err := o.rewriter.Rewrite(ctx, t.history, t.query)
	if err != nil {
		rerr := newError(KindRewrite, t.session.String(), StateRewritten.String(), err, "")
		o.logger.Warn("rewrite failed, using original query", "session", t.session, "err", rerr)
	}
	t.standalone = standalone
	t.rewritten = standalone != t.query
	return t, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, t turn) (turn, error) {
	retrieval, err := o.retriever.Retrieve(ctx, t.session, t.standalone)
	if err != nil {
		kind := KindRetrieval
		if errors.Is(err, storage.ErrDimensionMismatch) || errors.Is(err, storage.ErrEmbeddingSpaceMismatch) {
			kind = KindConfig
		}
		return t, newError(kind, t.session.String(), StateRetrieved.String(), err, "retrieve context")
	}
	t.retrieval = retrieval
	return t, nil
}

func (o *Orchestrator) generate(ctx context.Context, t turn) (turn, error) {
	history := t.history
	if len(history) > o.historyWindow {
		history = history[len(history)-o.historyWindow:]
	}
	answer, err := o.generator.Generate(ctx, GenerationInput{
		Query:           t.query,
		StandaloneQuery: t.standalone,
		Retrieval:       t.retrieval,
		History:         history,
	})
	if err != nil {
		return t, newError(KindGeneration, t.session.String(), StateGenerated.String(), err, "generate answer")
	}
	t.answer = answer
	return t, nil
}

// persist records the exchange, ignoring cancellation of ctx.
func (o *Orchestrator) persist(ctx context.Context, t turn) (turn, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.persistTimeout)
	defer cancel()

	started := time.Now()
	if _, err := o.history.AppendTurn(ctx, t.session, t.query, t.answer); err != nil {
		perr := newError(KindPersistence, t.session.String(), StatePersisted.String(), err, "append turn")
		o.logger.Warn("turn not recorded; next turn will not see it", "session", t.session, "err", perr)
		return t, perr
	}
	t.state = StatePersisted
	o.logger.Debug("turn step", "session", t.session, "state", t.state, "duration", time.Since(started))
	return t, nil
}
