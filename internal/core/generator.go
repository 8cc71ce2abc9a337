// ABOUTME: Generator produces the assistant's answer from retrieved passages and history
// ABOUTME: Chooses an explicit policy when no documents or no relevant passages exist
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harper/docchat/internal/models"
)

const DefaultGenerationTimeout = 60 * time.Second

var errEmptyAnswer = errors.New("model returned an empty answer")

// GenerationInput is everything the Generator sees for one turn.
type GenerationInput struct {
	Query           string
	StandaloneQuery string
	Retrieval       Retrieval
	History         []models.HistoryEntry
}

// Generator wraps a Completer with the grounding prompt policy.
type Generator struct {
	completer Completer
	timeout   time.Duration
	options   models.CompletionOptions
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGenerationTimeout bounds the completion call.
func WithGenerationTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithCompletionOptions sets temperature and token limits.
func WithCompletionOptions(opts models.CompletionOptions) GeneratorOption {
	return func(g *Generator) { g.options = opts }
}

// NewGenerator creates a Generator.
func NewGenerator(completer Completer, opts ...GeneratorOption) *Generator {
	g := &Generator{
		completer: completer,
		timeout:   DefaultGenerationTimeout,
		options:   models.CompletionOptions{Temperature: 0.2},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a non-empty answer or an error.
func (g *Generator) Generate(ctx context.Context, in GenerationInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	answer, err := g.completer.Complete(ctx, generationMessages(in), g.options)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errEmptyAnswer
	}
	return answer, nil
}

func generationMessages(in GenerationInput) []models.Message {
	// 1. System prompt chosen by what retrieval found
	var system string
	switch in.Retrieval.Status {
	case ContextFound:
		system = groundedSystemPrompt + "\n\nContext:\n" + formatSources(in.Retrieval.Sources)
	case ContextBelowThreshold:
		system = noRelevantContextSystemPrompt
	default:
		system = noDocumentsSystemPrompt
	}

	msgs := []models.Message{{Role: models.RoleSystem, Content: system}}

	// 2. Conversation so far
	msgs = append(msgs, models.MessagesFromHistory(in.History)...)

	// 3. The question as asked, with its resolved form when rewriting changed it
	question := in.Query
	if in.StandaloneQuery != "" && in.StandaloneQuery != in.Query {
		question = fmt.Sprintf("%s\n\n(Interpreted as: %s)", in.Query, in.StandaloneQuery)
	}
	return append(msgs, models.Message{Role: models.RoleUser, Content: question})
}

func formatSources(sources []Source) string {
	var b strings.Builder
	for i, s := range sources {
		name := s.DocumentName
		if name == "" {
			name = s.DocumentRef
		}
		fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, name, s.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
