// ABOUTME: Capability interfaces for the remote or local models the core calls
// ABOUTME: Any provider satisfying these can back embedding, rewriting and generation
package core

import (
	"context"

	"github.com/harper/docchat/internal/models"
)

// Embedder maps text to vectors of one fixed embedding space.
// EmbedMany has the same per-item result as calling Embed for each text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	Space(ctx context.Context) (models.EmbeddingSpace, error)
}

// Completer produces the next assistant message for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []models.Message, opts models.CompletionOptions) (string, error)
}
