// ABOUTME: Tests for follow-up query rewriting
// ABOUTME: Covers the no-history fast path, window bounds, output cleanup and fallbacks
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/harper/docchat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyOf(contents ...string) []models.HistoryEntry {
	entries := make([]models.HistoryEntry, len(contents))
	for i, c := range contents {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		entries[i] = models.HistoryEntry{Position: int64(i + 1), Role: role, Content: c}
	}
	return entries
}

func TestRewriter_NoHistorySkipsModel(t *testing.T) {
	completer := &scriptedCompleter{}
	r := NewRewriter(completer)

	out, err := r.Rewrite(context.Background(), nil, "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "What is the capital of France?", out)
	assert.Zero(t, completer.callCount())
}

func TestRewriter_NilCompleterDisablesRewriting(t *testing.T) {
	r := NewRewriter(nil)
	out, err := r.Rewrite(context.Background(), historyOf("a", "b"), "and c?")
	require.NoError(t, err)
	assert.Equal(t, "and c?", out)
}

func TestRewriter_UsesRecentWindowOnly(t *testing.T) {
	var seen string
	completer := &scriptedCompleter{
		rewrite: func(conversation string) (string, error) {
			seen = conversation
			return "standalone", nil
		},
	}
	r := NewRewriter(completer, WithRewriteWindow(2))
	assert.Equal(t, 2, r.Window())

	out, err := r.Rewrite(context.Background(), historyOf("old question", "old answer", "recent question", "recent answer"), "why?")
	require.NoError(t, err)
	assert.Equal(t, "standalone", out)
	assert.NotContains(t, seen, "old question")
	assert.Contains(t, seen, "User: recent question\nAssistant: recent answer\n")
	assert.True(t, strings.HasSuffix(seen, "Follow-up question: why?\n\nStandalone question:"))
}

func TestRewriter_FallsBackOnFailure(t *testing.T) {
	modelErr := errors.New("model unavailable")
	tests := []struct {
		name    string
		rewrite func(string) (string, error)
		wantErr error
	}{
		{"model error", func(string) (string, error) { return "", modelErr }, modelErr},
		{"empty output", func(string) (string, error) { return "  \n", nil }, errEmptyRewrite},
		{"only a label", func(string) (string, error) { return "Standalone question:", nil }, errEmptyRewrite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRewriter(&scriptedCompleter{rewrite: tt.rewrite})
			out, err := r.Rewrite(context.Background(), historyOf("q", "a"), "follow up")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, "follow up", out)
		})
	}
}

func TestRewriter_Timeout(t *testing.T) {
	completer := &blockingCompleter{}
	r := NewRewriter(completer, WithRewriteTimeout(10*time.Millisecond))

	out, err := r.Rewrite(context.Background(), historyOf("q", "a"), "follow up")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "follow up", out)
}

func TestCleanRewrite(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"When was Ada Lovelace born?", "When was Ada Lovelace born?"},
		{"  When was Ada Lovelace born?\n", "When was Ada Lovelace born?"},
		{"Standalone question: When was Ada born?", "When was Ada born?"},
		{"standalone QUESTION: When was Ada born?", "When was Ada born?"},
		{"Rewritten question: \"When was Ada born?\"", "When was Ada born?"},
		{"'When was Ada born?'", "When was Ada born?"},
		{"Question: x", "x"},
		{"\"", "\""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, cleanRewrite(tt.in))
		})
	}
}

// blockingCompleter waits for its context to end.
type blockingCompleter struct{}

func (blockingCompleter) Complete(ctx context.Context, msgs []models.Message, opts models.CompletionOptions) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
