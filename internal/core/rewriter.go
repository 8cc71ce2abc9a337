// ABOUTME: Rewriter turns a follow-up question into a standalone query using recent history
// ABOUTME: Falls back to the original query on any failure so the turn can continue
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harper/docchat/internal/models"
)

const (
	DefaultRewriteWindow  = 6
	DefaultRewriteTimeout = 10 * time.Second
)

var errEmptyRewrite = errors.New("rewrite produced an empty query")

// Rewriter resolves references in a query against a bounded window of history.
type Rewriter struct {
	completer Completer
	window    int
	timeout   time.Duration
}

// RewriterOption configures a Rewriter.
type RewriterOption func(*Rewriter)

// WithRewriteWindow bounds how many recent history entries the rewriter sees.
func WithRewriteWindow(n int) RewriterOption {
	return func(r *Rewriter) {
		if n >= 0 {
			r.window = n
		}
	}
}

// WithRewriteTimeout bounds the rewrite completion call.
func WithRewriteTimeout(d time.Duration) RewriterOption {
	return func(r *Rewriter) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRewriter creates a Rewriter. A nil completer disables rewriting.
func NewRewriter(completer Completer, opts ...RewriterOption) *Rewriter {
	r := &Rewriter{
		completer: completer,
		window:    DefaultRewriteWindow,
		timeout:   DefaultRewriteTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Window returns the number of history entries the rewriter considers.
func (r *Rewriter) Window() int { return r.window }

// Rewrite returns a standalone form of query. The returned string is always
// usable: on failure it is query itself and the error describes what went wrong.
func (r *Rewriter) Rewrite(ctx context.Context, history []models.HistoryEntry, query string) (string, error) {
	if len(history) == 0 || r.window == 0 || r.completer == nil {
		return query, nil
	}
	if len(history) > r.window {
		history = history[len(history)-r.window:]
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.completer.Complete(ctx, rewriteMessages(history, query), models.CompletionOptions{Temperature: 0})
	if err != nil {
		return query, err
	}
	standalone := cleanRewrite(out)
	if standalone == "" {
		return query, errEmptyRewrite
	}
	return standalone, nil
}

func rewriteMessages(history []models.HistoryEntry, query string) []models.Message {
	var b strings.Builder
	b.WriteString("Conversation:\n")
	for _, e := range history {
		speaker := "User"
		if e.Role == models.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, e.Content)
	}
	fmt.Fprintf(&b, "\nFollow-up question: %s\n\nStandalone question:", query)

	return []models.Message{
		{Role: models.RoleSystem, Content: rewriteSystemPrompt},
		{Role: models.RoleUser, Content: b.String()},
	}
}

// cleanRewrite strips labels and quoting models tend to add around the question.
func cleanRewrite(out string) string {
	s := strings.TrimSpace(out)
	for _, prefix := range []string{"Standalone question:", "Rewritten question:", "Question:"} {
		if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			s = strings.TrimSpace(s[len(prefix):])
		}
	}
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
