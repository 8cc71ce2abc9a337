// ABOUTME: Tests for the Ollama client configuration
// ABOUTME: Construction does not contact the server, so no daemon is needed
package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewOllamaClient_RequiresModels(t *testing.T) {
	_, err := NewOllamaClient(OllamaConfig{ChatModel: "llama3.2"})
	assert.Error(t, err)
	_, err = NewOllamaClient(OllamaConfig{EmbeddingModel: "nomic-embed-text"})
	assert.Error(t, err)
}

func TestNewOllamaClient_RetryPolicy(t *testing.T) {
	c, err := NewOllamaClient(OllamaConfig{
		Host:           "http://127.0.0.1:11434",
		ChatModel:      "llama3.2",
		EmbeddingModel: "nomic-embed-text",
		MaxRetries:     2,
		RetryDelay:     10 * time.Millisecond,
		RateLimit:      3,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, c.retry.maxRetries)
	assert.Equal(t, 60*time.Second, c.retry.timeout)
	require.NotNil(t, c.retry.limiter)
	assert.Equal(t, rate.Limit(3), c.retry.limiter.Limit())

	unlimited, err := NewOllamaClient(OllamaConfig{ChatModel: "llama3.2", EmbeddingModel: "nomic-embed-text"})
	require.NoError(t, err)
	assert.Nil(t, unlimited.retry.limiter)
}
