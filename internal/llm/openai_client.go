// ABOUTME: OpenAI client for embeddings and chat completions
// ABOUTME: Uses text-embedding-3-small for embeddings, gpt-4o-mini for answers and rewrites (configurable)
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/docchat/internal/logging"
	"github.com/harper/docchat/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
)

// knownDimensions lists output sizes of OpenAI embedding models.
var knownDimensions = map[openai.EmbeddingModel]int{
	openai.SmallEmbedding3: 1536,
	openai.LargeEmbedding3: 3072,
	openai.AdaEmbeddingV2:  1536,
}

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel openai.EmbeddingModel
	MaxRetries     int
	RetryDelay     time.Duration
	Timeout        time.Duration
	// RateLimit caps requests per second; zero means unlimited.
	RateLimit float64
	Logger    *log.Logger
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:         apiKey,
		ChatModel:      DefaultChatModel,
		EmbeddingModel: DefaultEmbeddingModel,
		MaxRetries:     3,
		RetryDelay:     time.Second * 2,
		Timeout:        30 * time.Second,
	}
}

// OpenAIClient wraps the OpenAI API client with retry logic
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
	retry          retryPolicy

	mu        sync.Mutex
	dimension int
}

// NewOpenAIClient creates a new OpenAI client with the given API key using default configuration
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithConfig(DefaultConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom configuration
func NewOpenAIClientWithConfig(config *ClientConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	oaiConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		oaiConfig.BaseURL = config.BaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(oaiConfig),
		chatModel:      config.ChatModel,
		embeddingModel: config.EmbeddingModel,
		dimension:      knownDimensions[config.EmbeddingModel],
		retry: retryPolicy{
			maxRetries: config.MaxRetries,
			retryDelay: config.RetryDelay,
			timeout:    timeout,
			limiter:    newLimiter(config.RateLimit),
			permanent:  isPermanentOpenAIError,
			logger:     logging.Component(config.Logger, "llm"),
		},
	}, nil
}

// GetClient returns the underlying OpenAI client for direct use
func (c *OpenAIClient) GetClient() *openai.Client {
	return c.client
}

// Space returns the embedding model and its dimension, probing once for unknown models
func (c *OpenAIClient) Space(ctx context.Context) (models.EmbeddingSpace, error) {
	c.mu.Lock()
	dim := c.dimension
	c.mu.Unlock()

	if dim == 0 {
		v, err := c.Embed(ctx, "dimension probe")
		if err != nil {
			return models.EmbeddingSpace{}, err
		}
		dim = len(v)
		c.mu.Lock()
		c.dimension = dim
		c.mu.Unlock()
	}
	return models.EmbeddingSpace{Model: "openai/" + string(c.embeddingModel), Dimension: dim}, nil
}

// Embed generates one embedding vector
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedMany generates embeddings for texts in one request, in input order
func (c *OpenAIClient) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var vectors [][]float32
	err := c.retry.do(ctx, "generate embeddings", func(ctx context.Context) error {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts,
			Model: c.embeddingModel,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts))
		}

		sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
		vectors = make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			vectors[i] = d.Embedding
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// Complete sends a conversation to the chat model and returns the reply text
func (c *OpenAIClient) Complete(ctx context.Context, messages []models.Message, opts models.CompletionOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openAIRole(m.Role),
			Content: m.Content,
		})
	}

	var content string
	err := c.retry.do(ctx, "complete chat", func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no completion choices returned")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	return content, err
}

func openAIRole(r models.Role) string {
	switch r {
	case models.RoleSystem:
		return openai.ChatMessageRoleSystem
	case models.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

// isPermanentOpenAIError reports client errors that retrying cannot fix.
func isPermanentOpenAIError(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}
