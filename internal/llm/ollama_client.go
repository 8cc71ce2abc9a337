// ABOUTME: Ollama client for local embeddings and chat completions via langchaingo
// ABOUTME: The embedding dimension is probed on first use since local models vary
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/docchat/internal/logging"
	"github.com/harper/docchat/internal/models"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaConfig holds configuration for the Ollama client
type OllamaConfig struct {
	Host           string
	ChatModel      string
	EmbeddingModel string
	MaxRetries     int
	RetryDelay     time.Duration
	Timeout        time.Duration
	// RateLimit caps requests per second; zero means unlimited.
	RateLimit float64
	Logger    *log.Logger
}

// OllamaClient talks to a local Ollama server
type OllamaClient struct {
	chat           *ollama.LLM
	embedder       *embeddings.EmbedderImpl
	embeddingModel string
	retry          retryPolicy

	mu        sync.Mutex
	dimension int
}

// NewOllamaClient creates a client for the chat and embedding models on host
func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	if cfg.ChatModel == "" || cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("ollama chat and embedding models are required")
	}

	chatOpts := []ollama.Option{ollama.WithModel(cfg.ChatModel)}
	embedOpts := []ollama.Option{ollama.WithModel(cfg.EmbeddingModel)}
	if cfg.Host != "" {
		chatOpts = append(chatOpts, ollama.WithServerURL(cfg.Host))
		embedOpts = append(embedOpts, ollama.WithServerURL(cfg.Host))
	}

	chat, err := ollama.New(chatOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama chat client: %w", err)
	}
	embedLLM, err := ollama.New(embedOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(embedLLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama embedder: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OllamaClient{
		chat:           chat,
		embedder:       embedder,
		embeddingModel: cfg.EmbeddingModel,
		retry: retryPolicy{
			maxRetries: cfg.MaxRetries,
			retryDelay: cfg.RetryDelay,
			timeout:    timeout,
			limiter:    newLimiter(cfg.RateLimit),
			logger:     logging.Component(cfg.Logger, "llm"),
		},
	}, nil
}

// Space returns the embedding model and its probed dimension
func (c *OllamaClient) Space(ctx context.Context) (models.EmbeddingSpace, error) {
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
	return models.EmbeddingSpace{Model: "ollama/" + c.embeddingModel, Dimension: dim}, nil
}

// Embed generates one embedding vector
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := c.retry.do(ctx, "generate embedding", func(ctx context.Context) error {
		v, err := c.embedder.EmbedQuery(ctx, text)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return fmt.Errorf("empty embedding returned")
		}
		vec = v
		return nil
	})
	return vec, err
}

// EmbedMany generates embeddings for texts in input order
func (c *OllamaClient) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	var vectors [][]float32
	err := c.retry.do(ctx, "generate embeddings", func(ctx context.Context) error {
		vs, err := c.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return err
		}
		if len(vs) != len(texts) {
			return fmt.Errorf("got %d embeddings for %d inputs", len(vs), len(texts))
		}
		vectors = vs
		return nil
	})
	return vectors, err
}

// Complete sends a conversation to the chat model and returns the reply text
func (c *OllamaClient) Complete(ctx context.Context, messages []models.Message, opts models.CompletionOptions) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(langchainRole(m.Role), m.Content))
	}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	var reply string
	err := c.retry.do(ctx, "complete chat", func(ctx context.Context) error {
		resp, err := c.chat.GenerateContent(ctx, content, callOpts...)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no completion choices returned")
		}
		reply = resp.Choices[0].Content
		return nil
	})
	return reply, err
}

func langchainRole(r models.Role) llms.ChatMessageType {
	switch r {
	case models.RoleSystem:
		return llms.ChatMessageTypeSystem
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
