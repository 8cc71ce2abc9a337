// ABOUTME: Builds stores, model providers and the core services from configuration
// ABOUTME: Providers are created on first use so history-only commands need no API key
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/harper/docchat/internal/config"
	"github.com/harper/docchat/internal/core"
	"github.com/harper/docchat/internal/llm"
	"github.com/harper/docchat/internal/logging"
	"github.com/harper/docchat/internal/storage"
	"github.com/harper/docchat/internal/storage/chromem"
	"github.com/harper/docchat/internal/storage/mysql"
	"github.com/harper/docchat/internal/storage/postgres"
	"github.com/harper/docchat/internal/storage/sqlite"
	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOllamaChatModel      = "llama3.2"
	defaultOllamaEmbeddingModel = "nomic-embed-text"
)

// App owns every long-lived dependency of a docchat process
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	History storage.HistoryStore
	Index   storage.VectorIndex

	mu           sync.Mutex
	openai       *llm.OpenAIClient
	ollama       *llm.OllamaClient
	embedder     core.Embedder
	completer    core.Completer
	orchestrator *core.Orchestrator
	ingestor     *core.Ingestor
}

// New opens the configured stores
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	a := &App{Config: cfg, Logger: logger}

	var (
		sqliteDB   *sqlite.DB
		postgresDB *postgres.DB
	)
	openSQLite := func() (*sqlite.DB, error) {
		if sqliteDB == nil {
			db, err := sqlite.Open(sqlite.DefaultDBPath(cfg.DataDir))
			if err != nil {
				return nil, err
			}
			sqliteDB = db
		}
		return sqliteDB, nil
	}
	openPostgres := func() (*postgres.DB, error) {
		if postgresDB == nil {
			db, err := postgres.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return nil, err
			}
			postgresDB = db
		}
		return postgresDB, nil
	}

	switch cfg.HistoryBackend {
	case config.BackendSQLite:
		db, err := openSQLite()
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		a.History = sqlite.NewHistoryStore(db)
	case config.BackendPostgres:
		db, err := openPostgres()
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		a.History = postgres.NewHistoryStore(db)
	case config.BackendMySQL:
		db, err := mysql.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		a.History = mysql.NewHistoryStore(db)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.HistoryBackend)
	}

	var err error
	switch cfg.VectorBackend {
	case config.BackendSQLite:
		var db *sqlite.DB
		if db, err = openSQLite(); err == nil {
			a.Index = sqlite.NewChunkIndex(db)
		}
	case config.BackendPostgres:
		var db *postgres.DB
		if db, err = openPostgres(); err == nil {
			a.Index = postgres.NewChunkIndex(db)
		}
	case config.BackendChromem:
		a.Index, err = chromem.New(filepath.Join(cfg.DataDir, "vectors"))
	default:
		err = fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
	if err != nil {
		_ = a.History.Close()
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}

	logger.Debug("stores opened", "history", cfg.HistoryBackend, "vectors", cfg.VectorBackend, "data_dir", cfg.DataDir)
	return a, nil
}

// Close releases the stores
func (a *App) Close() error {
	return errors.Join(a.History.Close(), a.Index.Close())
}

// Sessions returns the model-free session administration service
func (a *App) Sessions() *core.Sessions {
	return core.NewSessions(a.History, a.Index).WithSessionsLogger(a.Logger)
}

// Orchestrator returns the chat service, creating model providers on first use
func (a *App) Orchestrator() (*core.Orchestrator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.orchestrator != nil {
		return a.orchestrator, nil
	}

	embedder, err := a.embedderLocked()
	if err != nil {
		return nil, err
	}
	completer, err := a.completerLocked()
	if err != nil {
		return nil, err
	}

	cfg := a.Config
	a.orchestrator = core.NewOrchestrator(
		a.History,
		a.Index,
		core.NewRewriter(completer,
			core.WithRewriteWindow(cfg.RewriteWindow),
			core.WithRewriteTimeout(cfg.RewriteTimeout)),
		core.NewRetriever(embedder, a.Index,
			core.WithTopK(cfg.TopK),
			core.WithMinScore(cfg.MinScore),
			core.WithEmbedTimeout(cfg.Timeout)),
		core.NewGenerator(completer, core.WithGenerationTimeout(cfg.Timeout)),
		core.WithHistoryWindow(cfg.HistoryWindow),
		core.WithLogger(a.Logger),
	)
	return a.orchestrator, nil
}

// Ingestor returns the ingest service, creating the embedder on first use
func (a *App) Ingestor() (*core.Ingestor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ingestor != nil {
		return a.ingestor, nil
	}

	embedder, err := a.embedderLocked()
	if err != nil {
		return nil, err
	}
	cfg := a.Config
	chunker := core.NewChunkEngine(core.WithChunkSize(cfg.ChunkSize), core.WithChunkOverlap(cfg.ChunkOverlap))
	a.ingestor = core.NewIngestor(chunker, embedder, a.Index,
		core.WithEmbedBatch(cfg.EmbedBatch),
		core.WithEmbedConcurrency(cfg.EmbedConcurrency),
		core.WithIngestLogger(a.Logger),
	)
	return a.ingestor, nil
}

func (a *App) embedderLocked() (core.Embedder, error) {
	if a.embedder != nil {
		return a.embedder, nil
	}
	var err error
	switch a.Config.Embedder {
	case config.ProviderOpenAI:
		a.embedder, err = a.openAILocked()
	case config.ProviderOllama:
		a.embedder, err = a.ollamaLocked()
	case config.ProviderHash:
		a.embedder, err = llm.NewHashEmbedder(a.Config.HashDimension)
	default:
		err = fmt.Errorf("unknown embedder %q", a.Config.Embedder)
	}
	if err != nil {
		a.embedder = nil
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return a.embedder, nil
}

func (a *App) completerLocked() (core.Completer, error) {
	if a.completer != nil {
		return a.completer, nil
	}
	var err error
	switch a.Config.Provider {
	case config.ProviderOpenAI:
		a.completer, err = a.openAILocked()
	case config.ProviderOllama:
		a.completer, err = a.ollamaLocked()
	default:
		err = fmt.Errorf("unknown provider %q", a.Config.Provider)
	}
	if err != nil {
		a.completer = nil
		return nil, fmt.Errorf("failed to create completion provider: %w", err)
	}
	return a.completer, nil
}

func (a *App) openAILocked() (*llm.OpenAIClient, error) {
	if a.openai != nil {
		return a.openai, nil
	}
	cfg := a.Config
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}
	client, err := llm.NewOpenAIClientWithConfig(&llm.ClientConfig{
		APIKey:         cfg.OpenAIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		Timeout:        cfg.Timeout,
		RateLimit:      cfg.RateLimit,
		Logger:         a.Logger,
	})
	if err != nil {
		return nil, err
	}
	a.openai = client
	return client, nil
}

func (a *App) ollamaLocked() (*llm.OllamaClient, error) {
	if a.ollama != nil {
		return a.ollama, nil
	}
	cfg := a.Config
	chatModel := cfg.ChatModel
	if chatModel == llm.DefaultChatModel {
		chatModel = defaultOllamaChatModel
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == string(llm.DefaultEmbeddingModel) {
		embeddingModel = defaultOllamaEmbeddingModel
	}
	client, err := llm.NewOllamaClient(llm.OllamaConfig{
		Host:           cfg.OllamaHost,
		ChatModel:      chatModel,
		EmbeddingModel: embeddingModel,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		Timeout:        cfg.Timeout,
		RateLimit:      cfg.RateLimit,
		Logger:         a.Logger,
	})
	if err != nil {
		return nil, err
	}
	a.ollama = client
	return client, nil
}
