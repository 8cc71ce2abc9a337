// ABOUTME: Centralized configuration for the docchat CLI and MCP server
// ABOUTME: Defaults, then an optional YAML file, then environment variables, then Validate
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Backend and provider names accepted by the config.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
	BackendChromem  = "chromem"

	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderHash   = "hash"
)

// Config holds all configuration for docchat
type Config struct {
	// Storage settings
	DataDir        string `yaml:"data_dir"`
	HistoryBackend string `yaml:"history_backend"`
	VectorBackend  string `yaml:"vector_backend"`
	DatabaseURL    string `yaml:"database_url"`
	MySQLDSN       string `yaml:"mysql_dsn"`

	// Model providers
	Provider       string        `yaml:"provider"`
	Embedder       string        `yaml:"embedder"`
	OpenAIKey      string        `yaml:"-"`
	OpenAIBaseURL  string        `yaml:"openai_base_url"`
	ChatModel      string        `yaml:"chat_model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	OllamaHost     string        `yaml:"ollama_host"`
	HashDimension  int           `yaml:"hash_dimension"`
	Timeout        time.Duration `yaml:"timeout"`
	RewriteTimeout time.Duration `yaml:"rewrite_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	RateLimit      float64       `yaml:"rate_limit"`

	// Retrieval settings
	ChunkSize        int     `yaml:"chunk_size"`
	ChunkOverlap     int     `yaml:"chunk_overlap"`
	TopK             int     `yaml:"top_k"`
	MinScore         float64 `yaml:"min_score"`
	RewriteWindow    int     `yaml:"rewrite_window"`
	HistoryWindow    int     `yaml:"history_window"`
	EmbedBatch       int     `yaml:"embed_batch"`
	EmbedConcurrency int     `yaml:"embed_concurrency"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:          filepath.Join(xdg.DataHome, "docchat"),
		HistoryBackend:   BackendSQLite,
		VectorBackend:    BackendSQLite,
		Provider:         ProviderOpenAI,
		Embedder:         ProviderOpenAI,
		ChatModel:        "gpt-4o-mini",
		EmbeddingModel:   "text-embedding-3-small",
		OllamaHost:       "http://localhost:11434",
		HashDimension:    256,
		Timeout:          30 * time.Second,
		RewriteTimeout:   10 * time.Second,
		MaxRetries:       3,
		RetryDelay:       2 * time.Second,
		ChunkSize:        1000,
		ChunkOverlap:     100,
		TopK:             4,
		RewriteWindow:    6,
		HistoryWindow:    10,
		EmbedBatch:       32,
		EmbedConcurrency: 4,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load reads configuration from an optional YAML file and the environment.
// An empty path falls back to DOCCHAT_CONFIG; a missing file is an error only when named explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("DOCCHAT_CONFIG")
		explicit = path != ""
	}
	if explicit {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DataDir = getEnv("DOCCHAT_DATA_DIR", c.DataDir)
	c.HistoryBackend = getEnv("DOCCHAT_HISTORY_BACKEND", c.HistoryBackend)
	c.VectorBackend = getEnv("DOCCHAT_VECTOR_BACKEND", c.VectorBackend)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.MySQLDSN = getEnv("MYSQL_DSN", c.MySQLDSN)

	c.Provider = getEnv("DOCCHAT_PROVIDER", c.Provider)
	c.Embedder = getEnv("DOCCHAT_EMBEDDER", c.Embedder)
	c.OpenAIKey = getEnv("OPENAI_API_KEY", c.OpenAIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.ChatModel = getEnv("DOCCHAT_CHAT_MODEL", c.ChatModel)
	c.EmbeddingModel = getEnv("DOCCHAT_EMBEDDING_MODEL", c.EmbeddingModel)
	c.OllamaHost = getEnv("OLLAMA_HOST", c.OllamaHost)
	c.HashDimension = getEnvInt("DOCCHAT_HASH_DIMENSION", c.HashDimension)
	c.Timeout = getEnvDuration("DOCCHAT_TIMEOUT", c.Timeout)
	c.RewriteTimeout = getEnvDuration("DOCCHAT_REWRITE_TIMEOUT", c.RewriteTimeout)
	c.MaxRetries = getEnvInt("DOCCHAT_MAX_RETRIES", c.MaxRetries)
	c.RetryDelay = getEnvDuration("DOCCHAT_RETRY_DELAY", c.RetryDelay)
	c.RateLimit = getEnvFloat("DOCCHAT_RATE_LIMIT", c.RateLimit)

	c.ChunkSize = getEnvInt("DOCCHAT_CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = getEnvInt("DOCCHAT_CHUNK_OVERLAP", c.ChunkOverlap)
	c.TopK = getEnvInt("DOCCHAT_TOP_K", c.TopK)
	c.MinScore = getEnvFloat("DOCCHAT_MIN_SCORE", c.MinScore)
	c.RewriteWindow = getEnvInt("DOCCHAT_REWRITE_WINDOW", c.RewriteWindow)
	c.HistoryWindow = getEnvInt("DOCCHAT_HISTORY_WINDOW", c.HistoryWindow)
	c.EmbedBatch = getEnvInt("DOCCHAT_EMBED_BATCH", c.EmbedBatch)
	c.EmbedConcurrency = getEnvInt("DOCCHAT_EMBED_CONCURRENCY", c.EmbedConcurrency)

	c.LogLevel = getEnv("DOCCHAT_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("DOCCHAT_LOG_FORMAT", c.LogFormat)
}

func (c *Config) Validate() error {
	switch c.HistoryBackend {
	case BackendSQLite, BackendPostgres, BackendMySQL:
	default:
		return fmt.Errorf("DOCCHAT_HISTORY_BACKEND must be sqlite, postgres or mysql, got %q", c.HistoryBackend)
	}
	switch c.VectorBackend {
	case BackendSQLite, BackendPostgres, BackendChromem:
	default:
		return fmt.Errorf("DOCCHAT_VECTOR_BACKEND must be sqlite, postgres or chromem, got %q", c.VectorBackend)
	}
	if (c.HistoryBackend == BackendPostgres || c.VectorBackend == BackendPostgres) && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres backend")
	}
	if c.HistoryBackend == BackendMySQL && c.MySQLDSN == "" {
		return fmt.Errorf("MYSQL_DSN is required for the mysql backend")
	}
	switch c.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("DOCCHAT_PROVIDER must be openai or ollama, got %q", c.Provider)
	}
	switch c.Embedder {
	case ProviderOpenAI, ProviderOllama, ProviderHash:
	default:
		return fmt.Errorf("DOCCHAT_EMBEDDER must be openai, ollama or hash, got %q", c.Embedder)
	}
	if c.HashDimension <= 0 {
		return fmt.Errorf("DOCCHAT_HASH_DIMENSION must be positive, got %d", c.HashDimension)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("DOCCHAT_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.Timeout <= 0 || c.RewriteTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("DOCCHAT_RATE_LIMIT must not be negative, got %f", c.RateLimit)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("DOCCHAT_CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("DOCCHAT_CHUNK_OVERLAP must be 0 <= overlap < chunk size, got %d", c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("DOCCHAT_TOP_K must be positive, got %d", c.TopK)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("DOCCHAT_MIN_SCORE must be 0-1, got %f", c.MinScore)
	}
	if c.RewriteWindow < 0 || c.HistoryWindow < 0 {
		return fmt.Errorf("history windows must not be negative")
	}
	if c.EmbedBatch <= 0 || c.EmbedConcurrency <= 0 {
		return fmt.Errorf("DOCCHAT_EMBED_BATCH and DOCCHAT_EMBED_CONCURRENCY must be positive")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("DOCCHAT_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// NeedsOpenAIKey reports whether any configured provider talks to OpenAI.
func (c *Config) NeedsOpenAIKey() bool {
	return c.Provider == ProviderOpenAI || c.Embedder == ProviderOpenAI
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
