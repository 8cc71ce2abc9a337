// ABOUTME: Tests for centralized configuration loading
// ABOUTME: Verifies defaults, YAML file overlay, environment overrides and validation
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"DOCCHAT_CONFIG", "DOCCHAT_DATA_DIR", "DOCCHAT_HISTORY_BACKEND", "DOCCHAT_VECTOR_BACKEND",
	"DATABASE_URL", "MYSQL_DSN", "DOCCHAT_PROVIDER", "DOCCHAT_EMBEDDER", "OPENAI_API_KEY",
	"OPENAI_BASE_URL", "DOCCHAT_CHAT_MODEL", "DOCCHAT_EMBEDDING_MODEL", "OLLAMA_HOST",
	"DOCCHAT_HASH_DIMENSION", "DOCCHAT_TIMEOUT", "DOCCHAT_REWRITE_TIMEOUT", "DOCCHAT_MAX_RETRIES",
	"DOCCHAT_RETRY_DELAY", "DOCCHAT_RATE_LIMIT", "DOCCHAT_CHUNK_SIZE", "DOCCHAT_CHUNK_OVERLAP",
	"DOCCHAT_TOP_K", "DOCCHAT_MIN_SCORE", "DOCCHAT_REWRITE_WINDOW", "DOCCHAT_HISTORY_WINDOW",
	"DOCCHAT_EMBED_BATCH", "DOCCHAT_EMBED_CONCURRENCY", "DOCCHAT_LOG_LEVEL", "DOCCHAT_LOG_FORMAT",
}

// clearEnv blanks every key Load reads; getEnv treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.HistoryBackend != BackendSQLite || cfg.VectorBackend != BackendSQLite {
		t.Errorf("backends = %s/%s, want sqlite/sqlite", cfg.HistoryBackend, cfg.VectorBackend)
	}
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("ChatModel = %s, want gpt-4o-mini", cfg.ChatModel)
	}
	if cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel = %s, want text-embedding-3-small", cfg.EmbeddingModel)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 100 {
		t.Errorf("chunking = %d/%d, want 1000/100", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TopK != 4 {
		t.Errorf("TopK = %d, want 4", cfg.TopK)
	}
	if cfg.MinScore != 0 {
		t.Errorf("MinScore = %f, want 0", cfg.MinScore)
	}
	if cfg.RewriteWindow != 6 || cfg.HistoryWindow != 10 {
		t.Errorf("windows = %d/%d, want 6/10", cfg.RewriteWindow, cfg.HistoryWindow)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if !strings.HasSuffix(cfg.DataDir, "docchat") {
		t.Errorf("DataDir = %s, want a docchat directory", cfg.DataDir)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOCCHAT_DATA_DIR", "/tmp/docchat-test")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("DOCCHAT_CHAT_MODEL", "gpt-4o")
	t.Setenv("DOCCHAT_EMBEDDER", "hash")
	t.Setenv("DOCCHAT_HASH_DIMENSION", "64")
	t.Setenv("DOCCHAT_TIMEOUT", "60s")
	t.Setenv("DOCCHAT_MAX_RETRIES", "5")
	t.Setenv("DOCCHAT_TOP_K", "8")
	t.Setenv("DOCCHAT_MIN_SCORE", "0.25")
	t.Setenv("DOCCHAT_LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DataDir != "/tmp/docchat-test" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.OpenAIKey != "test-key" {
		t.Errorf("OpenAIKey = %s, want test-key", cfg.OpenAIKey)
	}
	if cfg.ChatModel != "gpt-4o" {
		t.Errorf("ChatModel = %s, want gpt-4o", cfg.ChatModel)
	}
	if cfg.Embedder != ProviderHash || cfg.HashDimension != 64 {
		t.Errorf("embedder = %s/%d, want hash/64", cfg.Embedder, cfg.HashDimension)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.TopK != 8 || cfg.MinScore != 0.25 {
		t.Errorf("retrieval = %d/%f, want 8/0.25", cfg.TopK, cfg.MinScore)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %s, want json", cfg.LogFormat)
	}
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "docchat.yaml")
	content := `
vector_backend: chromem
chat_model: llama3.2
provider: ollama
top_k: 6
rewrite_timeout: 4s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("DOCCHAT_TOP_K", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.VectorBackend != BackendChromem {
		t.Errorf("VectorBackend = %s, want chromem", cfg.VectorBackend)
	}
	if cfg.Provider != ProviderOllama || cfg.ChatModel != "llama3.2" {
		t.Errorf("provider = %s/%s", cfg.Provider, cfg.ChatModel)
	}
	if cfg.RewriteTimeout != 4*time.Second {
		t.Errorf("RewriteTimeout = %v, want 4s", cfg.RewriteTimeout)
	}
	if cfg.TopK != 3 {
		t.Errorf("TopK = %d, want env override 3", cfg.TopK)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() should fail for a missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown history backend", func(c *Config) { c.HistoryBackend = "redis" }, "HISTORY_BACKEND"},
		{"chromem cannot hold history", func(c *Config) { c.HistoryBackend = BackendChromem }, "HISTORY_BACKEND"},
		{"mysql cannot hold vectors", func(c *Config) { c.VectorBackend = BackendMySQL }, "VECTOR_BACKEND"},
		{"postgres without url", func(c *Config) { c.VectorBackend = BackendPostgres }, "DATABASE_URL"},
		{"mysql without dsn", func(c *Config) { c.HistoryBackend = BackendMySQL }, "MYSQL_DSN"},
		{"hash cannot generate", func(c *Config) { c.Provider = ProviderHash }, "DOCCHAT_PROVIDER"},
		{"too many retries", func(c *Config) { c.MaxRetries = 15 }, "MAX_RETRIES"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "MAX_RETRIES"},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, "CHUNK_OVERLAP"},
		{"zero top k", func(c *Config) { c.TopK = 0 }, "TOP_K"},
		{"min score above one", func(c *Config) { c.MinScore = 1.5 }, "MIN_SCORE"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %q, want to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestNeedsOpenAIKey(t *testing.T) {
	cfg := Default()
	if !cfg.NeedsOpenAIKey() {
		t.Error("default config uses OpenAI")
	}
	cfg.Provider = ProviderOllama
	cfg.Embedder = ProviderHash
	if cfg.NeedsOpenAIKey() {
		t.Error("ollama + hash config should not need an OpenAI key")
	}
}
