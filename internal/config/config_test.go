package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/ragademic/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "LLM_BACKEND", "CHAT_MODEL", "CHAT_TEMPERATURE",
		"EMBEDDING_MODEL", "EMBEDDING_BATCH_SIZE", "ARXIV_API_URL", "ARXIV_MAX_RESULTS",
		"ARXIV_DOWNLOAD_DIR", "ARXIV_REQUEST_INTERVAL", "CHUNK_SIZE", "CHUNK_OVERLAP",
		"RAG_TOP_K", "INDEX_BACKEND", "QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION",
		"LOG_DIR", "LOG_FILE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gpt-3.5-turbo", cfg.ChatModel)
	assert.Equal(t, 0.0, cfg.Temperature)
	assert.Equal(t, 3, cfg.MaxResults)
	assert.Equal(t, "arxiv_papers", cfg.DownloadDir)
	assert.Equal(t, 200, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 4, cfg.TopK)
	assert.Equal(t, filepath.Join("logs", "rag_chain.log"), filepath.Join(cfg.LogDir, cfg.LogFile))
	assert.Equal(t, IndexMemory, cfg.IndexBackend)
	assert.Empty(t, cfg.APIKey)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "ragademic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"chunk_size: 500\nchunk_overlap: 100\ntop_k: 6\nrequest_interval: 1s\n"), 0o644))

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CHUNK_SIZE", "800")
	t.Setenv("ARXIV_MAX_RESULTS", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, 800, cfg.ChunkSize, "env wins over file")
	assert.Equal(t, 100, cfg.ChunkOverlap, "file wins over default")
	assert.Equal(t, 6, cfg.TopK)
	assert.Equal(t, time.Second, cfg.RequestInterval)
	assert.Equal(t, DefaultMaxResults, cfg.MaxResults, "unparsable env value falls back")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.APIKey = "sk-test"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.APIKey = "  " }},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{"overlap exceeds size", func(c *Config) { c.ChunkSize, c.ChunkOverlap = 10, 20 }},
		{"zero max results", func(c *Config) { c.MaxResults = 0 }},
		{"zero top k", func(c *Config) { c.TopK = 0 }},
		{"unknown llm backend", func(c *Config) { c.LLMBackend = "ollama" }},
		{"unknown index backend", func(c *Config) { c.IndexBackend = "faiss" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}
