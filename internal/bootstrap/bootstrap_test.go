package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/ragademic/internal/config"
	"github.com/bull/ragademic/internal/domain"
	"github.com/bull/ragademic/internal/llm"
	"github.com/bull/ragademic/internal/storage"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.APIKey = "sk-test"
	cfg.DownloadDir = t.TempDir()
	return cfg
}

func TestBuild_OpenAI(t *testing.T) {
	c, err := Build(testConfig(t), nil)
	require.NoError(t, err)

	assert.NotNil(t, c.Pipeline)
	assert.NotNil(t, c.Fetcher)
	assert.IsType(t, &llm.OpenAIChat{}, c.Model)
}

func TestBuild_Langchain(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLMBackend = config.BackendLangchain
	cfg.BaseURL = "http://127.0.0.1:1/v1"

	c, err := Build(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &llm.LangchainChat{}, c.Model)
}

func TestBuild_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing api key", func(c *config.Config) { c.APIKey = "" }},
		{"overlap too large", func(c *config.Config) { c.ChunkOverlap = c.ChunkSize }},
		{"unknown index backend", func(c *config.Config) { c.IndexBackend = "faiss" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)

			_, err := Build(cfg, nil)
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.ErrConfiguration))
		})
	}
}

func TestNewStoreFactory_Memory(t *testing.T) {
	factory := NewStoreFactory(testConfig(t), nil)

	store, err := factory(context.Background())
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &storage.ChromemStore{}, store)
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
