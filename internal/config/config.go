// Package config loads ragademic settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bull/ragademic/internal/domain"
)

// Backend names.
const (
	BackendOpenAI    = "openai"
	BackendLangchain = "langchain"

	IndexMemory = "memory"
	IndexQdrant = "qdrant"
)

// Defaults mirror the behaviour of the interactive demo.
const (
	DefaultChatModel       = "gpt-3.5-turbo"
	DefaultEmbeddingModel  = "text-embedding-3-small"
	DefaultArxivAPIURL     = "https://export.arxiv.org/api/query"
	DefaultMaxResults      = 3
	DefaultDownloadDir     = "arxiv_papers"
	DefaultRequestInterval = 3 * time.Second
	DefaultChunkSize       = 200
	DefaultChunkOverlap    = 50
	DefaultTopK            = 4
	DefaultLogDir          = "logs"
	DefaultLogFile         = "rag_chain.log"
)

// Config holds every tunable of a session.
type Config struct {
	APIKey      string  `yaml:"-"`
	BaseURL     string  `yaml:"base_url"`
	LLMBackend  string  `yaml:"llm_backend"`
	ChatModel   string  `yaml:"chat_model"`
	Temperature float64 `yaml:"temperature"`

	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingBatchSize int    `yaml:"embedding_batch_size"`

	ArxivAPIURL     string        `yaml:"arxiv_api_url"`
	MaxResults      int           `yaml:"max_results"`
	DownloadDir     string        `yaml:"download_dir"`
	RequestInterval time.Duration `yaml:"request_interval"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`

	IndexBackend     string `yaml:"index_backend"`
	QdrantHost       string `yaml:"qdrant_host"`
	QdrantPort       int    `yaml:"qdrant_port"`
	QdrantCollection string `yaml:"qdrant_collection"`

	LogDir   string `yaml:"log_dir"`
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		LLMBackend:       BackendOpenAI,
		ChatModel:        DefaultChatModel,
		EmbeddingModel:   DefaultEmbeddingModel,
		ArxivAPIURL:      DefaultArxivAPIURL,
		MaxResults:       DefaultMaxResults,
		DownloadDir:      DefaultDownloadDir,
		RequestInterval:  DefaultRequestInterval,
		ChunkSize:        DefaultChunkSize,
		ChunkOverlap:     DefaultChunkOverlap,
		TopK:             DefaultTopK,
		IndexBackend:     IndexMemory,
		QdrantHost:       "localhost",
		QdrantPort:       6334,
		QdrantCollection: "arxiv_chunks",
		LogDir:           DefaultLogDir,
		LogFile:          DefaultLogFile,
		LogLevel:         "info",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and environment variables. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.APIKey = getEnv("OPENAI_API_KEY", cfg.APIKey)
	cfg.BaseURL = getEnv("OPENAI_BASE_URL", cfg.BaseURL)
	cfg.LLMBackend = getEnv("LLM_BACKEND", cfg.LLMBackend)
	cfg.ChatModel = getEnv("CHAT_MODEL", cfg.ChatModel)
	cfg.Temperature = getEnvFloat("CHAT_TEMPERATURE", cfg.Temperature)
	cfg.EmbeddingModel = getEnv("EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.EmbeddingBatchSize = getEnvInt("EMBEDDING_BATCH_SIZE", cfg.EmbeddingBatchSize)

	cfg.ArxivAPIURL = getEnv("ARXIV_API_URL", cfg.ArxivAPIURL)
	cfg.MaxResults = getEnvInt("ARXIV_MAX_RESULTS", cfg.MaxResults)
	cfg.DownloadDir = getEnv("ARXIV_DOWNLOAD_DIR", cfg.DownloadDir)
	cfg.RequestInterval = getEnvDuration("ARXIV_REQUEST_INTERVAL", cfg.RequestInterval)

	cfg.ChunkSize = getEnvInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.TopK = getEnvInt("RAG_TOP_K", cfg.TopK)

	cfg.IndexBackend = getEnv("INDEX_BACKEND", cfg.IndexBackend)
	cfg.QdrantHost = getEnv("QDRANT_HOST", cfg.QdrantHost)
	cfg.QdrantPort = getEnvInt("QDRANT_PORT", cfg.QdrantPort)
	cfg.QdrantCollection = getEnv("QDRANT_COLLECTION", cfg.QdrantCollection)

	cfg.LogDir = getEnv("LOG_DIR", cfg.LogDir)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// Validate rejects configurations a session cannot start with. Every
// returned error is of kind domain.ErrConfiguration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return configError("OPENAI_API_KEY is not set")
	}
	if err := ValidateChunking(c.ChunkSize, c.ChunkOverlap); err != nil {
		return err
	}
	if c.MaxResults <= 0 {
		return configError("max results must be positive, got %d", c.MaxResults)
	}
	if c.TopK <= 0 {
		return configError("top k must be positive, got %d", c.TopK)
	}
	if c.DownloadDir == "" {
		return configError("download dir is empty")
	}
	switch c.LLMBackend {
	case BackendOpenAI, BackendLangchain:
	default:
		return configError("unknown llm backend %q", c.LLMBackend)
	}
	switch c.IndexBackend {
	case IndexMemory, IndexQdrant:
	default:
		return configError("unknown index backend %q", c.IndexBackend)
	}
	return nil
}

// ValidateChunking checks the chunk geometry: overlap must be smaller than
// the chunk size and neither may be negative.
func ValidateChunking(size, overlap int) error {
	if size <= 0 {
		return configError("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return configError("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return configError("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return nil
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrConfiguration, fmt.Sprintf(format, args...))
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
