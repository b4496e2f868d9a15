package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener and caller authentication.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port" validate:"min=1,max=65535"`
	BearerTokenEnv string `yaml:"bearer_token_env"`
	// BearerToken is resolved from BearerTokenEnv and never written to disk.
	BearerToken     string `yaml:"-" validate:"required"`
	ShutdownSecs    int    `yaml:"shutdown_secs"`
	ReadTimeoutSecs int    `yaml:"read_timeout_secs"`
}

// FetcherConfig configures document retrieval.
type FetcherConfig struct {
	TimeoutSecs int   `yaml:"timeout_secs" validate:"gte=0"`
	MaxBytes    int64 `yaml:"max_bytes" validate:"gte=0"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Size    int `yaml:"size" validate:"gt=0"`
	Overlap int `yaml:"overlap" validate:"gte=0,ltfield=Size"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	APIKeyEnv string `yaml:"api_key_env" validate:"required"`
	Model     string `yaml:"model" validate:"required"`
	Dimension int    `yaml:"dimension" validate:"gt=0"`
	BatchSize int    `yaml:"batch_size" validate:"gt=0"`

	// TimeoutSecs bounds each embedding call; 0 means none.
	TimeoutSecs int `yaml:"timeout_secs" validate:"gte=0"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type" validate:"oneof=openai"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty" validate:"required"`
}

// LLMConfig configures the answering chat model.
type LLMConfig struct {
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	APIKeyEnv string `yaml:"api_key_env" validate:"required"`
	Model     string `yaml:"model" validate:"required"`

	// TimeoutSecs bounds each completion call; 0 means none.
	TimeoutSecs int `yaml:"timeout_secs" validate:"gte=0"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type      string          `yaml:"type" validate:"oneof=pinecone qdrant redis memory"`
	TopK      int             `yaml:"top_k" validate:"gt=0"`
	BatchSize int             `yaml:"batch_size" validate:"gt=0"`
	Pinecone  *PineconeConfig `yaml:"pinecone,omitempty" validate:"required_if=Type pinecone"`
	Qdrant    *QdrantConfig   `yaml:"qdrant,omitempty" validate:"required_if=Type qdrant"`
	Redis     *RedisConfig    `yaml:"redis,omitempty" validate:"required_if=Type redis"`
}

// PineconeConfig contains connection details for a Pinecone serverless index.
type PineconeConfig struct {
	APIKeyEnv  string `yaml:"api_key_env" validate:"required"`
	IndexName  string `yaml:"index_name" validate:"required"`
	Namespace  string `yaml:"namespace"`
	Cloud      string `yaml:"cloud"`
	Region     string `yaml:"region"`
	ControlURL string `yaml:"control_url"`
	Host       string `yaml:"host"`

	// TimeoutSecs bounds each index management call; 0 means none.
	TimeoutSecs int `yaml:"timeout_secs" validate:"gte=0"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" validate:"required"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RedisConfig contains connection details for a Redis Stack vector index.
type RedisConfig struct {
	Addr      string `yaml:"addr" validate:"required"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	IndexName string `yaml:"index_name" validate:"required"`
	KeyPrefix string `yaml:"key_prefix"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Fetcher     FetcherConfig     `yaml:"fetcher"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	LLM         LLMConfig         `yaml:"llm"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from path, applies defaults and environment overrides,
// then validates it. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	applyConfigDefaults(cfg)
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct constraints.
func Validate(cfg *AppConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration.
func Default() *AppConfig { return defaultConfig() }

func defaultConfig() *AppConfig {
	return &AppConfig{
		Server:  ServerConfig{Host: "0.0.0.0", Port: 8000, BearerTokenEnv: "BEARER_TOKEN", ShutdownSecs: 10, ReadTimeoutSecs: 30},
		Fetcher: FetcherConfig{TimeoutSecs: 30, MaxBytes: 50 << 20},
		Chunker: ChunkerConfig{Size: 500, Overlap: 50},
		Embedder: EmbedderConfig{Type: "openai", OpenAI: &OpenAIEmbedderConfig{
			BaseURL:   "https://api.studio.nebius.com/v1/",
			APIKeyEnv: "NEBIUS_API_KEY",
			Model:     "BAAI/bge-multilingual-gemma2",
			Dimension: 3584,
			BatchSize: 32,
		}},
		LLM: LLMConfig{
			BaseURL:   "https://api.studio.nebius.com/v1/",
			APIKeyEnv: "NEBIUS_API_KEY",
			Model:     "meta-llama/Meta-Llama-3.1-405B-Instruct",
		},
		VectorStore: VectorStoreConfig{
			Type:      "pinecone",
			TopK:      3,
			BatchSize: 100,
			Pinecone:  &PineconeConfig{APIKeyEnv: "PINECONE_API_KEY", IndexName: "hackrx-llm-index"},
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.BearerTokenEnv == "" {
		cfg.Server.BearerTokenEnv = def.Server.BearerTokenEnv
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = def.Chunker.Size
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = def.Embedder.OpenAI
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = def.Embedder.OpenAI.BaseURL
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = def.Embedder.OpenAI.APIKeyEnv
		}
		if o.Model == "" {
			o.Model = def.Embedder.OpenAI.Model
		}
		if o.Dimension == 0 {
			o.Dimension = def.Embedder.OpenAI.Dimension
		}
		if o.BatchSize == 0 {
			o.BatchSize = def.Embedder.OpenAI.BatchSize
		}
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = def.LLM.BaseURL
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = def.LLM.APIKeyEnv
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = def.VectorStore.Type
	}
	if cfg.VectorStore.TopK == 0 {
		cfg.VectorStore.TopK = def.VectorStore.TopK
	}
	if cfg.VectorStore.BatchSize == 0 {
		cfg.VectorStore.BatchSize = def.VectorStore.BatchSize
	}
	if p := cfg.VectorStore.Pinecone; p != nil {
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = def.VectorStore.Pinecone.APIKeyEnv
		}
		if p.IndexName == "" {
			p.IndexName = def.VectorStore.Pinecone.IndexName
		}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}

// applyEnv overlays the process environment. Keys are read once at start.
func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("NEBIUS_BASE_URL", &cfg.LLM.BaseURL)
	str("LLM_MODEL", &cfg.LLM.Model)
	if o := cfg.Embedder.OpenAI; o != nil {
		str("NEBIUS_BASE_URL", &o.BaseURL)
		str("EMBEDDING_MODEL", &o.Model)
		if err := num("EMBEDDING_DIMENSION", &o.Dimension); err != nil {
			return err
		}
	}
	str("VECTOR_STORE", &cfg.VectorStore.Type)
	if cfg.VectorStore.Type == "pinecone" && cfg.VectorStore.Pinecone == nil {
		cfg.VectorStore.Pinecone = defaultConfig().VectorStore.Pinecone
	}
	if p := cfg.VectorStore.Pinecone; p != nil {
		str("PINECONE_INDEX_NAME", &p.IndexName)
	}
	if err := num("PORT", &cfg.Server.Port); err != nil {
		return err
	}
	str("LOG_LEVEL", &cfg.Log.Level)
	cfg.Server.BearerToken, _ = lookup(cfg.Server.BearerTokenEnv)
	return nil
}

// EmbedderAPIKey returns the embedding API key from the configured env var.
func (c *AppConfig) EmbedderAPIKey() string { return os.Getenv(c.Embedder.OpenAI.APIKeyEnv) }

// LLMAPIKey returns the chat model API key from the configured env var.
func (c *AppConfig) LLMAPIKey() string { return os.Getenv(c.LLM.APIKeyEnv) }

// PineconeAPIKey returns the Pinecone API key from the configured env var.
func (c *AppConfig) PineconeAPIKey() string {
	if c.VectorStore.Pinecone == nil {
		return ""
	}
	return os.Getenv(c.VectorStore.Pinecone.APIKeyEnv)
}
