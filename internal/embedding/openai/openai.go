package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"go.uber.org/zap"

	"docqa/internal/domain"
)

const (
	DefaultBaseURL   = "https://api.studio.nebius.com/v1/"
	DefaultModel     = "BAAI/bge-multilingual-gemma2"
	DefaultDimension = 3584
	DefaultBatchSize = 32
)

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	BatchSize int
	Timeout   time.Duration
}

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
type Client struct {
	embedder  einoEmbedding.Embedder
	model     string
	dimension int
	batchSize int
	logger    *zap.Logger
}

// NewClient creates an embeddings client talking to the configured endpoint.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedding API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	emb, err := openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return NewWithEmbedder(emb, cfg, logger), nil
}

// NewWithEmbedder wraps an existing eino embedder.
func NewWithEmbedder(emb einoEmbedding.Embedder, cfg Config, logger *zap.Logger) *Client {
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		embedder:  emb,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// EmbedTexts returns one vector per input text, preserving order. Inputs are
// sent in sub-batches; each sub-batch is a single attempt.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		vectors, err := c.embedder.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return nil, domain.Remote("embedding", err)
		}
		if len(vectors) != end-start {
			return nil, domain.Remote("embedding", fmt.Errorf("expected %d embeddings, got %d", end-start, len(vectors)))
		}
		for _, v := range vectors {
			if len(v) != c.dimension {
				return nil, domain.Remote("embedding", fmt.Errorf("embedding dimension %d does not match configured %d", len(v), c.dimension))
			}
		}
		out = append(out, vectors...)
	}
	c.logger.Debug("embedded texts", zap.Int("count", len(texts)), zap.String("model", c.model))
	return out, nil
}
