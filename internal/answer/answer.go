package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"docqa/internal/domain"
)

const (
	DefaultBaseURL = "https://api.studio.nebius.com/v1/"
	DefaultModel   = "meta-llama/Meta-Llama-3.1-405B-Instruct"

	promptTemplate = "Answer the question based only on this document context. Answer within 20 words:\n\n%s\n\nQuestion: %s"
)

// Config configures the OpenAI-compatible chat completion client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Client answers questions from retrieved context with a hosted chat model.
type Client struct {
	model  generator
	logger *zap.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("LLM API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cm, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return newWithGenerator(cm, logger), nil
}

func newWithGenerator(g generator, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{model: g, logger: logger}
}

// Prompt renders the single user message sent for a question.
func Prompt(question, contextText string) string {
	return fmt.Sprintf(promptTemplate, contextText, question)
}

// Answer issues one completion request and returns the trimmed reply.
func (c *Client) Answer(ctx context.Context, question, contextText string) (string, error) {
	msg, err := c.model.Generate(ctx, []*schema.Message{schema.UserMessage(Prompt(question, contextText))})
	if err != nil {
		return "", domain.Remote("llm", err)
	}
	if msg == nil {
		return "", domain.Remote("llm", errors.New("empty completion"))
	}
	return strings.TrimSpace(msg.Content), nil
}
