package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cloo-solutions/talentlens/internal/prompts"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	DefaultChatModel           = "gpt-4.1"
	DefaultEmbeddingModel      = openai.LargeEmbedding3
	DefaultEmbeddingDimensions = 3072
	DefaultRequestsPerSecond   = 5

	defaultTemperature = 0.1
	defaultMaxTokens   = 800
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has an unexpected length
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrEmptyResponse is returned when the API answers without content
	ErrEmptyResponse = errors.New("empty response from model")
)

// EmbeddingAPI defines the interface for batch embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatRequest is a single-turn chat completion.
type ChatRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// ChatAPI defines the interface for chat completions
type ChatAPI interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// OpenAIAdapter implements EmbeddingAPI and ChatAPI on top of go-openai.
type OpenAIAdapter struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
	dimensions     int
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIAdapter{
		client:         openai.NewClientWithConfig(clientCfg),
		chatModel:      cfg.ChatModel,
		embeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		dimensions:     cfg.EmbeddingDimensions,
	}
}

// CreateEmbeddings calls the OpenAI API and returns vectors in input order.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      a.embeddingModel,
		Dimensions: a.dimensions,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// Complete sends a system/user pair and returns the assistant content.
func (a *OpenAIAdapter) Complete(ctx context.Context, req ChatRequest) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	BaseURL             string
	ChatModel           string
	EmbeddingModel      string
	EmbeddingDimensions int
	RequestsPerSecond   float64
	MaxRetries          int
	Prompts             *prompts.Set
	Logger              *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.ChatModel == "" {
		c.ChatModel = DefaultChatModel
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = string(DefaultEmbeddingModel)
	}
	if c.EmbeddingDimensions <= 0 {
		c.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Prompts == nil {
		c.Prompts = prompts.Default()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Client embeds text and reasons over resumes. It is safe for concurrent use.
type Client struct {
	embeddings EmbeddingAPI
	chat       ChatAPI
	dimensions int
	limiter    *rate.Limiter
	retry      retryPolicy
	prompts    *prompts.Set
	logger     *slog.Logger
}

// NewClient creates a client backed by the OpenAI API.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	adapter := NewOpenAIAdapter(cfg)
	return newClient(adapter, adapter, cfg)
}

// NewClientWithAPIs creates a client over custom API implementations (for testing).
func NewClientWithAPIs(embeddings EmbeddingAPI, chat ChatAPI, cfg Config) *Client {
	return newClient(embeddings, chat, cfg.withDefaults())
}

func newClient(embeddings EmbeddingAPI, chat ChatAPI, cfg Config) *Client {
	return &Client{
		embeddings: embeddings,
		chat:       chat,
		dimensions: cfg.EmbeddingDimensions,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		retry:      retryPolicy{maxRetries: cfg.MaxRetries, baseDelay: defaultBaseDelay},
		prompts:    cfg.Prompts,
		logger:     cfg.Logger,
	}
}

// Dimensions is the length of every vector this client returns.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// EmbedDocuments embeds texts in one request.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
	}

	var vectors [][]float32
	err := c.call(ctx, "embeddings", func(ctx context.Context) error {
		var err error
		vectors, err = c.embeddings.CreateEmbeddings(ctx, texts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	for _, v := range vectors {
		if len(v) != c.dimensions {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(v))
		}
	}
	return vectors, nil
}

// EmbedQuery embeds a single search query.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	vectors, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) complete(ctx context.Context, msg prompts.Message) (string, error) {
	var content string
	err := c.call(ctx, "chat", func(ctx context.Context) error {
		var err error
		content, err = c.chat.Complete(ctx, ChatRequest{
			System:      msg.System,
			User:        msg.User,
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
		})
		return err
	})
	return content, err
}

// call waits for the rate limiter and runs fn under the retry policy.
func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return c.retry.do(ctx, c.logger.With("op", op), func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	})
}
