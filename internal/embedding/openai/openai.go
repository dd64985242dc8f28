package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"supportbot/internal/domain"
)

// Client is an OpenAI-compatible embeddings client implementing domain.BatchEmbedder.
// It is stateless and safe for concurrent use.
type Client struct {
	client *goopenai.Client
	model  string
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-ada-002"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{
		client: goopenai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one embedding per input text, in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}
	resp, err := c.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, domain.NewDependencyError(domain.DependencyEmbedding, fmt.Errorf("create embeddings: %w", err))
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.NewDependencyError(domain.DependencyEmbedding,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, domain.NewDependencyError(domain.DependencyEmbedding, fmt.Errorf("embedding index %d out of range", d.Index))
		}
		if len(d.Embedding) == 0 {
			return nil, domain.NewDependencyError(domain.DependencyEmbedding, errors.New("empty embedding"))
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, domain.NewDependencyError(domain.DependencyEmbedding, fmt.Errorf("missing embedding for input %d", i))
		}
	}
	return vectors, nil
}
