// Package openai implements the answer generator on an OpenAI-compatible chat-completion API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"supportbot/internal/domain"
)

// DefaultSystemPrompt instructs the model to act as a documentation-grounded support agent.
const DefaultSystemPrompt = `You are a helpful customer support assistant for Crossmint, a platform for integrating wallets, stablecoins, and blockchain primitives.

Use the provided documentation context to answer the user's question accurately and helpfully. If the context doesn't contain enough information to fully answer the question, say so and provide what information you can from the context.

Always base your answer primarily on the provided context. Be specific and include relevant details from the documentation.`

// DefaultTemperature keeps answers close to the documentation. The API default is 1.0,
// and a zero temperature is omitted from the request.
const DefaultTemperature float32 = 0.1

// Config configures the chat-completion client.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
	Timeout      time.Duration
}

// Generator implements domain.Generator. It is stateless and safe for concurrent use.
type Generator struct {
	client       *goopenai.Client
	model        string
	temperature  float32
	maxTokens    int
	systemPrompt string
}

// NewGenerator creates a generator from cfg, filling unset fields with defaults.
func NewGenerator(cfg Config) *Generator {
	if cfg.Model == "" {
		cfg.Model = goopenai.GPT3Dot5Turbo
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 800
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Generator{
		client:       goopenai.NewClientWithConfig(clientConfig),
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		systemPrompt: cfg.SystemPrompt,
	}
}

// Generate asks the model to answer query using contextText.
func (g *Generator) Generate(ctx context.Context, contextText, query string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: g.systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: UserPrompt(contextText, query)},
		},
	}
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", domain.NewDependencyError(domain.DependencyGeneration, fmt.Errorf("create chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewDependencyError(domain.DependencyGeneration, errors.New("empty chat response"))
	}
	return resp.Choices[0].Message.Content, nil
}

// UserPrompt renders the user turn: the literal context followed by the literal query.
func UserPrompt(contextText, query string) string {
	var sb strings.Builder
	sb.WriteString("Context from documentation:\n")
	sb.WriteString(contextText)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(query)
	sb.WriteString("\n\nPlease provide a helpful answer based on the documentation context above.")
	return sb.String()
}
