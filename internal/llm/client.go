// Package llm provides the text-generation collaborator client used for
// mutation drafting and regression probing.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyGeneration is returned when the service responds without
// usable text. Callers treat this the same as a transport failure.
var ErrEmptyGeneration = errors.New("llm: empty generation result")

// Config holds settings for the OpenAI-compatible chat endpoint.
type Config struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the default generation settings.
func DefaultConfig() Config {
	return Config{
		Model:       openai.GPT4oMini,
		Temperature: 0.7,
		Timeout:     60 * time.Second,
	}
}

// Client issues single, non-streaming chat completions.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
}

// NewClient creates a generation client. An API key is required; a
// custom base URL supports OpenAI-compatible proxies.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: API key is required")
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	model := cfg.Model
	if model == "" {
		model = DefaultConfig().Model
	}

	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

// Generate sends one system instruction and one user message and returns
// the generated text. No retries; the caller decides how a failure
// propagates.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("text generation request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyGeneration
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}
