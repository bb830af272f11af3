package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/voyago/reeltrip/common/config"
)

// ErrLLM marks language-model failures, including replies that carry
// no parseable JSON.
var ErrLLM = errors.New("llm request failed")

// LLMClient wraps the OpenAI-compatible chat API for structured
// generation. Prompts are built by callers; this client owns transport
// and JSON extraction.
type LLMClient struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      Logger
}

// NewLLMClient creates an LLM client from configuration. BaseURL may
// point at any OpenAI-compatible gateway.
func NewLLMClient(cfg config.LLMConfig, logger Logger) *LLMClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
	}

	return &LLMClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

// ChatJSON sends a system+user prompt pair and returns the JSON object
// embedded in the reply.
func (c *LLMClient) ChatJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLM, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion returned no choices", ErrLLM)
	}

	raw, err := ExtractJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("chat completion ok", "model", c.model, "tokens", resp.Usage.TotalTokens)
	return raw, nil
}

// ExtractJSON pulls the JSON object out of a model reply that may wrap
// it in prose or code fences. It takes the span from the first '{' to
// the last '}' and validates it.
func ExtractJSON(reply string) (json.RawMessage, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("%w: reply contains no JSON object", ErrLLM)
	}

	raw := json.RawMessage(reply[start : end+1])
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: extracted span is not valid JSON", ErrLLM)
	}
	return raw, nil
}
