package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"github.com/xiaot623/chatrelay/internal/domain"
)

// OpenAIFallbackReply is returned when a successful response has no content.
const OpenAIFallbackReply = "No response from OpenAI."

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint,
// including LiteLLM proxies.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Name implements Gateway.
func (c *OpenAIClient) Name() string {
	return "OpenAI"
}

// Complete sends the prompt as a single user message.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", openAIError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return OpenAIFallbackReply, nil
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewCompletionError(apiErr.Message, domain.CompletionDetail{
			StatusCode: apiErr.HTTPStatusCode,
			Body:       apiErr,
		}, nil)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return domain.NewCompletionError(reqErr.Error(), domain.CompletionDetail{
			StatusCode: reqErr.HTTPStatusCode,
			Body:       string(reqErr.Body),
		}, nil)
	}
	return domain.NewCompletionError(err.Error(), domain.CompletionDetail{Transport: err.Error()}, nil)
}
