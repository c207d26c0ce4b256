package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/xiaot623/chatrelay/internal/domain"
)

// MockClient is a mock implementation of Gateway for tests and local runs.
type MockClient struct {
	mu      sync.Mutex
	fail    *domain.Error
	reply   string
	prompts []string
}

// NewMockClient creates a new mock gateway that echoes prompts.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Name implements Gateway.
func (m *MockClient) Name() string {
	return "Mock"
}

// WithReply makes every call return reply.
func (m *MockClient) WithReply(reply string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reply = reply
	return m
}

// WithFailure makes every call fail with a completion error carrying message.
func (m *MockClient) WithFailure(status int, message string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = domain.NewCompletionError(message, domain.CompletionDetail{StatusCode: status, Body: message}, nil)
	return m
}

// Prompts returns the prompts received so far.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Complete returns the configured reply, failure, or an echo of the prompt.
func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)

	if m.fail != nil {
		return "", m.fail
	}
	if m.reply != "" {
		return m.reply, nil
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(prompt, 100)), nil
}

// truncate cuts s to at most maxLen runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
