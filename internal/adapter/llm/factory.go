package llm

import (
	"log/slog"
	"os"

	"github.com/xiaot623/chatrelay/internal/config"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "CHATRELAY_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewGateway creates a completion gateway for the configured provider.
// CHATRELAY_MODE=MOCK overrides the provider with a MockClient.
func NewGateway(cfg *config.Config, logger *slog.Logger) Gateway {
	if os.Getenv(EnvMode) == ModeMock {
		logger.Info("mock mode detected, using mock completion gateway", "env", EnvMode)
		return NewMockClient()
	}

	switch cfg.LLMProvider {
	case "mock":
		return NewMockClient()
	case "openai":
		return NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout)
	case "gemini":
	default:
		logger.Warn("unknown LLM provider, falling back to gemini", "provider", cfg.LLMProvider)
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is empty; completion calls will fail")
	}
	return NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMTimeout)
}
