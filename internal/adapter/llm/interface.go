// Package llm provides the completion gateway: adapters that send one prompt
// to an external text-generation service and return its reply.
package llm

import "context"

// Gateway sends a single, context-free prompt to a completion service.
//
// Complete returns the reply text, or a *domain.Error of kind
// CompletionError carrying the upstream detail. Implementations make exactly
// one attempt.
type Gateway interface {
	// Name is the human-readable provider name used in error turns.
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Ensure implementations satisfy Gateway.
var (
	_ Gateway = (*GeminiClient)(nil)
	_ Gateway = (*OpenAIClient)(nil)
	_ Gateway = (*MockClient)(nil)
)
