// Package policy decides access to chat sessions with an OPA rego policy.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
	"github.com/xiaot623/chatrelay/internal/domain"
)

// Input is the document a policy is evaluated against.
type Input struct {
	Action       domain.Action `json:"action"`
	UserID       string        `json:"user_id"`
	OwnerID      string        `json:"owner_id"`
	SessionFound bool          `json:"session_found"`
}

// Engine is the OPA policy engine.
type Engine struct {
	name  string
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, name, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.chat_policy.decision"),
		rego.Module(name+".rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{name: name, query: query}, nil
}

// Load builds an engine from a rego file when path is set, otherwise from
// the named built-in policy ("open" or "owner").
func Load(ctx context.Context, name, path string) (*Engine, error) {
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read policy file: %w", err)
		}
		return NewEngine(ctx, path, string(content))
	}
	content, ok := Builtin[name]
	if !ok {
		return nil, fmt.Errorf("unknown chat policy %q", name)
	}
	return NewEngine(ctx, name, content)
}

// Name returns the policy's name or file path.
func (e *Engine) Name() string {
	return e.name
}

// Evaluate returns the policy decision for input. A policy that produces
// no decision denies.
func (e *Engine) Evaluate(ctx context.Context, input Input) (domain.Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.DecisionDeny, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.DecisionDeny, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok && s == string(domain.DecisionAllow) {
		return domain.DecisionAllow, nil
	}
	return domain.DecisionDeny, nil
}

// OpenPolicy lets any authenticated user read a session's history and send
// to it, whoever owns it.
const OpenPolicy = `
package chat_policy

default decision = "deny"

decision = "allow" {
	input.action == "history"
}

decision = "allow" {
	input.action == "send"
}
`

// OwnerPolicy restricts history and send to the session's owner.
const OwnerPolicy = `
package chat_policy

default decision = "deny"

owner {
	input.session_found
	input.user_id == input.owner_id
}

decision = "allow" {
	input.action == "history"
	owner
}

decision = "allow" {
	input.action == "send"
	owner
}
`

// Builtin maps built-in policy names to their rego source.
var Builtin = map[string]string{
	"open":  OpenPolicy,
	"owner": OwnerPolicy,
}
