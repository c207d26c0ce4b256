// Package service implements chat sessions, the message log, the
// conversation pipeline and user identity on top of the store.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/chatrelay/internal/adapter/llm"
	"github.com/xiaot623/chatrelay/internal/auth"
	"github.com/xiaot623/chatrelay/internal/domain"
	store "github.com/xiaot623/chatrelay/internal/repository"
	"github.com/xiaot623/chatrelay/policy"
)

// Authorizer decides whether a chat action on a session is allowed.
type Authorizer interface {
	Evaluate(ctx context.Context, input policy.Input) (domain.Decision, error)
}

// Publisher receives session events after they are persisted.
type Publisher interface {
	Publish(event domain.Event)
}

type Service struct {
	store   store.Store
	gateway llm.Gateway
	policy  Authorizer
	events  Publisher
	tokens  *auth.Tokens
	logger  *slog.Logger
	now     func() time.Time
}

// New wires a Service. policy and events may be nil: a nil policy allows
// every action and a nil publisher drops events.
func New(store store.Store, gateway llm.Gateway, policy Authorizer, events Publisher, tokens *auth.Tokens, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		gateway: gateway,
		policy:  policy,
		events:  events,
		tokens:  tokens,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) publish(event domain.Event) {
	if s.events == nil {
		return
	}
	event.Ts = s.now().UnixMilli()
	s.events.Publish(event)
}

// validID reports whether id is a well-formed identifier.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID() string {
	return uuid.NewString()
}
