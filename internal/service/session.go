package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/chatrelay/internal/domain"
	"github.com/xiaot623/chatrelay/policy"
)

// Summary is the text stored on a session when it is closed.
func Summary(messageCount int) string {
	return fmt.Sprintf("Conversation ended with %d messages", messageCount)
}

// StartSession opens a new session for userID. A user may hold any number
// of open sessions.
func (s *Service) StartSession(ctx context.Context, userID string) (*domain.ChatSession, error) {
	session := &domain.ChatSession{
		ID:        newID(),
		UserID:    userID,
		Name:      domain.DefaultSessionName,
		StartTime: s.now(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, domain.NewPersistenceError("Error starting chat session", err)
	}
	s.logger.Info("chat session started", "session", session.ID, "user", userID)
	return session, nil
}

// ListSessions returns the sessions owned by userID, most recent first.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	sessions, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		return nil, domain.NewPersistenceError("Error fetching chat sessions", err)
	}
	return sessions, nil
}

// CloseSession stamps the end time and message-count summary on a session
// owned by userID. Closing an already closed session overwrites both.
func (s *Service) CloseSession(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	if !validID(sessionID) {
		return nil, domain.NewInvalidIdentifier("Invalid chatSessionId")
	}

	count, err := s.store.CountMessages(ctx, sessionID)
	if err != nil {
		return nil, domain.NewPersistenceError("Error closing chat session", err)
	}

	session, err := s.store.CloseSession(ctx, userID, sessionID, s.now(), Summary(count))
	if err != nil {
		return nil, domain.NewPersistenceError("Error closing chat session", err)
	}
	if session == nil {
		return nil, domain.NewNotFound("Chat session not found")
	}

	s.logger.Info("chat session closed", "session", sessionID, "messages", count)
	s.publish(domain.Event{Type: domain.EventTypeSessionClosed, SessionID: sessionID, Session: session})
	return session, nil
}

// RenameSession changes the display name of a session owned by userID.
func (s *Service) RenameSession(ctx context.Context, userID, sessionID, name string) (*domain.ChatSession, error) {
	if name == "" {
		return nil, domain.NewValidationError("Missing title")
	}
	if !validID(sessionID) {
		return nil, domain.NewInvalidIdentifier("Invalid chatSessionId")
	}

	session, err := s.store.RenameSession(ctx, userID, sessionID, name)
	if err != nil {
		return nil, domain.NewPersistenceError("Error renaming chat session", err)
	}
	if session == nil {
		return nil, domain.NewNotFound("Chat session not found")
	}

	s.publish(domain.Event{Type: domain.EventTypeSessionRenamed, SessionID: sessionID, Session: session})
	return session, nil
}

// Authorize checks action on sessionID for userID against the access
// policy. A denied action reports NotFound so that existence is not leaked.
func (s *Service) Authorize(ctx context.Context, action domain.Action, userID, sessionID string) error {
	if s.policy == nil {
		return nil
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.NewPersistenceError("Error loading chat session", err)
	}

	input := policy.Input{Action: action, UserID: userID}
	if session != nil {
		input.SessionFound = true
		input.OwnerID = session.UserID
	}

	decision, err := s.policy.Evaluate(ctx, input)
	if err != nil {
		return domain.NewPersistenceError("Error checking chat access", err)
	}
	if decision != domain.DecisionAllow {
		s.logger.Info("chat access denied", "action", action, "user", userID, "session", sessionID)
		return domain.NewNotFound("Chat session not found")
	}
	return nil
}
