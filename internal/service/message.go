package service

import (
	"context"
	"time"

	"github.com/xiaot623/chatrelay/internal/domain"
)

// Append writes one turn to a session's log. The session's existence is not
// checked; only the identifier's format is.
func (s *Service) Append(ctx context.Context, sessionID, senderID, content string, isUserMessage bool) (*domain.ChatMessage, error) {
	return s.appendAt(ctx, sessionID, senderID, content, isUserMessage, time.Time{})
}

// appendAt is Append with a lower bound on the stored timestamp.
func (s *Service) appendAt(ctx context.Context, sessionID, senderID, content string, isUserMessage bool, notBefore time.Time) (*domain.ChatMessage, error) {
	if content == "" {
		return nil, domain.NewValidationError("content is required",
			domain.FieldViolation{Field: "content", Rule: "required"})
	}
	if !validID(sessionID) {
		return nil, domain.NewInvalidIdentifier("Invalid chatSessionId")
	}

	ts := s.now()
	if ts.Before(notBefore) {
		ts = notBefore
	}
	msg := &domain.ChatMessage{
		ID:            newID(),
		SessionID:     sessionID,
		SenderID:      senderID,
		Timestamp:     ts,
		IsUserMessage: isUserMessage,
		Content:       content,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, domain.NewPersistenceError("Error saving chat message", err)
	}

	messagesAppended.WithLabelValues(author(isUserMessage)).Inc()
	s.publish(domain.Event{Type: domain.EventTypeMessageAppended, SessionID: sessionID, Message: msg})
	return msg, nil
}

// History returns every message of a session in insertion order. Whether
// non-owners may read it is up to the access policy.
func (s *Service) History(ctx context.Context, userID, sessionID string) ([]domain.ChatMessage, error) {
	if err := s.CanRead(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	messages, err := s.store.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, domain.NewPersistenceError("Error fetching chat history", err)
	}
	return messages, nil
}

// CanRead reports whether userID may read sessionID's history.
func (s *Service) CanRead(ctx context.Context, userID, sessionID string) error {
	if !validID(sessionID) {
		return domain.NewInvalidIdentifier("Invalid chatSessionId")
	}
	return s.Authorize(ctx, domain.ActionHistory, userID, sessionID)
}

func author(isUserMessage bool) string {
	if isUserMessage {
		return "user"
	}
	return "assistant"
}
