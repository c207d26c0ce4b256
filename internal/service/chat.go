package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xiaot623/chatrelay/internal/domain"
)

// SendMessage records the user's prompt, asks the gateway for a reply and
// records the reply. A successful call leaves exactly two new messages in
// the session. When the gateway fails the second message carries the error
// text and the completion error is returned.
func (s *Service) SendMessage(ctx context.Context, userID, sessionID, prompt string) (string, error) {
	if prompt == "" || sessionID == "" {
		return "", domain.NewValidationError("Missing prompt or chatSessionId")
	}
	if !validID(userID) {
		return "", domain.NewInvalidIdentifier("Invalid userId")
	}
	if !validID(sessionID) {
		return "", domain.NewInvalidIdentifier("Invalid chatSessionId")
	}
	if err := s.Authorize(ctx, domain.ActionSend, userID, sessionID); err != nil {
		return "", err
	}

	userMsg, err := s.Append(ctx, sessionID, userID, prompt, true)
	if err != nil {
		return "", err
	}

	// Once the prompt is stored the exchange finishes even if the caller
	// goes away, so the log never ends on an unanswered turn.
	ctx = context.WithoutCancel(ctx)

	provider := s.gateway.Name()
	start := s.now()
	reply, err := s.gateway.Complete(ctx, prompt)
	completionLatency.WithLabelValues(provider).Observe(s.now().Sub(start).Seconds())

	if err != nil {
		completions.WithLabelValues(provider, "error").Inc()
		cerr := asCompletionError(err)

		content := fmt.Sprintf("%s API Error: %s", provider, cerr.Message)
		if _, aerr := s.appendAt(ctx, sessionID, userID, content, false, userMsg.Timestamp); aerr != nil {
			s.logger.Warn("failed to record completion error", "session", sessionID, "err", aerr)
		}
		s.logger.Error("completion failed", "provider", provider, "session", sessionID, "err", cerr)
		return "", cerr
	}
	completions.WithLabelValues(provider, "ok").Inc()

	if reply == "" {
		reply = fmt.Sprintf("No response from %s.", provider)
	}
	if _, err := s.appendAt(ctx, sessionID, userID, reply, false, userMsg.Timestamp); err != nil {
		s.logger.Error("reply not recorded", "session", sessionID, "err", err)
		return "", err
	}
	return reply, nil
}

func asCompletionError(err error) *domain.Error {
	var derr *domain.Error
	if errors.As(err, &derr) && derr.Kind == domain.KindCompletion {
		return derr
	}
	return domain.NewCompletionError(err.Error(), domain.CompletionDetail{Transport: err.Error()}, err)
}
