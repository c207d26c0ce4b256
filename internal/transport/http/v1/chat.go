package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/chatrelay/internal/domain"
)

// StartSession opens a new chat session for the caller.
// POST /api/v1/chat/start
func (h *Handler) StartSession(c echo.Context) error {
	session, err := h.service.StartSession(c.Request().Context(), currentUserID(c))
	if err != nil {
		return h.chatError(c, err)
	}
	return c.JSON(http.StatusCreated, domain.StartSessionResponse{ChatSessionID: session.ID})
}

// SendMessage sends a prompt and returns the assistant reply.
// POST /api/v1/chat/send
func (h *Handler) SendMessage(c echo.Context) error {
	var req domain.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return h.chatError(c, domain.NewValidationError("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return h.chatError(c, relabel(err, "Missing prompt or chatSessionId"))
	}

	reply, err := h.service.SendMessage(c.Request().Context(), currentUserID(c), req.ChatSessionID, req.Prompt)
	if err != nil {
		return h.chatError(c, err)
	}
	return c.JSON(http.StatusOK, domain.SendMessageResponse{Reply: reply})
}

// GetHistory returns a session's messages in order.
// GET /api/v1/chat/history/:chatSessionId
func (h *Handler) GetHistory(c echo.Context) error {
	messages, err := h.service.History(c.Request().Context(), currentUserID(c), c.Param("chatSessionId"))
	if err != nil {
		return h.chatError(c, err)
	}
	return c.JSON(http.StatusOK, messages)
}

// ListSessions returns the caller's sessions, most recent first.
// GET /api/v1/chat/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context(), currentUserID(c))
	if err != nil {
		return h.chatError(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// CloseSession ends one of the caller's sessions.
// POST /api/v1/chat/close
func (h *Handler) CloseSession(c echo.Context) error {
	var req domain.CloseSessionRequest
	if err := c.Bind(&req); err != nil {
		return h.chatError(c, domain.NewValidationError("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return h.chatError(c, relabel(err, "Missing chatSessionId"))
	}

	session, err := h.service.CloseSession(c.Request().Context(), currentUserID(c), req.ChatSessionID)
	if err != nil {
		return h.chatError(c, err)
	}

	resp := domain.CloseSessionResponse{ChatSessionID: session.ID}
	if session.EndTime != nil {
		resp.EndTime = *session.EndTime
	}
	if session.Summary != nil {
		resp.Summary = *session.Summary
	}
	return c.JSON(http.StatusOK, resp)
}

// RenameSession changes the display name of one of the caller's sessions.
// PUT /api/v1/chat/rename/:chatSessionId
func (h *Handler) RenameSession(c echo.Context) error {
	var req domain.RenameSessionRequest
	if err := c.Bind(&req); err != nil {
		return h.chatError(c, domain.NewValidationError("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return h.chatError(c, relabel(err, "Missing title"))
	}

	session, err := h.service.RenameSession(c.Request().Context(), currentUserID(c), c.Param("chatSessionId"), req.Title)
	if err != nil {
		return h.chatError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}
