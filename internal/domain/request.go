package domain

import "time"

// SignupRequest is the body of POST /user/signup.
type SignupRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SigninRequest is the body of POST /user/signin.
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SignupResponse is returned after a successful signup.
type SignupResponse struct {
	Msg    string `json:"msg"`
	UserID string `json:"userId"`
}

// SigninResponse carries the bearer token issued on signin.
type SigninResponse struct {
	Msg   string `json:"msg"`
	Token string `json:"token"`
}

// StartSessionResponse is returned by POST /chat/start.
type StartSessionResponse struct {
	ChatSessionID string `json:"chatSessionId"`
}

// SendMessageRequest is the body of POST /chat/send.
type SendMessageRequest struct {
	Prompt        string `json:"prompt" validate:"required"`
	ChatSessionID string `json:"chatSessionId" validate:"required"`
}

// SendMessageResponse carries the assistant reply.
type SendMessageResponse struct {
	Reply string `json:"reply"`
}

// CloseSessionRequest is the body of POST /chat/close.
type CloseSessionRequest struct {
	ChatSessionID string `json:"chatSessionId" validate:"required"`
}

// CloseSessionResponse reports the values written by a close.
type CloseSessionResponse struct {
	ChatSessionID string    `json:"chatSessionId"`
	EndTime       time.Time `json:"endTime"`
	Summary       string    `json:"summary"`
}

// RenameSessionRequest is the body of PUT /chat/rename/:chatSessionId.
type RenameSessionRequest struct {
	Title string `json:"title" validate:"required"`
}

// ErrorResponse is the JSON body of every failed chat request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// Event is pushed to WebSocket subscribers of a session.
type Event struct {
	Type      EventType    `json:"type"`
	SessionID string       `json:"session_id"`
	Ts        int64        `json:"ts"` // Unix milliseconds
	Message   *ChatMessage `json:"message,omitempty"`
	Session   *ChatSession `json:"session,omitempty"`
}
