// Package client provides an HTTP client for the chat API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/xiaot623/chatrelay/internal/domain"
)

// Client is an HTTP client for the chat API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new client. token may be empty for the identity routes.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			// Sends wait on the completion gateway.
			Timeout: 2 * time.Minute,
		},
	}
}

// SetToken replaces the bearer token used for chat routes.
func (c *Client) SetToken(token string) {
	c.token = token
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 && string(e.Details) != "null" {
		return fmt.Sprintf("%d: %s (%s)", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Signup calls POST /api/v1/user/signup.
func (c *Client) Signup(ctx context.Context, username, email, password string) (*domain.SignupResponse, error) {
	req := domain.SignupRequest{Username: username, Email: email, Password: password}
	var resp domain.SignupResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/user/signup", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Signin calls POST /api/v1/user/signin and keeps the returned token.
func (c *Client) Signin(ctx context.Context, email, password string) (string, error) {
	req := domain.SigninRequest{Email: email, Password: password}
	var resp domain.SigninResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/user/signin", req, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// StartSession calls POST /api/v1/chat/start.
func (c *Client) StartSession(ctx context.Context) (string, error) {
	var resp domain.StartSessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/chat/start", nil, &resp); err != nil {
		return "", err
	}
	return resp.ChatSessionID, nil
}

// Send calls POST /api/v1/chat/send.
func (c *Client) Send(ctx context.Context, sessionID, prompt string) (string, error) {
	req := domain.SendMessageRequest{Prompt: prompt, ChatSessionID: sessionID}
	var resp domain.SendMessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/chat/send", req, &resp); err != nil {
		return "", err
	}
	return resp.Reply, nil
}

// History calls GET /api/v1/chat/history/:chatSessionId.
func (c *Client) History(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	var resp []domain.ChatMessage
	if err := c.do(ctx, http.MethodGet, "/api/v1/chat/history/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Sessions calls GET /api/v1/chat/sessions.
func (c *Client) Sessions(ctx context.Context) ([]domain.ChatSession, error) {
	var resp []domain.ChatSession
	if err := c.do(ctx, http.MethodGet, "/api/v1/chat/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Close calls POST /api/v1/chat/close.
func (c *Client) Close(ctx context.Context, sessionID string) (*domain.CloseSessionResponse, error) {
	req := domain.CloseSessionRequest{ChatSessionID: sessionID}
	var resp domain.CloseSessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/chat/close", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Rename calls PUT /api/v1/chat/rename/:chatSessionId.
func (c *Client) Rename(ctx context.Context, sessionID, title string) (*domain.ChatSession, error) {
	req := domain.RenameSessionRequest{Title: title}
	var resp domain.ChatSession
	if err := c.do(ctx, http.MethodPut, "/api/v1/chat/rename/"+url.PathEscape(sessionID), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Watch subscribes to a session's events and calls fn for each one until
// ctx is done or the server closes the connection.
func (c *Client) Watch(ctx context.Context, sessionID string, fn func(domain.Event)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/v1/chat/ws/" + url.PathEscape(sessionID)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return c.decodeError(resp)
		}
		return errors.Wrap(err, "failed to connect")
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return errors.Wrap(err, "connection lost")
		}
		var ev domain.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		fn(ev)
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

// decodeError reads either {"error","details"} or {"msg","details"}.
func (c *Client) decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	var payload struct {
		Error   string          `json:"error"`
		Msg     string          `json:"msg"`
		Details json.RawMessage `json:"details"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if json.Unmarshal(data, &payload) == nil {
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Msg
		}
		apiErr.Details = payload.Details
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
