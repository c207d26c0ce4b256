package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/chatrelay/internal/domain"
)

const userIDKey = "userId"

// Credentials accumulates what the interceptor pipeline has resolved.
type Credentials struct {
	Header string
	Token  string
	User   *domain.User
}

// Rejection short-circuits the pipeline with a response.
type Rejection struct {
	Status int
	Body   map[string]string
}

func reject(status int, msg string) *Rejection {
	return &Rejection{Status: status, Body: map[string]string{"msg": msg}}
}

// Interceptor is one step of the authentication pipeline. It either fills
// in cred and returns nil, or rejects the request.
type Interceptor func(ctx context.Context, r *http.Request, cred *Credentials) *Rejection

// RequireHeader rejects requests without an Authorization header.
func RequireHeader(_ context.Context, r *http.Request, cred *Credentials) *Rejection {
	cred.Header = r.Header.Get(echo.HeaderAuthorization)
	if cred.Header == "" {
		return reject(http.StatusLengthRequired, "Please provide token in headers")
	}
	return nil
}

// RequireBearer extracts the token that follows the scheme.
func RequireBearer(_ context.Context, _ *http.Request, cred *Credentials) *Rejection {
	fields := strings.Fields(cred.Header)
	if len(fields) < 2 || fields[1] == "" {
		return reject(http.StatusLengthRequired, "Token missing")
	}
	cred.Token = fields[1]
	return nil
}

// ResolveUser verifies the token and loads its user.
func (h *Handler) ResolveUser(ctx context.Context, _ *http.Request, cred *Credentials) *Rejection {
	user, err := h.service.Authenticate(ctx, cred.Token)
	if err != nil {
		if domain.IsKind(err, domain.KindForbidden) {
			return reject(http.StatusForbidden, "Invalid token")
		}
		h.logger.Error("authentication failed", "err", err)
		return reject(http.StatusInternalServerError, "Authentication failed")
	}
	cred.User = user
	return nil
}

// Pipeline returns the interceptors guarding the chat routes, in order.
func (h *Handler) Pipeline() []Interceptor {
	return []Interceptor{RequireHeader, RequireBearer, h.ResolveUser}
}

// Authenticate runs the pipeline before each request and stores the
// resolved user id in the echo context. Every rejection is answered.
func Authenticate(pipeline ...Interceptor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			cred := &Credentials{}
			for _, step := range pipeline {
				if rej := step(req.Context(), req, cred); rej != nil {
					return c.JSON(rej.Status, rej.Body)
				}
			}
			if cred.User == nil {
				return c.JSON(http.StatusForbidden, map[string]string{"msg": "Invalid token"})
			}
			c.Set(userIDKey, cred.User.ID)
			return next(c)
		}
	}
}

// currentUserID returns the id stored by Authenticate.
func currentUserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
