// Package v1 provides the HTTP handlers for the chat API.
package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/xiaot623/chatrelay/internal/hub"
	"github.com/xiaot623/chatrelay/internal/service"
)

// WSConfig holds the keepalive settings for event subscriptions.
type WSConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	hub      *hub.Hub
	ws       WSConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler. hub may be nil, in which case the
// WebSocket route is not registered.
func NewHandler(svc *service.Service, h *hub.Hub, ws WSConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if ws.PingInterval <= 0 {
		ws.PingInterval = 30 * time.Second
	}
	if ws.WriteTimeout <= 0 {
		ws.WriteTimeout = 10 * time.Second
	}
	if ws.ReadTimeout <= 0 {
		ws.ReadTimeout = 60 * time.Second
	}
	return &Handler{
		service: svc,
		hub:     h,
		ws:      ws,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1")

	// Identity
	api.POST("/user/signup", h.Signup)
	api.POST("/user/signin", h.Signin)

	// Chat, all authenticated
	chat := api.Group("/chat", Authenticate(h.Pipeline()...))
	chat.POST("/start", h.StartSession)
	chat.POST("/send", h.SendMessage)
	chat.GET("/history/:chatSessionId", h.GetHistory)
	chat.GET("/sessions", h.ListSessions)
	chat.POST("/close", h.CloseSession)
	chat.PUT("/rename/:chatSessionId", h.RenameSession)
	if h.hub != nil {
		chat.GET("/ws/:chatSessionId", h.Subscribe)
	}

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
