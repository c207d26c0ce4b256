package v1

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/xiaot623/chatrelay/internal/hub"
)

// Subscribe upgrades to a WebSocket that receives the session's events.
// GET /api/v1/chat/ws/:chatSessionId
func (h *Handler) Subscribe(c echo.Context) error {
	userID := currentUserID(c)
	sessionID := c.Param("chatSessionId")

	if err := h.service.CanRead(c.Request().Context(), userID, sessionID); err != nil {
		return h.chatError(c, err)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("failed to upgrade websocket", "err", err)
		return nil
	}

	conn := h.hub.NewConnection(ws, sessionID, userID)
	h.hub.Register(conn)
	ws.SetReadLimit(4096)

	go h.writePump(conn)
	go h.readPump(conn)

	return nil
}

// readPump drains the connection so pongs and close frames are processed.
// Subscribers do not send anything meaningful.
func (h *Handler) readPump(conn *hub.Connection) {
	defer func() {
		h.hub.Unregister(conn)
		conn.Close()
	}()

	_ = conn.Conn.SetReadDeadline(time.Now().Add(h.ws.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(h.ws.ReadTimeout))
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read failed", "conn", conn.ID, "err", err)
			}
			return
		}
	}
}

// writePump writes queued events and keeps the connection alive with pings.
func (h *Handler) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(h.ws.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(h.ws.WriteTimeout))
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Warn("websocket write failed", "conn", conn.ID, "err", err)
				return
			}

		case <-ticker.C:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(h.ws.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
