package handler

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "matchchat/internal/infrastructure/websocket"
	"matchchat/pkg/errors"
	"matchchat/pkg/response"
)

type WebSocketHandler struct {
	wsManager *ws.Manager
	upgrader  gorillaws.Upgrader
}

func NewWebSocketHandler(wsManager *ws.Manager, checkOrigin func(r *http.Request) bool) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager: wsManager,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// HandleChatFeed upgrades to a websocket that streams one chat's messages.
func (h *WebSocketHandler) HandleChatFeed(c echo.Context) error {
	userID, ok := c.Get("uid").(string)
	if !ok || userID == "" {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}
	chatID := c.Param("id")
	if chatID == "" {
		return response.Error(c, errors.BadRequest("chat id is required", nil))
	}

	if err := h.wsManager.Authorize(c.Request().Context(), userID, chatID); err != nil {
		return response.Error(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return nil
	}

	h.wsManager.Serve(c.Request().Context(), conn, userID, chatID)
	return nil
}
