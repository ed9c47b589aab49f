package router

import (
	"github.com/labstack/echo/v4"

	"matchchat/internal/adapter/api/handler"
	"matchchat/internal/adapter/api/middleware"
	"matchchat/internal/infrastructure/ratelimit"
)

type Handlers struct {
	Chat      *handler.ChatHandler
	Dev       *handler.DevHandler
	WebSocket *handler.WebSocketHandler
	Health    *handler.HealthHandler
}

func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter, production bool) {
	SetupHealthRouter(e, h.Health)
	SetupChatRouter(e, h.Chat, authMiddleware, limiter)
	SetupWebSocketRouter(e, h.WebSocket, authMiddleware)
	SetupDevRouter(e, h.Dev, authMiddleware, production)
}
