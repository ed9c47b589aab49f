package router

import (
	"github.com/labstack/echo/v4"

	"matchchat/internal/adapter/api/handler"
	"matchchat/internal/adapter/api/middleware"
	"matchchat/internal/infrastructure/ratelimit"
)

func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	chatGroup := e.Group("/v1/chats")
	chatGroup.Use(authMiddleware.Authenticate)
	chatGroup.Use(middleware.RateLimit(limiter, ratelimit.ActionRequest))

	chatGroup.GET("", chatHandler.ListChats)
	chatGroup.POST("", chatHandler.OpenChat)
	chatGroup.PUT("/:id/read", chatHandler.MarkRead, middleware.RateLimit(limiter, ratelimit.ActionMarkRead))
	chatGroup.PUT("/:id/delivered", chatHandler.MarkDelivered, middleware.RateLimit(limiter, ratelimit.ActionMarkRead))
	chatGroup.POST("/:id/reconcile", chatHandler.ReconcilePreview)

	chatGroup.POST("/:id/messages", chatHandler.SendMessage, middleware.RateLimit(limiter, ratelimit.ActionSendMessage))
	chatGroup.POST("/:id/messages/:messageId/reactions", chatHandler.ToggleReaction, middleware.RateLimit(limiter, ratelimit.ActionToggleReaction))
}
