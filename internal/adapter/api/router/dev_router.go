package router

import (
	"github.com/labstack/echo/v4"

	"matchchat/internal/adapter/api/handler"
	"matchchat/internal/adapter/api/middleware"
)

// SetupDevRouter registers the test chat tools. Cleanup is refused by the
// usecase in production; token minting is not routed there at all.
func SetupDevRouter(e *echo.Echo, devHandler *handler.DevHandler, authMiddleware *middleware.AuthMiddleware, production bool) {
	dev := e.Group("/_dev")

	dev.POST("/test-token", devHandler.GenerateTestToken, middleware.DevOnly(production))
	dev.POST("/test-chat", devHandler.InitializeTestChat, authMiddleware.Authenticate)
	dev.DELETE("/test-chat", devHandler.CleanupTestChat, authMiddleware.Authenticate)
}
