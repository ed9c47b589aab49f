package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	storeDriver string
}

func NewHealthHandler(storeDriver string) *HealthHandler {
	return &HealthHandler{
		storeDriver: storeDriver,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"store":  h.storeDriver,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
