package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"matchchat/internal/usecase"
	"matchchat/pkg/errors"
	"matchchat/pkg/response"
)

// TokenGenerator mints sign-in tokens for a uid.
type TokenGenerator interface {
	GenerateToken(ctx context.Context, uid string) (string, error)
}

// DevHandler serves the development-only test chat tools.
type DevHandler struct {
	lifecycle *usecase.TestChatLifecycle
	accounts  usecase.TestChatAccounts
	tokens    TokenGenerator
}

func NewDevHandler(lifecycle *usecase.TestChatLifecycle, accounts usecase.TestChatAccounts, tokens TokenGenerator) *DevHandler {
	return &DevHandler{
		lifecycle: lifecycle,
		accounts:  accounts,
		tokens:    tokens,
	}
}

type testTokenRequest struct {
	Account string `json:"account" validate:"required,oneof=a b"`
}

func (h *DevHandler) InitializeTestChat(c echo.Context) error {
	chatID := h.lifecycle.InitializeTestChat(c.Request().Context())
	if chatID == "" {
		return response.Error(c, errors.Forbidden("Test chat unavailable for this user", nil))
	}
	return response.Success(c, map[string]string{"chat_id": chatID})
}

func (h *DevHandler) CleanupTestChat(c echo.Context) error {
	if !h.lifecycle.CleanupTestChat(c.Request().Context()) {
		return response.Error(c, errors.Forbidden("Test chat cleanup refused", nil))
	}
	return response.Success(c, map[string]bool{"ok": true})
}

// GenerateTestToken signs in as one of the two test accounts.
func (h *DevHandler) GenerateTestToken(c echo.Context) error {
	if h.tokens == nil {
		return response.Error(c, errors.NotFound("Token generator", nil))
	}

	var req testTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := h.accounts.UserAID
	if req.Account == "b" {
		uid = h.accounts.UserBID
	}

	token, err := h.tokens.GenerateToken(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"token": token, "user_id": uid})
}
