package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"matchchat/internal/usecase"
)

type AuthMiddleware struct {
	verifier usecase.TokenVerifier
}

func NewAuthMiddleware(verifier usecase.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Authenticate verifies the bearer token, sets "uid" on the echo context and
// attaches it to the request context for the usecases.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		idToken, err := bearerToken(c)
		if err != nil {
			return err
		}

		uid, err := m.verifier.VerifyToken(c.Request().Context(), idToken)
		if err != nil || uid == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		c.Set("uid", uid)
		req := c.Request()
		c.SetRequest(req.WithContext(usecase.WithUserID(req.Context(), uid)))

		return next(c)
	}
}

// bearerToken reads the Authorization header, falling back to the "token"
// query parameter because browsers cannot set headers on websocket upgrades.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := c.QueryParam("token"); token != "" {
			return token, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
	}
	return parts[1], nil
}
