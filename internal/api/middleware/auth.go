package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/service"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/pkg/utils/response"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// AuthMiddleware creates a new authorization middleware
func AuthMiddleware(db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if auth == "" {
				return response.ErrorResponse(c, http.StatusUnauthorized, "AuthorizationException", "Missing Authorization header")
			}

			parts := strings.SplitN(auth, ":", 2)
			if len(parts) != 2 {
				return response.ErrorResponse(c, http.StatusUnauthorized, "AuthorizationException", "Invalid Authorization header format")
			}

			userID, enctoken := parts[0], parts[1]

			sessionService := service.NewSessionService(db)
			userSession, err := sessionService.VerifyUserAuthorization(userID, enctoken)
			if err != nil || userSession == nil {
				return response.ErrorResponse(c, http.StatusUnauthorized, "AuthorizationException", "Invalid or expired session")
			}

			// Add session data to context for use in handlers
			c.Set("user_id", userSession.UserId)
			c.Set("enctoken", userSession.Enctoken)
			c.Set("user_session", userSession)

			return next(c)
		}
	}
}

// GetUserIdEnctokenFromEchoContext returns the authenticated user id and
// enctoken stored by AuthMiddleware
func GetUserIdEnctokenFromEchoContext(c echo.Context) (string, string, error) {
	userId, ok := c.Get("user_id").(string)
	if !ok || userId == "" {
		return "", "", fmt.Errorf("no authenticated user in context")
	}
	enctoken, ok := c.Get("enctoken").(string)
	if !ok || enctoken == "" {
		return "", "", fmt.Errorf("no enctoken in context")
	}
	return userId, enctoken, nil
}
