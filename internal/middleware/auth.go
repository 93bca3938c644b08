package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openphms/admin-api/internal/handler"
	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/service/auth"
	apperrors "github.com/openphms/admin-api/pkg/errors"
)

const (
	ContextAdmin        = "admin"
	ContextSessionToken = "session_token"
)

type AuthMiddleware struct {
	authService *auth.Service
}

func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate validates the bearer token against the live session store and
// sets the acting administrator in context. Every failure mode reads the
// same to the client apart from expiry, which the UI uses to force re-login.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		admin, err := m.authService.Authorize(c.Request.Context(), parts[1])
		if err != nil {
			switch apperrors.CodeOf(err) {
			case apperrors.ErrExpired:
				c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("session expired"))
			case apperrors.ErrForbidden:
				c.JSON(http.StatusForbidden, handler.NewErrorResponse("account is deactivated"))
			default:
				c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			}
			c.Abort()
			return
		}

		c.Set(ContextAdmin, admin)
		c.Set(ContextSessionToken, parts[1])
		c.Next()
	}
}

// CurrentAdmin returns the administrator set by Authenticate.
func CurrentAdmin(c *gin.Context) (*model.Administrator, bool) {
	v, ok := c.Get(ContextAdmin)
	if !ok {
		return nil, false
	}
	admin, ok := v.(*model.Administrator)
	return admin, ok
}
