package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openphms/admin-api/internal/middleware"
	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/service/auth"
	apperrors "github.com/openphms/admin-api/pkg/errors"
	"github.com/openphms/admin-api/pkg/httputil"
)

type Handler struct {
	service *auth.Service
}

func NewHandler(service *auth.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/auth/logout", h.Logout)
	r.GET("/auth/me", h.Me)
}

// Login exchanges credentials for a session token. An unknown user id and a
// wrong password produce the same response, so the endpoint cannot be used
// to enumerate accounts.
func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	token, err := h.service.Authenticate(c.Request.Context(), req.UserID, req.Password)
	if err != nil {
		switch apperrors.CodeOf(err) {
		case apperrors.ErrNotFound, apperrors.ErrUnauthenticated:
			c.Error(err)
			c.JSON(http.StatusUnauthorized, httputil.Response{
				Success: false,
				Error: &httputil.Error{
					Code:    apperrors.ErrUnauthenticated.String(),
					Message: "invalid credentials",
				},
			})
		default:
			httputil.RespondWithError(c, err)
		}
		return
	}

	httputil.RespondWithSuccess(c, token)
}

func (h *Handler) Logout(c *gin.Context) {
	token := c.GetString(middleware.ContextSessionToken)
	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"logged_out": true})
}

// Me returns the acting administrator's own profile.
func (h *Handler) Me(c *gin.Context) {
	admin, ok := middleware.CurrentAdmin(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthenticated("no active session"))
		return
	}
	httputil.RespondWithSuccess(c, admin)
}
