package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

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
	admins := r.Group("/admins")
	{
		admins.POST("", h.CreateAdmin)
		admins.GET("", h.ListAdmins)
		admins.DELETE("/:id", h.DeleteAdmin)
	}
}

// CreateAdmin provisions a new administrator. The requester must present the
// provisioning secret in addition to holding a valid session.
func (h *Handler) CreateAdmin(c *gin.Context) {
	requester, ok := middleware.CurrentAdmin(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthenticated("no active session"))
		return
	}

	var req model.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	created, err := h.service.CreateAdmin(c.Request.Context(), requester, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, created)
}

func (h *Handler) ListAdmins(c *gin.Context) {
	admins, err := h.service.ListAdmins(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, admins)
}

func (h *Handler) DeleteAdmin(c *gin.Context) {
	requester, ok := middleware.CurrentAdmin(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthenticated("no active session"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationField("id", "invalid administrator id"))
		return
	}

	if err := h.service.DeleteAdmin(c.Request.Context(), requester, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}
