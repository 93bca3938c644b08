package extraction

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/service/extraction"
	apperrors "github.com/openphms/admin-api/pkg/errors"
	"github.com/openphms/admin-api/pkg/httputil"
)

type Handler struct {
	service *extraction.Service
}

func NewHandler(service *extraction.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/patients/:id/reports", h.UploadReport)

	reports := r.Group("/reports")
	{
		reports.GET("/:id", h.GetExtraction)
		reports.POST("/:id/confirm", h.ConfirmExtraction)
		reports.POST("/:id/discard", h.DiscardExtraction)
	}
}

// UploadReport accepts a multipart lab report and runs extraction. The
// response is the staged entry, either EXTRACTED with proposed metrics for
// review or FAILED with the reason.
func (h *Handler) UploadReport(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationField("id", "invalid patient id"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationField("file", "report file is required"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}

	pe, err := h.service.Submit(c.Request.Context(), patientID, fileHeader.Filename, payload)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, pe)
}

func (h *Handler) GetExtraction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationField("id", "invalid extraction id"))
		return
	}

	pe, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pe)
}

// ConfirmExtraction commits the administrator-reviewed metrics as a snapshot.
func (h *Handler) ConfirmExtraction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationField("id", "invalid extraction id"))
		return
	}

	var req model.ConfirmExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	snap, err := h.service.Confirm(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, snap)
}

func (h *Handler) DiscardExtraction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationField("id", "invalid extraction id"))
		return
	}

	if err := h.service.Discard(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"discarded": true})
}
