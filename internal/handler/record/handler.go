package record

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/service/chart"
	"github.com/openphms/admin-api/internal/service/record"
	apperrors "github.com/openphms/admin-api/pkg/errors"
	"github.com/openphms/admin-api/pkg/httputil"
)

type Handler struct {
	records *record.Service
	charts  *chart.Service
}

func NewHandler(records *record.Service, charts *chart.Service) *Handler {
	return &Handler{
		records: records,
		charts:  charts,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients/:id")
	{
		patients.POST("/snapshots", h.AddSnapshot)
		patients.GET("/snapshots", h.ListSnapshots)
		patients.GET("/snapshots/latest", h.LatestSnapshot)
		patients.GET("/charts/:group", h.ChartSeries)
	}

	snapshots := r.Group("/snapshots")
	{
		snapshots.GET("/:id", h.GetSnapshot)
		snapshots.DELETE("/:id", h.DeleteSnapshot)
	}
}

// AddSnapshot records a manually entered snapshot. Report-derived snapshots
// go through the extraction confirm flow instead.
func (h *Handler) AddSnapshot(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationField("id", "invalid patient id"))
		return
	}

	var req model.AddSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	snap, err := h.records.AddSnapshot(c.Request.Context(), patientID, model.SourceManual, req.RecordedAt, req.Metrics, req.Notes)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, snap)
}

func (h *Handler) ListSnapshots(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationField("id", "invalid patient id"))
		return
	}

	var rng model.SnapshotRange
	if err := c.ShouldBindQuery(&rng); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	snaps, err := h.records.ListSnapshots(c.Request.Context(), patientID, rng)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, snaps)
}

func (h *Handler) LatestSnapshot(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationField("id", "invalid patient id"))
		return
	}

	snap, err := h.records.LatestSnapshot(c.Request.Context(), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, snap)
}

// ChartSeries returns per-metric time series for one metric group.
func (h *Handler) ChartSeries(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationField("id", "invalid patient id"))
		return
	}

	series, err := h.charts.BuildSeries(c.Request.Context(), patientID, c.Param("group"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, series)
}

func (h *Handler) GetSnapshot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationField("id", "invalid snapshot id"))
		return
	}

	snap, err := h.records.GetSnapshot(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, snap)
}

func (h *Handler) DeleteSnapshot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationField("id", "invalid snapshot id"))
		return
	}

	if err := h.records.DeleteSnapshot(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}
