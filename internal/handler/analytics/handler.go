package analytics

import (
	"github.com/gin-gonic/gin"

	"github.com/openphms/admin-api/internal/metric"
	"github.com/openphms/admin-api/internal/service/analytics"
	"github.com/openphms/admin-api/pkg/httputil"
)

type Handler struct {
	service *analytics.Service
}

func NewHandler(service *analytics.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats/overview", h.Overview)
	r.GET("/metrics/catalog", h.MetricCatalog)
}

func (h *Handler) Overview(c *gin.Context) {
	stats, err := h.service.Overview(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}

// MetricCatalog lists the metrics the system accepts, grouped by category.
// The UI renders entry forms and chart group pickers from this.
func (h *Handler) MetricCatalog(c *gin.Context) {
	catalog := make(map[metric.Category][]metric.Definition)
	for _, category := range metric.Categories() {
		for _, name := range metric.ByCategory(category) {
			if def, ok := metric.Lookup(name); ok {
				catalog[category] = append(catalog[category], def)
			}
		}
	}
	httputil.RespondWithSuccess(c, catalog)
}
