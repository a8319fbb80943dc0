package alerts

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/pkg/common"
	"github.com/richxcame/cyber-patrol/pkg/pagination"
)

// Handler handles HTTP requests for alerts
type Handler struct {
	service *Service
}

// NewHandler creates a new alerts handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListAlerts lists alerts with optional filters
// GET /api/v1/alerts?risk_tier=HIGH&category=payment_fraud&status=open&page=1&page_size=20
func (h *Handler) ListAlerts(c *gin.Context) {
	params := pagination.ParseParams(c)
	filter := &ListFilter{
		RiskTier: strings.ToUpper(c.Query("risk_tier")),
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Platform: c.Query("platform"),
		Limit:    params.Limit,
		Offset:   params.Offset,
	}

	alerts, total, err := h.service.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to list alerts")
		return
	}

	common.SuccessResponseWithMeta(c, alerts, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// GetStats returns alert statistics for the dashboard
// GET /api/v1/alerts/stats
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to load alert statistics")
		return
	}

	common.SuccessResponse(c, stats)
}

// GetAlert returns one alert
// GET /api/v1/alerts/:id
func (h *Handler) GetAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid alert ID")
		return
	}

	alert, err := h.service.GetAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to get alert")
		return
	}

	common.SuccessResponse(c, alert)
}

// UpdateStatus moves an alert along the workflow
// PUT /api/v1/alerts/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid alert ID")
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	alert, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err, "failed to update alert status")
		return
	}

	common.SuccessResponse(c, alert)
}

// Assign assigns an alert to an officer
// PUT /api/v1/alerts/:id/assign
func (h *Handler) Assign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid alert ID")
		return
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	alert, err := h.service.Assign(c.Request.Context(), id, req.Officer)
	if err != nil {
		respondError(c, err, "failed to assign alert")
		return
	}

	common.SuccessResponse(c, alert)
}

// RegisterRoutes registers alert routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	alerts := r.Group("/alerts")
	{
		alerts.GET("", h.ListAlerts)
		alerts.GET("/stats", h.GetStats)
		alerts.GET("/:id", h.GetAlert)
		alerts.PUT("/:id/status", h.UpdateStatus)
		alerts.PUT("/:id/assign", h.Assign)
	}
}

func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrAlertNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "alert not found")
	case errors.Is(err, ErrInvalidStatus):
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidStatusTransition):
		common.AppErrorResponse(c, common.NewConflictError(err.Error()))
	default:
		common.ErrorResponse(c, http.StatusInternalServerError, fallback)
	}
}
