package supervisor

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/cyber-patrol/pkg/common"
)

// Handler exposes service control to operators
type Handler struct {
	supervisor *Supervisor
}

// NewHandler creates a new supervisor handler
func NewHandler(supervisor *Supervisor) *Handler {
	return &Handler{supervisor: supervisor}
}

// ListServices returns every service record
// GET /api/v1/services
func (h *Handler) ListServices(c *gin.Context) {
	common.SuccessResponse(c, h.supervisor.List())
}

// GetService returns one service record
// GET /api/v1/services/:name
func (h *Handler) GetService(c *gin.Context) {
	svc, err := h.supervisor.Status(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, svc)
}

// StartService starts a service
// POST /api/v1/services/:name/start
func (h *Handler) StartService(c *gin.Context) {
	svc, err := h.supervisor.Start(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, svc)
}

// StopService stops a service. A forced stop still answers 200 with the note in stats.
// POST /api/v1/services/:name/stop
func (h *Handler) StopService(c *gin.Context) {
	svc, err := h.supervisor.Stop(c.Request.Context(), c.Param("name"))
	if err != nil && !errors.Is(err, ErrStopTimeout) {
		respondError(c, err)
		return
	}
	common.SuccessResponse(c, svc)
}

// RegisterRoutes registers service control routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	services := r.Group("/services")
	{
		services.GET("", h.ListServices)
		services.GET("/:name", h.GetService)
		services.POST("/:name/start", h.StartService)
		services.POST("/:name/stop", h.StopService)
	}
}

// ToAppError maps supervisor errors to HTTP errors
func ToAppError(err error) *common.AppError {
	switch {
	case errors.Is(err, ErrUnknownService):
		return common.NewNotFoundError("service not found", err)
	case errors.Is(err, ErrAlreadyRunning):
		return common.NewConflictError("service already running")
	case errors.Is(err, ErrNotRunning):
		return common.NewConflictError("service not running")
	case errors.Is(err, ErrInvalidTransition):
		return common.NewConflictError(err.Error())
	default:
		return common.NewAppError(http.StatusBadGateway, "collector failed: "+err.Error(), err)
	}
}

func respondError(c *gin.Context, err error) {
	common.AppErrorResponse(c, ToAppError(err))
}
