package patrol

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/internal/supervisor"
	"github.com/richxcame/cyber-patrol/pkg/common"
)

// Handler handles HTTP requests for patrol sessions
type Handler struct {
	manager *Manager
}

// NewHandler creates a new patrol session handler
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// StartSession starts a patrol session over a set of services
// POST /api/v1/sessions
func (h *Handler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.manager.StartSession(c.Request.Context(), &req)
	if err != nil {
		common.AppErrorResponse(c, toAppError(err))
		return
	}

	common.CreatedResponse(c, session)
}

// ListSessions lists every session, newest first
// GET /api/v1/sessions
func (h *Handler) ListSessions(c *gin.Context) {
	common.SuccessResponse(c, h.manager.List())
}

// GetSession returns a session with live service statistics
// GET /api/v1/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid session ID")
		return
	}

	view, err := h.manager.Get(id)
	if err != nil {
		common.AppErrorResponse(c, toAppError(err))
		return
	}

	common.SuccessResponse(c, view)
}

// StopSession stops every service in a session
// POST /api/v1/sessions/:id/stop
func (h *Handler) StopSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid session ID")
		return
	}

	session, err := h.manager.StopSession(c.Request.Context(), id)
	if err != nil {
		common.AppErrorResponse(c, toAppError(err))
		return
	}

	common.SuccessResponse(c, session)
}

// RegisterRoutes registers session routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/sessions")
	{
		sessions.POST("", h.StartSession)
		sessions.GET("", h.ListSessions)
		sessions.GET("/:id", h.GetSession)
		sessions.POST("/:id/stop", h.StopSession)
	}
}

func toAppError(err error) *common.AppError {
	switch {
	case errors.Is(err, ErrNoServices), errors.Is(err, ErrInvalidConfig):
		return common.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, ErrSessionNotFound):
		return common.NewNotFoundError("session not found", err)
	case errors.Is(err, ErrServiceInUse), errors.Is(err, ErrSessionNotActive):
		return common.NewConflictError(err.Error())
	default:
		return supervisor.ToAppError(err)
	}
}
