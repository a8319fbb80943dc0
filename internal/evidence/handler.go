package evidence

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/pkg/common"
)

// archiveLinkTTL bounds how long a presigned archive link stays valid
const archiveLinkTTL = 15 * time.Minute

// Handler handles HTTP requests for evidence and custody
type Handler struct {
	service *Service
}

// NewHandler creates a new evidence handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateEvidence collects a new evidence record
// POST /api/v1/evidence
func (h *Handler) CreateEvidence(c *gin.Context) {
	var req CreateEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := h.service.CreateEvidence(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "failed to create evidence")
		return
	}

	common.CreatedResponse(c, e)
}

// GetEvidence returns one evidence record
// GET /api/v1/evidence/:id
func (h *Handler) GetEvidence(c *gin.Context) {
	id, ok := parseID(c, "invalid evidence ID")
	if !ok {
		return
	}

	e, err := h.service.GetEvidence(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to get evidence")
		return
	}

	common.SuccessResponse(c, e)
}

// AppendCustody records a custody action
// POST /api/v1/evidence/:id/custody
func (h *Handler) AppendCustody(c *gin.Context) {
	id, ok := parseID(c, "invalid evidence ID")
	if !ok {
		return
	}

	var req AppendCustodyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.AppendCustody(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "failed to record custody action")
		return
	}

	common.CreatedResponse(c, result)
}

// ListCustody returns the chain of custody
// GET /api/v1/evidence/:id/custody
func (h *Handler) ListCustody(c *gin.Context) {
	id, ok := parseID(c, "invalid evidence ID")
	if !ok {
		return
	}

	entries, err := h.service.ListCustody(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to list custody entries")
		return
	}

	common.SuccessResponse(c, entries)
}

// VerifyIntegrity recomputes the content hash
// POST /api/v1/evidence/:id/verify
func (h *Handler) VerifyIntegrity(c *gin.Context) {
	id, ok := parseID(c, "invalid evidence ID")
	if !ok {
		return
	}

	report, err := h.service.VerifyIntegrity(c.Request.Context(), id)
	if err != nil && report != nil {
		status := http.StatusUnprocessableEntity
		message := "evidence content does not match its recorded hash"
		if report.Result == IntegrityNotFound {
			status = http.StatusNotFound
			message = "evidence not found"
		}
		c.JSON(status, common.Response{
			Success: false,
			Data:    report,
			Error:   &common.ErrorInfo{Code: status, Message: message},
		})
		return
	}
	if err != nil {
		respondError(c, err, "failed to verify evidence")
		return
	}

	common.SuccessResponse(c, report)
}

// GetArchiveURL returns a short-lived download link for the archived payload
// GET /api/v1/evidence/:id/archive
func (h *Handler) GetArchiveURL(c *gin.Context) {
	id, ok := parseID(c, "invalid evidence ID")
	if !ok {
		return
	}

	link, err := h.service.ArchiveURL(c.Request.Context(), id, archiveLinkTTL)
	if err != nil {
		respondError(c, err, "failed to generate archive link")
		return
	}

	common.SuccessResponse(c, link)
}

// ListAlertEvidence returns the evidence collected for an alert
// GET /api/v1/alerts/:id/evidence
func (h *Handler) ListAlertEvidence(c *gin.Context) {
	id, ok := parseID(c, "invalid alert ID")
	if !ok {
		return
	}

	items, err := h.service.ListByAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to list evidence")
		return
	}

	common.SuccessResponse(c, items)
}

// RegisterRoutes registers evidence routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	evidence := r.Group("/evidence")
	{
		evidence.POST("", h.CreateEvidence)
		evidence.GET("/:id", h.GetEvidence)
		evidence.POST("/:id/custody", h.AppendCustody)
		evidence.GET("/:id/custody", h.ListCustody)
		evidence.POST("/:id/verify", h.VerifyIntegrity)
		evidence.GET("/:id/archive", h.GetArchiveURL)
	}

	r.GET("/alerts/:id/evidence", h.ListAlertEvidence)
}

func parseID(c *gin.Context, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, message)
		return uuid.Nil, false
	}
	return id, true
}

func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrAlertNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "alert not found")
	case errors.Is(err, ErrEvidenceNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "evidence not found")
	case errors.Is(err, ErrNoArchive):
		common.ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidType), errors.Is(err, ErrInvalidAction),
		errors.Is(err, ErrEmptyPayload), errors.Is(err, ErrOfficerRequired):
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrIntegrityMismatch):
		common.AppErrorResponse(c, common.NewUnprocessableError("evidence content does not match its recorded hash", err))
	default:
		common.ErrorResponse(c, http.StatusInternalServerError, fallback)
	}
}
