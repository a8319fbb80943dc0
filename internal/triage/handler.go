package triage

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/cyber-patrol/internal/collector"
	"github.com/richxcame/cyber-patrol/internal/reputation"
	"github.com/richxcame/cyber-patrol/internal/scoring"
	"github.com/richxcame/cyber-patrol/pkg/common"
)

// maxManualBatch bounds batches submitted over HTTP
const maxManualBatch = 500

// SubmitBatchRequest is the body of POST /triage/batches
type SubmitBatchRequest struct {
	Service string              `json:"service"`
	Items   []collector.RawItem `json:"items" binding:"required"`
}

// AnalyzeTextRequest is the body of POST /analyze/text
type AnalyzeTextRequest struct {
	Text      string   `json:"text"`
	MediaURLs []string `json:"media_urls"`
}

// AnalyzeDomainRequest is the body of POST /analyze/domain
type AnalyzeDomainRequest struct {
	Domain string `json:"domain" binding:"required"`
}

// Handler handles manual triage and ad-hoc analysis
type Handler struct {
	pipeline *Pipeline
}

// NewHandler creates a new triage handler
func NewHandler(pipeline *Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
}

// SubmitBatch triages a batch submitted by an operator or an external scraper
// POST /api/v1/triage/batches
func (h *Handler) SubmitBatch(c *gin.Context) {
	var req SubmitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) > maxManualBatch {
		common.ErrorResponse(c, http.StatusBadRequest, "batch too large")
		return
	}
	if req.Service == "" {
		req.Service = "manual"
	}
	for i := range req.Items {
		if req.Items[i].Kind == "" {
			req.Items[i].Kind = collector.ItemKindPost
		}
	}

	outcome, err := h.pipeline.ProcessBatch(c.Request.Context(), collector.Batch{Service: req.Service, Items: req.Items})
	if err != nil {
		if errors.Is(err, ErrStore) {
			c.JSON(http.StatusServiceUnavailable, common.Response{
				Success: false,
				Data:    outcome,
				Error:   &common.ErrorInfo{Code: http.StatusServiceUnavailable, Message: "some items could not be stored; resubmit the batch"},
			})
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to triage batch")
		return
	}

	common.SuccessResponse(c, outcome)
}

// AnalyzeText scores text without storing anything
// POST /api/v1/analyze/text
func (h *Handler) AnalyzeText(c *gin.Context) {
	var req AnalyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" && len(req.MediaURLs) == 0 {
		common.ErrorResponse(c, http.StatusBadRequest, "text or media_urls is required")
		return
	}

	result := h.pipeline.AnalyzeText(c.Request.Context(), scoring.Content{Text: req.Text, MediaURLs: req.MediaURLs})
	common.SuccessResponse(c, result)
}

// AnalyzeDomain scores a domain without storing anything
// POST /api/v1/analyze/domain
func (h *Handler) AnalyzeDomain(c *gin.Context) {
	var req AnalyzeDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.pipeline.AnalyzeDomain(req.Domain)
	if err != nil {
		if errors.Is(err, reputation.ErrInvalidDomain) {
			common.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to analyze domain")
		return
	}

	common.SuccessResponse(c, result)
}

// RegisterRoutes registers triage and analysis routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/triage/batches", h.SubmitBatch)

	analyze := r.Group("/analyze")
	{
		analyze.POST("/text", h.AnalyzeText)
		analyze.POST("/domain", h.AnalyzeDomain)
	}
}
