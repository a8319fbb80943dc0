package alerts

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/internal/scoring"
	"github.com/richxcame/cyber-patrol/pkg/models"
)

var (
	ErrAlertNotFound           = errors.New("alert not found")
	ErrInvalidStatus           = errors.New("invalid alert status")
	ErrInvalidStatusTransition = errors.New("invalid alert status transition")
)

// Status is the workflow status of an alert
type Status string

const (
	// StatusPending marks a kept item that has not been opened into the workflow
	StatusPending       Status = "pending"
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusEscalated     Status = "escalated"
	StatusClosed        Status = "closed"
)

// An alert is investigated before it can be resolved or escalated. Closing
// dismisses it from any state; closed is terminal.
var statusTransitions = map[Status][]Status{
	StatusPending:       {StatusOpen, StatusClosed},
	StatusOpen:          {StatusInvestigating, StatusClosed},
	StatusInvestigating: {StatusResolved, StatusEscalated, StatusClosed},
	StatusEscalated:     {StatusResolved, StatusClosed},
	StatusResolved:      {StatusClosed},
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusOpen, StatusInvestigating, StatusResolved, StatusEscalated, StatusClosed:
		return true
	}
	return false
}

// CanTransition reports whether an alert may move from -> to
func CanTransition(from, to Status) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Alert is a kept item together with its score explanation
type Alert struct {
	ID             uuid.UUID        `json:"id"`
	SourcePlatform string           `json:"source_platform"`
	SourceID       string           `json:"source_id"`
	SourceURL      string           `json:"source_url,omitempty"`
	Author         string           `json:"author,omitempty"`
	Content        string           `json:"content"`
	MediaURLs      []string         `json:"media_urls"`
	Confidence     float64          `json:"confidence"`
	RiskTier       scoring.RiskTier `json:"risk_tier"`
	Category       scoring.Category `json:"category"`
	Signals        []string         `json:"signals"`
	Reasoning      string           `json:"reasoning,omitempty"`
	Language       scoring.Language `json:"language,omitempty"`
	Metadata       models.Metadata  `json:"metadata"`
	Status         Status           `json:"status"`
	AssignedTo     string           `json:"assigned_to,omitempty"`
	ObservedAt     *time.Time       `json:"observed_at,omitempty"`
	CollectedAt    *time.Time       `json:"collected_at,omitempty"`
	ResolvedAt     *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Key is the natural key platform:source_id
func (a *Alert) Key() string {
	return a.SourcePlatform + ":" + a.SourceID
}

// ListFilter narrows alert listings. Empty fields match everything.
type ListFilter struct {
	RiskTier string
	Category string
	Status   string
	Platform string
	Limit    int
	Offset   int
}

// CategoryCount is one row of the by-category breakdown
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// DailyCount is the number of alerts created on one day
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Stats is the dashboard summary of alerts
type Stats struct {
	Total          int64            `json:"total"`
	ByRiskTier     map[string]int64 `json:"by_risk_tier"`
	ByCategory     []CategoryCount  `json:"by_category"`
	ByStatus       map[string]int64 `json:"by_status"`
	RecentActivity []DailyCount     `json:"recent_activity"`
}

// UpdateStatusRequest is the body of PUT /alerts/:id/status
type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

// AssignRequest is the body of PUT /alerts/:id/assign
type AssignRequest struct {
	Officer string `json:"officer" binding:"required"`
}
